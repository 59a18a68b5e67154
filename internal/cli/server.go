package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quiz-room-service/internal/app"
	"quiz-room-service/internal/config"
	"quiz-room-service/internal/infra/memory"
	pgbank "quiz-room-service/internal/infra/postgres"
	redisstore "quiz-room-service/internal/infra/redis"
	"quiz-room-service/internal/questions"
	transport "quiz-room-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz room server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var rooms app.RoomRepository
	if redisClient != nil {
		rooms = redisstore.NewRoomStore(redisClient)
	} else {
		rooms = memory.NewRoomStore()
	}

	// Question supply: external generator if configured, otherwise the
	// Postgres bank, otherwise local sample sets only. Either way the supply
	// pads shortfalls so rooms always get their full question count.
	var generator questions.Generator
	switch {
	case cfg.Questions.GeneratorURL != "":
		timeout := config.Duration(cfg.Questions.GeneratorTimeout, 15*time.Second)
		generator = questions.NewHTTPGenerator(cfg.Questions.GeneratorURL, timeout)
	case pool != nil:
		generator = pgbank.NewQuestionBank(pool)
	}
	var supply app.QuestionSource = questions.NewSupply(generator)
	if ttl := config.Duration(cfg.Questions.CacheTTL, 10*time.Minute); ttl > 0 {
		supply = questions.NewCachedSource(supply, ttl)
	}

	presence := app.NewPresence()
	service := app.NewRoomService(rooms, supply, presence)

	sweeper := app.NewExpirySweeper(service,
		config.Duration(cfg.Room.Expiry, 30*time.Minute),
		config.Duration(cfg.Room.SweepInterval, 5*time.Minute),
		config.Duration(cfg.Room.StartupSweepLag, 10*time.Second),
	)
	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	sweeperDone := make(chan struct{})
	go func() {
		defer close(sweeperDone)
		sweeper.Run(sweepCtx)
	}()

	api := transport.NewAPI(service)
	wsHandler := transport.NewWSHandler(service, presence)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.Router(api, wsHandler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz room service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	stopSweeper()
	<-sweeperDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
