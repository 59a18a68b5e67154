package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quiz-room-service/internal/domain"
)

func newTestStore(t *testing.T) (*RoomStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRoomStore(client), mr
}

func sampleRoom() *domain.Room {
	created := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
	return &domain.Room{
		ID:                  "room-1",
		Code:                "654321",
		Topic:               "space",
		Difficulty:          domain.DifficultyMedium,
		QuestionCount:       3,
		Status:              domain.StatusWaiting,
		HostID:              "host-1",
		CreatedAt:           created,
		QuestionsGenerating: true,
		GameState:           domain.GameState{Phase: domain.PhaseAnswering},
		Players: map[string]*domain.Player{
			"host-1": {ID: "host-1", Nickname: "Host", IsHost: true, JoinedAt: created, Answers: map[int]domain.Answer{}},
		},
	}
}

func TestRoomStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	if err := store.Create(ctx, sampleRoom()); err != nil {
		t.Fatalf("create: %v", err)
	}
	if !mr.Exists("room:room-1") || !mr.Exists("roomcode:654321") {
		t.Fatalf("expected room keys in redis")
	}

	room, err := store.Get(ctx, "room-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if room.Code != "654321" || room.Topic != "space" || !room.QuestionsGenerating {
		t.Fatalf("meta lost on round trip: %+v", room)
	}
	if len(room.Players) != 1 || !room.Players["host-1"].IsHost {
		t.Fatalf("players lost on round trip: %+v", room.Players)
	}

	if id, err := store.FindIDByCode(ctx, "654321"); err != nil || id != "room-1" {
		t.Fatalf("find by code: id=%q err=%v", id, err)
	}
}

func TestRoomStoreCodeClaimIsAtomic(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	if err := store.Create(ctx, sampleRoom()); err != nil {
		t.Fatalf("create: %v", err)
	}
	other := sampleRoom()
	other.ID = "room-2"
	if err := store.Create(ctx, other); !errors.Is(err, domain.ErrCodeConflict) {
		t.Fatalf("expected code conflict, got %v", err)
	}
}

func TestRoomStorePathWrites(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	if err := store.Create(ctx, sampleRoom()); err != nil {
		t.Fatalf("create: %v", err)
	}

	qs := []domain.Question{{
		Text:          "Which planet?",
		Options:       []string{"Mars", "Venus", "Pluto", "Io"},
		CorrectOption: "Mars",
		TimeLimitSecs: 20,
		Difficulty:    domain.DifficultyMedium,
	}}
	if err := store.SetQuestions(ctx, "room-1", qs, false); err != nil {
		t.Fatalf("set questions: %v", err)
	}
	if err := store.SetStatus(ctx, "room-1", domain.StatusActive); err != nil {
		t.Fatalf("set status: %v", err)
	}
	start := time.Date(2025, 8, 1, 10, 5, 0, 0, time.UTC)
	gs := domain.GameState{Phase: domain.PhaseAnswering, QuestionStartTime: start, QuestionEndTime: start.Add(20 * time.Second)}
	if err := store.SetCurrentQuestion(ctx, "room-1", 0, gs); err != nil {
		t.Fatalf("set current question: %v", err)
	}

	player := &domain.Player{ID: "p2", Nickname: "Bob", JoinedAt: start, Answers: map[int]domain.Answer{}}
	if err := store.PutPlayer(ctx, "room-1", player); err != nil {
		t.Fatalf("put player: %v", err)
	}
	answer := domain.Answer{SelectedOption: "Mars", Correct: true, TimeToAnswerMs: 1500, Score: 285}
	if err := store.PutAnswer(ctx, "room-1", "p2", 0, answer, 285); err != nil {
		t.Fatalf("put answer: %v", err)
	}

	room, err := store.Get(ctx, "room-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if room.Status != domain.StatusActive || room.QuestionsGenerating {
		t.Fatalf("status/generating lost: %+v", room)
	}
	if room.CurrentQuestionIndex != 0 || !room.GameState.QuestionEndTime.Equal(start.Add(20*time.Second)) {
		t.Fatalf("game state lost: %+v", room.GameState)
	}
	bob := room.Players["p2"]
	if bob == nil || bob.Score != 285 || bob.Answers[0].SelectedOption != "Mars" {
		t.Fatalf("answer lost: %+v", bob)
	}

	if err := store.RemovePlayer(ctx, "room-1", "p2"); err != nil {
		t.Fatalf("remove player: %v", err)
	}
	room, _ = store.Get(ctx, "room-1")
	if _, still := room.Players["p2"]; still {
		t.Fatalf("player not removed")
	}
}

func TestRoomStoreDeleteAndList(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)
	if err := store.Create(ctx, sampleRoom()); err != nil {
		t.Fatalf("create: %v", err)
	}
	second := sampleRoom()
	second.ID = "room-2"
	second.Code = "111111"
	if err := store.Create(ctx, second); err != nil {
		t.Fatalf("create second: %v", err)
	}

	rooms, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rooms) != 2 {
		t.Fatalf("expected 2 rooms, got %d", len(rooms))
	}

	if err := store.Delete(ctx, "room-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mr.Exists("room:room-1") || mr.Exists("roomcode:654321") {
		t.Fatalf("expected keys removed")
	}
	rooms, _ = store.List(ctx)
	if len(rooms) != 1 || rooms[0].ID != "room-2" {
		t.Fatalf("expected only room-2, got %+v", rooms)
	}
	if _, err := store.Get(ctx, "room-1"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected ROOM_NOT_FOUND, got %v", err)
	}
}
