package app

import (
	"context"
	"time"

	"quiz-room-service/internal/domain"
)

// RoomRepository abstracts how rooms are persisted (in-memory, Redis, etc).
// Every mutation is scoped to one path inside the room record; callers never
// replace a whole room in place and never assume multi-path atomicity.
type RoomRepository interface {
	Create(ctx context.Context, room *domain.Room) error
	Get(ctx context.Context, roomID string) (*domain.Room, error)
	// FindIDByCode resolves a join code to a room ID, or domain.ErrRoomNotFound.
	FindIDByCode(ctx context.Context, code string) (string, error)
	List(ctx context.Context) ([]*domain.Room, error)
	Delete(ctx context.Context, roomID string) error

	SetStatus(ctx context.Context, roomID string, status domain.RoomStatus) error
	SetQuestions(ctx context.Context, roomID string, questions []domain.Question, generating bool) error
	SetGameState(ctx context.Context, roomID string, gs domain.GameState) error
	SetCurrentQuestion(ctx context.Context, roomID string, index int, gs domain.GameState) error
	SetFinishedAt(ctx context.Context, roomID string, finishedAt time.Time) error
	PutPlayer(ctx context.Context, roomID string, player *domain.Player) error
	RemovePlayer(ctx context.Context, roomID, playerID string) error
	// PutAnswer records the answer and the player's new cumulative score as a
	// single logical update on the player path.
	PutAnswer(ctx context.Context, roomID, playerID string, index int, answer domain.Answer, totalScore int) error
}

// QuestionSet is what a question source hands back for one room.
type QuestionSet struct {
	Questions      []domain.Question
	AIGenerated    bool
	FallbackReason string
}

// QuestionSource produces validated question sets for a topic and difficulty.
// Implementations must return exactly count questions; shortfalls are padded
// from local sample sets before the result reaches this interface.
type QuestionSource interface {
	Questions(ctx context.Context, topic string, difficulty domain.Difficulty, count int) (QuestionSet, error)
}
