package app_test

import (
	"context"
	"errors"
	"testing"

	"quiz-room-service/internal/app"
	"quiz-room-service/internal/domain"
	"quiz-room-service/internal/questions"
)

func startedRoom(t *testing.T) (*app.RoomService, *app.Presence, app.CreateResult, string) {
	t.Helper()
	service, _, presence := newTestService(fixedGenerator{raws: []questions.RawQuestion{rawQuestion(0), rawQuestion(1), rawQuestion(2)}})
	result, err := service.CreateRoom(context.Background(), "Host", "misc", domain.DifficultyEasy, 2)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, bobID, err := service.JoinRoom(context.Background(), result.Room.Code, "Bob")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := service.StartGame(context.Background(), result.Room.ID, result.PlayerID); err != nil {
		t.Fatalf("start: %v", err)
	}
	return service, presence, result, bobID
}

func TestSubmitAnswerScoring(t *testing.T) {
	service, _, result, bobID := startedRoom(t)

	// 30s limit, answered in 2s: 100 base + (30000-2000)/100 bonus.
	res, err := service.SubmitAnswer(context.Background(), result.Room.ID, bobID, 0, "B", 2000)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !res.Correct || res.Awarded != 380 || res.TotalScore != 380 {
		t.Fatalf("expected 380 awarded, got %+v", res)
	}

	// Wrong answers score zero regardless of speed.
	res, err = service.SubmitAnswer(context.Background(), result.Room.ID, result.PlayerID, 0, "A", 100)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Correct || res.Awarded != 0 {
		t.Fatalf("expected zero for wrong answer, got %+v", res)
	}
}

func TestCorrectScoreMonotonicInSpeed(t *testing.T) {
	service, _, result, bobID := startedRoom(t)

	fast, err := service.SubmitAnswer(context.Background(), result.Room.ID, bobID, 0, "B", 1500)
	if err != nil {
		t.Fatalf("fast submit: %v", err)
	}
	slow, err := service.SubmitAnswer(context.Background(), result.Room.ID, result.PlayerID, 0, "B", 28000)
	if err != nil {
		t.Fatalf("slow submit: %v", err)
	}
	if fast.Awarded < slow.Awarded {
		t.Fatalf("faster answer scored less: fast=%d slow=%d", fast.Awarded, slow.Awarded)
	}

	// Slower than the limit still earns the base score.
	if slow.Awarded < 100 {
		t.Fatalf("correct answer below base score: %d", slow.Awarded)
	}
}

func TestDoubleSubmissionRejectedWithoutScoreChange(t *testing.T) {
	service, _, result, bobID := startedRoom(t)

	first, err := service.SubmitAnswer(context.Background(), result.Room.ID, bobID, 0, "B", 2000)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	_, err = service.SubmitAnswer(context.Background(), result.Room.ID, bobID, 0, "A", 100)
	if !errors.Is(err, domain.ErrAlreadyAnswered) {
		t.Fatalf("expected ALREADY_ANSWERED, got %v", err)
	}

	room, _ := service.GetRoom(context.Background(), result.Room.ID)
	bob := room.Players[bobID]
	if bob.Score != first.TotalScore {
		t.Fatalf("score changed after rejected resubmission: %d != %d", bob.Score, first.TotalScore)
	}
	if answer := bob.Answers[0]; answer.SelectedOption != "B" {
		t.Fatalf("answer overwritten: %+v", answer)
	}
}

func TestStaleSubmissionRejected(t *testing.T) {
	service, _, result, bobID := startedRoom(t)

	if err := service.Advance(context.Background(), result.Room.ID, result.PlayerID); err != nil {
		t.Fatalf("advance: %v", err)
	}
	_, err := service.SubmitAnswer(context.Background(), result.Room.ID, bobID, 0, "B", 1000)
	if !errors.Is(err, domain.ErrStaleQuestion) {
		t.Fatalf("expected STALE_QUESTION, got %v", err)
	}
	_, err = service.SubmitAnswer(context.Background(), result.Room.ID, bobID, 5, "B", 1000)
	if !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected QUESTION_NOT_FOUND, got %v", err)
	}
}

func TestSubmitRequiresActiveRoomAndKnownPlayer(t *testing.T) {
	service, _, _ := newTestService(failingGenerator{})
	result := createTestRoom(t, service, 2)

	_, err := service.SubmitAnswer(context.Background(), result.Room.ID, result.PlayerID, 0, "Paris", 1000)
	if !errors.Is(err, domain.ErrRoomNotActive) {
		t.Fatalf("expected ROOM_NOT_ACTIVE, got %v", err)
	}

	if err := service.StartGame(context.Background(), result.Room.ID, result.PlayerID); err != nil {
		t.Fatalf("start: %v", err)
	}
	_, err = service.SubmitAnswer(context.Background(), result.Room.ID, "ghost", 0, "Paris", 1000)
	if !errors.Is(err, domain.ErrPlayerNotFound) {
		t.Fatalf("expected PLAYER_NOT_FOUND, got %v", err)
	}
}

func TestAllPlayersAnsweredFiresExactlyOnce(t *testing.T) {
	service, presence, result, bobID := startedRoom(t)

	events, cancel := presence.Join("conn-observer", result.Room.ID, "observer", "Observer")
	defer cancel()

	if _, err := service.SubmitAnswer(context.Background(), result.Room.ID, bobID, 0, "B", 1000); err != nil {
		t.Fatalf("bob submit: %v", err)
	}
	room, _ := service.GetRoom(context.Background(), result.Room.ID)
	if room.GameState.AllPlayersAnswered {
		t.Fatalf("flag set before all players answered")
	}

	if _, err := service.SubmitAnswer(context.Background(), result.Room.ID, result.PlayerID, 0, "B", 2000); err != nil {
		t.Fatalf("host submit: %v", err)
	}
	room, _ = service.GetRoom(context.Background(), result.Room.ID)
	if !room.GameState.AllPlayersAnswered {
		t.Fatalf("flag not set after all players answered")
	}

	completions := 0
	for drained := false; !drained; {
		select {
		case ev := <-events:
			if ev.Type == domain.EventAllPlayersAnswered {
				completions++
			}
		default:
			drained = true
		}
	}
	if completions != 1 {
		t.Fatalf("expected exactly one all-players-answered event, got %d", completions)
	}

	// Advancing resets the flag for the next question.
	if err := service.Advance(context.Background(), result.Room.ID, result.PlayerID); err != nil {
		t.Fatalf("advance: %v", err)
	}
	room, _ = service.GetRoom(context.Background(), result.Room.ID)
	if room.GameState.AllPlayersAnswered {
		t.Fatalf("flag not reset after advance")
	}
}
