package app

import (
	"context"
	"fmt"

	"quiz-room-service/internal/domain"
)

// answerBaseScore is awarded for any correct answer; the speed bonus adds one
// point per 100ms of time left on the question clock.
const answerBaseScore = 100

// SubmitAnswer records one player's answer for the room's current question,
// updates their cumulative score, and flips the room's all-players-answered
// flag exactly once per question index. The whole sequence runs under the
// room's lock, so the post-write completion check cannot race a concurrent
// submission.
func (s *RoomService) SubmitAnswer(ctx context.Context, roomID, playerID string, questionIndex int, selectedOption string, timeToAnswerMs int) (domain.AnswerResult, error) {
	if timeToAnswerMs < 0 {
		return domain.AnswerResult{}, domain.NewValidationError(domain.FieldError{Field: "timeToAnswerMs", Detail: "must not be negative"})
	}
	if selectedOption == "" {
		return domain.AnswerResult{}, domain.NewValidationError(domain.FieldError{Field: "selectedOption", Detail: "must not be empty"})
	}

	mu := s.locks.get(roomID)
	mu.Lock()
	defer mu.Unlock()

	room, err := s.rooms.Get(ctx, roomID)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	if room.Status != domain.StatusActive {
		return domain.AnswerResult{}, domain.ErrRoomNotActive
	}
	if questionIndex < 0 || questionIndex >= len(room.Questions) {
		return domain.AnswerResult{}, domain.ErrQuestionNotFound
	}
	// Stale submissions from an earlier question are rejected outright, never
	// recorded against the current one.
	if questionIndex != room.CurrentQuestionIndex {
		return domain.AnswerResult{}, domain.ErrStaleQuestion
	}
	player, ok := room.Players[playerID]
	if !ok {
		return domain.AnswerResult{}, domain.ErrPlayerNotFound
	}
	if _, answered := player.Answers[questionIndex]; answered {
		return domain.AnswerResult{}, domain.ErrAlreadyAnswered
	}

	question := room.Questions[questionIndex]
	answer := scoreAnswer(question, selectedOption, timeToAnswerMs)
	total := player.Score + answer.Score
	if err := s.rooms.PutAnswer(ctx, roomID, playerID, questionIndex, answer, total); err != nil {
		return domain.AnswerResult{}, fmt.Errorf("put answer: %w", err)
	}

	s.presence.Broadcast(roomID, domain.Event{
		Type:   domain.EventPlayerAnswered,
		RoomID: roomID,
		Payload: map[string]any{
			"playerId":      playerID,
			"nickname":      player.Nickname,
			"questionIndex": questionIndex,
		},
	})

	if err := s.checkAllAnswered(ctx, roomID, questionIndex); err != nil {
		logRoomErr("completion check", roomID, err)
	}

	return domain.AnswerResult{
		QuestionIndex: questionIndex,
		Correct:       answer.Correct,
		Awarded:       answer.Score,
		TotalScore:    total,
	}, nil
}

// checkAllAnswered re-reads the room after the answer write commits and flips
// the flag if every current player has answered this index. The flag
// transition is the deduplication guard: once set, no further completion
// event fires for the index. Caller holds the room lock.
func (s *RoomService) checkAllAnswered(ctx context.Context, roomID string, questionIndex int) error {
	room, err := s.rooms.Get(ctx, roomID)
	if err != nil {
		return err
	}
	if room.GameState.AllPlayersAnswered || room.CurrentQuestionIndex != questionIndex {
		return nil
	}

	answered := 0
	for _, p := range room.Players {
		if _, ok := p.Answers[questionIndex]; ok {
			answered++
		}
	}
	if answered < len(room.Players) {
		return nil
	}

	gs := room.GameState
	gs.AllPlayersAnswered = true
	if err := s.rooms.SetGameState(ctx, roomID, gs); err != nil {
		return fmt.Errorf("set game state: %w", err)
	}
	s.presence.Broadcast(roomID, domain.Event{
		Type:   domain.EventAllPlayersAnswered,
		RoomID: roomID,
		Payload: map[string]any{
			"questionIndex": questionIndex,
			"players":       len(room.Players),
		},
	})
	return nil
}

// scoreAnswer derives correctness and the score contribution. Correctness is
// exact string equality; options were normalized at ingestion time.
func scoreAnswer(q domain.Question, selectedOption string, timeToAnswerMs int) domain.Answer {
	correct := selectedOption == q.CorrectOption
	score := 0
	if correct {
		timeLimitMs := q.TimeLimitSecs * 1000
		bonus := (timeLimitMs - timeToAnswerMs) / 100
		if bonus < 0 {
			bonus = 0
		}
		score = answerBaseScore + bonus
	}
	return domain.Answer{
		SelectedOption: selectedOption,
		Correct:        correct,
		TimeToAnswerMs: timeToAnswerMs,
		Score:          score,
	}
}
