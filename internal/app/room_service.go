package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"quiz-room-service/internal/domain"
)

const maxNicknameLen = 20

// RoomService owns the room lifecycle: create, join, kick, start, advance,
// show-results, end, delete, plus answer processing. Every mutating operation
// for a given room runs under that room's lock; different rooms never contend.
type RoomService struct {
	rooms    RoomRepository
	supply   QuestionSource
	presence *Presence
	codes    *CodeAllocator
	locks    *keyedLocks
	now      func() time.Time
	newID    func() string
}

func NewRoomService(rooms RoomRepository, supply QuestionSource, presence *Presence) *RoomService {
	return &RoomService{
		rooms:    rooms,
		supply:   supply,
		presence: presence,
		codes:    NewCodeAllocator(rooms),
		locks:    newKeyedLocks(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// NewRoomServiceWithClock is test-only for deterministic timestamps and IDs.
func NewRoomServiceWithClock(rooms RoomRepository, supply QuestionSource, presence *Presence, now func() time.Time) *RoomService {
	s := NewRoomService(rooms, supply, presence)
	s.now = now
	return s
}

// CreateResult is what room creation hands back to the transport layer.
type CreateResult struct {
	Room           *domain.Room
	PlayerID       string
	AIGenerated    bool
	FallbackReason string
}

// CreateRoom allocates a code, persists the room with the host embedded, then
// fills in questions from the supply. The supply pads from local sample sets
// on generator failure, so creation never fails for lack of questions.
func (s *RoomService) CreateRoom(ctx context.Context, nickname, topic string, difficulty domain.Difficulty, questionCount int) (CreateResult, error) {
	var fields []domain.FieldError
	nickname = strings.TrimSpace(nickname)
	topic = strings.TrimSpace(topic)
	if nickname == "" || len(nickname) > maxNicknameLen {
		fields = append(fields, domain.FieldError{Field: "nickname", Detail: "must be 1-20 characters"})
	}
	if topic == "" {
		fields = append(fields, domain.FieldError{Field: "topic", Detail: "must not be empty"})
	}
	if !domain.ValidDifficulty(difficulty) {
		fields = append(fields, domain.FieldError{Field: "difficulty", Detail: "must be easy, medium or hard"})
	}
	if questionCount < 1 || questionCount > 50 {
		fields = append(fields, domain.FieldError{Field: "questionCount", Detail: "must be between 1 and 50"})
	}
	if len(fields) > 0 {
		return CreateResult{}, domain.NewValidationError(fields...)
	}

	room, err := s.persistNewRoom(ctx, nickname, topic, difficulty, questionCount)
	if err != nil {
		return CreateResult{}, err
	}

	set, err := s.supply.Questions(ctx, topic, difficulty, questionCount)
	if err != nil {
		// The supply only errors when even the fallback path is broken.
		return CreateResult{}, fmt.Errorf("question supply: %w", err)
	}

	mu := s.locks.get(room.ID)
	mu.Lock()
	err = s.rooms.SetQuestions(ctx, room.ID, set.Questions, false)
	mu.Unlock()
	if err != nil {
		return CreateResult{}, fmt.Errorf("attach questions: %w", err)
	}
	room.Questions = set.Questions
	room.QuestionsGenerating = false
	s.presence.Broadcast(room.ID, domain.Event{
		Type:    domain.EventQuestionsReady,
		RoomID:  room.ID,
		Payload: map[string]any{"count": len(set.Questions), "aiGenerated": set.AIGenerated},
	})

	return CreateResult{
		Room:           room,
		PlayerID:       room.HostID,
		AIGenerated:    set.AIGenerated,
		FallbackReason: set.FallbackReason,
	}, nil
}

// persistNewRoom claims a unique code and writes the waiting room. A store
// that saw a concurrent create claim the same code reports ErrCodeConflict
// and the allocation is retried.
func (s *RoomService) persistNewRoom(ctx context.Context, nickname, topic string, difficulty domain.Difficulty, questionCount int) (*domain.Room, error) {
	for attempt := 0; attempt < codeAttempts; attempt++ {
		code, err := s.codes.Allocate(ctx)
		if err != nil {
			return nil, err
		}
		hostID := s.newID()
		now := s.now()
		room := &domain.Room{
			ID:                  s.newID(),
			Code:                code,
			Topic:               topic,
			Difficulty:          difficulty,
			QuestionCount:       questionCount,
			Status:              domain.StatusWaiting,
			HostID:              hostID,
			CreatedAt:           now,
			QuestionsGenerating: true,
			GameState:           domain.GameState{Phase: domain.PhaseAnswering},
			Players: map[string]*domain.Player{
				hostID: {
					ID:       hostID,
					Nickname: nickname,
					IsHost:   true,
					JoinedAt: now,
					Answers:  make(map[int]domain.Answer),
				},
			},
		}
		err = s.rooms.Create(ctx, room)
		if errors.Is(err, domain.ErrCodeConflict) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create room: %w", err)
		}
		return room, nil
	}
	return nil, domain.ErrCodeSpaceExhausted
}

// JoinRoom adds a player to a waiting room by its join code.
func (s *RoomService) JoinRoom(ctx context.Context, code, nickname string) (*domain.Room, string, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" || len(nickname) > maxNicknameLen {
		return nil, "", domain.NewValidationError(domain.FieldError{Field: "nickname", Detail: "must be 1-20 characters"})
	}

	roomID, err := s.rooms.FindIDByCode(ctx, code)
	if err != nil {
		return nil, "", err
	}

	mu := s.locks.get(roomID)
	mu.Lock()
	defer mu.Unlock()

	room, err := s.rooms.Get(ctx, roomID)
	if err != nil {
		return nil, "", err
	}
	if room.Status != domain.StatusWaiting {
		return nil, "", domain.ErrRoomNotWaiting
	}
	if _, taken := room.PlayerByNickname(nickname); taken {
		return nil, "", domain.ErrNicknameTaken
	}

	player := &domain.Player{
		ID:       s.newID(),
		Nickname: nickname,
		JoinedAt: s.now(),
		Answers:  make(map[int]domain.Answer),
	}
	if err := s.rooms.PutPlayer(ctx, roomID, player); err != nil {
		return nil, "", fmt.Errorf("put player: %w", err)
	}
	room.Players[player.ID] = player

	s.presence.Broadcast(roomID, domain.Event{
		Type:    domain.EventPlayerJoined,
		RoomID:  roomID,
		Payload: map[string]any{"playerId": player.ID, "nickname": player.Nickname, "players": len(room.Players)},
	})
	return room, player.ID, nil
}

// GetRoom returns the current room snapshot.
func (s *RoomService) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	return s.rooms.Get(ctx, roomID)
}

// KickPlayer removes a non-host player from a waiting room. Host-only.
func (s *RoomService) KickPlayer(ctx context.Context, roomID, hostID, targetID string) error {
	mu := s.locks.get(roomID)
	mu.Lock()
	defer mu.Unlock()

	room, err := s.rooms.Get(ctx, roomID)
	if err != nil {
		return err
	}
	if room.HostID != hostID {
		return domain.ErrInsufficientPermissions
	}
	if room.Status != domain.StatusWaiting {
		return domain.ErrRoomNotWaiting
	}
	target, ok := room.Players[targetID]
	if !ok {
		return domain.ErrPlayerNotFound
	}
	if target.IsHost {
		return domain.ErrCannotKickHost
	}
	if err := s.rooms.RemovePlayer(ctx, roomID, targetID); err != nil {
		return fmt.Errorf("remove player: %w", err)
	}

	s.presence.Broadcast(roomID, domain.Event{
		Type:    domain.EventPlayerKicked,
		RoomID:  roomID,
		Payload: map[string]any{"playerId": targetID, "nickname": target.Nickname},
	})
	return nil
}

// StartGame moves a waiting room to active. Host-only; requires at least one
// player and a non-empty question list, so an active room can never have zero
// questions.
func (s *RoomService) StartGame(ctx context.Context, roomID, hostID string) error {
	mu := s.locks.get(roomID)
	mu.Lock()
	defer mu.Unlock()

	room, err := s.rooms.Get(ctx, roomID)
	if err != nil {
		return err
	}
	if room.HostID != hostID {
		return domain.ErrInsufficientPermissions
	}
	if room.Status != domain.StatusWaiting {
		return domain.ErrRoomNotWaiting
	}
	if len(room.Players) == 0 {
		return domain.ErrNoPlayers
	}
	if len(room.Questions) == 0 {
		return domain.ErrNoQuestions
	}

	gs := s.stampQuestion(room.Questions[0])
	if err := s.rooms.SetCurrentQuestion(ctx, roomID, 0, gs); err != nil {
		return fmt.Errorf("set current question: %w", err)
	}
	if err := s.rooms.SetStatus(ctx, roomID, domain.StatusActive); err != nil {
		return fmt.Errorf("set status: %w", err)
	}

	s.presence.Broadcast(roomID, domain.Event{
		Type:   domain.EventGameStarted,
		RoomID: roomID,
		Payload: map[string]any{
			"questionIndex": 0,
			"question":      PublicQuestion(room.Questions[0]),
			"gameState":     gs,
		},
	})
	return nil
}

// Advance moves an active room to its next question. A no-op (not an error)
// when the room is already on the last question; callers compare the index to
// the question count to detect "no more questions" themselves.
func (s *RoomService) Advance(ctx context.Context, roomID, hostID string) error {
	mu := s.locks.get(roomID)
	mu.Lock()
	defer mu.Unlock()

	room, err := s.activeHostRoom(ctx, roomID, hostID)
	if err != nil {
		return err
	}
	if room.CurrentQuestionIndex >= len(room.Questions)-1 {
		return nil
	}

	next := room.CurrentQuestionIndex + 1
	gs := s.stampQuestion(room.Questions[next])
	if err := s.rooms.SetCurrentQuestion(ctx, roomID, next, gs); err != nil {
		return fmt.Errorf("set current question: %w", err)
	}

	s.presence.Broadcast(roomID, domain.Event{
		Type:   domain.EventNextQuestion,
		RoomID: roomID,
		Payload: map[string]any{
			"questionIndex": next,
			"question":      PublicQuestion(room.Questions[next]),
			"gameState":     gs,
		},
	})
	return nil
}

// ShowResults publishes the current question's results without advancing.
// Display-only: the index does not change.
func (s *RoomService) ShowResults(ctx context.Context, roomID, hostID string) error {
	mu := s.locks.get(roomID)
	mu.Lock()
	defer mu.Unlock()

	room, err := s.activeHostRoom(ctx, roomID, hostID)
	if err != nil {
		return err
	}

	idx := room.CurrentQuestionIndex
	gs := room.GameState
	gs.Phase = domain.PhaseResults
	if err := s.rooms.SetGameState(ctx, roomID, gs); err != nil {
		return fmt.Errorf("set game state: %w", err)
	}

	counts := make(map[string]int, 4)
	for _, p := range room.Players {
		if a, ok := p.Answers[idx]; ok {
			counts[a.SelectedOption]++
		}
	}
	s.presence.Broadcast(roomID, domain.Event{
		Type:   domain.EventShowResults,
		RoomID: roomID,
		Payload: map[string]any{
			"questionIndex": idx,
			"correctOption": room.Questions[idx].CorrectOption,
			"optionCounts":  counts,
		},
	})
	return nil
}

// EndGame moves an active room to finished and broadcasts the leaderboard.
func (s *RoomService) EndGame(ctx context.Context, roomID, hostID string) (domain.Leaderboard, error) {
	mu := s.locks.get(roomID)
	mu.Lock()
	defer mu.Unlock()

	room, err := s.activeHostRoom(ctx, roomID, hostID)
	if err != nil {
		return domain.Leaderboard{}, err
	}

	now := s.now()
	gs := room.GameState
	gs.Phase = domain.PhaseEnded
	if err := s.rooms.SetGameState(ctx, roomID, gs); err != nil {
		return domain.Leaderboard{}, fmt.Errorf("set game state: %w", err)
	}
	if err := s.rooms.SetFinishedAt(ctx, roomID, now); err != nil {
		return domain.Leaderboard{}, fmt.Errorf("set finished: %w", err)
	}
	if err := s.rooms.SetStatus(ctx, roomID, domain.StatusFinished); err != nil {
		return domain.Leaderboard{}, fmt.Errorf("set status: %w", err)
	}

	lb := buildLeaderboard(room, now)
	s.presence.Broadcast(roomID, domain.Event{
		Type:    domain.EventGameEnded,
		RoomID:  roomID,
		Payload: lb,
	})
	return lb, nil
}

// DeleteRoom removes the room and everything inside it. Host-only, any state.
func (s *RoomService) DeleteRoom(ctx context.Context, roomID, hostID string) error {
	mu := s.locks.get(roomID)
	mu.Lock()
	defer mu.Unlock()

	room, err := s.rooms.Get(ctx, roomID)
	if err != nil {
		return err
	}
	if room.HostID != hostID {
		return domain.ErrInsufficientPermissions
	}
	if err := s.rooms.Delete(ctx, roomID); err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	s.locks.drop(roomID)
	s.presence.Broadcast(roomID, domain.Event{Type: domain.EventRoomDeleted, RoomID: roomID})
	return nil
}

func (s *RoomService) activeHostRoom(ctx context.Context, roomID, hostID string) (*domain.Room, error) {
	room, err := s.rooms.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.HostID != hostID {
		return nil, domain.ErrInsufficientPermissions
	}
	if room.Status != domain.StatusActive {
		return nil, domain.ErrRoomNotActive
	}
	return room, nil
}

func (s *RoomService) stampQuestion(q domain.Question) domain.GameState {
	start := s.now()
	return domain.GameState{
		Phase:             domain.PhaseAnswering,
		QuestionStartTime: start,
		QuestionEndTime:   start.Add(time.Duration(q.TimeLimitSecs) * time.Second),
	}
}

// buildLeaderboard ranks players by score descending; ties go to the earlier
// joiner, and exact ties keep input order (stable sort).
func buildLeaderboard(room *domain.Room, now time.Time) domain.Leaderboard {
	players := make([]*domain.Player, 0, len(room.Players))
	for _, p := range room.Players {
		players = append(players, p)
	}
	sort.SliceStable(players, func(i, j int) bool {
		if players[i].Score != players[j].Score {
			return players[i].Score > players[j].Score
		}
		return players[i].JoinedAt.Before(players[j].JoinedAt)
	})

	entries := make([]domain.LeaderboardEntry, 0, len(players))
	for i, p := range players {
		entries = append(entries, domain.LeaderboardEntry{
			PlayerID: p.ID,
			Nickname: p.Nickname,
			Score:    p.Score,
			Rank:     i + 1,
		})
	}
	return domain.Leaderboard{RoomID: room.ID, Entries: entries, UpdatedAt: now}
}

// PublicQuestion is a question view safe to push to players mid-game: the
// correct option is withheld until show-results.
type publicQuestion struct {
	Text       string            `json:"text"`
	Options    []string          `json:"options"`
	TimeLimit  int               `json:"timeLimit"`
	Difficulty domain.Difficulty `json:"difficulty"`
}

func PublicQuestion(q domain.Question) any {
	return publicQuestion{
		Text:       q.Text,
		Options:    q.Options,
		TimeLimit:  q.TimeLimitSecs,
		Difficulty: q.Difficulty,
	}
}

func logRoomErr(op, roomID string, err error) {
	if err != nil {
		log.Printf("%s failed for room %s: %v", op, roomID, err)
	}
}
