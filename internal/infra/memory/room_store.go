package memory

import (
	"context"
	"sync"
	"time"

	"quiz-room-service/internal/domain"
)

// RoomStore is an in-memory implementation of app.RoomRepository. Each write
// touches a single path inside the stored room, mirroring the path-scoped
// contract the Redis store honors.
type RoomStore struct {
	mu    sync.RWMutex
	rooms map[string]*domain.Room
	codes map[string]string
}

func NewRoomStore() *RoomStore {
	return &RoomStore{
		rooms: make(map[string]*domain.Room),
		codes: make(map[string]string),
	}
}

func (s *RoomStore) Create(_ context.Context, room *domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.codes[room.Code]; taken {
		return domain.ErrCodeConflict
	}
	s.rooms[room.ID] = cloneRoom(room)
	s.codes[room.Code] = room.ID
	return nil
}

func (s *RoomStore) Get(_ context.Context, roomID string) (*domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return cloneRoom(room), nil
}

func (s *RoomStore) FindIDByCode(_ context.Context, code string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	roomID, ok := s.codes[code]
	if !ok {
		return "", domain.ErrRoomNotFound
	}
	return roomID, nil
}

func (s *RoomStore) List(_ context.Context) ([]*domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		out = append(out, cloneRoom(room))
	}
	return out, nil
}

func (s *RoomStore) Delete(_ context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return domain.ErrRoomNotFound
	}
	delete(s.codes, room.Code)
	delete(s.rooms, roomID)
	return nil
}

func (s *RoomStore) SetStatus(_ context.Context, roomID string, status domain.RoomStatus) error {
	return s.update(roomID, func(room *domain.Room) {
		room.Status = status
	})
}

func (s *RoomStore) SetQuestions(_ context.Context, roomID string, questions []domain.Question, generating bool) error {
	return s.update(roomID, func(room *domain.Room) {
		room.Questions = append([]domain.Question(nil), questions...)
		room.QuestionsGenerating = generating
	})
}

func (s *RoomStore) SetGameState(_ context.Context, roomID string, gs domain.GameState) error {
	return s.update(roomID, func(room *domain.Room) {
		room.GameState = gs
	})
}

func (s *RoomStore) SetCurrentQuestion(_ context.Context, roomID string, index int, gs domain.GameState) error {
	return s.update(roomID, func(room *domain.Room) {
		room.CurrentQuestionIndex = index
		room.GameState = gs
	})
}

func (s *RoomStore) SetFinishedAt(_ context.Context, roomID string, finishedAt time.Time) error {
	return s.update(roomID, func(room *domain.Room) {
		room.FinishedAt = finishedAt
	})
}

func (s *RoomStore) PutPlayer(_ context.Context, roomID string, player *domain.Player) error {
	return s.update(roomID, func(room *domain.Room) {
		room.Players[player.ID] = clonePlayer(player)
	})
}

func (s *RoomStore) RemovePlayer(_ context.Context, roomID, playerID string) error {
	return s.update(roomID, func(room *domain.Room) {
		delete(room.Players, playerID)
	})
}

func (s *RoomStore) PutAnswer(_ context.Context, roomID, playerID string, index int, answer domain.Answer, totalScore int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return domain.ErrRoomNotFound
	}
	player, ok := room.Players[playerID]
	if !ok {
		return domain.ErrPlayerNotFound
	}
	if player.Answers == nil {
		player.Answers = make(map[int]domain.Answer)
	}
	player.Answers[index] = answer
	player.Score = totalScore
	return nil
}

func (s *RoomStore) update(roomID string, apply func(*domain.Room)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return domain.ErrRoomNotFound
	}
	apply(room)
	return nil
}

func cloneRoom(room *domain.Room) *domain.Room {
	out := *room
	out.Questions = append([]domain.Question(nil), room.Questions...)
	out.Players = make(map[string]*domain.Player, len(room.Players))
	for id, p := range room.Players {
		out.Players[id] = clonePlayer(p)
	}
	return &out
}

func clonePlayer(p *domain.Player) *domain.Player {
	out := *p
	out.Answers = make(map[int]domain.Answer, len(p.Answers))
	for idx, a := range p.Answers {
		out.Answers[idx] = a
	}
	return &out
}
