package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-room-service/internal/domain"
)

// RoomStore keeps each room in a Redis hash with one field per persisted
// path: meta, status, currentQuestionIndex, questions, gameState, finishedAt
// and player:{id}. Mutations write only their own field, never the whole
// room, so interleaved writers cannot clobber each other's paths. A
// roomcode:{code} key indexes join codes and a rooms set drives sweeps.
type RoomStore struct {
	client *redis.Client
}

func NewRoomStore(client *redis.Client) *RoomStore {
	return &RoomStore{client: client}
}

const (
	fieldMeta       = "meta"
	fieldStatus     = "status"
	fieldIndex      = "currentQuestionIndex"
	fieldQuestions  = "questions"
	fieldGenerating = "questionsGenerating"
	fieldGameState  = "gameState"
	fieldFinishedAt = "finishedAt"
	playerPrefix    = "player:"
	roomSetKey      = "rooms"
)

type roomMeta struct {
	ID            string            `json:"id"`
	Code          string            `json:"code"`
	Topic         string            `json:"topic"`
	Difficulty    domain.Difficulty `json:"difficulty"`
	QuestionCount int               `json:"questionCount"`
	HostID        string            `json:"hostId"`
	CreatedAt     time.Time         `json:"createdAt"`
}

func (s *RoomStore) Create(ctx context.Context, room *domain.Room) error {
	// Claim the code first; losing the claim means a concurrent create beat
	// us to it and the caller re-allocates.
	claimed, err := s.client.SetNX(ctx, codeKey(room.Code), room.ID, 0).Result()
	if err != nil {
		return storeErr("claim code", err)
	}
	if !claimed {
		return domain.ErrCodeConflict
	}

	meta, err := json.Marshal(roomMeta{
		ID:            room.ID,
		Code:          room.Code,
		Topic:         room.Topic,
		Difficulty:    room.Difficulty,
		QuestionCount: room.QuestionCount,
		HostID:        room.HostID,
		CreatedAt:     room.CreatedAt,
	})
	if err != nil {
		return err
	}
	gs, err := json.Marshal(room.GameState)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	key := roomKey(room.ID)
	pipe.HSet(ctx, key, fieldMeta, meta)
	pipe.HSet(ctx, key, fieldStatus, string(room.Status))
	pipe.HSet(ctx, key, fieldIndex, room.CurrentQuestionIndex)
	pipe.HSet(ctx, key, fieldGenerating, boolField(room.QuestionsGenerating))
	pipe.HSet(ctx, key, fieldGameState, gs)
	for _, player := range room.Players {
		data, err := json.Marshal(player)
		if err != nil {
			return err
		}
		pipe.HSet(ctx, key, playerPrefix+player.ID, data)
	}
	pipe.SAdd(ctx, roomSetKey, room.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return storeErr("create room", err)
	}
	return nil
}

func (s *RoomStore) Get(ctx context.Context, roomID string) (*domain.Room, error) {
	fields, err := s.client.HGetAll(ctx, roomKey(roomID)).Result()
	if err != nil {
		return nil, storeErr("get room", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrRoomNotFound
	}
	return decodeRoom(roomID, fields)
}

func (s *RoomStore) FindIDByCode(ctx context.Context, code string) (string, error) {
	roomID, err := s.client.Get(ctx, codeKey(code)).Result()
	if err == redis.Nil {
		return "", domain.ErrRoomNotFound
	}
	if err != nil {
		return "", storeErr("find code", err)
	}
	return roomID, nil
}

func (s *RoomStore) List(ctx context.Context) ([]*domain.Room, error) {
	ids, err := s.client.SMembers(ctx, roomSetKey).Result()
	if err != nil {
		return nil, storeErr("list rooms", err)
	}
	out := make([]*domain.Room, 0, len(ids))
	for _, id := range ids {
		room, err := s.Get(ctx, id)
		if errors.Is(err, domain.ErrRoomNotFound) {
			// Stale index entry; drop it and move on.
			_ = s.client.SRem(ctx, roomSetKey, id).Err()
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, room)
	}
	return out, nil
}

func (s *RoomStore) Delete(ctx context.Context, roomID string) error {
	room, err := s.Get(ctx, roomID)
	if err != nil {
		return err
	}
	pipe := s.client.Pipeline()
	pipe.Del(ctx, roomKey(roomID))
	pipe.Del(ctx, codeKey(room.Code))
	pipe.SRem(ctx, roomSetKey, roomID)
	if _, err := pipe.Exec(ctx); err != nil {
		return storeErr("delete room", err)
	}
	return nil
}

func (s *RoomStore) SetStatus(ctx context.Context, roomID string, status domain.RoomStatus) error {
	return s.setField(ctx, roomID, fieldStatus, string(status))
}

func (s *RoomStore) SetQuestions(ctx context.Context, roomID string, questions []domain.Question, generating bool) error {
	data, err := json.Marshal(questions)
	if err != nil {
		return err
	}
	pipe := s.client.Pipeline()
	key := roomKey(roomID)
	pipe.HSet(ctx, key, fieldQuestions, data)
	pipe.HSet(ctx, key, fieldGenerating, boolField(generating))
	if _, err := pipe.Exec(ctx); err != nil {
		return storeErr("set questions", err)
	}
	return nil
}

func (s *RoomStore) SetGameState(ctx context.Context, roomID string, gs domain.GameState) error {
	data, err := json.Marshal(gs)
	if err != nil {
		return err
	}
	return s.setField(ctx, roomID, fieldGameState, data)
}

func (s *RoomStore) SetCurrentQuestion(ctx context.Context, roomID string, index int, gs domain.GameState) error {
	data, err := json.Marshal(gs)
	if err != nil {
		return err
	}
	pipe := s.client.Pipeline()
	key := roomKey(roomID)
	pipe.HSet(ctx, key, fieldIndex, index)
	pipe.HSet(ctx, key, fieldGameState, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return storeErr("set current question", err)
	}
	return nil
}

func (s *RoomStore) SetFinishedAt(ctx context.Context, roomID string, finishedAt time.Time) error {
	return s.setField(ctx, roomID, fieldFinishedAt, finishedAt.Format(time.RFC3339Nano))
}

func (s *RoomStore) PutPlayer(ctx context.Context, roomID string, player *domain.Player) error {
	data, err := json.Marshal(player)
	if err != nil {
		return err
	}
	return s.setField(ctx, roomID, playerPrefix+player.ID, data)
}

func (s *RoomStore) RemovePlayer(ctx context.Context, roomID, playerID string) error {
	if err := s.client.HDel(ctx, roomKey(roomID), playerPrefix+playerID).Err(); err != nil {
		return storeErr("remove player", err)
	}
	return nil
}

// PutAnswer rewrites the player field with the answer and the new cumulative
// score in one HSET, keeping the answer and score update a single logical write.
func (s *RoomStore) PutAnswer(ctx context.Context, roomID, playerID string, index int, answer domain.Answer, totalScore int) error {
	raw, err := s.client.HGet(ctx, roomKey(roomID), playerPrefix+playerID).Result()
	if err == redis.Nil {
		return domain.ErrPlayerNotFound
	}
	if err != nil {
		return storeErr("get player", err)
	}
	var player domain.Player
	if err := json.Unmarshal([]byte(raw), &player); err != nil {
		return fmt.Errorf("decode player: %w", err)
	}
	if player.Answers == nil {
		player.Answers = make(map[int]domain.Answer)
	}
	player.Answers[index] = answer
	player.Score = totalScore
	return s.PutPlayer(ctx, roomID, &player)
}

func (s *RoomStore) setField(ctx context.Context, roomID, field string, value any) error {
	if err := s.client.HSet(ctx, roomKey(roomID), field, value).Err(); err != nil {
		return storeErr("set "+field, err)
	}
	return nil
}

func decodeRoom(roomID string, fields map[string]string) (*domain.Room, error) {
	var meta roomMeta
	if err := json.Unmarshal([]byte(fields[fieldMeta]), &meta); err != nil {
		return nil, fmt.Errorf("decode room meta: %w", err)
	}

	room := &domain.Room{
		ID:                  meta.ID,
		Code:                meta.Code,
		Topic:               meta.Topic,
		Difficulty:          meta.Difficulty,
		QuestionCount:       meta.QuestionCount,
		HostID:              meta.HostID,
		CreatedAt:           meta.CreatedAt,
		Status:              domain.RoomStatus(fields[fieldStatus]),
		QuestionsGenerating: fields[fieldGenerating] == "1",
		Players:             make(map[string]*domain.Player),
	}
	if room.ID == "" {
		room.ID = roomID
	}

	if raw, ok := fields[fieldIndex]; ok {
		idx, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("decode question index: %w", err)
		}
		room.CurrentQuestionIndex = idx
	}
	if raw, ok := fields[fieldQuestions]; ok {
		if err := json.Unmarshal([]byte(raw), &room.Questions); err != nil {
			return nil, fmt.Errorf("decode questions: %w", err)
		}
	}
	if raw, ok := fields[fieldGameState]; ok {
		if err := json.Unmarshal([]byte(raw), &room.GameState); err != nil {
			return nil, fmt.Errorf("decode game state: %w", err)
		}
	}
	if raw, ok := fields[fieldFinishedAt]; ok && raw != "" {
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("decode finishedAt: %w", err)
		}
		room.FinishedAt = ts
	}

	for field, raw := range fields {
		if !strings.HasPrefix(field, playerPrefix) {
			continue
		}
		var player domain.Player
		if err := json.Unmarshal([]byte(raw), &player); err != nil {
			return nil, fmt.Errorf("decode player %s: %w", field, err)
		}
		room.Players[player.ID] = &player
	}
	return room, nil
}

func roomKey(roomID string) string {
	return "room:" + roomID
}

func codeKey(code string) string {
	return "roomcode:" + code
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrUpstreamUnavailable, op, err)
}
