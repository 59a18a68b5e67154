package domain

import (
	"strings"
	"time"
)

// RoomStatus is the lifecycle state of a room. Transitions are monotonic:
// waiting -> active -> finished, never backwards.
type RoomStatus string

const (
	StatusWaiting  RoomStatus = "waiting"
	StatusActive   RoomStatus = "active"
	StatusFinished RoomStatus = "finished"
)

// Phase is the sub-state of an active room's current question cycle.
type Phase string

const (
	PhaseAnswering Phase = "answering"
	PhaseResults   Phase = "results"
	PhaseEnded     Phase = "ended"
)

// Difficulty tags both rooms and questions.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ValidDifficulty reports whether d is one of the three supported levels.
func ValidDifficulty(d Difficulty) bool {
	return d == DifficultyEasy || d == DifficultyMedium || d == DifficultyHard
}

// Answer records one player's submission for one question index.
// At most one Answer ever exists per (player, question index).
type Answer struct {
	SelectedOption string `json:"selectedOption"`
	Correct        bool   `json:"correct"`
	TimeToAnswerMs int    `json:"timeToAnswerMs"`
	Score          int    `json:"score"`
}

// Player lives inside exactly one Room. Answers is keyed by question index.
type Player struct {
	ID       string         `json:"id"`
	Nickname string         `json:"nickname"`
	IsHost   bool           `json:"isHost"`
	Score    int            `json:"score"`
	JoinedAt time.Time      `json:"joinedAt"`
	Answers  map[int]Answer `json:"answers,omitempty"`
}

// Question models an MCQ question with exactly four options, one of which
// equals CorrectOption verbatim. Immutable once attached to a room.
type Question struct {
	Text          string     `json:"text"`
	Options       []string   `json:"options"`
	CorrectOption string     `json:"correctOption"`
	TimeLimitSecs int        `json:"timeLimit"`
	Difficulty    Difficulty `json:"difficulty"`
}

// GameState is the per-question cycle sub-record of an active room.
type GameState struct {
	Phase              Phase     `json:"phase"`
	QuestionStartTime  time.Time `json:"questionStartTime"`
	QuestionEndTime    time.Time `json:"questionEndTime"`
	AllPlayersAnswered bool      `json:"allPlayersAnswered"`
}

// Room is one quiz session. The room store is the single source of truth for
// it; connection tracking is ephemeral and never authoritative.
type Room struct {
	ID                   string             `json:"id"`
	Code                 string             `json:"code"`
	Topic                string             `json:"topic"`
	Difficulty           Difficulty         `json:"difficulty"`
	QuestionCount        int                `json:"questionCount"`
	Status               RoomStatus         `json:"status"`
	HostID               string             `json:"hostId"`
	CreatedAt            time.Time          `json:"createdAt"`
	FinishedAt           time.Time          `json:"finishedAt,omitempty"`
	CurrentQuestionIndex int                `json:"currentQuestionIndex"`
	Questions            []Question         `json:"questions,omitempty"`
	QuestionsGenerating  bool               `json:"questionsGenerating"`
	GameState            GameState          `json:"gameState"`
	Players              map[string]*Player `json:"players"`
}

// PlayerByNickname returns the player whose nickname matches case-insensitively.
func (r *Room) PlayerByNickname(nickname string) (*Player, bool) {
	for _, p := range r.Players {
		if strings.EqualFold(p.Nickname, nickname) {
			return p, true
		}
	}
	return nil, false
}

// LeaderboardEntry is a snapshot-friendly view of a player's final standing.
type LeaderboardEntry struct {
	PlayerID string `json:"playerId"`
	Nickname string `json:"nickname"`
	Score    int    `json:"score"`
	Rank     int    `json:"rank"`
}

// Leaderboard captures the ordered scoreboard broadcast when a game ends.
type Leaderboard struct {
	RoomID    string             `json:"roomId"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// AnswerResult summarizes the outcome of one submission for the submitter only.
type AnswerResult struct {
	QuestionIndex int  `json:"questionIndex"`
	Correct       bool `json:"correct"`
	Awarded       int  `json:"awarded"`
	TotalScore    int  `json:"totalScore"`
}
