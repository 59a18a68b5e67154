package questions

import (
	"context"
	"fmt"
	"log"
	"strings"

	"quiz-room-service/internal/app"
	"quiz-room-service/internal/domain"
)

// optionCount is the exact number of options every accepted question carries.
const optionCount = 4

// defaultTimeLimitSecs is applied when the generator omits a time limit.
const defaultTimeLimitSecs = 30

// Generator is the raw external producer. Its output is untrusted: it may
// under-deliver, fail outright, or return malformed entries.
type Generator interface {
	Generate(ctx context.Context, topic string, difficulty domain.Difficulty, count int) ([]RawQuestion, error)
}

// RawQuestion is the unvalidated shape received from a generator.
type RawQuestion struct {
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectOption string   `json:"correctOption"`
	TimeLimit     int      `json:"timeLimit"`
}

// Supply turns an unreliable generator into a source that always returns
// exactly the requested number of validated questions. It over-requests by
// 10% to absorb validation losses and pads any shortfall from the local
// sample set for the difficulty, so start is always satisfiable once the
// questions land on the room.
type Supply struct {
	gen Generator
}

// NewSupply builds a Supply. A nil generator means sample sets only.
func NewSupply(gen Generator) *Supply {
	return &Supply{gen: gen}
}

func (s *Supply) Questions(ctx context.Context, topic string, difficulty domain.Difficulty, count int) (app.QuestionSet, error) {
	if s.gen == nil {
		return app.QuestionSet{
			Questions:      fallbackQuestions(difficulty, count),
			FallbackReason: "no generator configured",
		}, nil
	}

	buffered := (count*11 + 9) / 10
	raws, err := s.gen.Generate(ctx, topic, difficulty, buffered)
	if err != nil {
		// Generator outages degrade to the sample set; room creation must
		// not fail because the collaborator is down.
		log.Printf("question generator failed for topic %q: %v", topic, err)
		return app.QuestionSet{
			Questions:      fallbackQuestions(difficulty, count),
			FallbackReason: fmt.Sprintf("generator unavailable: %v", err),
		}, nil
	}

	accepted := make([]domain.Question, 0, count)
	rejected := 0
	for _, raw := range raws {
		if len(accepted) == count {
			break
		}
		q, err := Validate(raw, difficulty)
		if err != nil {
			rejected++
			continue
		}
		accepted = append(accepted, q)
	}

	if len(accepted) == count {
		return app.QuestionSet{Questions: accepted, AIGenerated: true}, nil
	}

	short := count - len(accepted)
	accepted = append(accepted, fallbackQuestions(difficulty, short)...)
	return app.QuestionSet{
		Questions:      accepted,
		FallbackReason: fmt.Sprintf("generator delivered %d usable of %d requested (%d rejected)", count-short, count, rejected),
	}, nil
}

// Validate checks one untrusted entry against the question schema and
// normalizes its text fields. Accepted questions are immutable afterwards,
// which is why normalization happens here and nowhere downstream.
func Validate(raw RawQuestion, difficulty domain.Difficulty) (domain.Question, error) {
	text := strings.TrimSpace(raw.Text)
	if text == "" {
		return domain.Question{}, fmt.Errorf("empty question text")
	}
	if len(raw.Options) != optionCount {
		return domain.Question{}, fmt.Errorf("expected %d options, got %d", optionCount, len(raw.Options))
	}

	options := make([]string, 0, optionCount)
	seen := make(map[string]struct{}, optionCount)
	for _, opt := range raw.Options {
		opt = strings.TrimSpace(opt)
		if opt == "" {
			return domain.Question{}, fmt.Errorf("empty option")
		}
		if _, dup := seen[opt]; dup {
			return domain.Question{}, fmt.Errorf("duplicate option %q", opt)
		}
		seen[opt] = struct{}{}
		options = append(options, opt)
	}

	correct := strings.TrimSpace(raw.CorrectOption)
	if _, ok := seen[correct]; !ok {
		return domain.Question{}, fmt.Errorf("correct option %q not among options", correct)
	}

	limit := raw.TimeLimit
	if limit <= 0 {
		limit = defaultTimeLimitSecs
	}

	return domain.Question{
		Text:          text,
		Options:       options,
		CorrectOption: correct,
		TimeLimitSecs: limit,
		Difficulty:    difficulty,
	}, nil
}
