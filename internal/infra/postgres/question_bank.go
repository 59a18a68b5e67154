package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-room-service/internal/domain"
	"quiz-room-service/internal/questions"
)

// QuestionBank serves question sets from a curated Postgres table. It
// implements questions.Generator, so its rows go through the same schema
// validation as any external generator's output.
type QuestionBank struct {
	pool *pgxpool.Pool
}

func NewQuestionBank(pool *pgxpool.Pool) *QuestionBank {
	return &QuestionBank{pool: pool}
}

func (b *QuestionBank) Generate(ctx context.Context, topic string, difficulty domain.Difficulty, count int) ([]questions.RawQuestion, error) {
	rows, err := b.pool.Query(ctx,
		`SELECT text, options, correct_option, time_limit
		   FROM question_bank
		  WHERE difficulty = $1 AND topic ILIKE '%' || $2 || '%'
		  ORDER BY random()
		  LIMIT $3`,
		string(difficulty), topic, count)
	if err != nil {
		return nil, fmt.Errorf("%w: query question bank: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer rows.Close()

	var out []questions.RawQuestion
	for rows.Next() {
		var (
			raw        questions.RawQuestion
			optionsRaw []byte
		)
		if err := rows.Scan(&raw.Text, &optionsRaw, &raw.CorrectOption, &raw.TimeLimit); err != nil {
			return nil, fmt.Errorf("scan question row: %w", err)
		}
		if err := json.Unmarshal(optionsRaw, &raw.Options); err != nil {
			return nil, fmt.Errorf("decode options: %w", err)
		}
		out = append(out, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read question bank: %v", domain.ErrUpstreamUnavailable, err)
	}
	return out, nil
}
