package questions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"quiz-room-service/internal/domain"
)

// HTTPGenerator calls an external question-generation service over HTTP.
// Whatever comes back is treated as untrusted and goes through Validate
// before it can reach a room.
type HTTPGenerator struct {
	url    string
	client *http.Client
}

func NewHTTPGenerator(url string, timeout time.Duration) *HTTPGenerator {
	return &HTTPGenerator{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty"`
	Count      int    `json:"count"`
}

type generateResponse struct {
	Questions []RawQuestion `json:"questions"`
}

func (g *HTTPGenerator) Generate(ctx context.Context, topic string, difficulty domain.Difficulty, count int) ([]RawQuestion, error) {
	body, err := json.Marshal(generateRequest{
		Topic:      topic,
		Difficulty: string(difficulty),
		Count:      count,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: generator returned status %d", domain.ErrUpstreamUnavailable, resp.StatusCode)
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode generator response: %w", err)
	}
	return decoded.Questions, nil
}
