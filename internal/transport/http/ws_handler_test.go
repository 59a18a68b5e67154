package http

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func dialWS(t *testing.T, server string, roomID, playerID string) *websocket.Conn {
	t.Helper()
	url := "ws" + server[len("http"):] + "/ws?roomId=" + roomID + "&playerId=" + playerID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil drains the connection until a message of the wanted type arrives.
// Room events interleave with direct replies, so tests skip the rest.
func readUntil(t *testing.T, conn *websocket.Conn, want string) wsMessage {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	conn.SetReadDeadline(deadline)
	for time.Now().Before(deadline) {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read waiting for %q: %v", want, err)
		}
		if msg.Type == want {
			return msg
		}
		if msg.Type == "error" {
			t.Fatalf("got error while waiting for %q: %s", want, msg.Payload)
		}
	}
	t.Fatalf("no %q message before deadline", want)
	return wsMessage{}
}

func sendWS(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func TestWebSocketRejectsNonPlayers(t *testing.T) {
	server, service := newTestServer(t)

	created, err := service.CreateRoom(context.Background(), "Host", "space", "easy", 2)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	url := "ws" + server.URL[len("http"):] + "/ws?roomId=" + created.Room.ID + "&playerId=stranger"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatalf("expected handshake rejection")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 handshake, got %+v", resp)
	}
}

func TestWebSocketGameFlow(t *testing.T) {
	server, service := newTestServer(t)
	ctx := context.Background()

	created, err := service.CreateRoom(ctx, "Host", "space", "easy", 2)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	room, bobID, err := service.JoinRoom(ctx, created.Room.Code, "Bob")
	if err != nil {
		t.Fatalf("join room: %v", err)
	}

	hostConn := dialWS(t, server.URL, room.ID, created.PlayerID)
	bobConn := dialWS(t, server.URL, room.ID, bobID)
	// Each connection sees its own connect event once it is subscribed; read
	// one from each so the game-started broadcast cannot race the joins.
	readUntil(t, hostConn, "player-connected")
	readUntil(t, bobConn, "player-connected")

	if err := service.StartGame(ctx, room.ID, created.PlayerID); err != nil {
		t.Fatalf("start game: %v", err)
	}
	started := readUntil(t, bobConn, "game-started")
	var startPayload struct {
		QuestionIndex int `json:"questionIndex"`
		Question      struct {
			Text          string   `json:"text"`
			Options       []string `json:"options"`
			CorrectOption string   `json:"correctOption"`
		} `json:"question"`
	}
	if err := json.Unmarshal(started.Payload, &startPayload); err != nil {
		t.Fatalf("decode game-started: %v", err)
	}
	if startPayload.QuestionIndex != 0 || len(startPayload.Question.Options) != 4 {
		t.Fatalf("unexpected game-started payload: %+v", startPayload)
	}
	if startPayload.Question.CorrectOption != "" {
		t.Fatalf("game-started leaked the correct option")
	}

	// The offline generator leaves the easy sample set in play; its first
	// question is answered correctly with "Paris".
	sendWS(t, bobConn, "submit-answer", map[string]any{
		"questionIndex":  0,
		"selectedOption": "Paris",
		"timeToAnswerMs": 2000,
	})
	result := readUntil(t, bobConn, "answer-result")
	var answer struct {
		QuestionIndex int  `json:"questionIndex"`
		Correct       bool `json:"correct"`
		Awarded       int  `json:"awarded"`
		TotalScore    int  `json:"totalScore"`
	}
	if err := json.Unmarshal(result.Payload, &answer); err != nil {
		t.Fatalf("decode answer-result: %v", err)
	}
	if !answer.Correct || answer.Awarded != 380 || answer.TotalScore != 380 {
		t.Fatalf("unexpected answer result: %+v", answer)
	}
	readUntil(t, hostConn, "player-answered")

	sendWS(t, hostConn, "submit-answer", map[string]any{
		"questionIndex":  0,
		"selectedOption": "London",
		"timeToAnswerMs": 4000,
	})
	readUntil(t, bobConn, "all-players-answered")

	sendWS(t, hostConn, "game-state-change", map[string]any{"action": "show-results"})
	results := readUntil(t, bobConn, "show-results")
	var reveal struct {
		CorrectOption string         `json:"correctOption"`
		OptionCounts  map[string]int `json:"optionCounts"`
	}
	if err := json.Unmarshal(results.Payload, &reveal); err != nil {
		t.Fatalf("decode show-results: %v", err)
	}
	if reveal.CorrectOption != "Paris" || reveal.OptionCounts["Paris"] != 1 || reveal.OptionCounts["London"] != 1 {
		t.Fatalf("unexpected results payload: %+v", reveal)
	}

	sendWS(t, hostConn, "game-state-change", map[string]any{"action": "end-game"})
	ended := readUntil(t, bobConn, "game-ended")
	var leaderboard struct {
		Entries []struct {
			Nickname string `json:"nickname"`
			Score    int    `json:"score"`
			Rank     int    `json:"rank"`
		} `json:"entries"`
	}
	if err := json.Unmarshal(ended.Payload, &leaderboard); err != nil {
		t.Fatalf("decode game-ended: %v", err)
	}
	if len(leaderboard.Entries) != 2 {
		t.Fatalf("expected 2 leaderboard entries, got %d", len(leaderboard.Entries))
	}
	if leaderboard.Entries[0].Nickname != "Bob" || leaderboard.Entries[0].Rank != 1 || leaderboard.Entries[0].Score != 380 {
		t.Fatalf("unexpected winner: %+v", leaderboard.Entries[0])
	}
}

func TestWebSocketRejectsInvalidSubmissions(t *testing.T) {
	server, service := newTestServer(t)
	ctx := context.Background()

	created, err := service.CreateRoom(ctx, "Host", "space", "easy", 2)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	conn := dialWS(t, server.URL, created.Room.ID, created.PlayerID)
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	// The room is still waiting; submissions are refused.
	sendWS(t, conn, "submit-answer", map[string]any{
		"questionIndex":  0,
		"selectedOption": "Paris",
		"timeToAnswerMs": 100,
	})
	var msg wsMessage
	for {
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if msg.Type == "error" {
			break
		}
	}
	var errPayload errorPayload
	if err := json.Unmarshal(msg.Payload, &errPayload); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if errPayload.Code != "ROOM_NOT_ACTIVE" {
		t.Fatalf("expected ROOM_NOT_ACTIVE, got %+v", errPayload)
	}

	sendWS(t, conn, "bogus-type", nil)
	for {
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if msg.Type == "error" {
			break
		}
	}
	if err := json.Unmarshal(msg.Payload, &errPayload); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if errPayload.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR for unknown type, got %+v", errPayload)
	}
}
