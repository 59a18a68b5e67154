package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"quiz-room-service/internal/app"
	"quiz-room-service/internal/domain"
)

// WSHandler is the realtime surface: answer submissions and host game-state
// changes come in, room events go out.
type WSHandler struct {
	service  *app.RoomService
	presence *app.Presence
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.RoomService, presence *app.Presence) *WSHandler {
	return &WSHandler{
		service:  service,
		presence: presence,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type submitAnswerPayload struct {
	QuestionIndex  int    `json:"questionIndex"`
	SelectedOption string `json:"selectedOption"`
	TimeToAnswerMs int    `json:"timeToAnswerMs"`
}

type gameStateChangePayload struct {
	Action string `json:"action"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ServeWS upgrades the connection and joins it to its room's event stream.
// The caller must already be a player in the room.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	roomID := r.URL.Query().Get("roomId")
	playerID := r.URL.Query().Get("playerId")
	if roomID == "" || playerID == "" {
		http.Error(w, "missing roomId or playerId", http.StatusBadRequest)
		return
	}

	room, err := h.service.GetRoom(r.Context(), roomID)
	if err != nil {
		status := statusFor(domain.CodeOf(err))
		http.Error(w, err.Error(), status)
		return
	}
	player, ok := room.Players[playerID]
	if !ok {
		http.Error(w, domain.ErrPlayerNotFound.Message, http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	events, cancel := h.presence.Join(uuid.NewString(), roomID, playerID, player.Nickname)
	defer cancel()

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(eventsDone)
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage{Type: string(ev.Type), Payload: ev.Payload}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "submit-answer":
			h.handleSubmitAnswer(r, send, roomID, playerID, inbound.Payload)
		case "game-state-change":
			h.handleGameStateChange(r, send, roomID, playerID, inbound.Payload)
		case "leave-room-channel":
			// The deferred cancel tears presence down; just stop reading.
		default:
			send <- outboundMessage{Type: "error", Payload: errorPayload{Code: "VALIDATION_ERROR", Message: "unsupported message type"}}
			continue
		}
		if inbound.Type == "leave-room-channel" {
			break
		}
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}

func (h *WSHandler) handleSubmitAnswer(r *http.Request, send chan<- outboundMessage, roomID, playerID string, payload json.RawMessage) {
	var req submitAnswerPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		send <- outboundMessage{Type: "error", Payload: errorPayload{Code: "VALIDATION_ERROR", Message: "invalid submit-answer payload"}}
		return
	}
	result, err := h.service.SubmitAnswer(r.Context(), roomID, playerID, req.QuestionIndex, req.SelectedOption, req.TimeToAnswerMs)
	if err != nil {
		send <- outboundMessage{Type: "error", Payload: wsError(err)}
		return
	}
	// Private result goes only to the submitting connection; the room-wide
	// player-answered event travels through presence.
	send <- outboundMessage{Type: "answer-result", Payload: result}
}

func (h *WSHandler) handleGameStateChange(r *http.Request, send chan<- outboundMessage, roomID, playerID string, payload json.RawMessage) {
	var req gameStateChangePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		send <- outboundMessage{Type: "error", Payload: errorPayload{Code: "VALIDATION_ERROR", Message: "invalid game-state-change payload"}}
		return
	}

	var err error
	switch req.Action {
	case "next-question":
		err = h.service.Advance(r.Context(), roomID, playerID)
	case "show-results":
		err = h.service.ShowResults(r.Context(), roomID, playerID)
	case "end-game":
		_, err = h.service.EndGame(r.Context(), roomID, playerID)
	default:
		send <- outboundMessage{Type: "error", Payload: errorPayload{Code: "VALIDATION_ERROR", Message: "unknown action " + req.Action}}
		return
	}
	if err != nil {
		send <- outboundMessage{Type: "error", Payload: wsError(err)}
	}
}

func wsError(err error) errorPayload {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return errorPayload{Code: "VALIDATION_ERROR", Message: ve.Error()}
	}
	return errorPayload{Code: domain.CodeOf(err), Message: err.Error()}
}
