package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"quiz-room-service/internal/app"
	"quiz-room-service/internal/domain"
)

// API exposes the request/response surface: room creation, joining, and the
// host-only room management actions. Gameplay flows over the websocket.
type API struct {
	service *app.RoomService
}

func NewAPI(service *app.RoomService) *API {
	return &API{service: service}
}

// Router wires the REST routes and the websocket endpoint.
func Router(api *API, ws *WSHandler) *httprouter.Router {
	router := httprouter.New()
	router.GET("/healthz", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		w.Write([]byte("ok"))
	})
	router.POST("/rooms", api.CreateRoom)
	router.POST("/rooms/join", api.JoinRoom)
	router.GET("/rooms/:id", api.GetRoom)
	router.POST("/rooms/:id/start", api.StartGame)
	router.POST("/rooms/:id/kick", api.KickPlayer)
	router.DELETE("/rooms/:id", api.DeleteRoom)
	router.GET("/ws", ws.ServeWS)
	return router
}

type createRoomRequest struct {
	Nickname      string `json:"nickname"`
	Topic         string `json:"topic"`
	Difficulty    string `json:"difficulty"`
	QuestionCount int    `json:"questionCount"`
}

type createRoomResponse struct {
	RoomID         string   `json:"roomId"`
	RoomCode       string   `json:"roomCode"`
	PlayerID       string   `json:"playerId"`
	AIGenerated    bool     `json:"aiGenerated"`
	FallbackReason string   `json:"fallbackReason,omitempty"`
	Room           roomView `json:"room"`
}

func (a *API) CreateRoom(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewValidationError(domain.FieldError{Field: "body", Detail: "invalid JSON"}))
		return
	}
	result, err := a.service.CreateRoom(r.Context(), req.Nickname, req.Topic, domain.Difficulty(req.Difficulty), req.QuestionCount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createRoomResponse{
		RoomID:         result.Room.ID,
		RoomCode:       result.Room.Code,
		PlayerID:       result.PlayerID,
		AIGenerated:    result.AIGenerated,
		FallbackReason: result.FallbackReason,
		Room:           newRoomView(result.Room),
	})
}

type joinRoomRequest struct {
	RoomCode string `json:"roomCode"`
	Nickname string `json:"nickname"`
}

type joinRoomResponse struct {
	RoomID   string   `json:"roomId"`
	PlayerID string   `json:"playerId"`
	Room     roomView `json:"room"`
}

func (a *API) JoinRoom(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req joinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewValidationError(domain.FieldError{Field: "body", Detail: "invalid JSON"}))
		return
	}
	room, playerID, err := a.service.JoinRoom(r.Context(), req.RoomCode, req.Nickname)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, joinRoomResponse{
		RoomID:   room.ID,
		PlayerID: playerID,
		Room:     newRoomView(room),
	})
}

func (a *API) GetRoom(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	room, err := a.service.GetRoom(r.Context(), ps.ByName("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newRoomView(room))
}

type hostActionRequest struct {
	HostID   string `json:"hostId"`
	TargetID string `json:"targetId,omitempty"`
}

func (a *API) StartGame(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req hostActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewValidationError(domain.FieldError{Field: "body", Detail: "invalid JSON"}))
		return
	}
	if err := a.service.StartGame(r.Context(), ps.ByName("id"), req.HostID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (a *API) KickPlayer(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req hostActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewValidationError(domain.FieldError{Field: "body", Detail: "invalid JSON"}))
		return
	}
	if req.TargetID == "" {
		writeError(w, domain.NewValidationError(domain.FieldError{Field: "targetId", Detail: "must not be empty"}))
		return
	}
	if err := a.service.KickPlayer(r.Context(), ps.ByName("id"), req.HostID, req.TargetID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (a *API) DeleteRoom(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req hostActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewValidationError(domain.FieldError{Field: "body", Detail: "invalid JSON"}))
		return
	}
	if err := a.service.DeleteRoom(r.Context(), ps.ByName("id"), req.HostID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// roomView is the snapshot shape returned to clients. Correct options and
// other players' answer details are withheld; results arrive via show-results.
type roomView struct {
	ID                   string             `json:"id"`
	Code                 string             `json:"code"`
	Topic                string             `json:"topic"`
	Difficulty           domain.Difficulty  `json:"difficulty"`
	QuestionCount        int                `json:"questionCount"`
	Status               domain.RoomStatus  `json:"status"`
	HostID               string             `json:"hostId"`
	CreatedAt            time.Time          `json:"createdAt"`
	CurrentQuestionIndex int                `json:"currentQuestionIndex"`
	TotalQuestions       int                `json:"totalQuestions"`
	QuestionsGenerating  bool               `json:"questionsGenerating"`
	GameState            domain.GameState   `json:"gameState"`
	Players              []playerView       `json:"players"`
	CurrentQuestion      any                `json:"currentQuestion,omitempty"`
}

type playerView struct {
	ID       string    `json:"id"`
	Nickname string    `json:"nickname"`
	IsHost   bool      `json:"isHost"`
	Score    int       `json:"score"`
	JoinedAt time.Time `json:"joinedAt"`
	Answered bool      `json:"answered"`
}

func newRoomView(room *domain.Room) roomView {
	view := roomView{
		ID:                   room.ID,
		Code:                 room.Code,
		Topic:                room.Topic,
		Difficulty:           room.Difficulty,
		QuestionCount:        room.QuestionCount,
		Status:               room.Status,
		HostID:               room.HostID,
		CreatedAt:            room.CreatedAt,
		CurrentQuestionIndex: room.CurrentQuestionIndex,
		TotalQuestions:       len(room.Questions),
		QuestionsGenerating:  room.QuestionsGenerating,
		GameState:            room.GameState,
	}
	for _, p := range room.Players {
		_, answered := p.Answers[room.CurrentQuestionIndex]
		view.Players = append(view.Players, playerView{
			ID:       p.ID,
			Nickname: p.Nickname,
			IsHost:   p.IsHost,
			Score:    p.Score,
			JoinedAt: p.JoinedAt,
			Answered: answered && room.Status == domain.StatusActive,
		})
	}
	if room.Status == domain.StatusActive && room.CurrentQuestionIndex < len(room.Questions) {
		view.CurrentQuestion = app.PublicQuestion(room.Questions[room.CurrentQuestionIndex])
	}
	return view
}

type errorBody struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Fields  []domain.FieldError `json:"fields,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	body := errorBody{Code: domain.CodeOf(err), Message: err.Error()}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		body.Fields = ve.Fields
	}
	writeJSON(w, statusFor(body.Code), map[string]errorBody{"error": body})
}

func statusFor(code string) int {
	switch code {
	case "VALIDATION_ERROR":
		return http.StatusBadRequest
	case "ROOM_NOT_FOUND", "PLAYER_NOT_FOUND", "QUESTION_NOT_FOUND":
		return http.StatusNotFound
	case "INSUFFICIENT_PERMISSIONS", "CANNOT_KICK_HOST":
		return http.StatusForbidden
	case "NICKNAME_TAKEN", "ROOM_NOT_WAITING", "ROOM_NOT_ACTIVE",
		"ALREADY_ANSWERED", "STALE_QUESTION", "NO_QUESTIONS_AVAILABLE", "NO_PLAYERS":
		return http.StatusConflict
	case "UPSTREAM_UNAVAILABLE":
		return http.StatusBadGateway
	case "CODE_SPACE_EXHAUSTED":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}
