package domain

// EventType names a server-pushed room event.
type EventType string

const (
	EventPlayerConnected    EventType = "player-connected"
	EventPlayerDisconnected EventType = "player-disconnected"
	EventPlayerJoined       EventType = "player-joined"
	EventPlayerKicked       EventType = "player-kicked"
	EventPlayerAnswered     EventType = "player-answered"
	EventAllPlayersAnswered EventType = "all-players-answered"
	EventQuestionsReady     EventType = "questions-ready"
	EventGameStarted        EventType = "game-started"
	EventNextQuestion       EventType = "next-question"
	EventShowResults        EventType = "show-results"
	EventGameEnded          EventType = "game-ended"
	EventRoomDeleted        EventType = "room-deleted"
)

// Event is a room-scoped notification fanned out to subscribed connections.
// Payload is marshaled as-is by the transport layer.
type Event struct {
	Type    EventType `json:"type"`
	RoomID  string    `json:"roomId"`
	Payload any       `json:"payload,omitempty"`
}
