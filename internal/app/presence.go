package app

import (
	"sync"

	"quiz-room-service/internal/domain"
)

// subscriberBuffer is the per-connection event queue depth. When a slow
// consumer fills it, the oldest event is dropped to keep broadcast non-blocking.
const subscriberBuffer = 16

type subscriber struct {
	connID   string
	playerID string
	nickname string
	roomID   string
	events   chan domain.Event
}

// Presence maps live connections to (player, room) and rooms to their
// connection sets, and fans room events out to subscribers. It is ephemeral,
// rebuildable from live sockets, and never authoritative for game outcome.
type Presence struct {
	mu    sync.RWMutex
	conns map[string]*subscriber
	rooms map[string]map[*subscriber]struct{}
}

func NewPresence() *Presence {
	return &Presence{
		conns: make(map[string]*subscriber),
		rooms: make(map[string]map[*subscriber]struct{}),
	}
}

// PresenceInfo is the payload of player-connected/disconnected events.
type PresenceInfo struct {
	PlayerID    string `json:"playerId"`
	Nickname    string `json:"nickname"`
	Connections int    `json:"connections"`
}

// Join registers a connection against a room and returns its event channel
// plus a cancel func that must be called exactly once. Existing subscribers
// are told about the new presence; the new channel's first event carries the
// current occupancy.
func (p *Presence) Join(connID, roomID, playerID, nickname string) (<-chan domain.Event, func()) {
	sub := &subscriber{
		connID:   connID,
		playerID: playerID,
		nickname: nickname,
		roomID:   roomID,
		events:   make(chan domain.Event, subscriberBuffer),
	}

	p.mu.Lock()
	p.conns[connID] = sub
	set, ok := p.rooms[roomID]
	if !ok {
		set = make(map[*subscriber]struct{})
		p.rooms[roomID] = set
	}
	set[sub] = struct{}{}
	occupancy := len(set)
	ev := domain.Event{
		Type:   domain.EventPlayerConnected,
		RoomID: roomID,
		Payload: PresenceInfo{
			PlayerID:    playerID,
			Nickname:    nickname,
			Connections: occupancy,
		},
	}
	for other := range set {
		if other != sub {
			deliver(other, ev)
		}
	}
	deliver(sub, ev)
	p.mu.Unlock()

	cancel := func() { p.leave(connID) }
	return sub.events, cancel
}

func (p *Presence) leave(connID string) {
	p.mu.Lock()
	sub, ok := p.conns[connID]
	if !ok {
		p.mu.Unlock()
		return
	}
	delete(p.conns, connID)
	set := p.rooms[sub.roomID]
	delete(set, sub)
	close(sub.events)
	if len(set) == 0 {
		// Presence and room lifecycle are decoupled: the room itself stays in
		// the store even when its last socket goes away.
		delete(p.rooms, sub.roomID)
		p.mu.Unlock()
		return
	}
	ev := domain.Event{
		Type:   domain.EventPlayerDisconnected,
		RoomID: sub.roomID,
		Payload: PresenceInfo{
			PlayerID:    sub.playerID,
			Nickname:    sub.nickname,
			Connections: len(set),
		},
	}
	for other := range set {
		deliver(other, ev)
	}
	p.mu.Unlock()
}

// Broadcast delivers ev to every connection subscribed to the room, in the
// order broadcasts are issued on this process.
func (p *Presence) Broadcast(roomID string, ev domain.Event) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for sub := range p.rooms[roomID] {
		deliver(sub, ev)
	}
}

// Occupancy reports how many connections are subscribed to the room.
func (p *Presence) Occupancy(roomID string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.rooms[roomID])
}

func deliver(sub *subscriber, ev domain.Event) {
	select {
	case sub.events <- ev:
	default:
		// Drop the oldest queued event rather than block the whole room's
		// broadcast on one slow consumer.
		select {
		case <-sub.events:
		default:
		}
		sub.events <- ev
	}
}
