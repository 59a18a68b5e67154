package app

import (
	"testing"

	"quiz-room-service/internal/domain"
)

func TestPresenceJoinAndLeaveBroadcasts(t *testing.T) {
	p := NewPresence()

	aliceEvents, cancelAlice := p.Join("conn-1", "room-1", "p1", "Alice")
	defer cancelAlice()

	// First event on a new channel is the occupancy notification.
	ev := <-aliceEvents
	if ev.Type != domain.EventPlayerConnected {
		t.Fatalf("expected player-connected, got %s", ev.Type)
	}
	if info := ev.Payload.(PresenceInfo); info.Connections != 1 {
		t.Fatalf("expected occupancy 1, got %d", info.Connections)
	}

	bobEvents, cancelBob := p.Join("conn-2", "room-1", "p2", "Bob")

	ev = <-aliceEvents
	if ev.Type != domain.EventPlayerConnected || ev.Payload.(PresenceInfo).PlayerID != "p2" {
		t.Fatalf("expected Bob's arrival, got %+v", ev)
	}
	if p.Occupancy("room-1") != 2 {
		t.Fatalf("expected occupancy 2, got %d", p.Occupancy("room-1"))
	}

	cancelBob()
	ev = <-aliceEvents
	if ev.Type != domain.EventPlayerDisconnected || ev.Payload.(PresenceInfo).PlayerID != "p2" {
		t.Fatalf("expected Bob's departure, got %+v", ev)
	}
	// Bob's own connect event was still buffered; after it the channel
	// reports closed.
	if ev, ok := <-bobEvents; !ok || ev.Type != domain.EventPlayerConnected {
		t.Fatalf("expected Bob's buffered connect event, got %+v ok=%v", ev, ok)
	}
	if _, ok := <-bobEvents; ok {
		t.Fatalf("expected Bob's channel closed")
	}
}

func TestPresenceRoomsAreIsolated(t *testing.T) {
	p := NewPresence()

	aliceEvents, cancelAlice := p.Join("conn-1", "room-1", "p1", "Alice")
	defer cancelAlice()
	<-aliceEvents

	_, cancelOther := p.Join("conn-2", "room-2", "p9", "Other")
	defer cancelOther()

	select {
	case ev := <-aliceEvents:
		t.Fatalf("cross-room event leaked: %+v", ev)
	default:
	}
}

func TestBroadcastPreservesOrder(t *testing.T) {
	p := NewPresence()

	events, cancel := p.Join("conn-1", "room-1", "p1", "Alice")
	defer cancel()
	<-events

	for i := 0; i < 5; i++ {
		p.Broadcast("room-1", domain.Event{
			Type:    domain.EventPlayerAnswered,
			RoomID:  "room-1",
			Payload: i,
		})
	}
	for i := 0; i < 5; i++ {
		ev := <-events
		if ev.Payload.(int) != i {
			t.Fatalf("events reordered: got %v at position %d", ev.Payload, i)
		}
	}
}

func TestSlowSubscriberDropsOldestNotNewest(t *testing.T) {
	p := NewPresence()

	events, cancel := p.Join("conn-1", "room-1", "p1", "Alice")
	defer cancel()
	<-events

	for i := 0; i < subscriberBuffer+4; i++ {
		p.Broadcast("room-1", domain.Event{Type: domain.EventPlayerAnswered, RoomID: "room-1", Payload: i})
	}

	last := -1
	for drained := false; !drained; {
		select {
		case ev := <-events:
			last = ev.Payload.(int)
		default:
			drained = true
		}
	}
	if last != subscriberBuffer+3 {
		t.Fatalf("newest event lost: last seen %d", last)
	}
}
