package app

import (
	"context"
	"errors"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"quiz-room-service/internal/domain"
)

// sweepConcurrency caps parallel room deletions per sweep.
const sweepConcurrency = 8

// ExpirySweeper deletes rooms stuck in waiting past the expiry window. It is
// an explicitly owned periodic task: started with Run, stopped by canceling
// the context, and joined by waiting for Run to return.
type ExpirySweeper struct {
	service    *RoomService
	expiry     time.Duration
	interval   time.Duration
	startupLag time.Duration
}

func NewExpirySweeper(service *RoomService, expiry, interval, startupLag time.Duration) *ExpirySweeper {
	return &ExpirySweeper{
		service:    service,
		expiry:     expiry,
		interval:   interval,
		startupLag: startupLag,
	}
}

// Run blocks until ctx is canceled, sweeping once shortly after start and
// then on every interval tick.
func (w *ExpirySweeper) Run(ctx context.Context) {
	startup := time.NewTimer(w.startupLag)
	defer startup.Stop()
	select {
	case <-startup.C:
		w.Sweep(ctx)
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.Sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Sweep scans all rooms and deletes the expired ones. Deletions run
// concurrently but independently; one failure never aborts the rest of the
// batch.
func (w *ExpirySweeper) Sweep(ctx context.Context) {
	rooms, err := w.service.rooms.List(ctx)
	if err != nil {
		log.Printf("expiry sweep: list rooms: %v", err)
		return
	}

	cutoff := w.service.now().Add(-w.expiry)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepConcurrency)
	swept := 0
	for _, room := range rooms {
		if room.Status != domain.StatusWaiting || !room.CreatedAt.Before(cutoff) {
			continue
		}
		swept++
		roomID := room.ID
		g.Go(func() error {
			if err := w.deleteExpired(ctx, roomID); err != nil {
				// Log and swallow so sibling deletions keep going.
				logRoomErr("expiry sweep", roomID, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	if swept > 0 {
		log.Printf("expiry sweep: removed up to %d waiting rooms", swept)
	}
}

func (w *ExpirySweeper) deleteExpired(ctx context.Context, roomID string) error {
	mu := w.service.locks.get(roomID)
	mu.Lock()
	defer mu.Unlock()

	// Re-check under the lock; the room may have started or vanished since
	// the scan.
	room, err := w.service.rooms.Get(ctx, roomID)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			return nil
		}
		return err
	}
	if room.Status != domain.StatusWaiting {
		return nil
	}
	if err := w.service.rooms.Delete(ctx, roomID); err != nil {
		return err
	}
	w.service.locks.drop(roomID)
	w.service.presence.Broadcast(roomID, domain.Event{Type: domain.EventRoomDeleted, RoomID: roomID})
	return nil
}
