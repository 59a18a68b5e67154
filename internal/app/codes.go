package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"quiz-room-service/internal/domain"
)

// codeAttempts bounds allocator retries so adversarial load cannot stretch
// room creation latency indefinitely.
const codeAttempts = 10

// CodeAllocator draws collision-checked 6-digit join codes.
type CodeAllocator struct {
	rooms   RoomRepository
	randInt func(n int) int
}

func NewCodeAllocator(rooms RoomRepository) *CodeAllocator {
	return &CodeAllocator{rooms: rooms, randInt: rand.Intn}
}

// Allocate returns a 6-digit code not bound to any live room, probing the
// store for collisions. Exhausting the retry bound is a hard failure, never a
// silent fallback to a longer code.
func (a *CodeAllocator) Allocate(ctx context.Context) (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code := fmt.Sprintf("%06d", 100000+a.randInt(900000))
		_, err := a.rooms.FindIDByCode(ctx, code)
		if errors.Is(err, domain.ErrRoomNotFound) {
			return code, nil
		}
		if err != nil {
			return "", fmt.Errorf("probe code %s: %w", code, err)
		}
	}
	return "", domain.ErrCodeSpaceExhausted
}
