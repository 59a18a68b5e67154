package app

import "sync"

// keyedLocks hands out one mutex per room ID so that all transitions and
// submissions for a room are serialized while different rooms proceed in
// parallel.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedLocks) get(roomID string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	if m, ok := k.locks[roomID]; ok {
		return m
	}
	m := &sync.Mutex{}
	k.locks[roomID] = m
	return m
}

// drop forgets the lock for a deleted room. Holding it while dropping is
// fine; a later get hands out a fresh mutex and the room lookup behind it
// fails anyway.
func (k *keyedLocks) drop(roomID string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.locks, roomID)
}
