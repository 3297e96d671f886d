package services

import (
	"sync"

	"github.com/google/uuid"
)

// ChallengeLocker serializes work per challenge id so a weekly evaluation
// and a concurrent rescue against the same challenge never interleave.
type ChallengeLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewChallengeLocker() *ChallengeLocker {
	return &ChallengeLocker{locks: make(map[uuid.UUID]*sync.Mutex)}
}

// Lock acquires the mutex for one challenge and returns its unlock func.
func (l *ChallengeLocker) Lock(id uuid.UUID) func() {
	l.mu.Lock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
