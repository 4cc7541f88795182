package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in a process-lifetime map. No eviction and no
// size bound: memory grows with distinct chat identities until the process
// exits. The mutex guards the map itself, not a chat's read-modify-write
// across a turn.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]Session
}

// NewMemoryStore constructs an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[int64]Session)}
}

// Get returns the session for chatID, reporting absence via the bool.
func (m *MemoryStore) Get(_ context.Context, chatID int64) (Session, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[chatID]
	return sess, ok, nil
}

// Put stores the session under chatID, replacing any previous state.
func (m *MemoryStore) Put(_ context.Context, chatID int64, sess Session) error {
	sess.ChatID = chatID
	sess.UpdatedAt = time.Now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[chatID] = sess
	return nil
}

// Delete removes the session mapping entry entirely.
func (m *MemoryStore) Delete(_ context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, chatID)
	return nil
}

// Count returns the number of live sessions.
func (m *MemoryStore) Count(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return int64(len(m.sessions)), nil
}

// Ping always succeeds; there is no backing service.
func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close(context.Context) error {
	return nil
}
