// Package memory provides an in-memory state.Persister.
package memory

import (
	"context"
	"sync"

	"github.com/warp/payroll-engine/state"
)

// =============================================================================
// MEMORY PERSISTER - Keeps the encoded documents in a map (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	docs    state.Documents
	saves   int
	failErr error
}

func New() *Memory {
	return &Memory{docs: make(state.Documents)}
}

// NewWith starts from already encoded documents, e.g. a partial snapshot.
func NewWith(docs state.Documents) *Memory {
	m := New()
	for k, v := range docs {
		m.docs[k] = append([]byte(nil), v...)
	}
	return m
}

// Load returns a copy of the stored documents.
func (m *Memory) Load(_ context.Context) (state.Documents, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyDocs(m.docs), nil
}

// Save replaces every document at once.
func (m *Memory) Save(_ context.Context, docs state.Documents) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.docs = copyDocs(docs)
	m.saves++
	return nil
}

// FailSaves makes every following Save return err. nil restores saving.
func (m *Memory) FailSaves(err error) {
	m.mu.Lock()
	m.failErr = err
	m.mu.Unlock()
}

// Saves counts successful saves.
func (m *Memory) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

// Document returns the raw bytes stored under key.
func (m *Memory) Document(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.docs[key]
	return v, ok
}

func copyDocs(docs state.Documents) state.Documents {
	out := make(state.Documents, len(docs))
	for k, v := range docs {
		out[k] = append([]byte(nil), v...)
	}
	return out
}
