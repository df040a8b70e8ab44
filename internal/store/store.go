// Package store persists the active trip selection. The slot is a
// single durable key: read when the session manager starts, written on
// every reconciliation or selection change.
package store

import (
	"context"
	"sync"
)

// ActiveTripKey is the fixed key the active trip id is stored under.
const ActiveTripKey = "activeTripId"

// ActiveTripStore is the durable slot for the active trip id. Load
// returns "" when nothing is stored.
type ActiveTripStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, tripID string) error
	Clear(ctx context.Context) error
}

// Memory is the in-process implementation, used in tests and when no
// durable path is configured.
type Memory struct {
	mu sync.Mutex
	id string
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Load(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id, nil
}

func (m *Memory) Save(_ context.Context, tripID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id = tripID
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id = ""
	return nil
}

var _ ActiveTripStore = (*Memory)(nil)
