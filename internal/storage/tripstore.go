package storage

import (
	"context"
	"sync"

	"github.com/example/ride-dispatch/internal/models"
)

// EventStore archives ledger events. It is write-only from the ledger's
// point of view: nothing is ever replayed into a running ledger.
type EventStore interface {
	SaveEvent(ctx context.Context, ev models.Event) error
}

type MemoryStore struct {
	mu     sync.RWMutex
	events []models.Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) SaveEvent(_ context.Context, ev models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

// Events returns archived events, optionally only those of the given driver.
func (m *MemoryStore) Events(driver string) []models.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Event, 0, len(m.events))
	for _, ev := range m.events {
		if driver != "" && ev.Driver != driver {
			continue
		}
		out = append(out, ev)
	}
	return out
}
