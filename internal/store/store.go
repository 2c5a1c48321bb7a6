// Package store persists the medicine log. Records are append-only and
// listed in the order they were committed.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/awaazlabs/awaaz/pkg/slots"
)

// Entry is one committed medicine record.
type Entry struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Strength  string    `json:"strength"`
	Frequency string    `json:"frequency"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the medicine log. Append never mutates earlier entries and List
// returns entries oldest first.
type Store interface {
	Append(ctx context.Context, rec slots.Record) (Entry, error)
	List(ctx context.Context) ([]Entry, error)
}

// MemoryStore keeps the log in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemoryStore creates an empty in-memory medicine log.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, rec slots.Record) (Entry, error) {
	entry := Entry{
		ID:        xid.New().String(),
		Name:      rec.Name,
		Strength:  rec.Strength,
		Frequency: rec.Frequency,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.entries = append(s.entries, entry)
	s.mu.Unlock()

	return entry, nil
}

func (s *MemoryStore) List(_ context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}
