package dialog

import (
	"context"
	"sync"
	"time"

	"github.com/awaazlabs/awaaz/pkg/slots"
)

// DefaultSessionTTL is how long an idle session keeps its half-finished
// entry before the reaper discards it.
const DefaultSessionTTL = 30 * time.Minute

// Session holds the in-progress medicine entry for one caller. All access
// is thread-safe. turnMu serializes whole dialogue turns so two uploads on
// the same session cannot both observe a complete entry and commit it twice.
type Session struct {
	turnMu sync.Mutex

	mu         sync.Mutex
	id         string
	entry      slots.SlotSet
	lastActive time.Time
}

// ID returns the caller-supplied session identifier.
func (s *Session) ID() string { return s.id }

// MergeUpdate folds freshly extracted slot values into the entry and
// returns the merged snapshot.
func (s *Session) MergeUpdate(update slots.SlotSet) slots.SlotSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry = slots.Merge(s.entry, update)
	s.lastActive = time.Now()
	return s.entry
}

// Snapshot returns the current entry.
func (s *Session) Snapshot() slots.SlotSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entry
}

// Reset discards the in-progress entry.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry = slots.SlotSet{}
	s.lastActive = time.Now()
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// SessionStore keeps one Session per caller, creating them on first use
// and reaping idle ones after the TTL.
type SessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*Session
}

// NewSessionStore creates a session store. A non-positive TTL falls back
// to DefaultSessionTTL.
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{
		ttl:      ttl,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session for the given id, creating it if needed.
func (st *SessionStore) Get(id string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[id]
	if !ok {
		s = &Session{id: id, lastActive: time.Now()}
		st.sessions[id] = s
	} else {
		s.touch()
	}
	return s
}

// Len returns the number of live sessions.
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Reap removes sessions idle for longer than the TTL and returns how many
// were removed.
func (st *SessionStore) Reap() int {
	cutoff := time.Now().Add(-st.ttl)

	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for id, s := range st.sessions {
		if s.idleSince().Before(cutoff) {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

// StartReaper reaps idle sessions on the given interval until the context
// is cancelled.
func (st *SessionStore) StartReaper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				st.Reap()
			}
		}
	}()
}
