package dialog

import (
	"testing"
	"time"

	"github.com/awaazlabs/awaaz/pkg/slots"
)

func str(s string) *string { return &s }

func TestSessionMergeAndReset(t *testing.T) {
	st := NewSessionStore(time.Minute)
	s := st.Get("caller-1")

	merged := s.MergeUpdate(slots.SlotSet{Name: str("Aspirin")})
	if merged.Name == nil || *merged.Name != "Aspirin" {
		t.Fatalf("merged name = %v", merged.Name)
	}

	merged = s.MergeUpdate(slots.SlotSet{Strength: str("100mg")})
	if merged.Name == nil || merged.Strength == nil {
		t.Fatal("second merge dropped earlier slot")
	}

	s.Reset()
	if got := s.Snapshot(); got.Name != nil || got.Strength != nil {
		t.Errorf("Reset left state behind: %s", got.String())
	}
}

func TestSessionStoreGetCreatesOnce(t *testing.T) {
	st := NewSessionStore(time.Minute)

	a := st.Get("caller-1")
	b := st.Get("caller-1")
	if a != b {
		t.Error("Get returned different sessions for the same id")
	}
	if st.Get("caller-2") == a {
		t.Error("distinct ids share a session")
	}
	if st.Len() != 2 {
		t.Errorf("Len = %d, want 2", st.Len())
	}
}

func TestSessionStoreReap(t *testing.T) {
	st := NewSessionStore(10 * time.Millisecond)

	st.Get("stale")
	time.Sleep(25 * time.Millisecond)
	st.Get("fresh")

	if removed := st.Reap(); removed != 1 {
		t.Errorf("Reap removed %d sessions, want 1", removed)
	}
	if st.Len() != 1 {
		t.Errorf("Len after reap = %d, want 1", st.Len())
	}

	// A reaped id starts over with a fresh session.
	if got := st.Get("stale").Snapshot(); got.Name != nil {
		t.Error("reaped session retained state")
	}
}

func TestSessionStoreGetRefreshesTTL(t *testing.T) {
	st := NewSessionStore(30 * time.Millisecond)

	st.Get("caller-1")
	time.Sleep(20 * time.Millisecond)
	st.Get("caller-1")
	time.Sleep(20 * time.Millisecond)

	if removed := st.Reap(); removed != 0 {
		t.Errorf("Reap removed %d sessions, want 0 (recently touched)", removed)
	}
}
