package prompt

import (
	"strings"
	"testing"

	"github.com/awaazlabs/awaaz/pkg/slots"
)

func TestBuildExtractionEmbedsTranscript(t *testing.T) {
	lib := NewLibrary()

	transcript := "add Paracetamol 500mg twice a day"
	p, err := lib.Build(KindExtraction, Context{Transcript: transcript})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if !strings.Contains(p, transcript) {
		t.Errorf("extraction prompt missing verbatim transcript:\n%s", p)
	}
	for _, key := range []string{`"name"`, `"strength"`, `"frequency"`} {
		if !strings.Contains(p, key) {
			t.Errorf("extraction prompt missing key %s", key)
		}
	}
	if !strings.Contains(p, "once a day") {
		t.Error("extraction prompt missing frequency normalization guidance")
	}
}

func TestBuildFollowUpUsesInstruction(t *testing.T) {
	lib := NewLibrary()

	for _, slot := range slots.Fields {
		inst := FollowUpInstruction(slot)
		if inst == "" {
			t.Fatalf("no follow-up instruction for slot %q", slot)
		}

		p, err := lib.Build(KindFollowUp, Context{Instruction: inst})
		if err != nil {
			t.Fatalf("Build(%s): %v", slot, err)
		}
		if !strings.Contains(p, inst) {
			t.Errorf("follow-up prompt for %q missing instruction", slot)
		}
	}
}

func TestBuildConfirmationNamesAllSlots(t *testing.T) {
	lib := NewLibrary()

	rec := slots.Record{Name: "Paracetamol", Strength: "500mg", Frequency: "twice a day"}
	p, err := lib.Build(KindConfirmation, Context{Record: rec})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	for _, v := range []string{rec.Name, rec.Strength, rec.Frequency} {
		if !strings.Contains(p, v) {
			t.Errorf("confirmation prompt missing %q:\n%s", v, p)
		}
	}
}

func TestBuildClarificationIsMidConversation(t *testing.T) {
	lib := NewLibrary()

	p, err := lib.Build(KindClarification, Context{Transcript: "mumble mumble"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(p, "mumble mumble") {
		t.Error("clarification prompt missing transcript")
	}
	if !strings.Contains(p, "not an opener") {
		t.Error("clarification prompt should steer away from greeting phrasing")
	}
}

func TestBuildUnknownKind(t *testing.T) {
	lib := NewLibrary()
	if _, err := lib.Build(Kind("bogus"), Context{}); err == nil {
		t.Error("expected error for unknown prompt kind")
	}
}
