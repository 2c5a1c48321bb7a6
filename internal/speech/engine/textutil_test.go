package engine

import "testing"

func TestSpeakable(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain text untouched",
			in:   "Take 500mg twice a day.",
			want: "Take 500mg twice a day.",
		},
		{
			name: "emoji stripped",
			in:   "Great job! 🎉💊 Your medicine is saved. 😊",
			want: "Great job! Your medicine is saved.",
		},
		{
			name: "currency and percent kept",
			in:   "That costs $5 or 50% more.",
			want: "That costs $5 or 50% more.",
		},
		{
			name: "only emoji",
			in:   "🎉🎉🎉",
			want: "",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Speakable(tt.in); got != tt.want {
				t.Errorf("Speakable(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestJoinSegments(t *testing.T) {
	segs := []Segment{
		{Text: "add Paracetamol", StartMs: 0, EndMs: 900},
		{Text: " 500mg", StartMs: 900, EndMs: 1400},
		{Text: " twice a day", StartMs: 1400, EndMs: 2200},
	}
	if got := JoinSegments(segs); got != "add Paracetamol 500mg twice a day" {
		t.Errorf("JoinSegments = %q", got)
	}

	if got := JoinSegments(nil); got != "" {
		t.Errorf("JoinSegments(nil) = %q, want empty", got)
	}
}
