package transcode

import (
	"errors"
	"os"
	"testing"
)

func TestToPCMFailureReturnsTypedErrorAndCleansUp(t *testing.T) {
	dir := t.TempDir()
	// "false" exits nonzero without touching its arguments, standing in for
	// a transcoder rejecting corrupt input.
	f := New(Config{Binary: "false", TempDir: dir})

	_, err := f.ToPCM(t.Context(), []byte("not really audio"), "webm")
	if err == nil {
		t.Fatal("expected transcoding error")
	}

	var terr *Error
	if !errors.As(err, &terr) {
		t.Fatalf("err = %T, want *transcode.Error", err)
	}

	entries, readErr := os.ReadDir(dir)
	if readErr != nil {
		t.Fatal(readErr)
	}
	if len(entries) != 0 {
		t.Errorf("temp dir not cleaned up, %d files remain", len(entries))
	}
}

func TestToPCMMissingBinary(t *testing.T) {
	dir := t.TempDir()
	f := New(Config{Binary: "definitely-not-a-real-binary-xyz", TempDir: dir})

	_, err := f.ToPCM(t.Context(), []byte("audio"), "wav")
	if err == nil {
		t.Fatal("expected error for missing binary")
	}

	entries, readErr := os.ReadDir(dir)
	if readErr != nil {
		t.Fatal(readErr)
	}
	if len(entries) != 0 {
		t.Errorf("temp dir not cleaned up, %d files remain", len(entries))
	}
}

func TestArgs(t *testing.T) {
	f := New(Config{})
	args := f.args("/tmp/in.webm")

	want := map[string]string{
		"-f":  "s16le",
		"-ar": "16000",
		"-ac": "1",
		"-i":  "/tmp/in.webm",
	}
	for flag, val := range want {
		found := false
		for i := 0; i < len(args)-1; i++ {
			if args[i] == flag && args[i+1] == val {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("args missing %s %s: %v", flag, val, args)
		}
	}
	if args[len(args)-1] != "pipe:1" {
		t.Errorf("output target = %q, want pipe:1", args[len(args)-1])
	}
}

func TestSafeExt(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"webm", "webm"},
		{"audio/mp4", "mp4"},
		{"../../etc/passwd", "etcpasswd"},
		{"", "bin"},
		{"M4A", "m4a"},
	}
	for _, tt := range tests {
		if got := safeExt(tt.in); got != tt.want {
			t.Errorf("safeExt(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
