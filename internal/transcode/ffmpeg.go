// Package transcode normalizes uploaded audio into the 16kHz mono 16-bit PCM
// stream the transcription engines require.
package transcode

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Error reports a failed conversion. Diagnostic carries the transcoder's
// stderr output so the caller can surface the underlying cause.
type Error struct {
	Diagnostic string
	Err        error
}

func (e *Error) Error() string {
	if e.Diagnostic != "" {
		return fmt.Sprintf("audio conversion failed: %v: %s", e.Err, e.Diagnostic)
	}
	return fmt.Sprintf("audio conversion failed: %v", e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Config holds transcoder settings.
type Config struct {
	// Binary is the ffmpeg executable. Defaults to "ffmpeg" on PATH.
	Binary string
	// TempDir receives the per-request input files. Defaults to the
	// system temp dir.
	TempDir string
}

// FFmpeg converts arbitrary audio containers via the ffmpeg binary.
type FFmpeg struct {
	binary  string
	tempDir string
}

// New creates an ffmpeg-backed transcoder.
func New(cfg Config) *FFmpeg {
	binary := cfg.Binary
	if binary == "" {
		binary = "ffmpeg"
	}
	tempDir := cfg.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &FFmpeg{binary: binary, tempDir: tempDir}
}

// ToPCM converts the uploaded audio bytes to 16kHz mono signed 16-bit
// little-endian PCM. The declared container format picks the temp file
// extension so ffmpeg can probe correctly. The temp file is removed on every
// exit path.
func (f *FFmpeg) ToPCM(ctx context.Context, audio []byte, format string) ([]byte, error) {
	in, err := os.CreateTemp(f.tempDir, "awaaz-upload-*."+safeExt(format))
	if err != nil {
		return nil, fmt.Errorf("create temp audio file: %w", err)
	}
	inPath := in.Name()
	defer os.Remove(inPath)

	if _, err := in.Write(audio); err != nil {
		in.Close()
		return nil, fmt.Errorf("write temp audio file: %w", err)
	}
	if err := in.Close(); err != nil {
		return nil, fmt.Errorf("close temp audio file: %w", err)
	}

	cmd := exec.CommandContext(ctx, f.binary, f.args(inPath)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &Error{Diagnostic: strings.TrimSpace(stderr.String()), Err: err}
	}

	return stdout.Bytes(), nil
}

// args builds the ffmpeg invocation: decode the input file, emit raw
// s16le 16kHz mono PCM on stdout.
func (f *FFmpeg) args(inPath string) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", inPath,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		"pipe:1",
	}
}

// safeExt reduces a caller-declared format to a plain file extension.
func safeExt(format string) string {
	format = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(format, "audio/")))
	var b strings.Builder
	for _, r := range format {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "bin"
	}
	return b.String()
}
