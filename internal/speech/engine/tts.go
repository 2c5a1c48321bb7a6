package engine

import (
	"context"
	"errors"
	"io"
)

// ErrModelMissing indicates the voice model assets for a TTS backend are not
// present on disk.
var ErrModelMissing = errors.New("speech synthesis model not found")

// Voice describes an available TTS voice.
type Voice struct {
	ID       string
	Name     string
	Language string
}

// TTSEngine synthesizes speech from text.
// Synthesize returns 16kHz mono 16-bit PCM audio.
type TTSEngine interface {
	Synthesize(ctx context.Context, text string, voice string) (io.Reader, error)
	Voices() []Voice
	Models() []ModelInfo
	Close() error
}
