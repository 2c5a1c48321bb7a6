package engine

import (
	"context"
	"io"
	"strings"
)

// Segment is a timed piece of a transcription.
type Segment struct {
	Text    string
	StartMs int
	EndMs   int
}

// ModelInfo describes an available model for a backend.
type ModelInfo struct {
	ID          string
	DisplayName string
	IsDefault   bool
}

// ASREngine transcribes one utterance of 16kHz mono 16-bit PCM audio.
// Silence or empty audio yields an empty segment list, not an error.
type ASREngine interface {
	Transcribe(ctx context.Context, pcm io.Reader) ([]Segment, error)
	Models() []ModelInfo
	Close() error
}

// JoinSegments concatenates segment texts in order with no added separators,
// producing the flat transcript the dialogue controller consumes.
func JoinSegments(segments []Segment) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteString(s.Text)
	}
	return b.String()
}
