package engine

import (
	"context"
	"io"
)

// BatchTranscriber flattens an ASR engine's timed segments into the single
// transcript string the dialogue layer consumes. Segments are joined
// exactly as produced, with no separators added.
type BatchTranscriber struct {
	Engine ASREngine
}

func (b BatchTranscriber) Transcribe(ctx context.Context, pcm io.Reader) (string, error) {
	segments, err := b.Engine.Transcribe(ctx, pcm)
	if err != nil {
		return "", err
	}
	return JoinSegments(segments), nil
}
