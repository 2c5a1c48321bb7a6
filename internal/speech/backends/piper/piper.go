// Package piper synthesizes speech with the Piper TTS binary.
package piper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/awaazlabs/awaaz/internal/speech/engine"
	"github.com/awaazlabs/awaaz/internal/speech/registry"
)

func init() {
	registry.TTS.Register("piper", func(config map[string]string) (engine.TTSEngine, error) {
		binaryPath := config["piper_binary"]
		if binaryPath == "" {
			binaryPath = "piper"
		}
		modelPath := config["piper_model_path"]
		if modelPath == "" {
			modelPath = "./models/en_US-amy-medium.onnx"
		}
		return NewSynthesizer(binaryPath, modelPath), nil
	})
}

// Synthesizer implements engine.TTSEngine using the Piper binary.
type Synthesizer struct {
	binaryPath string
	modelPath  string
}

// NewSynthesizer creates a Piper TTS engine.
func NewSynthesizer(binaryPath, modelPath string) *Synthesizer {
	return &Synthesizer{
		binaryPath: binaryPath,
		modelPath:  modelPath,
	}
}

// Synthesize generates 16kHz 16-bit mono PCM for the given text.
func (p *Synthesizer) Synthesize(ctx context.Context, text string, _ string) (io.Reader, error) {
	if _, err := os.Stat(p.modelPath); err != nil {
		return nil, fmt.Errorf("%w: %q", engine.ErrModelMissing, p.modelPath)
	}

	cmd := exec.CommandContext(ctx, p.binaryPath,
		"--model", p.modelPath,
		"--output-raw",
	)
	cmd.Stdin = bytes.NewBufferString(text)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("piper TTS: %w: %s", err, stderr.String())
	}

	return &stdout, nil
}

// Voices returns available TTS voices.
func (p *Synthesizer) Voices() []engine.Voice {
	return []engine.Voice{
		{ID: "default", Name: "Default", Language: "en-US"},
	}
}

// Models returns available Piper models.
func (p *Synthesizer) Models() []engine.ModelInfo {
	return []engine.ModelInfo{
		{ID: "en_US-amy-medium", DisplayName: "Amy (Medium)", IsDefault: true},
	}
}

// Close releases TTS resources.
func (p *Synthesizer) Close() error { return nil }
