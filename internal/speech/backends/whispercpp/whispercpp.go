// Package whispercpp transcribes audio by shelling out to the whisper.cpp
// CLI in one-shot batch mode.
package whispercpp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/awaazlabs/awaaz/internal/speech/engine"
	"github.com/awaazlabs/awaaz/internal/speech/registry"
)

func init() {
	registry.ASR.Register("whispercpp", func(config map[string]string) (engine.ASREngine, error) {
		binaryPath := config["whisper_binary"]
		if binaryPath == "" {
			binaryPath = "whisper-cli"
		}
		modelPath := config["whisper_model_path"]
		if modelPath == "" {
			if m := config["model"]; m != "" {
				modelPath = "./models/" + m + ".bin"
			} else {
				modelPath = "./models/ggml-base.en.bin"
			}
		}
		language := config["language"]
		if language == "" {
			language = "en"
		}
		return NewTranscriber(binaryPath, modelPath, language)
	})
}

// Transcriber implements engine.ASREngine on top of the whisper.cpp CLI.
type Transcriber struct {
	binaryPath string
	modelPath  string
	language   string
}

// NewTranscriber creates a whisper.cpp batch transcriber. The model file must
// already be on disk.
func NewTranscriber(binaryPath, modelPath, language string) (*Transcriber, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("whisper model not found at %q: %w", modelPath, err)
	}
	return &Transcriber{
		binaryPath: binaryPath,
		modelPath:  modelPath,
		language:   language,
	}, nil
}

// whisperOutput is the shape of whisper.cpp's --output-json file.
type whisperOutput struct {
	Transcription []struct {
		Offsets struct {
			From int `json:"from"`
			To   int `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

// Transcribe runs one whisper.cpp invocation over the PCM utterance and
// returns its timed segments. Empty audio yields no segments and no error.
// All temp artifacts are removed on every exit path.
func (t *Transcriber) Transcribe(ctx context.Context, pcm io.Reader) ([]engine.Segment, error) {
	audio, err := io.ReadAll(pcm)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, nil
	}

	wavFile, err := os.CreateTemp("", "awaaz-asr-*.wav")
	if err != nil {
		return nil, fmt.Errorf("create temp wav: %w", err)
	}
	wavPath := wavFile.Name()
	defer os.Remove(wavPath)

	// whisper.cpp wants a WAV container, not bare PCM.
	if err := engine.WriteWAVHeader(wavFile, len(audio)); err != nil {
		wavFile.Close()
		return nil, fmt.Errorf("write wav header: %w", err)
	}
	if _, err := wavFile.Write(audio); err != nil {
		wavFile.Close()
		return nil, fmt.Errorf("write wav payload: %w", err)
	}
	if err := wavFile.Close(); err != nil {
		return nil, fmt.Errorf("close temp wav: %w", err)
	}

	outPrefix := strings.TrimSuffix(wavPath, filepath.Ext(wavPath))
	jsonPath := outPrefix + ".json"
	defer os.Remove(jsonPath)

	cmd := exec.CommandContext(ctx, t.binaryPath,
		"-m", t.modelPath,
		"-l", t.language,
		"-f", wavPath,
		"--output-json",
		"--output-file", outPrefix,
		"--no-prints",
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("whisper.cpp: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("read whisper output: %w", err)
	}

	var out whisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse whisper output: %w", err)
	}

	segments := make([]engine.Segment, 0, len(out.Transcription))
	for _, seg := range out.Transcription {
		segments = append(segments, engine.Segment{
			Text:    seg.Text,
			StartMs: seg.Offsets.From,
			EndMs:   seg.Offsets.To,
		})
	}
	return segments, nil
}

// Models returns the whisper.cpp models this deployment knows about.
func (t *Transcriber) Models() []engine.ModelInfo {
	return []engine.ModelInfo{
		{ID: "ggml-base.en", DisplayName: "Whisper Base (English)", IsDefault: true},
		{ID: "ggml-small", DisplayName: "Whisper Small"},
		{ID: "ggml-medium", DisplayName: "Whisper Medium"},
	}
}

// Close releases transcriber resources.
func (t *Transcriber) Close() error { return nil }
