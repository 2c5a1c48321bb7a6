// Package elevenlabs synthesizes speech through the ElevenLabs REST API.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/awaazlabs/awaaz/internal/speech/backends/restutil"
	"github.com/awaazlabs/awaaz/internal/speech/engine"
	"github.com/awaazlabs/awaaz/internal/speech/registry"
)

func init() {
	registry.TTS.Register("elevenlabs", func(config map[string]string) (engine.TTSEngine, error) {
		apiKey := config["elevenlabs_api_key"]
		if apiKey == "" {
			return nil, fmt.Errorf("elevenlabs API key required (set elevenlabs_api_key in config)")
		}
		model := config["model"]
		if model == "" {
			model = "eleven_multilingual_v2"
		}
		return &TTS{apiKey: apiKey, model: model}, nil
	})
}

type synthesizeRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// TTS implements engine.TTSEngine using the ElevenLabs REST API.
type TTS struct {
	apiKey string
	model  string
}

func (e *TTS) Synthesize(_ context.Context, text string, voice string) (io.Reader, error) {
	if voice == "" {
		voice = "21m00Tcm4TlvDq8ikWAM" // Rachel (default)
	}

	apiURL := fmt.Sprintf("https://api.elevenlabs.io/v1/text-to-speech/%s?output_format=pcm_16000", voice)

	reqJSON, _ := json.Marshal(synthesizeRequest{
		Text:    text,
		ModelID: e.model,
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
		},
	})

	headers := map[string]string{
		"xi-api-key":   e.apiKey,
		"Content-Type": "application/json",
	}

	body, err := restutil.DoRaw("POST", apiURL, headers, bytes.NewReader(reqJSON))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs TTS: %w", err)
	}
	defer body.Close()

	// pcm_16000 is raw 16kHz PCM, no container to strip.
	pcm, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs TTS read: %w", err)
	}
	return bytes.NewReader(pcm), nil
}

func (e *TTS) Voices() []engine.Voice {
	return []engine.Voice{
		{ID: "21m00Tcm4TlvDq8ikWAM", Name: "Rachel", Language: "en"},
		{ID: "EXAVITQu4vr4xnSDxMaL", Name: "Bella", Language: "en"},
		{ID: "ErXwobaYiN019PkySvjV", Name: "Antoni", Language: "en"},
	}
}

func (e *TTS) Models() []engine.ModelInfo {
	return []engine.ModelInfo{
		{ID: "eleven_multilingual_v2", DisplayName: "Multilingual v2", IsDefault: true},
		{ID: "eleven_turbo_v2", DisplayName: "Turbo v2"},
	}
}

func (e *TTS) Close() error { return nil }
