// Package openai provides ASR and TTS backends over any OpenAI-compatible
// audio API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/awaazlabs/awaaz/internal/speech/backends/restutil"
	"github.com/awaazlabs/awaaz/internal/speech/engine"
	"github.com/awaazlabs/awaaz/internal/speech/registry"
)

func init() {
	registry.ASR.Register("openai", func(config map[string]string) (engine.ASREngine, error) {
		apiKey, baseURL, err := creds(config)
		if err != nil {
			return nil, err
		}
		model := config["model"]
		if model == "" {
			model = "whisper-1"
		}
		return &ASR{apiKey: apiKey, baseURL: baseURL, model: model}, nil
	})

	registry.TTS.Register("openai", func(config map[string]string) (engine.TTSEngine, error) {
		apiKey, baseURL, err := creds(config)
		if err != nil {
			return nil, err
		}
		model := config["model"]
		if model == "" {
			model = "tts-1"
		}
		return &TTS{apiKey: apiKey, baseURL: baseURL, model: model}, nil
	})
}

func creds(config map[string]string) (apiKey, baseURL string, err error) {
	apiKey = config["openai_api_key"]
	if apiKey == "" {
		return "", "", fmt.Errorf("openai API key required (set openai_api_key in config)")
	}
	baseURL = config["openai_base_url"]
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return apiKey, baseURL, nil
}

// ASR implements engine.ASREngine using the transcriptions endpoint.
type ASR struct {
	apiKey  string
	baseURL string
	model   string
}

// Transcribe uploads the utterance as a WAV file and returns it as a single
// segment; the API does not expose timings in the default response format.
func (o *ASR) Transcribe(_ context.Context, pcm io.Reader) ([]engine.Segment, error) {
	audio, err := io.ReadAll(pcm)
	if err != nil {
		return nil, fmt.Errorf("openai ASR: read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, nil
	}

	var wavBuf bytes.Buffer
	if err := engine.WriteWAVHeader(&wavBuf, len(audio)); err != nil {
		return nil, fmt.Errorf("openai ASR: write WAV header: %w", err)
	}
	wavBuf.Write(audio)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, fmt.Errorf("openai ASR: create form file: %w", err)
	}
	if _, err := part.Write(wavBuf.Bytes()); err != nil {
		return nil, fmt.Errorf("openai ASR: write form file: %w", err)
	}
	_ = writer.WriteField("model", o.model)
	_ = writer.WriteField("response_format", "json")
	writer.Close()

	headers := map[string]string{
		"Authorization": "Bearer " + o.apiKey,
		"Content-Type":  writer.FormDataContentType(),
	}

	respBody, err := restutil.DoRaw("POST", o.baseURL+"/audio/transcriptions", headers, &body)
	if err != nil {
		return nil, fmt.Errorf("openai ASR: %w", err)
	}
	defer respBody.Close()

	var resp struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(respBody).Decode(&resp); err != nil {
		return nil, fmt.Errorf("openai ASR decode: %w", err)
	}
	if resp.Text == "" {
		return nil, nil
	}

	return []engine.Segment{{Text: resp.Text}}, nil
}

func (o *ASR) Models() []engine.ModelInfo {
	return []engine.ModelInfo{
		{ID: "whisper-1", DisplayName: "Whisper 1", IsDefault: true},
	}
}

func (o *ASR) Close() error { return nil }

// TTS implements engine.TTSEngine using the speech endpoint.
type TTS struct {
	apiKey  string
	baseURL string
	model   string
}

type ttsRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

func (o *TTS) Synthesize(_ context.Context, text string, voice string) (io.Reader, error) {
	if voice == "" {
		voice = "alloy"
	}

	reqJSON, _ := json.Marshal(ttsRequest{
		Model:          o.model,
		Input:          text,
		Voice:          voice,
		ResponseFormat: "pcm",
	})

	headers := map[string]string{
		"Authorization": "Bearer " + o.apiKey,
		"Content-Type":  "application/json",
	}

	body, err := restutil.DoRaw("POST", o.baseURL+"/audio/speech", headers, bytes.NewReader(reqJSON))
	if err != nil {
		return nil, fmt.Errorf("openai TTS: %w", err)
	}
	defer body.Close()

	// The pcm response format is 24kHz 16-bit mono; downsample to the 16kHz
	// the rest of the pipeline speaks.
	pcm24, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("openai TTS read: %w", err)
	}

	return bytes.NewReader(resample24to16(pcm24)), nil
}

func (o *TTS) Voices() []engine.Voice {
	return []engine.Voice{
		{ID: "alloy", Name: "Alloy", Language: "en"},
		{ID: "nova", Name: "Nova", Language: "en"},
		{ID: "onyx", Name: "Onyx", Language: "en"},
	}
}

func (o *TTS) Models() []engine.ModelInfo {
	return []engine.ModelInfo{
		{ID: "tts-1", DisplayName: "TTS 1", IsDefault: true},
		{ID: "tts-1-hd", DisplayName: "TTS 1 HD"},
	}
}

func (o *TTS) Close() error { return nil }
