// Package config defines the environment-driven configuration for the
// awaaz service.
package config

import (
	"github.com/pitabwire/frame/config"
)

// AwaazConfig holds configuration for the voice medicine-logging service.
type AwaazConfig struct {
	config.ConfigurationDefault

	// Completion service
	OllamaURL        string `envDefault:"http://localhost:11434" env:"OLLAMA_URL"`
	OllamaModel      string `envDefault:"llama3"                 env:"OLLAMA_MODEL"`
	OllamaTimeoutSec int    `envDefault:"30"                     env:"OLLAMA_TIMEOUT_SEC"`

	// Audio transcoding
	FFmpegBinary string `envDefault:"ffmpeg" env:"FFMPEG_BINARY"`
	AudioTempDir string `envDefault:""       env:"AUDIO_TEMP_DIR"`

	// Speech backends
	ASRBackend        string `envDefault:"whispercpp"                       env:"ASR_BACKEND"`
	TTSBackend        string `envDefault:"piper"                            env:"TTS_BACKEND"`
	WhisperBinaryPath string `envDefault:"whisper-cli"                      env:"WHISPER_BINARY_PATH"`
	WhisperModelPath  string `envDefault:"./models/ggml-base.en.bin"        env:"WHISPER_MODEL_PATH"`
	SpeechLanguage    string `envDefault:"en"                               env:"SPEECH_LANGUAGE"`
	PiperBinaryPath   string `envDefault:"piper"                            env:"PIPER_BINARY_PATH"`
	PiperModelPath    string `envDefault:"./models/en_US-amy-medium.onnx"   env:"PIPER_MODEL_PATH"`
	ElevenLabsAPIKey  string `envDefault:""                                 env:"ELEVENLABS_API_KEY"`
	OpenAIAPIKey      string `envDefault:""                                 env:"OPENAI_API_KEY"`
	OpenAIBaseURL     string `envDefault:"https://api.openai.com/v1"        env:"OPENAI_BASE_URL"`

	// Prompts
	PromptDir string `envDefault:"" env:"PROMPT_DIR"`

	// Dialogue sessions
	SessionTTLMin int `envDefault:"30" env:"SESSION_TTL_MIN"`

	// Medicine store: "memory" or "database"
	StoreBackend string `envDefault:"memory" env:"STORE_BACKEND"`

	// Webhooks
	WebhooksEnabled   bool `envDefault:"false" env:"WEBHOOKS_ENABLED"`
	WebhookMaxRetries int  `envDefault:"5"     env:"WEBHOOK_MAX_RETRIES"`
	WebhookTimeoutSec int  `envDefault:"10"    env:"WEBHOOK_TIMEOUT_SEC"`
	WebhookBackoffSec int  `envDefault:"1"     env:"WEBHOOK_BACKOFF_INITIAL_SEC"`
	WebhookBackoffMax int  `envDefault:"300"   env:"WEBHOOK_BACKOFF_MAX_SEC"`
	CBFailThreshold   int  `envDefault:"5"     env:"CB_FAILURE_THRESHOLD"`
	CBResetTimeoutSec int  `envDefault:"60"    env:"CB_RESET_TIMEOUT_SEC"`
}

// SpeechBackendConfig flattens the speech settings into the key/value map
// the backend registries consume.
func (c *AwaazConfig) SpeechBackendConfig() map[string]string {
	return map[string]string{
		"whisper_binary":     c.WhisperBinaryPath,
		"whisper_model_path": c.WhisperModelPath,
		"language":           c.SpeechLanguage,
		"piper_binary":       c.PiperBinaryPath,
		"piper_model_path":   c.PiperModelPath,
		"elevenlabs_api_key": c.ElevenLabsAPIKey,
		"openai_api_key":     c.OpenAIAPIKey,
		"openai_base_url":    c.OpenAIBaseURL,
	}
}
