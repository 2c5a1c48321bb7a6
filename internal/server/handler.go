// Package server exposes the assistant's HTTP API: voice command turns,
// speech synthesis, and the medicine log.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/awaazlabs/awaaz/internal/speech/engine"
	"github.com/awaazlabs/awaaz/internal/store"
	"github.com/awaazlabs/awaaz/pkg/dialog"
	"github.com/awaazlabs/awaaz/pkg/events"
)

const (
	maxUploadSize      = 15 << 20 // 15 MiB
	maxRequestBodySize = 1 << 20  // 1 MiB
	defaultAudioFormat = "webm"
)

// turnRunner is the slice of the dialogue controller the API needs.
type turnRunner interface {
	Turn(ctx context.Context, sessionID string, audio []byte, format string) (dialog.Response, error)
}

// synthesizer is the slice of a TTS engine the API needs.
type synthesizer interface {
	Synthesize(ctx context.Context, text string, voice string) (io.Reader, error)
}

// healthChecker reports whether the completion service is reachable.
type healthChecker interface {
	Healthy(ctx context.Context) bool
}

// Handler serves the assistant API.
type Handler struct {
	dialog    turnRunner
	tts       synthesizer
	medicines store.Store
	health    healthChecker
	events    *events.Publisher
}

// NewHandler creates the assistant API handler. The events publisher may
// be nil.
func NewHandler(d turnRunner, tts synthesizer, medicines store.Store, health healthChecker, publisher *events.Publisher) *Handler {
	return &Handler{dialog: d, tts: tts, medicines: medicines, health: health, events: publisher}
}

// RegisterRoutes registers the assistant API routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /command", h.Command)
	mux.HandleFunc("POST /text-to-speech", h.TextToSpeech)
	mux.HandleFunc("GET /medicines", h.Medicines)
	mux.HandleFunc("GET /healthz", h.Healthz)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// Command handles POST /command: one spoken turn of the logging dialogue.
func (h *Handler) Command(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	sessionID := r.FormValue("session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read audio upload")
		return
	}
	if len(audio) == 0 {
		writeError(w, http.StatusBadRequest, "audio file is empty")
		return
	}

	format := r.FormValue("format")
	if format == "" {
		format = formatFromFilename(header)
	}

	resp, err := h.dialog.Turn(r.Context(), sessionID, audio, format)
	if err != nil {
		status, msg := statusFor(err)
		slog.ErrorContext(r.Context(), "command turn failed",
			slog.String("session_id", sessionID),
			slog.Int("status", status),
			slog.String("error", err.Error()))
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, commandResponse{
		ResponseText: resp.Text,
		IsFinal:      resp.Final,
	})
}

func formatFromFilename(header *multipart.FileHeader) string {
	if header != nil {
		if ext := strings.TrimPrefix(filepath.Ext(header.Filename), "."); ext != "" {
			return ext
		}
	}
	return defaultAudioFormat
}

// TextToSpeech handles POST /text-to-speech: speak a piece of assistant text.
func (h *Handler) TextToSpeech(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var req ttsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	text := engine.Speakable(req.Text)
	if text == "" {
		writeError(w, http.StatusBadRequest, "no text to speak")
		return
	}

	pcmReader, err := h.tts.Synthesize(r.Context(), text, req.Voice)
	if err != nil {
		status, msg := statusFor(err)
		slog.ErrorContext(r.Context(), "speech synthesis failed",
			slog.Int("status", status),
			slog.String("error", err.Error()))
		writeError(w, status, msg)
		return
	}

	pcm, err := io.ReadAll(pcmReader)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read synthesized audio")
		return
	}

	var buf bytes.Buffer
	if err := engine.WriteWAVHeader(&buf, len(pcm)); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode audio")
		return
	}
	buf.Write(pcm)

	if h.events != nil {
		if err := h.events.Emit(r.Context(), events.TTSCompleted, "", events.TTSEventData{Text: text, Voice: req.Voice}); err != nil {
			slog.WarnContext(r.Context(), "emit tts event failed", slog.String("error", err.Error()))
		}
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// Medicines handles GET /medicines: the committed log, oldest first.
func (h *Handler) Medicines(w http.ResponseWriter, r *http.Request) {
	entries, err := h.medicines.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list medicines")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// Healthz handles GET /healthz.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if h.health != nil && !h.health.Healthy(r.Context()) {
		status = "degraded: completion service unreachable"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{"status": status})
}
