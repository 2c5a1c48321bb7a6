package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/awaazlabs/awaaz/internal/llm"
	"github.com/awaazlabs/awaaz/internal/speech/engine"
	"github.com/awaazlabs/awaaz/internal/store"
	"github.com/awaazlabs/awaaz/internal/transcode"
	"github.com/awaazlabs/awaaz/pkg/dialog"
	"github.com/awaazlabs/awaaz/pkg/events"
	"github.com/awaazlabs/awaaz/pkg/slots"
)

type stubTurnRunner struct {
	resp      dialog.Response
	err       error
	sessionID string
	format    string
	audio     []byte
}

func (s *stubTurnRunner) Turn(_ context.Context, sessionID string, audio []byte, format string) (dialog.Response, error) {
	s.sessionID = sessionID
	s.audio = audio
	s.format = format
	return s.resp, s.err
}

type stubSynthesizer struct {
	pcm []byte
	err error
}

func (s *stubSynthesizer) Synthesize(_ context.Context, _ string, _ string) (io.Reader, error) {
	if s.err != nil {
		return nil, s.err
	}
	return bytes.NewReader(s.pcm), nil
}

type stubHealth struct{ ok bool }

func (s stubHealth) Healthy(_ context.Context) bool { return s.ok }

func newTestServer(t *testing.T, d turnRunner, tts synthesizer, medicines store.Store, health healthChecker) *httptest.Server {
	t.Helper()
	if medicines == nil {
		medicines = store.NewMemoryStore()
	}
	mux := http.NewServeMux()
	NewHandler(d, tts, medicines, health, nil).RegisterRoutes(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func commandRequest(t *testing.T, url, sessionID string, audio []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if sessionID != "" {
		writer.WriteField("session_id", sessionID)
	}
	if audio != nil {
		part, err := writer.CreateFormFile("audio", "utterance.webm")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		part.Write(audio)
	}
	writer.Close()

	req, err := http.NewRequest(http.MethodPost, url+"/command", &body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestCommandReturnsTurnResponse(t *testing.T) {
	runner := &stubTurnRunner{resp: dialog.Response{Text: "What strength?", Final: false}}
	ts := newTestServer(t, runner, &stubSynthesizer{}, nil, nil)

	resp, err := http.DefaultClient.Do(commandRequest(t, ts.URL, "sess-1", []byte("audio-bytes")))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got commandResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ResponseText != "What strength?" || got.IsFinal {
		t.Errorf("response = %+v", got)
	}

	if runner.sessionID != "sess-1" {
		t.Errorf("session id passed = %q", runner.sessionID)
	}
	if string(runner.audio) != "audio-bytes" {
		t.Errorf("audio passed = %q", runner.audio)
	}
	if runner.format != "webm" {
		t.Errorf("format derived from filename = %q, want webm", runner.format)
	}
}

func TestCommandRequiresSessionID(t *testing.T) {
	ts := newTestServer(t, &stubTurnRunner{}, &stubSynthesizer{}, nil, nil)

	resp, err := http.DefaultClient.Do(commandRequest(t, ts.URL, "", []byte("audio")))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCommandRequiresAudio(t *testing.T) {
	ts := newTestServer(t, &stubTurnRunner{}, &stubSynthesizer{}, nil, nil)

	resp, err := http.DefaultClient.Do(commandRequest(t, ts.URL, "sess-1", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCommandErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			name:       "transcoding failure is caller's fault",
			err:        &transcode.Error{Diagnostic: "Invalid data found", Err: fmt.Errorf("exit status 1")},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "completion service down",
			err:        fmt.Errorf("extract slots: %w", llm.ErrUnavailable),
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "unknown failure",
			err:        fmt.Errorf("boom"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, &stubTurnRunner{err: tt.err}, &stubSynthesizer{}, nil, nil)

			resp, err := http.DefaultClient.Do(commandRequest(t, ts.URL, "sess-1", []byte("audio")))
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestTextToSpeechReturnsWAV(t *testing.T) {
	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	ts := newTestServer(t, &stubTurnRunner{}, &stubSynthesizer{pcm: pcm}, nil, nil)

	body := strings.NewReader(`{"text": "All saved!"}`)
	resp, err := http.Post(ts.URL+"/text-to-speech", "application/json", body)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "audio/wav" {
		t.Errorf("Content-Type = %q, want audio/wav", ct)
	}

	audio, _ := io.ReadAll(resp.Body)
	if !bytes.HasPrefix(audio, []byte("RIFF")) {
		t.Error("response is not a WAV container")
	}
	if !bytes.HasSuffix(audio, pcm) {
		t.Error("response does not end with the synthesized PCM")
	}
}

func TestTextToSpeechEmitsCompletionEvent(t *testing.T) {
	publisher := events.NewPublisher(nil, "test", "")
	ch := publisher.Subscribe("tts-events", 4)
	defer publisher.Unsubscribe("tts-events")

	mux := http.NewServeMux()
	NewHandler(&stubTurnRunner{}, &stubSynthesizer{pcm: []byte{1, 2}}, store.NewMemoryStore(), nil, publisher).RegisterRoutes(mux)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	body := strings.NewReader(`{"text": "All saved!", "voice": "en-amy"}`)
	resp, err := http.Post(ts.URL+"/text-to-speech", "application/json", body)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	select {
	case env := <-ch:
		if env.Type != events.TTSCompleted {
			t.Fatalf("event type = %q, want %q", env.Type, events.TTSCompleted)
		}
		var data events.TTSEventData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			t.Fatalf("unmarshal payload: %v", err)
		}
		if data.Text != "All saved!" || data.Voice != "en-amy" {
			t.Errorf("payload = %+v", data)
		}
	default:
		t.Fatal("no tts.completed event published after synthesis")
	}
}

func TestTextToSpeechRejectsEmptyText(t *testing.T) {
	ts := newTestServer(t, &stubTurnRunner{}, &stubSynthesizer{pcm: []byte{1, 2}}, nil, nil)

	// Emoji-only text has nothing speakable left after filtering.
	for _, payload := range []string{`{"text": ""}`, `{"text": "🎉🎉🎉"}`} {
		resp, err := http.Post(ts.URL+"/text-to-speech", "application/json", strings.NewReader(payload))
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("payload %s: status = %d, want 400", payload, resp.StatusCode)
		}
	}
}

func TestTextToSpeechModelMissing(t *testing.T) {
	synth := &stubSynthesizer{err: fmt.Errorf("%w: %q", engine.ErrModelMissing, "./models/en.onnx")}
	ts := newTestServer(t, &stubTurnRunner{}, synth, nil, nil)

	resp, err := http.Post(ts.URL+"/text-to-speech", "application/json", strings.NewReader(`{"text": "hi"}`))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
}

func TestMedicinesListsCommittedEntries(t *testing.T) {
	medicines := store.NewMemoryStore()
	ctx := t.Context()
	medicines.Append(ctx, slots.Record{Name: "Aspirin", Strength: "100mg", Frequency: "once a day"})
	medicines.Append(ctx, slots.Record{Name: "Metformin", Strength: "500mg", Frequency: "twice a day"})

	ts := newTestServer(t, &stubTurnRunner{}, &stubSynthesizer{}, medicines, nil)

	resp, err := http.Get(ts.URL + "/medicines")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var entries []store.Entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Name != "Aspirin" || entries[1].Name != "Metformin" {
		t.Errorf("entries out of order: %q then %q", entries[0].Name, entries[1].Name)
	}
}

func TestHealthz(t *testing.T) {
	tests := []struct {
		name       string
		healthy    bool
		wantStatus int
	}{
		{name: "healthy", healthy: true, wantStatus: http.StatusOK},
		{name: "degraded", healthy: false, wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, &stubTurnRunner{}, &stubSynthesizer{}, nil, stubHealth{ok: tt.healthy})

			resp, err := http.Get(ts.URL + "/healthz")
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}
