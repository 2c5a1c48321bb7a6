package events

import (
	"encoding/json"
	"time"
)

// EventType identifies the kind of event flowing through the system.
type EventType string

const (
	TurnTranscribed   EventType = "turn.transcribed"
	SlotsMerged       EventType = "slots.merged"
	TurnClarification EventType = "turn.clarification"
	EntryCommitted    EventType = "entry.committed"
	EntryCancelled    EventType = "entry.cancelled"
	TTSCompleted      EventType = "tts.completed"
	SystemError       EventType = "error"
	WebhookTest       EventType = "webhook.test"
)

// Envelope is the standard event wrapper published to the event bus.
type Envelope struct {
	ID        string            `json:"id"`
	Type      EventType         `json:"type"`
	Source    string            `json:"source"`
	SessionID string            `json:"session_id"`
	Timestamp time.Time         `json:"timestamp"`
	Data      json.RawMessage   `json:"data"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// TurnTranscribedData is the payload for turn.transcribed events.
type TurnTranscribedData struct {
	Transcript string `json:"transcript"`
}

// SlotsMergedData is the payload for slots.merged events.
type SlotsMergedData struct {
	Name      string   `json:"name,omitempty"`
	Strength  string   `json:"strength,omitempty"`
	Frequency string   `json:"frequency,omitempty"`
	Missing   []string `json:"missing,omitempty"`
}

// TurnClarificationData is the payload for turn.clarification events.
type TurnClarificationData struct {
	Transcript string `json:"transcript"`
	RawReply   string `json:"raw_reply"`
}

// EntryCommittedData is the payload for entry.committed events.
type EntryCommittedData struct {
	EntryID   string `json:"entry_id"`
	Name      string `json:"name"`
	Strength  string `json:"strength"`
	Frequency string `json:"frequency"`
}

// EntryCancelledData is the payload for entry.cancelled events.
type EntryCancelledData struct {
	Transcript string `json:"transcript"`
}

// TTSEventData is the payload for tts.completed events.
type TTSEventData struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

// ErrorData is the payload for error events.
type ErrorData struct {
	Stage string `json:"stage"`
	Error string `json:"error"`
}

// WebhookTestData is the payload for webhook.test events.
type WebhookTestData struct {
	WebhookID string `json:"webhook_id"`
	Message   string `json:"message"`
}
