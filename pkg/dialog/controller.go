// Package dialog drives the multi-turn medicine-logging conversation:
// transcribe the utterance, extract slot values, merge them into the
// caller's session, and decide what the assistant says next.
package dialog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"

	"github.com/pitabwire/util"

	"github.com/awaazlabs/awaaz/pkg/events"
	"github.com/awaazlabs/awaaz/pkg/prompt"
	"github.com/awaazlabs/awaaz/pkg/slots"
)

// CancelText is spoken when the user abandons the current entry.
const CancelText = "Okay, I've cancelled the current medicine entry."

// cancelPattern matches an utterance that abandons the in-progress entry.
// Checked before extraction so "cancel" never ends up stored as a medicine
// name.
var cancelPattern = regexp.MustCompile(`(?i)\b(clear|cancel)\b`)

// Response is one assistant turn. Final reports whether the current entry
// has been closed out, by commit or by cancellation.
type Response struct {
	Text  string `json:"response_text"`
	Final bool   `json:"is_final"`
}

// Transcoder converts uploaded audio into 16kHz mono PCM.
type Transcoder interface {
	ToPCM(ctx context.Context, audio []byte, format string) ([]byte, error)
}

// Transcriber turns PCM audio into a transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm io.Reader) (string, error)
}

// Completer generates text from a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Recorder appends a finished medicine entry to the log and returns its id.
type Recorder interface {
	Append(ctx context.Context, rec slots.Record) (string, error)
}

// Controller owns the turn loop. It is safe for concurrent use; per-caller
// state lives in the SessionStore.
type Controller struct {
	transcoder  Transcoder
	transcriber Transcriber
	completer   Completer
	recorder    Recorder
	prompts     *prompt.Library
	sessions    *SessionStore
	events      *events.Publisher
}

// NewController wires up a dialogue controller. The events publisher may
// be nil.
func NewController(
	transcoder Transcoder,
	transcriber Transcriber,
	completer Completer,
	recorder Recorder,
	prompts *prompt.Library,
	sessions *SessionStore,
	publisher *events.Publisher,
) *Controller {
	return &Controller{
		transcoder:  transcoder,
		transcriber: transcriber,
		completer:   completer,
		recorder:    recorder,
		prompts:     prompts,
		sessions:    sessions,
		events:      publisher,
	}
}

// Sessions exposes the session store for reaper wiring.
func (c *Controller) Sessions() *SessionStore { return c.sessions }

func (c *Controller) emit(ctx context.Context, et events.EventType, sessionID string, data interface{}) {
	if c.events == nil {
		return
	}
	if err := c.events.Emit(ctx, et, sessionID, data); err != nil {
		util.Log(ctx).WithError(err).Warn("emit event")
	}
}

// Turn processes one uploaded utterance for the given caller and returns
// what the assistant should say next. A failed turn is published as an
// error event before the error is returned.
func (c *Controller) Turn(ctx context.Context, sessionID string, audio []byte, format string) (Response, error) {
	resp, err := c.runTurn(ctx, sessionID, audio, format)
	if err != nil {
		c.emit(ctx, events.SystemError, sessionID, events.ErrorData{Stage: "turn", Error: err.Error()})
	}
	return resp, err
}

func (c *Controller) runTurn(ctx context.Context, sessionID string, audio []byte, format string) (Response, error) {
	pcm, err := c.transcoder.ToPCM(ctx, audio, format)
	if err != nil {
		return Response{}, err
	}

	transcript, err := c.transcriber.Transcribe(ctx, bytes.NewReader(pcm))
	if err != nil {
		return Response{}, fmt.Errorf("transcribe: %w", err)
	}
	slog.DebugContext(ctx, "utterance transcribed",
		slog.String("session_id", sessionID),
		slog.String("transcript", transcript))
	c.emit(ctx, events.TurnTranscribed, sessionID, events.TurnTranscribedData{Transcript: transcript})

	session := c.sessions.Get(sessionID)

	// One turn at a time per session: merge and the completion check must
	// not interleave across concurrent uploads.
	session.turnMu.Lock()
	defer session.turnMu.Unlock()

	if cancelPattern.MatchString(transcript) {
		session.Reset()
		c.emit(ctx, events.EntryCancelled, sessionID, events.EntryCancelledData{Transcript: transcript})
		return Response{Text: CancelText, Final: true}, nil
	}

	extractionPrompt, err := c.prompts.Build(prompt.KindExtraction, prompt.Context{Transcript: transcript})
	if err != nil {
		return Response{}, err
	}
	reply, err := c.completer.Complete(ctx, extractionPrompt)
	if err != nil {
		return Response{}, fmt.Errorf("extract slots: %w", err)
	}

	result := slots.ParseExtraction(reply)
	if !result.Parsed {
		slog.WarnContext(ctx, "extraction reply was not usable JSON",
			slog.String("session_id", sessionID),
			slog.String("raw_reply", result.Raw))
		c.emit(ctx, events.TurnClarification, sessionID, events.TurnClarificationData{
			Transcript: transcript,
			RawReply:   result.Raw,
		})
		return c.clarify(ctx, transcript)
	}

	merged := session.MergeUpdate(result.Set)
	missing := merged.Missing()
	c.emit(ctx, events.SlotsMerged, sessionID, mergedData(merged, missing))
	slog.DebugContext(ctx, "slots merged",
		slog.String("session_id", sessionID),
		slog.String("slots", merged.String()))

	if len(missing) > 0 {
		return c.followUp(ctx, missing[0])
	}

	return c.complete(ctx, sessionID, session, merged)
}

// clarify asks the user to repeat themselves after an unusable extraction.
func (c *Controller) clarify(ctx context.Context, transcript string) (Response, error) {
	p, err := c.prompts.Build(prompt.KindClarification, prompt.Context{Transcript: transcript})
	if err != nil {
		return Response{}, err
	}
	text, err := c.completer.Complete(ctx, p)
	if err != nil {
		return Response{}, fmt.Errorf("clarification: %w", err)
	}
	return Response{Text: text, Final: false}, nil
}

// followUp asks for the first slot still missing.
func (c *Controller) followUp(ctx context.Context, slot string) (Response, error) {
	p, err := c.prompts.Build(prompt.KindFollowUp, prompt.Context{
		Instruction: prompt.FollowUpInstruction(slot),
	})
	if err != nil {
		return Response{}, err
	}
	text, err := c.completer.Complete(ctx, p)
	if err != nil {
		return Response{}, fmt.Errorf("follow-up: %w", err)
	}
	return Response{Text: text, Final: false}, nil
}

// complete commits the finished entry and closes out the session.
func (c *Controller) complete(ctx context.Context, sessionID string, session *Session, set slots.SlotSet) (Response, error) {
	rec, ok := set.Finalize()
	if !ok {
		return Response{}, fmt.Errorf("finalize incomplete entry %s", set.String())
	}

	id, err := c.recorder.Append(ctx, rec)
	if err != nil {
		return Response{}, fmt.Errorf("append record: %w", err)
	}
	c.emit(ctx, events.EntryCommitted, sessionID, events.EntryCommittedData{
		EntryID:   id,
		Name:      rec.Name,
		Strength:  rec.Strength,
		Frequency: rec.Frequency,
	})

	session.Reset()

	text := c.confirmation(ctx, rec)
	return Response{Text: text, Final: true}, nil
}

// confirmation phrases the saved entry back to the user. The record is
// already committed, so a completion failure here degrades to a plain
// canned confirmation instead of surfacing an error.
func (c *Controller) confirmation(ctx context.Context, rec slots.Record) string {
	p, err := c.prompts.Build(prompt.KindConfirmation, prompt.Context{Record: rec})
	if err == nil {
		text, cerr := c.completer.Complete(ctx, p)
		if cerr == nil {
			return text
		}
		util.Log(ctx).WithError(cerr).Warn("confirmation completion failed, using canned text")
	}
	return fmt.Sprintf("Saved: %s, %s, %s.", rec.Name, rec.Strength, rec.Frequency)
}

func mergedData(set slots.SlotSet, missing []string) events.SlotsMergedData {
	data := events.SlotsMergedData{Missing: missing}
	if set.Name != nil {
		data.Name = *set.Name
	}
	if set.Strength != nil {
		data.Strength = *set.Strength
	}
	if set.Frequency != nil {
		data.Frequency = *set.Frequency
	}
	return data
}
