// Package prompt builds the completion-service prompts used by the dialogue
// controller. Construction is pure so prompts are testable without calling
// the completion service.
package prompt

import (
	"bytes"
	"fmt"
	"sync"
	"text/template"

	"github.com/awaazlabs/awaaz/pkg/slots"
)

// Kind enumerates the prompt templates the controller can request.
type Kind string

const (
	KindExtraction    Kind = "extraction"
	KindFollowUp      Kind = "follow_up"
	KindClarification Kind = "clarification"
	KindConfirmation  Kind = "confirmation"
)

// Kinds lists all template kinds.
var Kinds = []Kind{KindExtraction, KindFollowUp, KindClarification, KindConfirmation}

// Context carries the values interpolated into a prompt template.
type Context struct {
	// Transcript is the user's utterance, embedded verbatim.
	Transcript string
	// Instruction is the canned follow-up directive for the missing slot.
	Instruction string
	// Record holds the completed slot values for confirmation prompts.
	Record slots.Record
}

var defaultTexts = map[Kind]string{
	KindExtraction: `You extract medicine facts from one spoken sentence.
Respond with ONLY a JSON object containing exactly the keys "name", "strength" and "frequency".
Set a key to null when that fact is not mentioned in the sentence.
Normalize frequency wording: "one" or "once" means "once a day", "two times" or "twice" means "twice a day".
No commentary, no markdown, just the JSON object.

Sentence: "{{.Transcript}}"`,

	KindFollowUp: `You are a friendly assistant helping a user log a medicine, mid-conversation.
{{.Instruction}}
Reply with one concise, friendly question only. Do not greet the user; the conversation is already underway.`,

	KindClarification: `You are a friendly assistant helping a user log a medicine, mid-conversation.
You could not make out any medicine details from what they just said: "{{.Transcript}}"
In one short sentence, ask them to repeat the medicine details. Do not greet them; this is a follow-up, not an opener.`,

	KindConfirmation: `You are a friendly assistant helping a user log a medicine.
They have just finished an entry: {{.Record.Name}}, {{.Record.Strength}}, {{.Record.Frequency}}.
Write a warm one-or-two-sentence confirmation that names all three details and tells them the entry is saved.`,
}

// followUpInstructions maps each slot to its canned follow-up directive.
var followUpInstructions = map[string]string{
	slots.FieldName:      "Ask the user for the name of the medicine.",
	slots.FieldStrength:  "Ask the user for the strength of the medicine, e.g. 500mg.",
	slots.FieldFrequency: "Ask the user how many times a day they take the medicine.",
}

// FollowUpInstruction returns the canned directive used when asking about
// the given missing slot.
func FollowUpInstruction(slot string) string {
	return followUpInstructions[slot]
}

// Library holds the active set of prompt templates. The zero value is not
// usable; construct with NewLibrary.
type Library struct {
	mu        sync.RWMutex
	templates map[Kind]*template.Template
}

// NewLibrary returns a library populated with the built-in templates.
func NewLibrary() *Library {
	l := &Library{templates: make(map[Kind]*template.Template, len(defaultTexts))}
	for kind, text := range defaultTexts {
		// Built-in templates are compile-time constants; a parse failure
		// here is a programming error.
		l.templates[kind] = template.Must(template.New(string(kind)).Parse(text))
	}
	return l
}

// Build renders the template for the given kind with the supplied context.
func (l *Library) Build(kind Kind, ctx Context) (string, error) {
	l.mu.RLock()
	tmpl, ok := l.templates[kind]
	l.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("prompt kind %q not found", kind)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("render prompt %q: %w", kind, err)
	}
	return buf.String(), nil
}

// replace swaps in a new template for the given kind.
func (l *Library) replace(kind Kind, tmpl *template.Template) {
	l.mu.Lock()
	l.templates[kind] = tmpl
	l.mu.Unlock()
}
