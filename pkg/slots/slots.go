// Package slots holds the structured facts collected for one medicine entry
// and the pure merge logic applied to them across dialogue turns.
package slots

import (
	"encoding/json"
	"strings"
)

// Slot field names, in priority order. Follow-up questions target the first
// missing slot in this order.
const (
	FieldName      = "name"
	FieldStrength  = "strength"
	FieldFrequency = "frequency"
)

// Fields lists the recognized slot keys in declaration order.
var Fields = []string{FieldName, FieldStrength, FieldFrequency}

// SlotSet is one in-progress medicine entry. A nil field means the slot has
// not been filled yet.
type SlotSet struct {
	Name      *string `json:"name"`
	Strength  *string `json:"strength"`
	Frequency *string `json:"frequency"`
}

// Record is a finalized, immutable medicine entry.
type Record struct {
	Name      string `json:"name"`
	Strength  string `json:"strength"`
	Frequency string `json:"frequency"`
}

// Merge combines an existing slot set with freshly extracted values.
// A non-nil, non-empty value in update overwrites the corresponding slot;
// nil or empty values leave the existing slot untouched.
func Merge(old, update SlotSet) SlotSet {
	merged := old
	if v := clean(update.Name); v != nil {
		merged.Name = v
	}
	if v := clean(update.Strength); v != nil {
		merged.Strength = v
	}
	if v := clean(update.Frequency); v != nil {
		merged.Frequency = v
	}
	return merged
}

func clean(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// Missing returns the names of unfilled slots in declaration order.
func (s SlotSet) Missing() []string {
	var missing []string
	if clean(s.Name) == nil {
		missing = append(missing, FieldName)
	}
	if clean(s.Strength) == nil {
		missing = append(missing, FieldStrength)
	}
	if clean(s.Frequency) == nil {
		missing = append(missing, FieldFrequency)
	}
	return missing
}

// Complete reports whether all three slots are filled.
func (s SlotSet) Complete() bool {
	return len(s.Missing()) == 0
}

// Finalize returns the immutable record for a complete slot set.
// The second return value is false if any slot is still missing.
func (s SlotSet) Finalize() (Record, bool) {
	if !s.Complete() {
		return Record{}, false
	}
	return Record{
		Name:      *s.Name,
		Strength:  *s.Strength,
		Frequency: *s.Frequency,
	}, true
}

// ExtractionResult is the outcome of parsing a completion-service response.
// Either Parsed is true and Set holds the extracted slots, or Parsed is false
// and Raw carries the unusable model output for logging.
type ExtractionResult struct {
	Parsed bool
	Set    SlotSet
	Raw    string
}

// ParseExtraction interprets raw completion output as a slot extraction.
// Models occasionally wrap the JSON object in prose or code fences, so the
// parser takes the outermost braced region before unmarshalling. Anything
// that still fails to parse yields an Unparsable result, never an error.
func ParseExtraction(raw string) ExtractionResult {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return ExtractionResult{Raw: raw}
	}

	var set SlotSet
	if err := json.Unmarshal([]byte(raw[start:end+1]), &set); err != nil {
		return ExtractionResult{Raw: raw}
	}

	return ExtractionResult{Parsed: true, Set: set}
}

// String returns a compact human-readable form for logging.
func (s SlotSet) String() string {
	var b strings.Builder
	b.WriteString("{")
	for i, f := range Fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f)
		b.WriteString(": ")
		switch f {
		case FieldName:
			writeVal(&b, s.Name)
		case FieldStrength:
			writeVal(&b, s.Strength)
		case FieldFrequency:
			writeVal(&b, s.Frequency)
		}
	}
	b.WriteString("}")
	return b.String()
}

func writeVal(b *strings.Builder, v *string) {
	if v == nil {
		b.WriteString("<unset>")
		return
	}
	b.WriteString(*v)
}
