package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// PlanEntry is one item of a parsed schedule. The model is not trusted to
// follow the documented vocabularies, so every label is kept as given.
// Fields the model added on its own end up in Extra.
type PlanEntry struct {
	Time        string
	Description string
	Category    string
	Priority    string
	Extra       map[string]any
}

var planEntryKeys = map[string]bool{
	"time":        true,
	"description": true,
	"category":    true,
	"priority":    true,
}

// NewPlanEntry converts one decoded JSON element into a PlanEntry. Objects map
// field by field; any other value becomes the description of an otherwise
// empty entry.
func NewPlanEntry(v any) PlanEntry {
	obj, ok := v.(map[string]any)
	if !ok {
		return PlanEntry{Description: stringify(v)}
	}

	entry := PlanEntry{
		Time:        stringify(obj["time"]),
		Description: stringify(obj["description"]),
		Category:    stringify(obj["category"]),
		Priority:    stringify(obj["priority"]),
	}
	for k, val := range obj {
		if planEntryKeys[k] {
			continue
		}
		if entry.Extra == nil {
			entry.Extra = make(map[string]any)
		}
		entry.Extra[k] = val
	}
	return entry
}

func (e PlanEntry) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Extra)+4)
	for k, v := range e.Extra {
		out[k] = v
	}
	out["time"] = e.Time
	out["description"] = e.Description
	if e.Category != "" {
		out["category"] = e.Category
	}
	if e.Priority != "" {
		out["priority"] = e.Priority
	}
	return json.Marshal(out)
}

func (e *PlanEntry) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*e = NewPlanEntry(v)
	return nil
}

// ErrorPayload stands in for a schedule the model response could not be
// turned into. Raw keeps the response text for later inspection.
type ErrorPayload struct {
	Flag   bool   `json:"error"`
	Raw    string `json:"raw"`
	Reason string `json:"reason,omitempty"`
}

// Schedule is either an ordered list of entries or an ErrorPayload.
// It encodes as a JSON array or as {"error": true, "raw": ...} respectively.
type Schedule struct {
	Entries []PlanEntry
	Error   *ErrorPayload
}

// ScheduleOf wraps entries in a Schedule.
func ScheduleOf(entries []PlanEntry) Schedule {
	return Schedule{Entries: entries}
}

// FailedSchedule builds the tagged error variant.
func FailedSchedule(raw, reason string) Schedule {
	return Schedule{Error: &ErrorPayload{Flag: true, Raw: raw, Reason: reason}}
}

// Failed reports whether the schedule carries an ErrorPayload.
func (s Schedule) Failed() bool {
	return s.Error != nil
}

func (s Schedule) MarshalJSON() ([]byte, error) {
	if s.Error != nil {
		return json.Marshal(s.Error)
	}
	if s.Entries == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.Entries)
}

func (s *Schedule) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("Schedule: empty document")
	}

	switch data[0] {
	case '[':
		var entries []PlanEntry
		if err := json.Unmarshal(data, &entries); err != nil {
			return fmt.Errorf("Schedule: decoding entries: %w", err)
		}
		*s = Schedule{Entries: entries}
	case '{':
		var payload ErrorPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("Schedule: decoding error payload: %w", err)
		}
		payload.Flag = true
		*s = Schedule{Error: &payload}
	default:
		return fmt.Errorf("Schedule: unexpected document starting with %q", data[0])
	}
	return nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
