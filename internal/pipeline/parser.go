package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dvloznov/lifeos/internal/domain"
)

// Outcome describes how a model response was interpreted.
type Outcome string

const (
	OutcomeSequence     Outcome = "sequence"
	OutcomeSingleObject Outcome = "single_object"
	OutcomeErrorSignal  Outcome = "error_signal"
	OutcomeUnparsable   Outcome = "unparsable"
	OutcomeEmpty        Outcome = "empty"
)

// Normalized is the result of Normalize. Schedule is the tagged error variant
// for every outcome except sequence and single_object.
type Normalized struct {
	Schedule domain.Schedule
	Outcome  Outcome
}

// Normalize turns raw generator output into a schedule. It never fails:
// anything it cannot interpret is returned as an ErrorPayload carrying the
// original text.
func Normalize(raw string) Normalized {
	clean := cleanModelJSON(raw)

	parsed, err := decodeJSON(clean)
	if err != nil {
		// The model sometimes wraps the document in prose.
		span := outermostJSON(clean)
		if span == "" || span == clean {
			return unparsable(raw, err)
		}
		if parsed, err = decodeJSON(span); err != nil {
			return unparsable(raw, err)
		}
	}

	switch v := parsed.(type) {
	case []any:
		return fromSequence(raw, v)
	case map[string]any:
		if reason, ok := errorSignal(v); ok {
			return Normalized{Schedule: domain.FailedSchedule(raw, reason), Outcome: OutcomeErrorSignal}
		}
		return Normalized{
			Schedule: domain.ScheduleOf([]domain.PlanEntry{domain.NewPlanEntry(v)}),
			Outcome:  OutcomeSingleObject,
		}
	default:
		return Normalized{
			Schedule: domain.FailedSchedule(raw, fmt.Sprintf("unexpected %T document", parsed)),
			Outcome:  OutcomeUnparsable,
		}
	}
}

func fromSequence(raw string, items []any) Normalized {
	if len(items) == 0 {
		return Normalized{Schedule: domain.FailedSchedule(raw, "empty schedule"), Outcome: OutcomeEmpty}
	}
	entries := make([]domain.PlanEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, domain.NewPlanEntry(item))
	}
	return Normalized{Schedule: domain.ScheduleOf(entries), Outcome: OutcomeSequence}
}

func unparsable(raw string, err error) Normalized {
	return Normalized{
		Schedule: domain.FailedSchedule(raw, "unparsable response: "+err.Error()),
		Outcome:  OutcomeUnparsable,
	}
}

func decodeJSON(s string) (any, error) {
	if s == "" {
		return nil, fmt.Errorf("empty response")
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// errorSignal reports whether obj carries a truthy "error" field and what it
// said.
func errorSignal(obj map[string]any) (string, bool) {
	v, ok := obj["error"]
	if !ok {
		return "", false
	}
	switch t := v.(type) {
	case nil:
		return "", false
	case bool:
		if !t {
			return "", false
		}
		if msg, ok := obj["message"].(string); ok && msg != "" {
			return msg, true
		}
		return "model reported an error", true
	case string:
		if strings.TrimSpace(t) == "" {
			return "", false
		}
		return t, true
	case float64:
		if t == 0 {
			return "", false
		}
		return fmt.Sprintf("model reported error %v", t), true
	default:
		b, _ := json.Marshal(t)
		return string(b), true
	}
}

// cleanModelJSON strips a Markdown code fence (``` or ```json) around the
// document, if present.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = s[3:]
	if len(s) >= 4 && strings.EqualFold(s[:4], "json") {
		s = s[4:]
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// outermostJSON returns the balanced span starting at the first '[' or '{'.
// It returns "" for an unclosed or mismatched span and when another opener
// follows it.
func outermostJSON(s string) string {
	start := strings.IndexAny(s, "[{")
	if start == -1 {
		return ""
	}

	var stack []byte
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			stack = append(stack, ']')
		case '{':
			stack = append(stack, '}')
		case ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return ""
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				if strings.ContainsAny(s[i+1:], "[{") {
					return ""
				}
				return s[start : i+1]
			}
		}
	}
	return ""
}
