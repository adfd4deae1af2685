package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Answer is an answer payload as submitted or stored: a list of option ids
// for choice questions, free text for subjective ones. Students may also send
// choices as a single comma-separated string.
type Answer struct {
	raw json.RawMessage
}

// TextAnswer returns an Answer holding a JSON string.
func TextAnswer(s string) Answer {
	b, _ := json.Marshal(s)
	return Answer{raw: b}
}

// OptionsAnswer returns an Answer holding a JSON list of option ids.
func OptionsAnswer(ids ...string) Answer {
	if ids == nil {
		ids = []string{}
	}
	b, _ := json.Marshal(ids)
	return Answer{raw: b}
}

// ParseAnswer wraps raw JSON, rejecting objects and malformed input.
func ParseAnswer(raw []byte) (Answer, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Answer{}, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return Answer{}, fmt.Errorf("parse answer: %w", err)
	}
	switch t := v.(type) {
	case nil, string, float64, bool:
	case []any:
		for _, e := range t {
			switch e.(type) {
			case string, float64:
			default:
				return Answer{}, fmt.Errorf("answer list may only hold strings or numbers")
			}
		}
	default:
		return Answer{}, fmt.Errorf("unsupported answer payload %T", v)
	}
	return Answer{raw: append(json.RawMessage(nil), raw...)}, nil
}

// IsZero reports whether no payload was given.
func (a Answer) IsZero() bool {
	return len(a.raw) == 0 || string(a.raw) == "null"
}

// IsText reports whether the payload is a JSON string.
func (a Answer) IsText() bool {
	return len(a.raw) > 0 && a.raw[0] == '"'
}

// IsList reports whether the payload is a JSON list.
func (a Answer) IsList() bool {
	return len(a.raw) > 0 && a.raw[0] == '['
}

// Raw returns the JSON encoding, "null" when empty.
func (a Answer) Raw() json.RawMessage {
	if len(a.raw) == 0 {
		return json.RawMessage("null")
	}
	return a.raw
}

// MarshalJSON implements json.Marshaler.
func (a Answer) MarshalJSON() ([]byte, error) {
	return a.Raw(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Answer) UnmarshalJSON(b []byte) error {
	parsed, err := ParseAnswer(b)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Options returns the payload as a list of option ids. A JSON string is
// split on commas.
func (a Answer) Options() []string {
	if a.IsZero() {
		return nil
	}
	var list []any
	if err := json.Unmarshal(a.raw, &list); err == nil {
		ids := make([]string, 0, len(list))
		for _, e := range list {
			ids = append(ids, scalarText(e))
		}
		return ids
	}
	var ids []string
	for _, p := range strings.Split(a.Text(), ",") {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}

// Text returns the payload as plain text. Lists are joined with commas.
func (a Answer) Text() string {
	if a.IsZero() {
		return ""
	}
	var v any
	if err := json.Unmarshal(a.raw, &v); err != nil {
		return string(a.raw)
	}
	if list, ok := v.([]any); ok {
		parts := make([]string, 0, len(list))
		for _, e := range list {
			parts = append(parts, scalarText(e))
		}
		return strings.Join(parts, ",")
	}
	return scalarText(v)
}

func scalarText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
