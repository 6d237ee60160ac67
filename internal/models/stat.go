package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrStatMissing is returned when a statistic is absent or null.
var ErrStatMissing = errors.New("statistic missing")

// StatValue is a raw statistic as delivered by the API. The same field may
// arrive as a number, a numeric string ("1.5"), a string using a comma
// decimal separator ("1,5") or a percentage ("56%").
type StatValue struct {
	raw json.RawMessage
}

// NewStatValue wraps raw JSON as a StatValue.
func NewStatValue(raw json.RawMessage) StatValue {
	return StatValue{raw: raw}
}

// UnmarshalJSON keeps a copy of the raw bytes.
func (v *StatValue) UnmarshalJSON(b []byte) error {
	v.raw = append(v.raw[:0], b...)
	return nil
}

// MarshalJSON writes the raw bytes back unchanged.
func (v StatValue) MarshalJSON() ([]byte, error) {
	if len(v.raw) == 0 {
		return []byte("null"), nil
	}
	return v.raw, nil
}

// Present reports whether the value exists and is not null.
func (v StatValue) Present() bool {
	trimmed := bytes.TrimSpace(v.raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// Float parses the value as a float64.
func (v StatValue) Float() (float64, error) {
	if !v.Present() {
		return 0, ErrStatMissing
	}

	raw := bytes.TrimSpace(v.raw)
	if raw[0] != '"' {
		f, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid numeric statistic %s: %w", raw, err)
		}
		return f, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("invalid string statistic %s: %w", raw, err)
	}
	return ParseStatString(s)
}

// FloatOr returns the parsed value or def when it is missing or malformed.
func (v StatValue) FloatOr(def float64) float64 {
	f, err := v.Float()
	if err != nil {
		return def
	}
	return f
}

// ParseStatString parses "1.5", "1,5" and "56%" style statistics.
func ParseStatString(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0, ErrStatMissing
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid statistic %q: %w", s, err)
	}
	return f, nil
}
