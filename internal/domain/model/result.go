// Package model contains domain models passed between layers.
package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ErrMissingPosition is returned when a result object has no Position field.
var ErrMissingPosition = errors.New("missing Position")

// ResultEntry is one participant's record in one year's race.
// JSON field names mirror the per-year result files.
type ResultEntry struct {
	Year     int             `json:"-"`
	Position int             `json:"Position"`
	Bib      json.RawMessage `json:"Bib no.,omitempty"`
	Name     string          `json:"Name"`
	Category string          `json:"Category"`
	Club     string          `json:"Club,omitempty"`
	ChipTime string          `json:"Chip Time,omitempty"`
	GunTime  string          `json:"Gun Time,omitempty"`
	LapTime  string          `json:"Lap of Lough,omitempty"`
	TwoMiles string          `json:"2 Miles,omitempty"`

	RunnerID      string `json:"runner_id,omitempty"`
	CanonicalName bool   `json:"canonical_name,omitempty"`
	CanonicalClub bool   `json:"canonical_club,omitempty"`

	// Division is parsed from Category once at load time.
	Division Category `json:"-"`

	// Extra keeps keys this type does not model so rewrites do not drop them.
	Extra map[string]json.RawMessage `json:"-"`
}

// resultKeys are the JSON keys mapped to ResultEntry fields.
var resultKeys = func() map[string]bool {
	keys := make(map[string]bool)
	t := reflect.TypeOf(ResultEntry{})
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name != "" && name != "-" {
			keys[name] = true
		}
	}
	return keys
}()

// resultEntryJSON is used to detect a missing Position on decode.
type resultEntryJSON struct {
	Position *int `json:"Position"`
}

// UnmarshalJSON decodes a result object and parses its category.
func (e *ResultEntry) UnmarshalJSON(data []byte) error {
	type plain ResultEntry
	var probe resultEntryJSON
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if probe.Position == nil {
		return ErrMissingPosition
	}
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = ResultEntry(p)
	e.Division = ParseCategory(e.Category)
	for k, v := range raw {
		if resultKeys[k] {
			continue
		}
		if e.Extra == nil {
			e.Extra = make(map[string]json.RawMessage)
		}
		e.Extra[k] = v
	}
	return nil
}

// MarshalJSON encodes the modelled fields followed by any extra keys. With
// extra keys present the output keys are sorted.
func (e ResultEntry) MarshalJSON() ([]byte, error) {
	type plain ResultEntry
	data, err := marshalUnescaped(plain(e))
	if err != nil || len(e.Extra) == 0 {
		return data, err
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for k, v := range e.Extra {
		if _, ok := merged[k]; !ok {
			merged[k] = v
		}
	}
	return marshalUnescaped(merged)
}

// marshalUnescaped is json.Marshal without HTML escaping.
func marshalUnescaped(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Resolved reports whether the entry carries a runner_id.
func (e *ResultEntry) Resolved() bool {
	return e.RunnerID != ""
}

// FinishSeconds returns the chip time in seconds, falling back to gun time.
func (e *ResultEntry) FinishSeconds() (int, bool) {
	if s, ok := ParseDuration(e.ChipTime); ok {
		return s, true
	}
	return ParseDuration(e.GunTime)
}

// FinishTime returns the display time used for history (chip, else gun).
func (e *ResultEntry) FinishTime() string {
	if e.ChipTime != "" {
		return e.ChipTime
	}
	return e.GunTime
}

// Ref identifies an entry in warnings and logs.
func (e *ResultEntry) Ref() ResultRef {
	return ResultRef{Year: e.Year, Position: e.Position, Name: e.Name}
}

// String implements fmt.Stringer.
func (e *ResultEntry) String() string {
	return fmt.Sprintf("%d#%d %s", e.Year, e.Position, e.Name)
}

// ResultRef is the {year, position, name} snapshot used in warnings.
type ResultRef struct {
	Year     int    `json:"year"`
	Position int    `json:"position"`
	Name     string `json:"name"`
}
