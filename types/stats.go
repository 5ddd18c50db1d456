package types

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// ContentStats is the per-user aggregate maintained by the generation pipeline.
//
// MostUsedTone always names the tone with the highest count in ToneCounts.
// Ties go to the tone that appears first in ToneCounts, which is the order
// tones were first used.
type ContentStats struct {
	// TotalGenerated counts successful generations.
	TotalGenerated int `json:"totalGenerated"`

	// LastUsedType is the content type of the most recent generation.
	LastUsedType string `json:"lastUsedType"`

	// MostUsedTone is the tone with the highest usage count.
	MostUsedTone string `json:"mostUsedTone"`

	// ToneCounts maps tone labels to usage counts in first-use order.
	ToneCounts ToneCounts `json:"toneCounts"`
}

// Record applies one successful generation to the statistics.
func (s *ContentStats) Record(contentType ContentType, tone string) {
	s.TotalGenerated++
	s.LastUsedType = string(contentType)
	s.ToneCounts.Increment(tone)
	s.MostUsedTone = s.ToneCounts.Max()
}

// Value stores the stats block as JSONB.
func (s ContentStats) Value() (driver.Value, error) {
	return json.Marshal(storedStats{
		TotalGenerated: s.TotalGenerated,
		LastUsedType:   s.LastUsedType,
		MostUsedTone:   s.MostUsedTone,
		ToneCounts:     []ToneCount(s.ToneCounts),
	})
}

// Scan reads a stats block written by Value.
func (s *ContentStats) Scan(src any) error {
	data, err := jsonBytes(src)
	if err != nil {
		return err
	}
	if data == nil {
		*s = ContentStats{}
		return nil
	}
	var stored storedStats
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("decode content stats: %w", err)
	}
	*s = ContentStats{
		TotalGenerated: stored.TotalGenerated,
		LastUsedType:   stored.LastUsedType,
		MostUsedTone:   stored.MostUsedTone,
		ToneCounts:     ToneCounts(stored.ToneCounts),
	}
	return nil
}

// storedStats is the database layout. Tone counts are kept as an array because
// JSONB does not preserve object key order.
type storedStats struct {
	TotalGenerated int         `json:"totalGenerated"`
	LastUsedType   string      `json:"lastUsedType"`
	MostUsedTone   string      `json:"mostUsedTone"`
	ToneCounts     []ToneCount `json:"toneCounts"`
}

// ToneCount is a single tone label and its usage count.
type ToneCount struct {
	Tone  string `json:"tone"`
	Count int    `json:"count"`
}

// ToneCounts is an insertion-ordered tone to count mapping.
// It encodes to JSON as an object whose keys keep that order.
type ToneCounts []ToneCount

// Get returns the count recorded for tone.
func (tc ToneCounts) Get(tone string) int {
	for _, entry := range tc {
		if entry.Tone == tone {
			return entry.Count
		}
	}
	return 0
}

// Increment adds one use of tone, appending it when unseen, and returns the new count.
func (tc *ToneCounts) Increment(tone string) int {
	for i := range *tc {
		if (*tc)[i].Tone == tone {
			(*tc)[i].Count++
			return (*tc)[i].Count
		}
	}
	*tc = append(*tc, ToneCount{Tone: tone, Count: 1})
	return 1
}

// Max scans the mapping in order and returns the first tone holding the highest count.
func (tc ToneCounts) Max() string {
	best, bestCount := "", 0
	for _, entry := range tc {
		if entry.Count > bestCount {
			best, bestCount = entry.Tone, entry.Count
		}
	}
	return best
}

// MarshalJSON encodes the mapping as a JSON object in insertion order.
func (tc ToneCounts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, entry := range tc {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(entry.Tone)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		fmt.Fprintf(&buf, "%d", entry.Count)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping the key order of the input.
func (tc *ToneCounts) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*tc = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("tone counts: expected object")
	}

	out := ToneCounts{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return errors.New("tone counts: expected string key")
		}
		var count int
		if err := dec.Decode(&count); err != nil {
			return fmt.Errorf("tone counts: %q: %w", key, err)
		}
		out = append(out, ToneCount{Tone: key, Count: count})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*tc = out
	return nil
}

func jsonBytes(src any) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported json source type %T", src)
	}
}
