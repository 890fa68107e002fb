// Package verse resolves the verse record shown for a given hour and minute.
//
// The dataset holds one JSON document per hour, bible_verses_hourNN.json with
// NN in 01..24, mapping two-digit minute keys to records. Only one hour is kept
// in memory; it is replaced wholesale when the requested hour changes.
package verse

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/jsonc"
)

// Errors
var (
	ErrNotFound = errors.New("verse: not found")
	ErrHour     = errors.New("verse: hour out of range")
	ErrMinute   = errors.New("verse: minute out of range")
)

// Record is one reference/text pair.
type Record struct {
	Reference string
	Text      string
}

// BookTag returns the first parenthesized part of the reference in square
// brackets, "Ephesians 3:7 (Eph)" gives "[Eph]". It is empty when the
// reference has no parentheses.
func (r Record) BookTag() string {
	start := strings.IndexByte(r.Reference, '(')
	end := strings.IndexByte(r.Reference, ')')
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return "[" + r.Reference[start+1:end] + "]"
}

// IsZero reports whether the record carries nothing to show.
func (r Record) IsZero() bool {
	return r.Reference == "" && r.Text == ""
}

// FileName is the partition file holding hour, which must already be
// normalized to 1..24.
func FileName(hour int) string {
	return fmt.Sprintf("bible_verses_hour%02d.json", hour)
}

// NormalizeHour maps a clock hour (0..23) to its partition hour (1..24);
// midnight is hour 24.
func NormalizeHour(hour int) int {
	if hour == 0 {
		return 24
	}
	return hour
}

// entry is a minute value as stored on disk. Missing fields stay nil.
type entry struct {
	Reference *string `json:"reference"`
	Text      *string `json:"text"`
}

// partition maps minutes 0..59 to entries. A nil entry is a minute whose
// stored value lacks a field.
type partition map[int]*Record

// parsePartition decodes one hour document. A document that is not a JSON
// object fails as a whole; a minute value that does not decode as an entry
// is kept as an incomplete minute.
func parsePartition(name string, data []byte) (partition, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
		return nil, fmt.Errorf("verse: parse %s: %w", name, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("verse: parse %s: not a JSON object", name)
	}

	p := make(partition, len(raw))
	for key, value := range raw {
		minute, err := strconv.Atoi(key)
		if err != nil || len(key) != 2 || minute < 0 || minute > 59 {
			log.Warn().Str("file", name).Str("key", key).Msg("ignoring entry with invalid minute key")
			continue
		}
		var e *entry
		if err = json.Unmarshal(value, &e); err != nil {
			log.Warn().Err(err).Str("file", name).Str("key", key).Msg("malformed entry")
			p[minute] = nil
			continue
		}
		if e == nil || e.Reference == nil || e.Text == nil {
			p[minute] = nil
			continue
		}
		p[minute] = &Record{Reference: *e.Reference, Text: *e.Text}
	}
	return p, nil
}

// Store holds the active hour partition.
type Store struct {
	fsys      fs.FS
	hour      int
	partition partition
	loads     int
}

// NewStore reads partitions from fsys. Nothing is loaded until the first
// Resolve.
func NewStore(fsys fs.FS) *Store {
	return &Store{fsys: fsys}
}

// Hour is the partition hour (1..24) currently resident, 0 when none is.
func (s *Store) Hour() int {
	return s.hour
}

// Loads counts partition file reads, successful or not.
func (s *Store) Loads() int {
	return s.loads
}

// Resolve returns the record for a clock hour (0..23, or 24) and minute.
// The partition is reloaded only when the hour differs from the resident
// one. A failed load leaves the store empty and is retried on the next call.
// A minute missing from a loaded partition returns ErrNotFound.
func (s *Store) Resolve(hour, minute int) (Record, error) {
	if hour < 0 || hour > 24 {
		return Record{}, fmt.Errorf("%w: %d", ErrHour, hour)
	}
	if minute < 0 || minute > 59 {
		return Record{}, fmt.Errorf("%w: %d", ErrMinute, minute)
	}

	hour = NormalizeHour(hour)
	if hour != s.hour {
		if err := s.load(hour); err != nil {
			return Record{}, err
		}
	}

	r, ok := s.partition[minute]
	if !ok {
		log.Debug().Int("hour", hour).Int("minute", minute).Msg("no entry for minute")
		return Record{}, fmt.Errorf("%w: %02d:%02d", ErrNotFound, hour, minute)
	}
	if r == nil {
		log.Debug().Int("hour", hour).Int("minute", minute).Msg("entry misses reference or text")
		return Record{}, fmt.Errorf("%w: %02d:%02d incomplete", ErrNotFound, hour, minute)
	}
	return *r, nil
}

// load swaps in the partition for hour. The previous partition is dropped
// before reading, so a failure leaves no stale data behind.
func (s *Store) load(hour int) error {
	s.hour, s.partition = 0, nil
	s.loads++

	name := FileName(hour)
	data, err := fs.ReadFile(s.fsys, name)
	if err != nil {
		log.Error().Err(err).Int("hour", hour).Str("file", name).Msg("failed to open verses")
		return fmt.Errorf("verse: load hour %d: %w", hour, err)
	}
	p, err := parsePartition(name, data)
	if err != nil {
		log.Error().Err(err).Int("hour", hour).Str("file", name).Msg("failed to parse verses")
		return err
	}

	s.hour, s.partition = hour, p
	log.Info().Int("hour", hour).Int("entries", len(p)).Msg("loaded verses")
	return nil
}
