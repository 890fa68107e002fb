package verse

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"testing/fstest"
)

func testRecord(hour, minute int) Record {
	return Record{
		Reference: fmt.Sprintf("Book %d:%d (B%02d)", hour, minute, hour),
		Text:      fmt.Sprintf("text for %02d:%02d", hour, minute),
	}
}

func testPartition(t *testing.T, hour int) []byte {
	t.Helper()
	doc := make(map[string]map[string]string, 60)
	for minute := 0; minute < 60; minute++ {
		r := testRecord(hour, minute)
		doc[fmt.Sprintf("%02d", minute)] = map[string]string{
			"reference": r.Reference,
			"text":      r.Text,
		}
	}
	b, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func testDataset(t *testing.T) fstest.MapFS {
	t.Helper()
	fsys := make(fstest.MapFS, 24)
	for hour := 1; hour <= 24; hour++ {
		fsys[FileName(hour)] = &fstest.MapFile{Data: testPartition(t, hour)}
	}
	return fsys
}

func TestBookTag(t *testing.T) {
	tests := []struct {
		Reference string
		Want      string
	}{
		{"Ephesians 3:7 (Eph)", "[Eph]"},
		{"John 3:16 (John)", "[John]"},
		{"(Ps) Psalm 23:1 (second)", "[Ps]"},
		{"Genesis 1:1", ""},
		{"Broken ) order (", ""},
		{"Unclosed (Gen", ""},
		{"Empty ()", "[]"},
		{"", ""},
	}
	for _, test := range tests {
		t.Run(test.Reference, func(it *testing.T) {
			if v := (Record{Reference: test.Reference}).BookTag(); v != test.Want {
				it.Errorf("expected %q, got %q", test.Want, v)
			}
		})
	}
}

func TestFileName(t *testing.T) {
	if v := FileName(3); v != "bible_verses_hour03.json" {
		t.Errorf("expected bible_verses_hour03.json, got %s", v)
	}
	if v := FileName(24); v != "bible_verses_hour24.json" {
		t.Errorf("expected bible_verses_hour24.json, got %s", v)
	}
}

func TestResolveAll(t *testing.T) {
	s := NewStore(testDataset(t))
	for hour := 1; hour <= 24; hour++ {
		for minute := 0; minute < 60; minute++ {
			r, err := s.Resolve(hour, minute)
			if err != nil {
				t.Fatalf("%02d:%02d: %v", hour, minute, err)
			}
			if want := testRecord(hour, minute); r != want {
				t.Fatalf("%02d:%02d: expected %+v, got %+v", hour, minute, want, r)
			}
			if want := fmt.Sprintf("[B%02d]", hour); r.BookTag() != want {
				t.Fatalf("%02d:%02d: expected tag %s, got %s", hour, minute, want, r.BookTag())
			}
		}
	}
	if s.Loads() != 24 {
		t.Errorf("expected one load per hour, got %d", s.Loads())
	}
}

func TestResolveMidnight(t *testing.T) {
	s := NewStore(testDataset(t))
	a, err := s.Resolve(0, 15)
	if err != nil {
		t.Fatal(err)
	}
	if s.Hour() != 24 {
		t.Errorf("expected hour 24 to be resident, got %d", s.Hour())
	}
	b, err := s.Resolve(24, 15)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("expected hour 0 and 24 to agree, got %+v and %+v", a, b)
	}
	if s.Loads() != 1 {
		t.Errorf("expected hour 0 and 24 to share one load, got %d", s.Loads())
	}
}

func TestResolveCaching(t *testing.T) {
	s := NewStore(testDataset(t))

	for minute := 0; minute < 60; minute++ {
		if _, err := s.Resolve(3, minute); err != nil {
			t.Fatal(err)
		}
	}
	if s.Loads() != 1 {
		t.Fatalf("expected 1 load within one hour, got %d", s.Loads())
	}

	if _, err := s.Resolve(4, 0); err != nil {
		t.Fatal(err)
	}
	if s.Loads() != 2 {
		t.Fatalf("expected exactly one reload after hour change, got %d loads", s.Loads())
	}

	if _, err := s.Resolve(4, 1); err != nil {
		t.Fatal(err)
	}
	if s.Loads() != 2 {
		t.Errorf("expected no reload within the new hour, got %d loads", s.Loads())
	}
}

func TestResolveMalformedReload(t *testing.T) {
	fsys := testDataset(t)
	fsys[FileName(4)] = &fstest.MapFile{Data: []byte(`{"00": {"reference": "x", "text": `)}
	s := NewStore(fsys)

	if _, err := s.Resolve(3, 30); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		r, err := s.Resolve(4, 30)
		if err == nil {
			t.Fatalf("expected parse error, got %+v", r)
		}
		if !r.IsZero() {
			t.Errorf("expected empty record, got %+v", r)
		}
		if s.Hour() != 0 {
			t.Errorf("expected empty store, got hour %d resident", s.Hour())
		}
	}
	if s.Loads() != 3 {
		t.Errorf("expected failed load to be retried, got %d loads", s.Loads())
	}

	// The previous hour has to be read again, it was discarded.
	if _, err := s.Resolve(3, 30); err != nil {
		t.Fatal(err)
	}
	if s.Loads() != 4 {
		t.Errorf("expected reload of hour 3, got %d loads", s.Loads())
	}
}

func TestResolveMissingFile(t *testing.T) {
	s := NewStore(fstest.MapFS{})
	if _, err := s.Resolve(5, 0); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("expected load error, got %v", err)
	}
}

func TestResolveGaps(t *testing.T) {
	fsys := fstest.MapFS{
		FileName(7): &fstest.MapFile{Data: []byte(`{
			// generated, minute 01 curated by hand
			"00": {"reference": "Psalm 23:1 (Ps)", "text": "The Lord is my shepherd"},
			"01": {"reference": "Psalm 23:2 (Ps)"},
			"02": {"text": "no reference"},
			"06": "oops",
			"07": {"reference": "Psalm 23:3 (Ps)", "text": "He restoreth my soul"},
			"08": {"reference": 8, "text": "numeric reference"},
			"09": null,
			"7":  {"reference": "bad key (X)", "text": "ignored"},
			"61": {"reference": "bad key (X)", "text": "ignored"},
		}`)},
	}
	s := NewStore(fsys)

	r, err := s.Resolve(7, 0)
	if err != nil {
		t.Fatal(err)
	}
	if r.Text != "The Lord is my shepherd" || r.BookTag() != "[Ps]" {
		t.Errorf("unexpected record %+v", r)
	}

	r, err = s.Resolve(7, 7)
	if err != nil {
		t.Fatalf("expected malformed neighbours not to reject the hour, got %v", err)
	}
	if r.Text != "He restoreth my soul" {
		t.Errorf("unexpected record %+v", r)
	}
	if s.Hour() != 7 {
		t.Errorf("expected hour 7 resident, got %d", s.Hour())
	}

	for _, minute := range []int{1, 2, 6, 8, 9, 30} {
		if _, err = s.Resolve(7, minute); !errors.Is(err, ErrNotFound) {
			t.Errorf("minute %d: expected ErrNotFound, got %v", minute, err)
		}
	}
	if s.Loads() != 1 {
		t.Errorf("expected misses not to reload, got %d loads", s.Loads())
	}
}

func TestResolveRange(t *testing.T) {
	s := NewStore(testDataset(t))
	if _, err := s.Resolve(25, 0); !errors.Is(err, ErrHour) {
		t.Errorf("expected ErrHour, got %v", err)
	}
	if _, err := s.Resolve(1, 60); !errors.Is(err, ErrMinute) {
		t.Errorf("expected ErrMinute, got %v", err)
	}
	if s.Loads() != 0 {
		t.Errorf("expected no load for invalid input, got %d", s.Loads())
	}
}

func TestParsePartition(t *testing.T) {
	for _, data := range []string{`null`, `[]`, `"00"`, `{"00": {`, ``} {
		if _, err := parsePartition("test.json", []byte(data)); err == nil {
			t.Errorf("%q: expected error", data)
		}
	}

	p, err := parsePartition("test.json", []byte(`{"00": {"reference": 1, "text": "x"}, "01": ["a"]}`))
	if err != nil {
		t.Fatal(err)
	}
	for _, minute := range []int{0, 1} {
		if r, ok := p[minute]; !ok || r != nil {
			t.Errorf("minute %d: expected incomplete entry, got %v (present %t)", minute, r, ok)
		}
	}
}
