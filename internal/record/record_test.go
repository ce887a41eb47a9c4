package record

import (
	"errors"
	"testing"
	"time"
)

func TestNewID_Deterministic(t *testing.T) {
	ts := time.Date(2025, 10, 19, 15, 35, 45, 0, time.UTC)

	a := NewID(SourceChrome, "golang generics", ts)
	b := NewID(SourceChrome, "golang generics", ts)
	if a != b {
		t.Errorf("NewID() not deterministic: %s != %s", a, b)
	}

	tests := []struct {
		name   string
		source string
		text   string
		ts     time.Time
	}{
		{"different source", SourceGemini, "golang generics", ts},
		{"different text", SourceChrome, "golang channels", ts},
		{"different time", SourceChrome, "golang generics", ts.Add(time.Second)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewID(tt.source, tt.text, tt.ts); got == a {
				t.Errorf("NewID() collided with base ID %s", a)
			}
		})
	}
}

func TestNewID_TimezoneIndependent(t *testing.T) {
	utc := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	zone := time.FixedZone("CET", 3600)
	local := utc.In(zone)

	if NewID(SourceQueries, "x", utc) != NewID(SourceQueries, "x", local) {
		t.Error("NewID() should not depend on the timestamp's location")
	}
}

func TestValidate(t *testing.T) {
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		rec     Record
		wantErr error
	}{
		{"valid", New(SourceChrome, "hello", ts), nil},
		{"empty text", New(SourceChrome, "   ", ts), ErrEmptyText},
		{"zero timestamp", New(SourceChrome, "hello", time.Time{}), ErrMissingTimestamp},
		{"unknown source", New("firefox", "hello", ts), ErrUnknownSource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rec.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSortChronologically_Stable(t *testing.T) {
	t1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	recs := []Record{
		{ID: "late", Timestamp: t2},
		{ID: "first-same", Timestamp: t1},
		{ID: "second-same", Timestamp: t1},
	}
	SortChronologically(recs)

	want := []string{"first-same", "second-same", "late"}
	for i, id := range want {
		if recs[i].ID != id {
			t.Errorf("recs[%d].ID = %s, want %s", i, recs[i].ID, id)
		}
	}
}

func TestFilterBySource(t *testing.T) {
	recs := []Record{
		{ID: "a", Source: SourceChrome},
		{ID: "b", Source: SourceGemini},
		{ID: "c", Source: SourceChrome},
	}

	if got := FilterBySource(recs, ""); len(got) != 3 {
		t.Errorf("FilterBySource(\"\") returned %d records, want 3", len(got))
	}
	got := FilterBySource(recs, SourceChrome)
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Errorf("FilterBySource(chrome) = %+v, want a and c", got)
	}
	if got := FilterBySource(recs, SourceTitles); len(got) != 0 {
		t.Errorf("FilterBySource(titles) returned %d records, want 0", len(got))
	}
}
