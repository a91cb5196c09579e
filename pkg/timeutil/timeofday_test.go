package timeutil

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	tod, err := Parse("09:30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tod.Hour() != 9 || tod.Minute() != 30 {
		t.Errorf("got %02d:%02d, want 09:30", tod.Hour(), tod.Minute())
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, s := range []string{"", "9am", "25:00", "09:30:00"} {
		if _, err := Parse(s); err == nil {
			t.Errorf("Parse(%q): expected error", s)
		}
	}
}

func TestString(t *testing.T) {
	if got := New(7, 5).String(); got != "07:05" {
		t.Errorf("got %q, want %q", got, "07:05")
	}
}

func TestAddSub(t *testing.T) {
	tod := New(9, 0).Add(30)
	if tod.String() != "09:30" {
		t.Errorf("Add: got %s", tod)
	}
	if d := New(17, 0).Sub(New(9, 0)); d != 480 {
		t.Errorf("Sub: got %d, want 480", d)
	}
}

func TestOrdering(t *testing.T) {
	a, b := New(9, 0), New(9, 1)
	if !a.Before(b) || b.Before(a) {
		t.Error("Before ordering wrong")
	}
	if !b.After(a) || a.After(b) {
		t.Error("After ordering wrong")
	}
}

func TestAt(t *testing.T) {
	date := time.Date(2025, 6, 10, 0, 0, 0, 0, time.Local)
	got := New(14, 45).At(date)
	want := time.Date(2025, 6, 10, 14, 45, 0, 0, time.Local)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(New(16, 30))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"16:30"` {
		t.Errorf("got %s", data)
	}
	var tod TimeOfDay
	if err := json.Unmarshal(data, &tod); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if tod != New(16, 30) {
		t.Errorf("round trip mismatch: %s", tod)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-06-10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Year() != 2025 || d.Month() != time.June || d.Day() != 10 {
		t.Errorf("got %v", d)
	}
	if _, err := ParseDate("10/06/2025"); err == nil {
		t.Error("expected error for wrong layout")
	}
}

func TestDayBounds(t *testing.T) {
	at := time.Date(2025, 6, 10, 13, 22, 9, 500, time.Local)
	if got := StartOfDay(at); got.Hour() != 0 || got.Minute() != 0 || got.Second() != 0 {
		t.Errorf("StartOfDay: got %v", got)
	}
	if got := EndOfDay(at); got.Hour() != 23 || got.Minute() != 59 || got.Second() != 59 {
		t.Errorf("EndOfDay: got %v", got)
	}
}
