package appointment

import (
	"testing"

	"github.com/clinicops/clinicops/pkg/timeutil"
)

func TestGenerateSlots_FullDay(t *testing.T) {
	slots := GenerateSlots(timeutil.New(9, 0), timeutil.New(17, 0), 30)

	if len(slots) != 16 {
		t.Fatalf("expected 16 slots, got %d", len(slots))
	}
	if slots[0].String() != "09:00" {
		t.Errorf("first slot = %s, want 09:00", slots[0])
	}
	if slots[len(slots)-1].String() != "16:30" {
		t.Errorf("last slot = %s, want 16:30", slots[len(slots)-1])
	}
}

func TestGenerateSlots_Monotonic(t *testing.T) {
	cases := []struct {
		start, end  string
		slotMinutes int
	}{
		{"09:00", "17:00", 30},
		{"10:15", "12:45", 30},
		{"08:00", "20:00", 45},
		{"00:00", "23:30", 60},
	}
	for _, tc := range cases {
		start := timeutil.MustParse(tc.start)
		end := timeutil.MustParse(tc.end)
		slots := GenerateSlots(start, end, tc.slotMinutes)

		if len(slots) == 0 {
			t.Fatalf("%s-%s/%d: expected slots", tc.start, tc.end, tc.slotMinutes)
		}
		if slots[0] != start {
			t.Errorf("%s-%s/%d: first slot = %s, want %s", tc.start, tc.end, tc.slotMinutes, slots[0], start)
		}
		for i := 1; i < len(slots); i++ {
			if slots[i].Sub(slots[i-1]) != tc.slotMinutes {
				t.Errorf("%s-%s/%d: step %s -> %s is not %d minutes",
					tc.start, tc.end, tc.slotMinutes, slots[i-1], slots[i], tc.slotMinutes)
			}
		}
		lastEnd := slots[len(slots)-1].Add(tc.slotMinutes)
		if lastEnd.After(end) {
			t.Errorf("%s-%s/%d: last slot ends %s, past %s", tc.start, tc.end, tc.slotMinutes, lastEnd, end)
		}
	}
}

func TestGenerateSlots_WindowTooSmall(t *testing.T) {
	if slots := GenerateSlots(timeutil.New(9, 0), timeutil.New(9, 15), 30); len(slots) != 0 {
		t.Errorf("expected no slots, got %v", slots)
	}
}

func TestGenerateSlots_ExactlyOne(t *testing.T) {
	slots := GenerateSlots(timeutil.New(9, 0), timeutil.New(9, 30), 30)
	if len(slots) != 1 || slots[0].String() != "09:00" {
		t.Errorf("expected single 09:00 slot, got %v", slots)
	}
}

func TestGenerateSlots_InvalidInput(t *testing.T) {
	if slots := GenerateSlots(timeutil.New(17, 0), timeutil.New(9, 0), 30); slots != nil {
		t.Errorf("inverted window should yield nil, got %v", slots)
	}
	if slots := GenerateSlots(timeutil.New(9, 0), timeutil.New(17, 0), 0); slots != nil {
		t.Errorf("zero slot size should yield nil, got %v", slots)
	}
}
