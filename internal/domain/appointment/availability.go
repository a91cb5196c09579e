package appointment

import (
	"github.com/clinicops/clinicops/pkg/timeutil"
)

// SlotMinutes is the fixed consultation slot length. The conflict check in
// conflict.go uses this value for overlap math regardless of an
// appointment's stored duration; see the note there.
const SlotMinutes = 30

// Default working window applied when a doctor has no configured hours.
var (
	DefaultDayStart = timeutil.MustParse("09:00")
	DefaultDayEnd   = timeutil.MustParse("17:00")
)

// GenerateSlots returns the ordered candidate start times between start and
// end. Slots step by slotMinutes and every slot fits entirely before end, so
// the last slot starts at or before end minus slotMinutes. The result is a
// pure function of its inputs.
func GenerateSlots(start, end timeutil.TimeOfDay, slotMinutes int) []timeutil.TimeOfDay {
	if slotMinutes <= 0 || end.Before(start) {
		return nil
	}
	var slots []timeutil.TimeOfDay
	last := end.Add(-slotMinutes)
	for cur := start; !last.Before(cur); cur = cur.Add(slotMinutes) {
		slots = append(slots, cur)
	}
	return slots
}
