package appointment

import (
	"time"

	"github.com/clinicops/clinicops/internal/domain/directory"
	"github.com/clinicops/clinicops/pkg/timeutil"
)

// SlotTaken reports whether the candidate start collides with any existing
// non-cancelled appointment. Two bookings collide when their starts are less
// than SlotMinutes apart. The check deliberately ignores each appointment's
// stored duration and uses the fixed slot length, matching the booking
// granularity the slot generator hands out.
func SlotTaken(candidate time.Time, existing []*Appointment) bool {
	for _, a := range existing {
		if a.Status == StatusCancelled {
			continue
		}
		gap := candidate.Sub(a.AppointmentAt)
		if gap < 0 {
			gap = -gap
		}
		if gap < SlotMinutes*time.Minute {
			return true
		}
	}
	return false
}

// WithinWorkingHours reports whether a slot starting at t fits inside the
// doctor's declared window. Doctors without a window accept any time. The
// slot must end by closing time, so the latest bookable start is the window
// end minus the slot length.
func WithinWorkingHours(d *directory.Doctor, t timeutil.TimeOfDay) bool {
	if !d.HasWindow() {
		return true
	}
	if t.Before(*d.AvailableFrom) {
		return false
	}
	latest := d.AvailableTo.Add(-SlotMinutes)
	return !t.After(latest)
}
