// Package appointment implements the clinic's scheduling engine: slot
// generation, conflict detection, and the appointment lifecycle.
package appointment

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// CanTransition reports whether the status change is a legal lifecycle edge.
// COMPLETED and CANCELLED are terminal.
func (s Status) CanTransition(to Status) bool {
	if s != StatusScheduled {
		return false
	}
	return to == StatusCompleted || to == StatusCancelled
}

// Appointment is one scheduled consultation. DoctorID may only change
// through reschedule; PatientID never changes after creation.
type Appointment struct {
	ID              uuid.UUID `json:"id"`
	Code            string    `json:"code"`
	DoctorID        uuid.UUID `json:"doctor_id"`
	PatientID       uuid.UUID `json:"patient_id"`
	AppointmentAt   time.Time `json:"appointment_at"`
	Status          Status    `json:"status"`
	Reason          string    `json:"reason"`
	Notes           string    `json:"notes,omitempty"`
	Diagnosis       string    `json:"diagnosis,omitempty"`
	Prescription    string    `json:"prescription,omitempty"`
	DurationMinutes int       `json:"duration_minutes"`
	Fee             float64   `json:"fee"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewCode generates a human-readable appointment code. Random rather than
// time-derived so concurrent bookings cannot collide.
func NewCode() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails when the OS entropy source is broken;
		// fall back to a uuid-derived token rather than panic.
		return "APT-" + uuid.NewString()[:8]
	}
	return "APT-" + hex.EncodeToString(buf)
}
