// Package directory manages the clinic's doctor and patient records. The
// appointment engine consults it for doctor working windows, consultation
// fees, and active status.
package directory

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicops/clinicops/pkg/timeutil"
)

// Doctor is a clinician patients can book appointments with. AvailableFrom
// and AvailableTo bound the bookable day; when both are nil the doctor has
// no declared window and any slot in the default day is bookable.
type Doctor struct {
	ID              uuid.UUID          `json:"id"`
	Name            string             `json:"name"`
	Specialization  string             `json:"specialization"`
	Qualification   string             `json:"qualification"`
	ExperienceYears int                `json:"experience_years"`
	ConsultationFee float64            `json:"consultation_fee"`
	WorkingDays     []string           `json:"working_days,omitempty"`
	AvailableFrom   *timeutil.TimeOfDay `json:"available_from,omitempty"`
	AvailableTo     *timeutil.TimeOfDay `json:"available_to,omitempty"`
	Active          bool               `json:"active"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// HasWindow reports whether the doctor declared a working window.
func (d *Doctor) HasWindow() bool {
	return d.AvailableFrom != nil && d.AvailableTo != nil
}

// Patient is a person that appointments are booked for.
type Patient struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	Gender      string     `json:"gender,omitempty"`
	Address     string     `json:"address,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
