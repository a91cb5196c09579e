package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrNotFound is returned when a doctor or patient does not exist.
var ErrNotFound = errors.New("not found")

var validWorkingDays = map[string]bool{
	"MONDAY": true, "TUESDAY": true, "WEDNESDAY": true, "THURSDAY": true,
	"FRIDAY": true, "SATURDAY": true, "SUNDAY": true,
}

type Service struct {
	doctors  DoctorRepository
	patients PatientRepository
}

func NewService(doctors DoctorRepository, patients PatientRepository) *Service {
	return &Service{doctors: doctors, patients: patients}
}

// -- Doctor --

func (s *Service) CreateDoctor(ctx context.Context, d *Doctor) error {
	if err := validateDoctor(d); err != nil {
		return err
	}
	d.Active = true
	return s.doctors.Create(ctx, d)
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	d, err := s.doctors.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, err
}

func (s *Service) UpdateDoctor(ctx context.Context, d *Doctor) error {
	if err := validateDoctor(d); err != nil {
		return err
	}
	existing, err := s.GetDoctor(ctx, d.ID)
	if err != nil {
		return err
	}
	d.CreatedAt = existing.CreatedAt
	return s.doctors.Update(ctx, d)
}

// DeactivateDoctor marks the doctor as no longer bookable. Existing
// appointments are untouched.
func (s *Service) DeactivateDoctor(ctx context.Context, id uuid.UUID) error {
	d, err := s.GetDoctor(ctx, id)
	if err != nil {
		return err
	}
	d.Active = false
	return s.doctors.Update(ctx, d)
}

func (s *Service) ListDoctors(ctx context.Context, params map[string]string, limit, offset int) ([]*Doctor, int, error) {
	return s.doctors.List(ctx, params, limit, offset)
}

func validateDoctor(d *Doctor) error {
	if d.Name == "" {
		return fmt.Errorf("name is required")
	}
	if d.Specialization == "" {
		return fmt.Errorf("specialization is required")
	}
	if d.ConsultationFee < 0 {
		return fmt.Errorf("consultation_fee cannot be negative")
	}
	if d.ExperienceYears < 0 {
		return fmt.Errorf("experience_years cannot be negative")
	}
	for _, day := range d.WorkingDays {
		if !validWorkingDays[day] {
			return fmt.Errorf("invalid working day: %s", day)
		}
	}
	// A window must be declared with both ends or not at all.
	if (d.AvailableFrom == nil) != (d.AvailableTo == nil) {
		return fmt.Errorf("available_from and available_to must be set together")
	}
	if d.HasWindow() && !d.AvailableFrom.Before(*d.AvailableTo) {
		return fmt.Errorf("available_from must be before available_to")
	}
	return nil
}

// -- Patient --

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.patients.Create(ctx, p)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	existing, err := s.GetPatient(ctx, p.ID)
	if err != nil {
		return err
	}
	p.CreatedAt = existing.CreatedAt
	return s.patients.Update(ctx, p)
}

func (s *Service) ListPatients(ctx context.Context, params map[string]string, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, params, limit, offset)
}
