package appointment

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/clinicops/clinicops/internal/domain/directory"
	"github.com/clinicops/clinicops/internal/platform/cache"
	"github.com/clinicops/clinicops/pkg/timeutil"
)

// DoctorDirectory resolves doctors for booking. Implemented by the
// directory service.
type DoctorDirectory interface {
	GetDoctor(ctx context.Context, id uuid.UUID) (*directory.Doctor, error)
}

// PatientDirectory resolves patients for booking.
type PatientDirectory interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*directory.Patient, error)
}

// Actor identifies who is performing a cancel or reschedule. Staff carries
// the admin and receptionist roles; PatientID is set for patient logins.
type Actor struct {
	PatientID uuid.UUID
	Staff     bool
}

// doctorLocks serializes booking and reschedule per doctor so the
// check-then-write sequence cannot race for the same slot.
type doctorLocks struct {
	mu sync.Mutex
	m  map[uuid.UUID]*sync.Mutex
}

func (l *doctorLocks) lock(id uuid.UUID) *sync.Mutex {
	l.mu.Lock()
	dl, ok := l.m[id]
	if !ok {
		dl = &sync.Mutex{}
		l.m[id] = dl
	}
	l.mu.Unlock()
	dl.Lock()
	return dl
}

type Service struct {
	store    Store
	doctors  DoctorDirectory
	patients PatientDirectory
	slots    cache.SlotCache
	locks    doctorLocks
	logger   zerolog.Logger
}

func NewService(store Store, doctors DoctorDirectory, patients PatientDirectory, slots cache.SlotCache, logger zerolog.Logger) *Service {
	return &Service{
		store:    store,
		doctors:  doctors,
		patients: patients,
		slots:    slots,
		locks:    doctorLocks{m: make(map[uuid.UUID]*sync.Mutex)},
		logger:   logger,
	}
}

type BookRequest struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	Date      time.Time
	Time      timeutil.TimeOfDay
	Reason    string
	Notes     string
}

// Book creates a SCHEDULED appointment after checking the slot is free and
// inside the doctor's working hours. The doctor's current fee is snapshotted
// onto the appointment; later fee changes do not affect it.
func (s *Service) Book(ctx context.Context, req BookRequest) (*Appointment, error) {
	doctor, err := s.resolveDoctor(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}
	if _, err := s.resolvePatient(ctx, req.PatientID); err != nil {
		return nil, err
	}

	at := timeutil.CombineDate(req.Date, req.Time)
	if !WithinWorkingHours(doctor, req.Time) {
		return nil, newError(KindOutsideWorkingHours,
			"doctor is available %s to %s", doctor.AvailableFrom, doctor.AvailableTo)
	}

	lock := s.locks.lock(doctor.ID)
	defer lock.Unlock()

	if err := s.checkSlotFree(ctx, doctor.ID, at, uuid.Nil); err != nil {
		return nil, err
	}

	now := time.Now()
	a := &Appointment{
		Code:            NewCode(),
		DoctorID:        doctor.ID,
		PatientID:       req.PatientID,
		AppointmentAt:   at,
		Status:          StatusScheduled,
		Reason:          req.Reason,
		Notes:           req.Notes,
		DurationMinutes: SlotMinutes,
		Fee:             doctor.ConsultationFee,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.Create(ctx, a); err != nil {
		return nil, err
	}

	s.slots.Invalidate(ctx, doctor.ID.String())
	s.logger.Info().
		Str("code", a.Code).
		Str("doctor_id", doctor.ID.String()).
		Time("appointment_at", at).
		Msg("appointment booked")
	return a, nil
}

type RescheduleRequest struct {
	DoctorID uuid.UUID
	Date     time.Time
	Time     timeutil.TimeOfDay
	Reason   string
}

// Reschedule moves a SCHEDULED appointment to a new doctor and/or time,
// re-running the availability checks. The appointment keeps its identity,
// code, and booked fee.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, actor Actor, req RescheduleRequest) (*Appointment, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Staff && a.PatientID != actor.PatientID {
		return nil, newError(KindForbidden, "appointment belongs to another patient")
	}
	if a.Status != StatusScheduled {
		return nil, newError(KindNotEditable, "appointment is %s", a.Status)
	}

	doctor, err := s.resolveDoctor(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}
	at := timeutil.CombineDate(req.Date, req.Time)
	if !WithinWorkingHours(doctor, req.Time) {
		return nil, newError(KindOutsideWorkingHours,
			"doctor is available %s to %s", doctor.AvailableFrom, doctor.AvailableTo)
	}

	lock := s.locks.lock(doctor.ID)
	defer lock.Unlock()

	// The appointment's own row must not block the move.
	if err := s.checkSlotFree(ctx, doctor.ID, at, a.ID); err != nil {
		return nil, err
	}

	oldDoctor := a.DoctorID
	a.DoctorID = doctor.ID
	a.AppointmentAt = at
	if req.Reason != "" {
		a.Reason = req.Reason
	}
	a.UpdatedAt = time.Now()
	if err := s.store.Update(ctx, a); err != nil {
		return nil, err
	}

	s.slots.Invalidate(ctx, doctor.ID.String())
	if oldDoctor != doctor.ID {
		s.slots.Invalidate(ctx, oldDoctor.String())
	}
	return a, nil
}

// Cancel sets a SCHEDULED appointment to CANCELLED. Cancelling an already
// cancelled or completed appointment fails rather than silently succeeding.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, actor Actor) (*Appointment, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Staff && a.PatientID != actor.PatientID {
		return nil, newError(KindForbidden, "appointment belongs to another patient")
	}
	if a.Status != StatusScheduled {
		return nil, newError(KindNotCancellable, "appointment is %s", a.Status)
	}

	a.Status = StatusCancelled
	a.UpdatedAt = time.Now()
	if err := s.store.Update(ctx, a); err != nil {
		return nil, err
	}

	s.slots.Invalidate(ctx, a.DoctorID.String())
	return a, nil
}

// CompleteRequest carries the clinical closure fields recorded alongside the
// status change.
type CompleteRequest struct {
	Diagnosis    string
	Prescription string
	Notes        string
}

// Complete closes a SCHEDULED appointment after the consultation.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, req CompleteRequest) (*Appointment, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.Status.CanTransition(StatusCompleted) {
		return nil, newError(KindInvalidTransition, "cannot complete a %s appointment", a.Status)
	}

	a.Status = StatusCompleted
	if req.Diagnosis != "" {
		a.Diagnosis = req.Diagnosis
	}
	if req.Prescription != "" {
		a.Prescription = req.Prescription
	}
	if req.Notes != "" {
		a.Notes = req.Notes
	}
	a.UpdatedAt = time.Now()
	if err := s.store.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// AvailableSlots returns the free slot start times for the doctor on the
// given day, in order. An empty list is a valid result.
func (s *Service) AvailableSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]timeutil.TimeOfDay, error) {
	doctor, err := s.resolveDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	dateStr := date.Format(timeutil.DateLayout)
	if cached, ok := s.slots.Get(ctx, doctorID.String(), dateStr); ok {
		return parseSlots(cached)
	}

	start, end := DefaultDayStart, DefaultDayEnd
	if doctor.HasWindow() {
		start, end = *doctor.AvailableFrom, *doctor.AvailableTo
	}

	existing, err := s.store.FindByDoctorBetween(ctx, doctorID,
		timeutil.StartOfDay(date), timeutil.StartOfDay(date.AddDate(0, 0, 1)))
	if err != nil {
		return nil, err
	}

	var free []timeutil.TimeOfDay
	for _, slot := range GenerateSlots(start, end, SlotMinutes) {
		if !SlotTaken(slot.At(date), existing) {
			free = append(free, slot)
		}
	}

	s.slots.Set(ctx, doctorID.String(), dateStr, formatSlots(free))
	return free, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := s.store.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, newError(KindNotFound, "appointment %s not found", id)
	}
	return a, err
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.store.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.store.ListByDoctor(ctx, doctorID, limit, offset)
}

func (s *Service) resolveDoctor(ctx context.Context, id uuid.UUID) (*directory.Doctor, error) {
	doctor, err := s.doctors.GetDoctor(ctx, id)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return nil, newError(KindNotFound, "doctor %s not found", id)
		}
		return nil, err
	}
	if !doctor.Active {
		return nil, newError(KindNotFound, "doctor %s is not accepting appointments", id)
	}
	return doctor, nil
}

func (s *Service) resolvePatient(ctx context.Context, id uuid.UUID) (*directory.Patient, error) {
	p, err := s.patients.GetPatient(ctx, id)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return nil, newError(KindNotFound, "patient %s not found", id)
		}
		return nil, err
	}
	return p, nil
}

// checkSlotFree loads the doctor's bookings around the candidate time and
// applies the overlap rule. exclude skips the appointment being rescheduled.
func (s *Service) checkSlotFree(ctx context.Context, doctorID uuid.UUID, at time.Time, exclude uuid.UUID) error {
	window := SlotMinutes * time.Minute
	existing, err := s.store.FindByDoctorBetween(ctx, doctorID, at.Add(-window), at.Add(window))
	if err != nil {
		return err
	}
	if exclude != uuid.Nil {
		filtered := existing[:0]
		for _, a := range existing {
			if a.ID != exclude {
				filtered = append(filtered, a)
			}
		}
		existing = filtered
	}
	if SlotTaken(at, existing) {
		return newError(KindSlotUnavailable, "slot %s is already booked", at.Format("2006-01-02 15:04"))
	}
	return nil
}

func formatSlots(slots []timeutil.TimeOfDay) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.String()
	}
	return out
}

func parseSlots(raw []string) ([]timeutil.TimeOfDay, error) {
	out := make([]timeutil.TimeOfDay, 0, len(raw))
	for _, s := range raw {
		t, err := timeutil.Parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
