package appointment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/clinicops/clinicops/internal/domain/directory"
	"github.com/clinicops/clinicops/internal/platform/cache"
	"github.com/clinicops/clinicops/pkg/timeutil"
)

type mockStore struct {
	mu    sync.Mutex
	appts map[uuid.UUID]*Appointment
}

func newMockStore() *mockStore {
	return &mockStore{appts: make(map[uuid.UUID]*Appointment)}
}

func (m *mockStore) Create(ctx context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = uuid.New()
	cp := *a
	m.appts[a.ID] = &cp
	return nil
}

func (m *mockStore) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (m *mockStore) Update(ctx context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.appts[a.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *a
	m.appts[a.ID] = &cp
	return nil
}

func (m *mockStore) FindByDoctorBetween(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*Appointment
	for _, a := range m.appts {
		if a.DoctorID != doctorID {
			continue
		}
		if a.AppointmentAt.Before(from) || !a.AppointmentAt.Before(to) {
			continue
		}
		cp := *a
		items = append(items, &cp)
	}
	return items, nil
}

func (m *mockStore) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*Appointment
	for _, a := range m.appts {
		if a.PatientID == patientID {
			cp := *a
			items = append(items, &cp)
		}
	}
	return items, len(items), nil
}

func (m *mockStore) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*Appointment
	for _, a := range m.appts {
		if a.DoctorID == doctorID {
			cp := *a
			items = append(items, &cp)
		}
	}
	return items, len(items), nil
}

type mockDirectory struct {
	doctors  map[uuid.UUID]*directory.Doctor
	patients map[uuid.UUID]*directory.Patient
}

func (m *mockDirectory) GetDoctor(ctx context.Context, id uuid.UUID) (*directory.Doctor, error) {
	d, ok := m.doctors[id]
	if !ok {
		return nil, directory.ErrNotFound
	}
	return d, nil
}

func (m *mockDirectory) GetPatient(ctx context.Context, id uuid.UUID) (*directory.Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, directory.ErrNotFound
	}
	return p, nil
}

type fixture struct {
	svc       *Service
	store     *mockStore
	doctorID  uuid.UUID
	patientID uuid.UUID
	dir       *mockDirectory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	from := timeutil.New(9, 0)
	to := timeutil.New(17, 0)
	doctorID := uuid.New()
	patientID := uuid.New()

	dir := &mockDirectory{
		doctors: map[uuid.UUID]*directory.Doctor{
			doctorID: {
				ID:              doctorID,
				Name:            "Dr. Asha Rao",
				Specialization:  "Cardiology",
				ConsultationFee: 500,
				AvailableFrom:   &from,
				AvailableTo:     &to,
				Active:          true,
			},
		},
		patients: map[uuid.UUID]*directory.Patient{
			patientID: {ID: patientID, Name: "Ravi Kumar"},
		},
	}

	store := newMockStore()
	svc := NewService(store, dir, dir, cache.NewNoopCache(), zerolog.Nop())
	return &fixture{svc: svc, store: store, doctorID: doctorID, patientID: patientID, dir: dir}
}

func (f *fixture) book(t *testing.T, date, clock string) (*Appointment, error) {
	t.Helper()
	d, err := timeutil.ParseDate(date)
	if err != nil {
		t.Fatal(err)
	}
	return f.svc.Book(context.Background(), BookRequest{
		PatientID: f.patientID,
		DoctorID:  f.doctorID,
		Date:      d,
		Time:      timeutil.MustParse(clock),
		Reason:    "checkup",
	})
}

func TestBook(t *testing.T) {
	f := newFixture(t)

	a, err := f.book(t, "2025-06-10", "10:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Status != StatusScheduled {
		t.Errorf("status = %s, want SCHEDULED", a.Status)
	}
	if a.Code == "" {
		t.Error("expected an appointment code")
	}
	if a.Fee != 500 {
		t.Errorf("fee = %v, want snapshot of doctor fee 500", a.Fee)
	}
	if a.DurationMinutes != SlotMinutes {
		t.Errorf("duration = %d, want %d", a.DurationMinutes, SlotMinutes)
	}
}

func TestBook_OverlapRejected(t *testing.T) {
	f := newFixture(t)

	if _, err := f.book(t, "2025-06-10", "10:00"); err != nil {
		t.Fatalf("first booking failed: %v", err)
	}

	_, err := f.book(t, "2025-06-10", "10:15")
	if KindOf(err) != KindSlotUnavailable {
		t.Fatalf("overlapping booking: got %v, want SlotUnavailable", err)
	}

	if _, err := f.book(t, "2025-06-10", "10:30"); err != nil {
		t.Errorf("adjacent booking should succeed: %v", err)
	}
}

func TestBook_CancelFreesSlot(t *testing.T) {
	f := newFixture(t)

	a, err := f.book(t, "2025-06-10", "10:00")
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}
	if _, err := f.svc.Cancel(context.Background(), a.ID, Actor{PatientID: f.patientID}); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	if _, err := f.book(t, "2025-06-10", "10:00"); err != nil {
		t.Errorf("rebooking a cancelled slot should succeed: %v", err)
	}
}

func TestBook_OutsideWorkingHours(t *testing.T) {
	f := newFixture(t)

	_, err := f.book(t, "2025-06-10", "17:15")
	if KindOf(err) != KindOutsideWorkingHours {
		t.Fatalf("got %v, want OutsideWorkingHours", err)
	}

	// Last slot that still fits before closing.
	if _, err := f.book(t, "2025-06-10", "16:30"); err != nil {
		t.Errorf("16:30 should fit a 09:00-17:00 window: %v", err)
	}
}

func TestBook_UnknownDoctor(t *testing.T) {
	f := newFixture(t)
	d, _ := timeutil.ParseDate("2025-06-10")
	_, err := f.svc.Book(context.Background(), BookRequest{
		PatientID: f.patientID,
		DoctorID:  uuid.New(),
		Date:      d,
		Time:      timeutil.New(10, 0),
	})
	if KindOf(err) != KindNotFound {
		t.Fatalf("got %v, want NotFound", err)
	}
}

func TestBook_InactiveDoctor(t *testing.T) {
	f := newFixture(t)
	f.dir.doctors[f.doctorID].Active = false

	_, err := f.book(t, "2025-06-10", "10:00")
	if KindOf(err) != KindNotFound {
		t.Fatalf("got %v, want NotFound", err)
	}
}

func TestBook_ConcurrentSameSlot(t *testing.T) {
	f := newFixture(t)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.book(t, "2025-06-10", "10:00")
		}(i)
	}
	wg.Wait()

	var succeeded, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case KindOf(err) == KindSlotUnavailable:
			rejected++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("%d concurrent bookings succeeded, want exactly 1", succeeded)
	}
	if rejected != attempts-1 {
		t.Errorf("%d rejected, want %d", rejected, attempts-1)
	}
}

func TestReschedule(t *testing.T) {
	f := newFixture(t)

	a, err := f.book(t, "2025-06-10", "10:00")
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	d, _ := timeutil.ParseDate("2025-06-11")
	moved, err := f.svc.Reschedule(context.Background(), a.ID, Actor{PatientID: f.patientID}, RescheduleRequest{
		DoctorID: f.doctorID,
		Date:     d,
		Time:     timeutil.New(11, 0),
	})
	if err != nil {
		t.Fatalf("reschedule failed: %v", err)
	}
	if moved.Code != a.Code {
		t.Error("reschedule must keep the appointment code")
	}
	if moved.Fee != a.Fee {
		t.Error("reschedule must keep the booked fee")
	}
	if got := moved.AppointmentAt.Format("2006-01-02 15:04"); got != "2025-06-11 11:00" {
		t.Errorf("appointment_at = %s", got)
	}
}

func TestReschedule_SameSlotAllowed(t *testing.T) {
	f := newFixture(t)

	a, err := f.book(t, "2025-06-10", "10:00")
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	// Moving within 30 minutes of its own slot must not self-conflict.
	d, _ := timeutil.ParseDate("2025-06-10")
	if _, err := f.svc.Reschedule(context.Background(), a.ID, Actor{PatientID: f.patientID}, RescheduleRequest{
		DoctorID: f.doctorID,
		Date:     d,
		Time:     timeutil.New(10, 0),
	}); err != nil {
		t.Errorf("rescheduling onto its own slot should succeed: %v", err)
	}
}

func TestReschedule_WrongPatient(t *testing.T) {
	f := newFixture(t)

	a, err := f.book(t, "2025-06-10", "10:00")
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	d, _ := timeutil.ParseDate("2025-06-11")
	_, err = f.svc.Reschedule(context.Background(), a.ID, Actor{PatientID: uuid.New()}, RescheduleRequest{
		DoctorID: f.doctorID,
		Date:     d,
		Time:     timeutil.New(11, 0),
	})
	if KindOf(err) != KindForbidden {
		t.Fatalf("got %v, want Forbidden", err)
	}
}

func TestReschedule_CompletedNotEditable(t *testing.T) {
	f := newFixture(t)

	a, err := f.book(t, "2025-06-10", "10:00")
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}
	if _, err := f.svc.Complete(context.Background(), a.ID, CompleteRequest{Diagnosis: "fine"}); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	d, _ := timeutil.ParseDate("2025-06-11")
	_, err = f.svc.Reschedule(context.Background(), a.ID, Actor{Staff: true}, RescheduleRequest{
		DoctorID: f.doctorID,
		Date:     d,
		Time:     timeutil.New(11, 0),
	})
	if KindOf(err) != KindNotEditable {
		t.Fatalf("got %v, want NotEditable", err)
	}

	stored, err := f.svc.Get(context.Background(), a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != StatusCompleted || !stored.AppointmentAt.Equal(a.AppointmentAt) {
		t.Error("failed reschedule must leave the record unchanged")
	}
}

func TestCancel_AlreadyCancelled(t *testing.T) {
	f := newFixture(t)

	a, err := f.book(t, "2025-06-10", "10:00")
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}
	actor := Actor{PatientID: f.patientID}
	if _, err := f.svc.Cancel(context.Background(), a.ID, actor); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	_, err = f.svc.Cancel(context.Background(), a.ID, actor)
	if KindOf(err) != KindNotCancellable {
		t.Fatalf("got %v, want NotCancellable", err)
	}

	stored, _ := f.svc.Get(context.Background(), a.ID)
	if stored.Status != StatusCancelled {
		t.Error("second cancel must not change state")
	}
}

func TestCancel_WrongPatient(t *testing.T) {
	f := newFixture(t)

	a, err := f.book(t, "2025-06-10", "10:00")
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}
	_, err = f.svc.Cancel(context.Background(), a.ID, Actor{PatientID: uuid.New()})
	if KindOf(err) != KindForbidden {
		t.Fatalf("got %v, want Forbidden", err)
	}
}

func TestCancel_StaffOverride(t *testing.T) {
	f := newFixture(t)

	a, err := f.book(t, "2025-06-10", "10:00")
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}
	if _, err := f.svc.Cancel(context.Background(), a.ID, Actor{Staff: true}); err != nil {
		t.Errorf("staff should cancel any appointment: %v", err)
	}
}

func TestComplete_Cancelled(t *testing.T) {
	f := newFixture(t)

	a, err := f.book(t, "2025-06-10", "10:00")
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}
	if _, err := f.svc.Cancel(context.Background(), a.ID, Actor{Staff: true}); err != nil {
		t.Fatal(err)
	}

	_, err = f.svc.Complete(context.Background(), a.ID, CompleteRequest{})
	if KindOf(err) != KindInvalidTransition {
		t.Fatalf("got %v, want InvalidTransition", err)
	}
}

func TestAvailableSlots_RoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	date, _ := timeutil.ParseDate("2025-06-10")

	slots, err := f.svc.AvailableSlots(ctx, f.doctorID, date)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 16 {
		t.Fatalf("expected 16 free slots, got %d", len(slots))
	}

	a, err := f.book(t, "2025-06-10", "10:00")
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	slots, err = f.svc.AvailableSlots(ctx, f.doctorID, date)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range slots {
		if s.String() == "10:00" {
			t.Fatal("booked slot still listed as available")
		}
	}
	if len(slots) != 15 {
		t.Errorf("expected 15 free slots after booking, got %d", len(slots))
	}

	if _, err := f.svc.Cancel(ctx, a.ID, Actor{PatientID: f.patientID}); err != nil {
		t.Fatal(err)
	}
	slots, err = f.svc.AvailableSlots(ctx, f.doctorID, date)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, s := range slots {
		if s.String() == "10:00" {
			found = true
		}
	}
	if !found {
		t.Error("cancelled slot should be available again")
	}
}

func TestAvailableSlots_NoWindowUsesDefault(t *testing.T) {
	f := newFixture(t)
	f.dir.doctors[f.doctorID].AvailableFrom = nil
	f.dir.doctors[f.doctorID].AvailableTo = nil

	date, _ := timeutil.ParseDate("2025-06-10")
	slots, err := f.svc.AvailableSlots(context.Background(), f.doctorID, date)
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 16 {
		t.Errorf("default window should yield 16 slots, got %d", len(slots))
	}
	if slots[0] != DefaultDayStart {
		t.Errorf("first slot = %s, want %s", slots[0], DefaultDayStart)
	}
}

func TestGet_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Get(context.Background(), uuid.New())
	if KindOf(err) != KindNotFound {
		t.Fatalf("got %v, want NotFound", err)
	}
}

func TestNewCode_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		code := NewCode()
		if len(code) != len("APT-")+8 {
			t.Fatalf("unexpected code format: %s", code)
		}
		if seen[code] {
			t.Fatalf("duplicate code: %s", code)
		}
		seen[code] = true
	}
}
