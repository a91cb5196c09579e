package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the Postgres error code raised by the partial unique
// index on (doctor_id, appointment_at) for SCHEDULED rows. It backstops the
// in-process per-doctor serialization when multiple server instances share
// the database.
const uniqueViolation = "23505"

type storePG struct{ pool *pgxpool.Pool }

func NewStorePG(pool *pgxpool.Pool) Store { return &storePG{pool: pool} }

const apptCols = `id, code, doctor_id, patient_id, appointment_at, status,
	reason, notes, diagnosis, prescription, duration_minutes, fee,
	created_at, updated_at`

func (r *storePG) scanAppt(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.Code, &a.DoctorID, &a.PatientID, &a.AppointmentAt, &a.Status,
		&a.Reason, &a.Notes, &a.Diagnosis, &a.Prescription, &a.DurationMinutes, &a.Fee,
		&a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

func slotConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return newError(KindSlotUnavailable, "slot already booked")
	}
	return err
}

func (r *storePG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO appointment (id, code, doctor_id, patient_id, appointment_at, status,
			reason, notes, diagnosis, prescription, duration_minutes, fee)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		a.ID, a.Code, a.DoctorID, a.PatientID, a.AppointmentAt, a.Status,
		a.Reason, a.Notes, a.Diagnosis, a.Prescription, a.DurationMinutes, a.Fee)
	if err != nil {
		return slotConflict(err)
	}
	return nil
}

func (r *storePG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return r.scanAppt(r.pool.QueryRow(ctx, `SELECT `+apptCols+` FROM appointment WHERE id = $1`, id))
}

func (r *storePG) Update(ctx context.Context, a *Appointment) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE appointment SET doctor_id=$2, appointment_at=$3, status=$4, reason=$5,
			notes=$6, diagnosis=$7, prescription=$8, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.DoctorID, a.AppointmentAt, a.Status,
		a.Reason, a.Notes, a.Diagnosis, a.Prescription)
	if err != nil {
		return slotConflict(err)
	}
	return nil
}

func (r *storePG) FindByDoctorBetween(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+apptCols+` FROM appointment
		WHERE doctor_id = $1 AND appointment_at >= $2 AND appointment_at < $3
		ORDER BY appointment_at ASC`, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := r.scanAppt(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *storePG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM appointment WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+apptCols+` FROM appointment WHERE patient_id = $1 ORDER BY appointment_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := r.scanAppt(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *storePG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM appointment WHERE doctor_id = $1`, doctorID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+apptCols+` FROM appointment WHERE doctor_id = $1 ORDER BY appointment_at DESC LIMIT $2 OFFSET $3`, doctorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := r.scanAppt(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}
