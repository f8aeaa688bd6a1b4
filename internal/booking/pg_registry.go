package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carebridge/scheduling-service/internal/schedule"
)

// PgRegistry is the durable Registry. The at-most-one guarantee comes
// from the storage layer itself: slot_bookings has a primary key on
// (doctor_id, slot_date, start_minute), and TryCommit inserts with
// ON CONFLICT DO NOTHING inside the same transaction as the
// appointment row.
type PgRegistry struct {
	pool *pgxpool.Pool
}

func NewPgRegistry(pool *pgxpool.Pool) *PgRegistry {
	return &PgRegistry{pool: pool}
}

const appointmentColumns = `id, patient_id, doctor_id, facility_id, appt_date, start_minute, end_minute,
	appt_type, status, chief_complaint, notes, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		a           Appointment
		facilityID  *string
		apptDate    time.Time
		startMinute int
		endMinute   int
	)

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&facilityID,
		&apptDate,
		&startMinute,
		&endMinute,
		&a.Type,
		&a.Status,
		&a.ChiefComplaint,
		&a.Notes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.FacilityID = facilityID
	a.Date = apptDate.Format(schedule.DateLayout)
	a.StartTime = schedule.FromMinuteOfDay(startMinute)
	a.EndTime = schedule.FromMinuteOfDay(endMinute)
	return &a, nil
}

func (r *PgRegistry) TryCommit(ctx context.Context, key SlotKey, appt *Appointment) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin commit tx: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, facility_id, appt_date, start_minute, end_minute,
			appt_type, status, chief_complaint, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
		RETURNING `+appointmentColumns+`
	`, appt.ID, appt.PatientID, appt.DoctorID, appt.FacilityID, appt.Date,
		appt.StartTime.MinuteOfDay(), appt.EndTime.MinuteOfDay(),
		appt.Type, appt.Status, appt.ChiefComplaint, appt.Notes)

	stored, err := scanAppointment(row)
	if err != nil {
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO slot_bookings (doctor_id, slot_date, start_minute, appointment_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (doctor_id, slot_date, start_minute) DO NOTHING
	`, key.DoctorID, key.Date, key.Start.MinuteOfDay(), appt.ID)
	if err != nil {
		return nil, fmt.Errorf("insert slot booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Lost the race; rolling back discards the appointment row.
		return nil, ErrSlotTaken
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit booking: %w", err)
	}

	return stored, nil
}

func (r *PgRegistry) IsBooked(ctx context.Context, doctorID, date string, start schedule.TimeOfDay) (bool, error) {
	var booked bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM slot_bookings
			WHERE doctor_id = $1 AND slot_date = $2 AND start_minute = $3
		)
	`, doctorID, date, start.MinuteOfDay()).Scan(&booked)
	if err != nil {
		return false, fmt.Errorf("check slot booking: %w", err)
	}
	return booked, nil
}

func (r *PgRegistry) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRegistry) CancelAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin cancel tx: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status IN ($3, $4)
		RETURNING `+appointmentColumns+`
	`, id, StatusCancelled, StatusScheduled, StatusConfirmed)

	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Distinguish missing from already terminal.
			if _, getErr := r.GetAppointment(ctx, id); getErr == nil {
				return nil, ErrInvalidTransition
			}
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM slot_bookings WHERE appointment_id = $1
	`, id); err != nil {
		return nil, fmt.Errorf("release slot booking: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit cancel: %w", err)
	}

	return appt, nil
}

func (r *PgRegistry) PurgeBefore(ctx context.Context, cutoff string) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM appointments WHERE appt_date < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge appointments: %w", err)
	}
	// slot_bookings rows go with their appointments via ON DELETE CASCADE.
	return int(tag.RowsAffected()), nil
}
