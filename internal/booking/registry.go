package booking

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/carebridge/scheduling-service/internal/schedule"
)

var (
	ErrSlotTaken           = errors.New("slot already has a committed booking")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrInvalidTransition   = errors.New("invalid appointment status transition")
)

// Registry is the authoritative record of committed bookings. TryCommit
// is the sole mutator of slot keys and must behave as an atomic
// insert-if-absent: under concurrent attempts for the same key exactly
// one caller succeeds and the rest get ErrSlotTaken. Reads observe
// either no entry or a fully committed one, never a partial write.
type Registry interface {
	// TryCommit binds the slot key to the appointment and persists the
	// appointment. Returns ErrSlotTaken when the key is already bound.
	TryCommit(ctx context.Context, key SlotKey, appt *Appointment) (*Appointment, error)

	// IsBooked reports whether the key has a committed entry.
	IsBooked(ctx context.Context, doctorID, date string, start schedule.TimeOfDay) (bool, error)

	GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// CancelAppointment moves a SCHEDULED or CONFIRMED appointment to
	// CANCELLED and releases its slot key so the window becomes
	// bookable again.
	CancelAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// PurgeBefore removes bookings whose date is strictly before
	// cutoff (DateLayout), returning how many were removed.
	PurgeBefore(ctx context.Context, cutoff string) (int, error)
}
