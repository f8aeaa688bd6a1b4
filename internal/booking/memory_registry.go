package booking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carebridge/scheduling-service/internal/schedule"
)

// MemoryRegistry keeps bookings in process memory behind a single
// mutex. It is the reference Registry used in tests and when no
// Postgres DSN is configured; the mutex gives TryCommit its
// insert-if-absent atomicity.
type MemoryRegistry struct {
	mu           sync.RWMutex
	bookings     map[SlotKey]uuid.UUID
	appointments map[uuid.UUID]Appointment
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		bookings:     make(map[SlotKey]uuid.UUID),
		appointments: make(map[uuid.UUID]Appointment),
	}
}

func (r *MemoryRegistry) TryCommit(_ context.Context, key SlotKey, appt *Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bookings[key]; exists {
		return nil, ErrSlotTaken
	}

	stored := *appt
	r.bookings[key] = stored.ID
	r.appointments[stored.ID] = stored

	out := stored
	return &out, nil
}

func (r *MemoryRegistry) IsBooked(_ context.Context, doctorID, date string, start schedule.TimeOfDay) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, booked := r.bookings[SlotKey{DoctorID: doctorID, Date: date, Start: start}]
	return booked, nil
}

func (r *MemoryRegistry) GetAppointment(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	appt, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	out := appt
	return &out, nil
}

func (r *MemoryRegistry) CancelAppointment(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	if appt.Status != StatusScheduled && appt.Status != StatusConfirmed {
		return nil, ErrInvalidTransition
	}

	appt.Status = StatusCancelled
	appt.UpdatedAt = time.Now()
	r.appointments[id] = appt

	delete(r.bookings, SlotKey{DoctorID: appt.DoctorID, Date: appt.Date, Start: appt.StartTime})

	out := appt
	return &out, nil
}

func (r *MemoryRegistry) PurgeBefore(_ context.Context, cutoff string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for key, apptID := range r.bookings {
		if key.Date < cutoff {
			delete(r.bookings, key)
			delete(r.appointments, apptID)
			removed++
		}
	}
	return removed, nil
}
