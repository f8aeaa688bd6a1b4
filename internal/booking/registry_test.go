package booking

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/scheduling-service/internal/schedule"
)

func testAppointment(doctorID, date string, hour, minute int) *Appointment {
	start := schedule.MustTimeOfDay(hour, minute)
	return &Appointment{
		ID:        uuid.New(),
		PatientID: uuid.NewString(),
		DoctorID:  doctorID,
		Date:      date,
		StartTime: start,
		EndTime:   start.AddMinutes(30),
		Type:      TypeInPerson,
		Status:    StatusScheduled,
	}
}

func keyFor(appt *Appointment) SlotKey {
	return SlotKey{DoctorID: appt.DoctorID, Date: appt.Date, Start: appt.StartTime}
}

func TestMemoryRegistryCommitAndRead(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()

	appt := testAppointment("doc-1", "2025-01-20", 9, 0)
	stored, err := reg.TryCommit(ctx, keyFor(appt), appt)
	require.NoError(t, err)
	assert.Equal(t, appt.ID, stored.ID)

	booked, err := reg.IsBooked(ctx, "doc-1", "2025-01-20", schedule.MustTimeOfDay(9, 0))
	require.NoError(t, err)
	assert.True(t, booked)

	booked, err = reg.IsBooked(ctx, "doc-1", "2025-01-20", schedule.MustTimeOfDay(9, 30))
	require.NoError(t, err)
	assert.False(t, booked, "a different start time is a different key")

	loaded, err := reg.GetAppointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, loaded.Status)
}

func TestMemoryRegistryRejectsDuplicateKey(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()

	first := testAppointment("doc-1", "2025-01-20", 9, 0)
	_, err := reg.TryCommit(ctx, keyFor(first), first)
	require.NoError(t, err)

	second := testAppointment("doc-1", "2025-01-20", 9, 0)
	_, err = reg.TryCommit(ctx, keyFor(second), second)
	assert.ErrorIs(t, err, ErrSlotTaken)

	// The loser's appointment must not be visible.
	_, err = reg.GetAppointment(ctx, second.ID)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestMemoryRegistryAtMostOneUnderConcurrency(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()

	const racers = 32
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			appt := testAppointment("doc-1", "2025-01-20", 9, 0)
			_, err := reg.TryCommit(ctx, keyFor(appt), appt)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrSlotTaken):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, racers-1, conflicts)
}

func TestMemoryRegistryCancelFreesKey(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()

	appt := testAppointment("doc-1", "2025-01-20", 9, 0)
	_, err := reg.TryCommit(ctx, keyFor(appt), appt)
	require.NoError(t, err)

	cancelled, err := reg.CancelAppointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	booked, err := reg.IsBooked(ctx, "doc-1", "2025-01-20", schedule.MustTimeOfDay(9, 0))
	require.NoError(t, err)
	assert.False(t, booked, "cancelled slot must be bookable again")

	// A second cancel is an invalid transition.
	_, err = reg.CancelAppointment(ctx, appt.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestMemoryRegistryCancelUnknown(t *testing.T) {
	reg := NewMemoryRegistry()
	_, err := reg.CancelAppointment(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestMemoryRegistryPurgeBefore(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()

	old := testAppointment("doc-1", "2024-11-01", 9, 0)
	recent := testAppointment("doc-1", "2025-01-20", 9, 0)
	for _, appt := range []*Appointment{old, recent} {
		_, err := reg.TryCommit(ctx, keyFor(appt), appt)
		require.NoError(t, err)
	}

	removed, err := reg.PurgeBefore(ctx, "2025-01-01")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = reg.GetAppointment(ctx, old.ID)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)

	_, err = reg.GetAppointment(ctx, recent.ID)
	assert.NoError(t, err)
}
