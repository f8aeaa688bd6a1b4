package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/carebridge/scheduling-service/internal/redis"
	"github.com/carebridge/scheduling-service/internal/schedule"
)

var (
	// ErrSlotExpired: past-time rule fired; the start time is no
	// longer in the future. Caller should re-query slots.
	ErrSlotExpired = errors.New("slot start time is no longer in the future")
	// ErrSlotUnavailable: an availability rule other than the commit
	// race vetoed the slot.
	ErrSlotUnavailable = errors.New("slot is not available")
	// ErrSlotContended: the per-key lock could not be acquired because
	// another booking for the same slot is in flight. A benign race,
	// reported like a lost commit.
	ErrSlotContended = errors.New("slot is currently being booked, please retry")

	ErrInvalidRequest = errors.New("invalid booking request")
)

// BookRequest carries a validated booking attempt into the service.
type BookRequest struct {
	DoctorID       string
	PatientID      string
	FacilityID     *string
	Date           string // schedule.DateLayout
	Start          schedule.TimeOfDay
	ServiceMinutes int
	Type           AppointmentType
	ChiefComplaint string
	Notes          string
}

func (r BookRequest) validate() error {
	if r.DoctorID == "" {
		return fmt.Errorf("%w: doctorId is required", ErrInvalidRequest)
	}
	if r.PatientID == "" {
		return fmt.Errorf("%w: patientId is required", ErrInvalidRequest)
	}
	if _, err := time.Parse(schedule.DateLayout, r.Date); err != nil {
		return fmt.Errorf("%w: bad appointmentDate %q", ErrInvalidRequest, r.Date)
	}
	if !r.Start.Valid() {
		return fmt.Errorf("%w: startTime fields out of range", ErrInvalidRequest)
	}
	if r.ServiceMinutes <= 0 {
		return fmt.Errorf("%w: serviceDurationMinutes must be positive", ErrInvalidRequest)
	}
	if _, err := ParseAppointmentType(string(r.Type)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// Service validates booking attempts and commits them to the registry.
// The availability policy here deliberately excludes the booked-registry
// rule: TryCommit is the authoritative, serialized registry check, so a
// slot that turns out to be taken surfaces as ErrSlotTaken (a lost
// race) rather than as plain unavailability.
type Service struct {
	registry Registry
	policy   *schedule.Policy
	locker   redisclient.Locker
	openAt   schedule.TimeOfDay
	closeAt  schedule.TimeOfDay
	now      func() time.Time
}

func NewService(registry Registry, policy *schedule.Policy, locker redisclient.Locker, openAt, closeAt schedule.TimeOfDay) *Service {
	return &Service{
		registry: registry,
		policy:   policy,
		locker:   locker,
		openAt:   openAt,
		closeAt:  closeAt,
		now:      time.Now,
	}
}

// WithClock overrides the service clock. Tests use it to pin "now".
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Book resolves the appointment window, re-checks availability against
// fresh state, and commits under a per-slot-key lock.
func (s *Service) Book(ctx context.Context, req BookRequest) (*Appointment, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	startMin := req.Start.MinuteOfDay()
	endMin := startMin + req.ServiceMinutes
	if startMin < s.openAt.MinuteOfDay() || endMin > s.closeAt.MinuteOfDay() {
		return nil, fmt.Errorf("%w: appointment must fall within %s-%s", ErrInvalidRequest, s.openAt, s.closeAt)
	}
	end := req.Start.AddMinutes(req.ServiceMinutes)

	now := s.now()
	candidate := schedule.Slot{
		DoctorID:  req.DoctorID,
		Date:      req.Date,
		StartTime: req.Start,
		EndTime:   end,
		Kind:      schedule.SlotRegular,
	}

	// The slot shown to the client may have gone stale between
	// generation and booking; staleness is rejected, never honored.
	ok, rule, err := s.policy.Explain(ctx, candidate, now)
	if err != nil {
		return nil, fmt.Errorf("re-check availability: %w", err)
	}
	if !ok {
		if rule == schedule.RulePastTime {
			return nil, ErrSlotExpired
		}
		return nil, ErrSlotUnavailable
	}

	key := SlotKey{DoctorID: req.DoctorID, Date: req.Date, Start: req.Start}
	appt := &Appointment{
		ID:             uuid.New(),
		PatientID:      req.PatientID,
		DoctorID:       req.DoctorID,
		FacilityID:     req.FacilityID,
		Date:           req.Date,
		StartTime:      req.Start,
		EndTime:        end,
		Type:           req.Type,
		Status:         StatusScheduled,
		ChiefComplaint: req.ChiefComplaint,
		Notes:          req.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	var committed *Appointment
	err = s.locker.WithSlotLock(ctx, key.String(), func(lockCtx context.Context) error {
		stored, err := s.registry.TryCommit(lockCtx, key, appt)
		if err != nil {
			return err
		}
		committed = stored
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotContended
		}
		if errors.Is(err, ErrSlotTaken) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("commit booking: %w", err)
	}

	log.Printf("booked slot doctor=%s date=%s start=%s appointment=%s",
		key.DoctorID, key.Date, key.Start, committed.ID)

	return committed, nil
}

// Get returns a committed appointment by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.registry.GetAppointment(ctx, id)
}

// Cancel releases the appointment's slot key and marks it CANCELLED.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.registry.CancelAppointment(ctx, id)
	if err != nil {
		return nil, err
	}

	log.Printf("cancelled appointment=%s doctor=%s date=%s start=%s",
		appt.ID, appt.DoctorID, appt.Date, appt.StartTime)

	return appt, nil
}

// PurgeBefore is called by the retention worker.
func (s *Service) PurgeBefore(ctx context.Context, cutoff string) (int, error) {
	return s.registry.PurgeBefore(ctx, cutoff)
}
