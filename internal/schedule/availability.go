package schedule

import (
	"context"
	"fmt"
	"time"
)

// Rule names reported by Policy.Explain.
const (
	RulePastTime = "past-time"
	RulePseudo   = "pseudo-availability"
	RuleBooked   = "booked"
)

// Rule is a pure predicate over a candidate slot. Returning false
// marks the candidate unavailable; it is never an error path.
type Rule interface {
	Name() string
	Allows(ctx context.Context, slot Slot, now time.Time) (bool, error)
}

// Policy combines rules with logical AND, short-circuiting on the
// first rule that vetoes the candidate.
type Policy struct {
	rules []Rule
}

func NewPolicy(rules ...Rule) *Policy {
	return &Policy{rules: rules}
}

// Explain checks the candidate and, when vetoed, names the rule that
// did it so callers can map the verdict to a rejection reason.
func (p *Policy) Explain(ctx context.Context, slot Slot, now time.Time) (bool, string, error) {
	for _, r := range p.rules {
		ok, err := r.Allows(ctx, slot, now)
		if err != nil {
			return false, "", fmt.Errorf("availability rule %s: %w", r.Name(), err)
		}
		if !ok {
			return false, r.Name(), nil
		}
	}
	return true, "", nil
}

// Annotate sets Available on each candidate in place.
func (p *Policy) Annotate(ctx context.Context, slots []Slot, now time.Time) error {
	for i := range slots {
		ok, _, err := p.Explain(ctx, slots[i], now)
		if err != nil {
			return err
		}
		slots[i].Available = ok
	}
	return nil
}

// PastTimeRule vetoes same-day candidates whose start time is not
// strictly after the current wall-clock time. Other dates pass.
type PastTimeRule struct{}

func (PastTimeRule) Name() string { return RulePastTime }

func (PastTimeRule) Allows(_ context.Context, slot Slot, now time.Time) (bool, error) {
	if slot.Date != now.Format(DateLayout) {
		return true, nil
	}
	return slot.StartTime.After(TimeOfDayFromClock(now)), nil
}

// doctorPrefixLen bounds how much of the doctor id feeds the
// pseudo-availability fingerprint.
const doctorPrefixLen = 4

// PseudoAvailabilityRule simulates partial unavailability without a
// real calendar store: a stable fingerprint of (date, start, doctor
// prefix) vetoes roughly a third of candidates. It is a simulation
// artifact, kept as its own named rule so a production deployment can
// swap in rules driven from actual scheduling data.
type PseudoAvailabilityRule struct{}

func (PseudoAvailabilityRule) Name() string { return RulePseudo }

func (PseudoAvailabilityRule) Allows(_ context.Context, slot Slot, _ time.Time) (bool, error) {
	prefix := slot.DoctorID
	if len(prefix) > doctorPrefixLen {
		prefix = prefix[:doctorPrefixLen]
	}

	sum := 0
	for _, b := range []byte(slot.Date + slot.StartTime.String() + prefix) {
		sum += int(b)
	}
	return sum%3 != 0, nil
}

// BookingReader is the read side of the booking registry. Reads may
// observe an eventually-consistent snapshot; the authoritative check
// happens at commit time.
type BookingReader interface {
	IsBooked(ctx context.Context, doctorID, date string, start TimeOfDay) (bool, error)
}

// BookedRule vetoes candidates whose slot key already has a committed
// booking.
type BookedRule struct {
	Registry BookingReader
}

func (BookedRule) Name() string { return RuleBooked }

func (r BookedRule) Allows(ctx context.Context, slot Slot, _ time.Time) (bool, error) {
	booked, err := r.Registry.IsBooked(ctx, slot.DoctorID, slot.Date, slot.StartTime)
	if err != nil {
		return false, err
	}
	return !booked, nil
}
