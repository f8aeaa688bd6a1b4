package schedule

import (
	"time"

	"github.com/google/uuid"
)

type SlotKind string

const (
	SlotRegular SlotKind = "REGULAR"
)

// Slot is a candidate bookable window for a doctor on a given date.
// Slots are projections: they are generated fresh per query and are
// never persisted. Only a successful booking leaves a durable trace,
// as an Appointment plus a registry entry keyed by the slot's
// (doctor, date, start time).
type Slot struct {
	ID        uuid.UUID
	DoctorID  string
	Date      string // DateLayout
	StartTime TimeOfDay
	EndTime   TimeOfDay
	Available bool
	Kind      SlotKind
	CreatedAt time.Time
	UpdatedAt time.Time
}
