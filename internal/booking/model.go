package booking

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carebridge/scheduling-service/internal/schedule"
)

type AppointmentType string

const (
	TypeInPerson AppointmentType = "IN_PERSON"
	TypeVirtual  AppointmentType = "VIRTUAL"
	TypePhone    AppointmentType = "PHONE"
)

func ParseAppointmentType(s string) (AppointmentType, error) {
	switch AppointmentType(s) {
	case TypeInPerson, TypeVirtual, TypePhone:
		return AppointmentType(s), nil
	}
	return "", fmt.Errorf("unknown appointment type %q", s)
}

type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "SCHEDULED"
	StatusConfirmed AppointmentStatus = "CONFIRMED"
	StatusCancelled AppointmentStatus = "CANCELLED"
	StatusCompleted AppointmentStatus = "COMPLETED"
)

// Appointment is the durable outcome of a successful booking. It is
// created only through Service.Book, always with status SCHEDULED.
type Appointment struct {
	ID             uuid.UUID
	PatientID      string
	DoctorID       string
	FacilityID     *string
	Date           string // schedule.DateLayout
	StartTime      schedule.TimeOfDay
	EndTime        schedule.TimeOfDay
	Type           AppointmentType
	Status         AppointmentStatus
	ChiefComplaint string
	Notes          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SlotKey identifies a bookable window. The registry enforces at most
// one committed appointment per key.
type SlotKey struct {
	DoctorID string
	Date     string
	Start    schedule.TimeOfDay
}

// String renders the key for lock names and log lines.
func (k SlotKey) String() string {
	return k.DoctorID + "|" + k.Date + "|" + k.Start.String()
}
