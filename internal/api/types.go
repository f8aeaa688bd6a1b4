package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/carebridge/scheduling-service/internal/booking"
	"github.com/carebridge/scheduling-service/internal/schedule"
)

type SlotResponse struct {
	ID          uuid.UUID          `json:"id"`
	DoctorID    string             `json:"doctorId"`
	SlotDate    string             `json:"slotDate"`
	StartTime   schedule.TimeOfDay `json:"startTime"`
	EndTime     schedule.TimeOfDay `json:"endTime"`
	IsAvailable bool               `json:"isAvailable"`
	SlotType    string             `json:"slotType"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

func toSlotResponse(s schedule.Slot) SlotResponse {
	return SlotResponse{
		ID:          s.ID,
		DoctorID:    s.DoctorID,
		SlotDate:    s.Date,
		StartTime:   s.StartTime,
		EndTime:     s.EndTime,
		IsAvailable: s.Available,
		SlotType:    string(s.Kind),
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

type BookAppointmentRequest struct {
	DoctorID               string             `json:"doctorId"`
	PatientID              string             `json:"patientId"`
	FacilityID             *string            `json:"facilityId,omitempty"`
	AppointmentDate        string             `json:"appointmentDate"`
	StartTime              schedule.TimeOfDay `json:"startTime"`
	ServiceDurationMinutes int                `json:"serviceDurationMinutes"`
	AppointmentType        string             `json:"appointmentType"`
	ChiefComplaint         string             `json:"chiefComplaint"`
	Notes                  string             `json:"notes"`
}

type AppointmentResponse struct {
	ID              uuid.UUID          `json:"id"`
	PatientID       string             `json:"patientId"`
	DoctorID        string             `json:"doctorId"`
	FacilityID      *string            `json:"facilityId,omitempty"`
	AppointmentDate string             `json:"appointmentDate"`
	StartTime       schedule.TimeOfDay `json:"startTime"`
	EndTime         schedule.TimeOfDay `json:"endTime"`
	AppointmentType string             `json:"appointmentType"`
	Status          string             `json:"status"`
	ChiefComplaint  string             `json:"chiefComplaint,omitempty"`
	Notes           string             `json:"notes,omitempty"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

func toAppointmentResponse(a *booking.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:              a.ID,
		PatientID:       a.PatientID,
		DoctorID:        a.DoctorID,
		FacilityID:      a.FacilityID,
		AppointmentDate: a.Date,
		StartTime:       a.StartTime,
		EndTime:         a.EndTime,
		AppointmentType: string(a.Type),
		Status:          string(a.Status),
		ChiefComplaint:  a.ChiefComplaint,
		Notes:           a.Notes,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
