package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/carebridge/scheduling-service/internal/booking"
	"github.com/carebridge/scheduling-service/internal/observability/metrics"
	redisclient "github.com/carebridge/scheduling-service/internal/redis"
	"github.com/carebridge/scheduling-service/internal/schedule"
)

func listSlotsHandler(gen *schedule.Generator, policy *schedule.Policy, m *metrics.SchedulingMetrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID := r.URL.Query().Get("doctorId")
		if doctorID == "" {
			writeError(w, http.StatusBadRequest, "missing_doctor_id", "doctorId query parameter is required")
			return
		}

		dateStr := r.URL.Query().Get("date")
		if dateStr == "" {
			writeError(w, http.StatusBadRequest, "missing_date", "date query parameter is required")
			return
		}
		if _, err := time.Parse(schedule.DateLayout, dateStr); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be an ISO calendar date (YYYY-MM-DD)")
			return
		}

		slots := gen.Generate(doctorID, dateStr)
		if err := policy.Annotate(r.Context(), slots, time.Now()); err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		m.ObserveGeneration(len(slots))

		resp := make([]SlotResponse, 0, len(slots))
		for _, s := range slots {
			resp = append(resp, toSlotResponse(s))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func bookAppointmentHandler(svc *booking.Service, m *metrics.SchedulingMetrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			m.ObserveBooking(metrics.OutcomeBadRequest)
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.Book(r.Context(), booking.BookRequest{
			DoctorID:       req.DoctorID,
			PatientID:      req.PatientID,
			FacilityID:     req.FacilityID,
			Date:           req.AppointmentDate,
			Start:          req.StartTime,
			ServiceMinutes: req.ServiceDurationMinutes,
			Type:           booking.AppointmentType(req.AppointmentType),
			ChiefComplaint: req.ChiefComplaint,
			Notes:          req.Notes,
		})
		if err != nil {
			handleBookError(w, m, err)
			return
		}

		m.ObserveBooking(metrics.OutcomeBooked)
		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func getAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := svc.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, booking.ErrAppointmentNotFound) {
				writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func cancelAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := svc.Cancel(r.Context(), id)
		if err != nil {
			switch {
			case errors.Is(err, booking.ErrAppointmentNotFound):
				writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
			case errors.Is(err, booking.ErrInvalidTransition):
				writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
			default:
				writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			}
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

// handleBookError maps the booking outcomes to distinct codes so the
// client can choose the right remediation: re-query slots for expired
// or unavailable windows, retry with fresh slots after a lost race.
func handleBookError(w http.ResponseWriter, m *metrics.SchedulingMetrics, err error) {
	switch {
	case errors.Is(err, booking.ErrInvalidRequest):
		m.ObserveBooking(metrics.OutcomeBadRequest)
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, booking.ErrSlotExpired):
		m.ObserveBooking(metrics.OutcomeExpired)
		writeError(w, http.StatusConflict, "slot_expired", err.Error())
	case errors.Is(err, booking.ErrSlotUnavailable):
		m.ObserveBooking(metrics.OutcomeUnavailable)
		writeError(w, http.StatusConflict, "slot_unavailable", err.Error())
	case errors.Is(err, booking.ErrSlotTaken),
		errors.Is(err, booking.ErrSlotContended),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		m.ObserveBooking(metrics.OutcomeConflict)
		writeError(w, http.StatusConflict, "slot_conflict", "slot was booked by another request, pick a fresh slot")
	default:
		m.ObserveBooking(metrics.OutcomeError)
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
