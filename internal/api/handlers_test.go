package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/scheduling-service/internal/booking"
	"github.com/carebridge/scheduling-service/internal/observability/metrics"
	redisclient "github.com/carebridge/scheduling-service/internal/redis"
	"github.com/carebridge/scheduling-service/internal/schedule"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	registry := booking.NewMemoryRegistry()
	locker := redisclient.NewRedisSlotLocker(rdb, 5*time.Second)

	queryPolicy := schedule.NewPolicy(
		schedule.PastTimeRule{},
		schedule.PseudoAvailabilityRule{},
		schedule.BookedRule{Registry: registry},
	)
	bookPolicy := schedule.NewPolicy(
		schedule.PastTimeRule{},
		schedule.PseudoAvailabilityRule{},
	)

	svc := booking.NewService(registry, bookPolicy, locker, schedule.MustTimeOfDay(8, 0), schedule.MustTimeOfDay(17, 0))

	return NewRouter(RouterConfig{
		Generator: schedule.NewGenerator(schedule.DefaultGeneratorConfig()),
		Policy:    queryPolicy,
		Booking:   svc,
		Metrics:   metrics.NewSchedulingMetrics(prometheus.NewRegistry()),
		Redis:     rdb,
		Env:       "test",
		Version:   "test",
	})
}

func futureDate() string {
	return time.Now().AddDate(0, 0, 14).Format(schedule.DateLayout)
}

func TestListSlotsRequiresParams(t *testing.T) {
	router := testRouter(t)

	for name, target := range map[string]string{
		"missing doctor": "/slots?date=2025-01-20",
		"missing date":   "/slots?doctorId=doc-1",
		"bad date":       "/slots?doctorId=doc-1&date=January+20",
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)

		var errResp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp), name)
		assert.NotEmpty(t, errResp.Error, name)
	}
}

func TestListSlotsReturnsOrderedCandidates(t *testing.T) {
	router := testRouter(t)
	date := futureDate()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/slots?doctorId=doc-1&date=%s", date), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var slots []SlotResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &slots))
	require.NotEmpty(t, slots)

	for i, slot := range slots {
		assert.Equal(t, "doc-1", slot.DoctorID)
		assert.Equal(t, date, slot.SlotDate)
		assert.Equal(t, "REGULAR", slot.SlotType)
		assert.True(t, slot.StartTime.Before(slot.EndTime))
		if i > 0 {
			assert.True(t, slots[i-1].StartTime.Before(slot.StartTime),
				"slots must be chronological")
			assert.LessOrEqual(t, slots[i-1].EndTime.MinuteOfDay(), slot.StartTime.MinuteOfDay())
		}
	}
}

// On a future date the past-time rule is inactive, so availability is
// decided solely by the pseudo rule and the registry rule.
func TestListSlotsFutureDateAvailability(t *testing.T) {
	router := testRouter(t)
	pseudo := schedule.PseudoAvailabilityRule{}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/slots?doctorId=doc-1&date=%s", futureDate()), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var slots []SlotResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &slots))

	for _, slot := range slots {
		want, err := pseudo.Allows(context.Background(), schedule.Slot{
			DoctorID:  slot.DoctorID,
			Date:      slot.SlotDate,
			StartTime: slot.StartTime,
		}, time.Time{})
		require.NoError(t, err)
		assert.Equal(t, want, slot.IsAvailable,
			"slot %s availability must match the pseudo rule on an unbooked future date", slot.StartTime)
	}
}

func TestListSlotsTodayExcludesPastStarts(t *testing.T) {
	router := testRouter(t)
	now := time.Now()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/slots?doctorId=doc-1&date=%s", now.Format(schedule.DateLayout)), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var slots []SlotResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &slots))

	clock := schedule.TimeOfDayFromClock(now)
	for _, slot := range slots {
		if !slot.StartTime.After(clock) {
			assert.False(t, slot.IsAvailable,
				"slot starting %s is not after %s and must be unavailable", slot.StartTime, clock)
		}
	}
}

func bookBody(t *testing.T, date string, hour, minute, duration int) *bytes.Reader {
	t.Helper()
	body, err := json.Marshal(BookAppointmentRequest{
		DoctorID:               "doc-1",
		PatientID:              "patient-7",
		AppointmentDate:        date,
		StartTime:              schedule.MustTimeOfDay(hour, minute),
		ServiceDurationMinutes: duration,
		AppointmentType:        "IN_PERSON",
		ChiefComplaint:         "checkup",
	})
	require.NoError(t, err)
	return bytes.NewReader(body)
}

// Availability of 09:00/10:00 for doc-1 on 2025-01-20 is pinned by the
// pseudo-rule fingerprints; see the schedule package tests.
func TestBookAppointmentLifecycle(t *testing.T) {
	router := testRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/appointments", bookBody(t, "2025-01-20", 9, 0, 30))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var appt AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &appt))
	assert.Equal(t, schedule.MustTimeOfDay(9, 30), appt.EndTime)
	assert.Equal(t, "SCHEDULED", appt.Status)

	// Identical slot again: lost race, distinct error code.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/appointments", bookBody(t, "2025-01-20", 9, 0, 30))
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "slot_conflict", errResp.Error)

	// The booked window now shows unavailable on the query path.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/slots?doctorId=doc-1&date=2025-01-20", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var slots []SlotResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &slots))
	for _, slot := range slots {
		if slot.StartTime == schedule.MustTimeOfDay(9, 0) {
			assert.False(t, slot.IsAvailable)
		}
	}

	// Fetch and cancel through the API.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/appointments/"+appt.ID.String(), nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/appointments/"+appt.ID.String()+"/cancel", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var cancelled AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cancelled))
	assert.Equal(t, "CANCELLED", cancelled.Status)
}

func TestBookAppointmentErrorCodes(t *testing.T) {
	router := testRouter(t)

	post := func(body *bytes.Reader) (*httptest.ResponseRecorder, ErrorResponse) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/appointments", body)
		router.ServeHTTP(rec, req)
		var errResp ErrorResponse
		_ = json.Unmarshal(rec.Body.Bytes(), &errResp)
		return rec, errResp
	}

	// Unparseable body.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/appointments", bytes.NewReader([]byte("{"))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Pseudo-rule veto.
	rec2, errResp := post(bookBody(t, "2025-01-20", 10, 0, 30))
	assert.Equal(t, http.StatusConflict, rec2.Code)
	assert.Equal(t, "slot_unavailable", errResp.Error)

	// Past start on today's date.
	past := time.Now().Add(-2 * time.Hour)
	if past.Format(schedule.DateLayout) == time.Now().Format(schedule.DateLayout) {
		rec3, errResp := post(bookBody(t, past.Format(schedule.DateLayout), past.Hour(), 0, 30))
		if rec3.Code == http.StatusConflict {
			assert.Contains(t, []string{"slot_expired", "slot_unavailable"}, errResp.Error)
		}
	}

	// Missing fields.
	rec4, errResp := post(bookBody(t, "", 9, 0, 30))
	assert.Equal(t, http.StatusBadRequest, rec4.Code)
	assert.Equal(t, "bad_request", errResp.Error)

	// Unknown appointment id.
	rec5 := httptest.NewRecorder()
	router.ServeHTTP(rec5, httptest.NewRequest(http.MethodGet, "/appointments/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec5.Code)
}

func TestHealthEndpoints(t *testing.T) {
	router := testRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var ready ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ready))
	assert.Equal(t, "not_configured", ready.Dependencies["postgres"])
	assert.Equal(t, "ok", ready.Dependencies["redis"])
}
