package schedule

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddMinutesWithinDay(t *testing.T) {
	start := MustTimeOfDay(9, 0)

	got := start.AddMinutes(30)
	assert.Equal(t, MustTimeOfDay(9, 30), got)

	got = start.AddMinutes(90)
	assert.Equal(t, MustTimeOfDay(10, 30), got)
}

func TestAddMinutesWrapsMidnight(t *testing.T) {
	late := MustTimeOfDay(23, 30)

	got := late.AddMinutes(45)
	assert.Equal(t, 0, got.Hour)
	assert.Equal(t, 15, got.Minute)

	// Wrapping backwards lands at the end of the previous loop.
	got = MustTimeOfDay(0, 10).AddMinutes(-30)
	assert.Equal(t, 23, got.Hour)
	assert.Equal(t, 40, got.Minute)
}

func TestBeforeAfter(t *testing.T) {
	a := MustTimeOfDay(9, 0)
	b := MustTimeOfDay(9, 30)

	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.False(t, a.After(a))
	assert.False(t, a.Before(a))

	// Sub-minute precision matters for the past-time rule.
	withSeconds := TimeOfDay{Hour: 9, Minute: 0, Second: 1}
	assert.True(t, a.Before(withSeconds))
}

func TestJSONShape(t *testing.T) {
	data, err := json.Marshal(MustTimeOfDay(9, 30))
	require.NoError(t, err)
	assert.JSONEq(t, `{"hour":9,"minute":30,"second":0,"nano":0}`, string(data))

	var decoded TimeOfDay
	require.NoError(t, json.Unmarshal([]byte(`{"hour":14,"minute":15}`), &decoded))
	assert.Equal(t, MustTimeOfDay(14, 15), decoded)
}

func TestParseTimeOfDay(t *testing.T) {
	got, err := ParseTimeOfDay("08:00")
	require.NoError(t, err)
	assert.Equal(t, MustTimeOfDay(8, 0), got)

	_, err = ParseTimeOfDay("25:00")
	assert.Error(t, err)

	_, err = ParseTimeOfDay("not a time")
	assert.Error(t, err)
}

func TestNewTimeOfDayRange(t *testing.T) {
	_, err := NewTimeOfDay(-1, 0)
	assert.Error(t, err)

	_, err = NewTimeOfDay(12, 60)
	assert.Error(t, err)
}

func TestValidRanges(t *testing.T) {
	assert.True(t, MustTimeOfDay(0, 0).Valid())
	assert.True(t, TimeOfDay{Hour: 23, Minute: 59, Second: 59}.Valid())

	for _, bad := range []TimeOfDay{
		{Hour: -6, Minute: 30},
		{Hour: 24},
		{Hour: 9, Minute: 75},
		{Hour: 9, Second: -1},
		{Hour: 9, Nano: int(time.Second)},
	} {
		assert.False(t, bad.Valid(), "%+v must be out of range", bad)
	}
}

func TestFromMinuteOfDay(t *testing.T) {
	assert.Equal(t, MustTimeOfDay(8, 0), FromMinuteOfDay(480))
	assert.Equal(t, MustTimeOfDay(0, 0), FromMinuteOfDay(1440))
	assert.Equal(t, MustTimeOfDay(23, 59), FromMinuteOfDay(-1))
}
