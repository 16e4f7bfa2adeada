package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(t *testing.T, value string) *time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", value)
	require.NoError(t, err)
	return &parsed
}

func instant(t *testing.T, value string, loc *time.Location) time.Time {
	t.Helper()
	parsed, err := time.ParseInLocation("2006-01-02 15:04", value, loc)
	require.NoError(t, err)
	return parsed
}

func TestDailyMatch(t *testing.T) {
	rule := New(Config{
		Days:     []string{"daily"},
		Times:    map[string]interface{}{"daily": []interface{}{"09:00"}},
		Timezone: "UTC",
	})

	assert.True(t, rule.IsDue(instant(t, "2025-01-06 09:00", time.UTC)))
	assert.False(t, rule.IsDue(instant(t, "2025-01-06 09:01", time.UTC)))
	assert.False(t, rule.IsDue(instant(t, "2025-01-06 08:59", time.UTC)))
}

func TestWeekdayMatch(t *testing.T) {
	rule := New(Config{
		Days:     []string{"monday"},
		Times:    map[string]interface{}{"monday": []interface{}{"10:30"}},
		Timezone: "UTC",
	})

	// 2025-01-06 is a Monday, 2025-01-07 a Tuesday.
	assert.True(t, rule.IsDue(instant(t, "2025-01-06 10:30", time.UTC)))
	assert.False(t, rule.IsDue(instant(t, "2025-01-07 10:30", time.UTC)))
}

func TestDailyTakesPrecedenceOverWeekday(t *testing.T) {
	rule := New(Config{
		Days: []string{"daily", "monday"},
		Times: map[string]interface{}{
			"daily":  []interface{}{"09:00"},
			"monday": []interface{}{"10:00"},
		},
		Timezone: "UTC",
	})

	// Monday 10:00 only matches the weekday list, but daily governs.
	assert.False(t, rule.IsDue(instant(t, "2025-01-06 10:00", time.UTC)))
	assert.True(t, rule.IsDue(instant(t, "2025-01-06 09:00", time.UTC)))
}

func TestSingleDateMatch(t *testing.T) {
	rule := New(Config{
		Days:       []string{"single_date"},
		Times:      map[string]interface{}{"single_date": []interface{}{"15:00"}},
		SingleDate: date(t, "2025-03-15"),
		Timezone:   "UTC",
	})

	assert.True(t, rule.IsDue(instant(t, "2025-03-15 15:00", time.UTC)))
	assert.False(t, rule.IsDue(instant(t, "2025-03-16 15:00", time.UTC)))
	assert.False(t, rule.IsDue(instant(t, "2025-03-15 15:01", time.UTC)))
}

func TestSingleDateWithoutDateNeverMatches(t *testing.T) {
	rule := New(Config{
		Days:     []string{"single_date"},
		Times:    map[string]interface{}{"single_date": []interface{}{"15:00"}},
		Timezone: "UTC",
	})

	assert.False(t, rule.IsDue(instant(t, "2025-03-15 15:00", time.UTC)))
}

func TestSingleDateTakesPrecedenceOverCustomRange(t *testing.T) {
	rule := New(Config{
		Days: []string{"single_date", "custom_date"},
		Times: map[string]interface{}{
			"single_date": []interface{}{"08:00"},
			"custom_date": []interface{}{"09:00"},
		},
		SingleDate:     date(t, "2025-01-20"),
		CustomDateFrom: date(t, "2025-01-01"),
		CustomDateTo:   date(t, "2025-01-31"),
		Timezone:       "UTC",
	})

	// Inside the custom range, but single_date governs.
	assert.False(t, rule.IsDue(instant(t, "2025-01-15 09:00", time.UTC)))
	assert.True(t, rule.IsDue(instant(t, "2025-01-20 08:00", time.UTC)))
}

func TestCustomDateRange(t *testing.T) {
	rule := New(Config{
		Days:           []string{"custom_date"},
		Times:          map[string]interface{}{"custom_date": []interface{}{"14:30"}},
		CustomDateFrom: date(t, "2025-01-10"),
		CustomDateTo:   date(t, "2025-01-12"),
		Timezone:       "UTC",
	})

	assert.True(t, rule.IsDue(instant(t, "2025-01-11 14:30", time.UTC)))
	// Boundary dates are inclusive.
	assert.True(t, rule.IsDue(instant(t, "2025-01-10 14:30", time.UTC)))
	assert.True(t, rule.IsDue(instant(t, "2025-01-12 14:30", time.UTC)))
	// Outside the range or off the minute.
	assert.False(t, rule.IsDue(instant(t, "2025-01-13 14:30", time.UTC)))
	assert.False(t, rule.IsDue(instant(t, "2025-01-09 14:30", time.UTC)))
	assert.False(t, rule.IsDue(instant(t, "2025-01-11 14:31", time.UTC)))
}

func TestCustomDateMissingBoundsNeverMatches(t *testing.T) {
	rule := New(Config{
		Days:           []string{"custom_date"},
		Times:          map[string]interface{}{"custom_date": []interface{}{"14:30"}},
		CustomDateFrom: date(t, "2025-01-10"),
		Timezone:       "UTC",
	})

	assert.False(t, rule.IsDue(instant(t, "2025-01-11 14:30", time.UTC)))
}

func TestBackToBackSlotsAcrossMidnight(t *testing.T) {
	rule := New(Config{
		Days:     []string{"daily"},
		Times:    map[string]interface{}{"daily": []interface{}{"23:59", "00:00"}},
		Timezone: "UTC",
	})

	assert.True(t, rule.IsDue(instant(t, "2025-01-06 23:59", time.UTC)))
	assert.True(t, rule.IsDue(instant(t, "2025-01-07 00:00", time.UTC)))
}

func TestMultipleEqualTimesProduceMultipleSlots(t *testing.T) {
	rule := New(Config{
		Days:     []string{"daily"},
		Times:    map[string]interface{}{"daily": []interface{}{"09:00", "09:00"}},
		Timezone: "UTC",
	})

	slots := rule.MatchingSlots(instant(t, "2025-01-06 09:00", time.UTC))
	assert.Len(t, slots, 2)
}

func TestMalformedPayloadFailsSoft(t *testing.T) {
	cases := map[string]Config{
		"unknown day keys": {
			Days:  []string{"someday", "frday", ""},
			Times: map[string]interface{}{"someday": []interface{}{"09:00"}},
		},
		"unparseable times": {
			Days:  []string{"daily"},
			Times: map[string]interface{}{"daily": []interface{}{"25:99", "soon", ""}},
		},
		"times wrong type": {
			Days:  []string{"daily"},
			Times: map[string]interface{}{"daily": 42},
		},
		"nil times": {
			Days: []string{"daily"},
		},
		"no days": {
			Times: map[string]interface{}{"daily": []interface{}{"09:00"}},
		},
	}

	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			rule := New(cfg)
			for hour := 0; hour < 24; hour++ {
				now := time.Date(2025, 1, 6, hour, 0, 0, 0, time.UTC)
				assert.False(t, rule.IsDue(now))
			}
		})
	}
}

func TestTimesAcceptStringAndTypedSlices(t *testing.T) {
	ruleFromString := New(Config{
		Days:     []string{"daily"},
		Times:    map[string]interface{}{"daily": "9:00"},
		Timezone: "UTC",
	})
	assert.True(t, ruleFromString.IsDue(instant(t, "2025-01-06 09:00", time.UTC)))

	ruleFromSlice := New(Config{
		Days:     []string{"daily"},
		Times:    map[string]interface{}{"daily": []string{"09:00"}},
		Timezone: "UTC",
	})
	assert.True(t, ruleFromSlice.IsDue(instant(t, "2025-01-06 09:00", time.UTC)))
}

func TestTimezoneEvaluation(t *testing.T) {
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	rule := New(Config{
		Days:     []string{"daily"},
		Times:    map[string]interface{}{"daily": []interface{}{"09:00"}},
		Timezone: "Asia/Kolkata",
	})

	// 03:30 UTC is 09:00 IST.
	utcInstant := instant(t, "2025-01-06 03:30", time.UTC)
	assert.True(t, rule.IsDue(utcInstant))
	assert.False(t, rule.IsDue(instant(t, "2025-01-06 09:00", time.UTC)))
	assert.Equal(t, kolkata.String(), rule.Location().String())
}

func TestInvalidTimezoneFallsBackToDefault(t *testing.T) {
	rule := New(Config{
		Days:     []string{"daily"},
		Times:    map[string]interface{}{"daily": []interface{}{"09:00"}},
		Timezone: "Not/AZone",
	})

	assert.Equal(t, DefaultTimezone, rule.Location().String())
}

func TestWeekdayEvaluatedInScheduleZone(t *testing.T) {
	rule := New(Config{
		Days:     []string{"tuesday"},
		Times:    map[string]interface{}{"tuesday": []interface{}{"00:30"}},
		Timezone: "Asia/Kolkata",
	})

	// Monday 19:00 UTC is already Tuesday 00:30 in Kolkata.
	assert.True(t, rule.IsDue(instant(t, "2025-01-06 19:00", time.UTC)))
}
