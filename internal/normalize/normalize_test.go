package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencurb/curb-cli/internal/model"
)

func TestParseDays(t *testing.T) {
	tests := []struct {
		raw  string
		want model.DaySet
	}{
		{"", model.Daily},
		{"daily", model.Daily},
		{"Every Day", model.Daily},
		{"Mon-Fri", model.Days(time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday)},
		{"M-F", model.Days(time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday)},
		{"Mon,Wed,Fri", model.Days(time.Monday, time.Wednesday, time.Friday)},
		{"Tu/Th", model.Days(time.Tuesday, time.Thursday)},
		{"Sat-Sun", model.Days(time.Saturday, time.Sunday)},
		// Wraparound range.
		{"Fri-Mon", model.Days(time.Friday, time.Saturday, time.Sunday, time.Monday)},
		{"saturday", model.Days(time.Saturday)},
	}
	for _, tt := range tests {
		got, err := ParseDays(tt.raw)
		require.NoError(t, err, "raw=%q", tt.raw)
		assert.Equal(t, tt.want, got, "raw=%q", tt.raw)
	}
}

func TestParseDaysInvalid(t *testing.T) {
	for _, raw := range []string{"weekdays-ish", "xyz", "mon-xyz"} {
		_, err := ParseDays(raw)
		assert.Error(t, err, "raw=%q", raw)
	}
}

func TestParseHours(t *testing.T) {
	tests := []struct {
		raw        string
		start, end int
	}{
		{"7am-9pm", 7 * 60, 21 * 60},
		{"7:30am-6pm", 7*60 + 30, 18 * 60},
		{"0700-2100", 7 * 60, 21 * 60},
		{"7 AM to 6 PM", 7 * 60, 18 * 60},
		{"12am-12pm", 0, 12 * 60},
		{"9-11am", 9 * 60, 11 * 60}, // bare start hour
	}
	for _, tt := range tests {
		ws, err := ParseHours(tt.raw)
		require.NoError(t, err, "raw=%q", tt.raw)
		require.Len(t, ws, 1, "raw=%q", tt.raw)
		assert.Equal(t, tt.start, ws[0].StartMinute, "raw=%q", tt.raw)
		assert.Equal(t, tt.end, ws[0].EndMinute, "raw=%q", tt.raw)
	}
}

func TestParseHoursAllDay(t *testing.T) {
	for _, raw := range []string{"", "24/7", "all day", "Anytime"} {
		ws, err := ParseHours(raw)
		require.NoError(t, err, "raw=%q", raw)
		assert.Nil(t, ws, "raw=%q", raw)
	}
}

func TestParseHoursInvalid(t *testing.T) {
	for _, raw := range []string{"sometimes", "7am", "99am-5pm"} {
		_, err := ParseHours(raw)
		assert.Error(t, err, "raw=%q", raw)
	}
}

func TestParseHoursOvernightSplits(t *testing.T) {
	// An overnight span becomes an evening window and a morning window.
	ws, err := ParseHours("10pm-6am")
	require.NoError(t, err)
	require.Len(t, ws, 2)
	assert.Equal(t, 22*60, ws[0].StartMinute)
	assert.Equal(t, 24*60, ws[0].EndMinute)
	assert.Equal(t, 0, ws[1].StartMinute)
	assert.Equal(t, 6*60, ws[1].EndMinute)

	// A span ending exactly at midnight needs no morning half.
	ws, err = ParseHours("10pm-12am")
	require.NoError(t, err)
	require.Len(t, ws, 1)
	assert.Equal(t, 22*60, ws[0].StartMinute)
	assert.Equal(t, 24*60, ws[0].EndMinute)

	// Identical endpoints describe nothing.
	_, err = ParseHours("6am-6am")
	assert.Error(t, err)
}

func TestClassifyKind(t *testing.T) {
	tests := []struct {
		desc string
		want model.RuleKind
	}{
		{"TOW-AWAY NO STOPPING", model.KindTowAway},
		{"Street Sweeping", model.KindSweeping},
		{"No parking any time", model.KindNoParking},
		{"Residential Parking Permit Area Q", model.KindRPPZone},
		{"RPP Area C", model.KindRPPZone},
		{"Metered parking", model.KindMeter},
		{"2 hour parking", model.KindTimeLimit},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyKind(tt.desc, false), "desc=%q", tt.desc)
	}

	// Precedence: tow-away wins over the no-parking phrase inside it.
	assert.Equal(t, model.KindTowAway, ClassifyKind("no parking tow away zone", false))

	// Fallbacks for unmatched descriptions.
	assert.Equal(t, model.KindTimeLimit, ClassifyKind("posted restriction", true))
	assert.Equal(t, model.KindNoParking, ClassifyKind("posted restriction", false))
}
