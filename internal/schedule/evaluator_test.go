package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		hour    int
		minute  int
		wantErr bool
	}{
		{name: "morning", input: "08:30", hour: 8, minute: 30},
		{name: "midnight", input: "00:00", hour: 0, minute: 0},
		{name: "last minute", input: "23:59", hour: 23, minute: 59},
		{name: "surrounding spaces", input: " 12:05 ", hour: 12, minute: 5},
		{name: "hour out of range", input: "24:00", wantErr: true},
		{name: "minute out of range", input: "10:60", wantErr: true},
		{name: "missing minute", input: "10", wantErr: true},
		{name: "garbage", input: "ab:cd", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hour, minute, err := ParseTimeOfDay(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidSchedule)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.hour, hour)
			assert.Equal(t, tt.minute, minute)
		})
	}
}

func TestParseDaySelector(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "daily literal", input: "daily", want: "daily"},
		{name: "daily uppercase", input: "DAILY", want: "daily"},
		{name: "single day", input: "mon", want: "mon"},
		{name: "several days", input: "mon,wed,fri", want: "mon,wed,fri"},
		{name: "spaces and case normalized", input: "Mon, FRI", want: "mon,fri"},
		{name: "unknown code", input: "mon,xyz", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "trailing comma", input: "mon,", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDaySelector(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidSchedule)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFeedingRuleDaily(t *testing.T) {
	rule, err := FeedingRule("08:30", "daily", nil)
	require.NoError(t, err)

	// Before today's slot: fires today.
	now := time.Date(2024, 6, 15, 8, 0, 0, 0, time.Local)
	next := rule.Next(now)
	assert.Equal(t, time.Date(2024, 6, 15, 8, 30, 0, 0, time.Local), next)
	assert.True(t, next.After(now))

	// After today's slot: fires tomorrow.
	now = time.Date(2024, 6, 15, 9, 0, 0, 0, time.Local)
	assert.Equal(t, time.Date(2024, 6, 16, 8, 30, 0, 0, time.Local), rule.Next(now))

	// Exactly at the slot: strictly after now, so the following day.
	now = time.Date(2024, 6, 15, 8, 30, 0, 0, time.Local)
	assert.Equal(t, time.Date(2024, 6, 16, 8, 30, 0, 0, time.Local), rule.Next(now))
}

func TestFeedingRuleWeekly(t *testing.T) {
	rule, err := FeedingRule("08:30", "mon,fri", nil)
	require.NoError(t, err)

	// 2024-06-12 is a Wednesday; the next matching day is Friday the 14th.
	now := time.Date(2024, 6, 12, 10, 0, 0, 0, time.Local)
	next := rule.Next(now)
	assert.Equal(t, time.Date(2024, 6, 14, 8, 30, 0, 0, time.Local), next)
	assert.Equal(t, time.Friday, next.Weekday())

	// From Friday after the slot the rule wraps to Monday the 17th.
	now = time.Date(2024, 6, 14, 9, 0, 0, 0, time.Local)
	next = rule.Next(now)
	assert.Equal(t, time.Date(2024, 6, 17, 8, 30, 0, 0, time.Local), next)
	assert.Equal(t, time.Monday, next.Weekday())
}

func TestFeedingRuleInvalid(t *testing.T) {
	_, err := FeedingRule("25:00", "daily", nil)
	require.ErrorIs(t, err, ErrInvalidSchedule)

	_, err = FeedingRule("08:30", "someday", nil)
	require.ErrorIs(t, err, ErrInvalidSchedule)
}

func TestParseVaccinationDate(t *testing.T) {
	got, err := ParseVaccinationDate("10.03.2023")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 3, 10, 0, 0, 0, 0, time.Local), got)

	got, err = ParseVaccinationDate("2023-03-10")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 3, 10, 0, 0, 0, 0, time.Local), got)

	_, err = ParseVaccinationDate("03/10/2023")
	require.ErrorIs(t, err, ErrInvalidSchedule)

	_, err = ParseVaccinationDate("")
	require.ErrorIs(t, err, ErrInvalidSchedule)
}

func TestNextAnniversary(t *testing.T) {
	tests := []struct {
		name string
		last time.Time
		now  time.Time
		want time.Time
	}{
		{
			// This year's anniversary already passed, so next year's is due.
			name: "passed anniversary rolls to next year",
			last: time.Date(2023, 3, 10, 0, 0, 0, 0, time.Local),
			now:  time.Date(2024, 6, 15, 12, 0, 0, 0, time.Local),
			want: time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local),
		},
		{
			name: "upcoming anniversary this year",
			last: time.Date(2023, 9, 1, 0, 0, 0, 0, time.Local),
			now:  time.Date(2024, 6, 15, 12, 0, 0, 0, time.Local),
			want: time.Date(2024, 9, 1, 9, 0, 0, 0, time.Local),
		},
		{
			// A record several years stale still yields the nearest future date.
			name: "record three years stale",
			last: time.Date(2021, 1, 5, 0, 0, 0, 0, time.Local),
			now:  time.Date(2024, 6, 15, 12, 0, 0, 0, time.Local),
			want: time.Date(2025, 1, 5, 9, 0, 0, 0, time.Local),
		},
		{
			// An anniversary falling on today is not future enough.
			name: "anniversary today rolls over",
			last: time.Date(2023, 3, 10, 0, 0, 0, 0, time.Local),
			now:  time.Date(2024, 3, 10, 8, 0, 0, 0, time.Local),
			want: time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextAnniversary(tt.last, tt.now, 9)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.After(tt.now))

			years := got.Year() - tt.last.Year()
			assert.GreaterOrEqual(t, years, 1)
			assert.Equal(t, tt.last.Month(), got.Month())
			assert.Equal(t, tt.last.Day(), got.Day())
		})
	}
}
