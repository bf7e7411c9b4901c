// Package schedule contains the pure time/date rule evaluation for reminders:
// parsing of stored feeding rules ("HH:MM" + day selector) into recurrence
// schedules, and computation of the next vaccination anniversary.
package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidSchedule marks malformed time, date or day-selector values.
// Callers skip the offending record and continue; it is never fatal.
var ErrInvalidSchedule = errors.New("invalid schedule")

// DaySelectorDaily is the literal stored for every-day feeding rules.
const DaySelectorDaily = "daily"

var weekdayCodes = map[string]struct{}{
	"mon": {}, "tue": {}, "wed": {}, "thu": {}, "fri": {}, "sat": {}, "sun": {},
}

var feedingParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ParseTimeOfDay parses a stored "HH:MM" value.
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: time of day %q is not in HH:MM form", ErrInvalidSchedule, s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: hour %q out of range [0,23]", ErrInvalidSchedule, parts[0])
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: minute %q out of range [0,59]", ErrInvalidSchedule, parts[1])
	}
	return hour, minute, nil
}

// ParseDaySelector validates and normalizes a stored day selector: either the
// literal "daily" or a non-empty comma-joined set of three-letter weekday
// codes. The normalized (lowercase, trimmed) form is returned.
func ParseDaySelector(s string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	if normalized == DaySelectorDaily {
		return DaySelectorDaily, nil
	}
	if normalized == "" {
		return "", fmt.Errorf("%w: empty day selector", ErrInvalidSchedule)
	}
	codes := strings.Split(normalized, ",")
	for i, code := range codes {
		code = strings.TrimSpace(code)
		if _, ok := weekdayCodes[code]; !ok {
			return "", fmt.Errorf("%w: unknown weekday code %q", ErrInvalidSchedule, code)
		}
		codes[i] = code
	}
	return strings.Join(codes, ","), nil
}

// FeedingRule builds the recurrence schedule for a feeding reminder.
// The returned schedule's Next(now) yields the next instant strictly after
// now that matches the rule (correct weekday set and time of day).
func FeedingRule(timeOfDay, daySelector string, loc *time.Location) (cron.Schedule, error) {
	hour, minute, err := ParseTimeOfDay(timeOfDay)
	if err != nil {
		return nil, err
	}
	days, err := ParseDaySelector(daySelector)
	if err != nil {
		return nil, err
	}

	dow := "*"
	if days != DaySelectorDaily {
		dow = days
	}
	spec := fmt.Sprintf("%d %d * * %s", minute, hour, dow)
	if loc != nil && loc != time.Local {
		spec = "CRON_TZ=" + loc.String() + " " + spec
	}

	rule, err := feedingParser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}
	return rule, nil
}

// Vaccination date formats accepted from the store.
const (
	dateLayoutDotted = "02.01.2006"
	dateLayoutISO    = "2006-01-02"
)

// ParseVaccinationDate parses a stored vaccination date in DD.MM.YYYY or
// ISO YYYY-MM-DD textual form.
func ParseVaccinationDate(s string) (time.Time, error) {
	trimmed := strings.TrimSpace(s)
	for _, layout := range []string{dateLayoutDotted, dateLayoutISO} {
		if t, err := time.ParseInLocation(layout, trimmed, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: cannot parse vaccination date %q", ErrInvalidSchedule, s)
}

// NextAnniversary returns the fire instant for the next yearly anniversary of
// last that is strictly after now's date, at fireHour:00 in now's location.
// Adding one year repeatedly keeps records many years stale correct: a date
// three years old still yields the nearest still-future anniversary.
func NextAnniversary(last, now time.Time, fireHour int) time.Time {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	next := time.Date(last.Year()+1, last.Month(), last.Day(), 0, 0, 0, 0, now.Location())
	for !next.After(today) {
		next = next.AddDate(1, 0, 0)
	}
	return time.Date(next.Year(), next.Month(), next.Day(), fireHour, 0, 0, 0, now.Location())
}
