// Package recurrence computes the next run instant for backup schedules.
// The current time is always injected by the caller, never read from the
// system clock, so results are deterministic.
package recurrence

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/edvin/wpmanager/internal/model"
)

// NextRun returns the next instant strictly after now at which a schedule
// with the given parameters is due. timeOfDay is "HH:MM" in now's location.
//
// For monthly schedules with a day_of_month that does not exist in the
// target month (e.g. 31 in February), calendar normalization shifts the
// result into the following month. This is intended behavior, not corrected.
func NextRun(frequency, timeOfDay string, dayOfWeek, dayOfMonth *int, now time.Time) (time.Time, error) {
	hour, minute, err := ParseTimeOfDay(timeOfDay)
	if err != nil {
		return time.Time{}, err
	}

	candidate := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !candidate.After(now) {
		candidate = candidate.AddDate(0, 0, 1)
	}

	switch frequency {
	case model.FrequencyDaily:
		// Nothing further to adjust.
	case model.FrequencyWeekly:
		if dayOfWeek == nil {
			return time.Time{}, fmt.Errorf("weekly schedule requires day_of_week")
		}
		if *dayOfWeek < 0 || *dayOfWeek > 6 {
			return time.Time{}, fmt.Errorf("day_of_week %d out of range 0-6", *dayOfWeek)
		}
		for i := 0; i < 7 && int(candidate.Weekday()) != *dayOfWeek; i++ {
			candidate = candidate.AddDate(0, 0, 1)
		}
	case model.FrequencyMonthly:
		if dayOfMonth == nil {
			return time.Time{}, fmt.Errorf("monthly schedule requires day_of_month")
		}
		if *dayOfMonth < 1 || *dayOfMonth > 31 {
			return time.Time{}, fmt.Errorf("day_of_month %d out of range 1-31", *dayOfMonth)
		}
		candidate = time.Date(candidate.Year(), candidate.Month(), *dayOfMonth, hour, minute, 0, 0, now.Location())
		if !candidate.After(now) {
			candidate = time.Date(candidate.Year(), candidate.Month()+1, *dayOfMonth, hour, minute, 0, 0, now.Location())
		}
	default:
		return time.Time{}, fmt.Errorf("unknown frequency %q", frequency)
	}

	return candidate, nil
}

// ParseTimeOfDay parses a strict "HH:MM" 24-hour string.
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("time_of_day %q: expected HH:MM", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("time_of_day %q: invalid hour", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("time_of_day %q: invalid minute", s)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("time_of_day %q out of range", s)
	}
	return hour, minute, nil
}
