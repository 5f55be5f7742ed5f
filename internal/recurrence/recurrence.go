// Package recurrence computes whether a recurring item is active on a date
// and when its next occurrence falls. All functions are pure; both the
// foreground scheduler and the background agent share this logic so the two
// contexts can never disagree about a schedule.
package recurrence

import (
	"time"

	"github.com/b612app/b612/internal/constants"
	"github.com/b612app/b612/internal/models"
)

// IsActiveOn reports whether a frequency is active on the given date.
// Weekly frequencies are active on Mondays (see constants.WeeklyDay).
// Once frequencies have no standalone activity; callers with an anchor
// date should use EventOccursOn.
func IsActiveOn(f models.Frequency, date time.Time) bool {
	switch f.Type {
	case models.FrequencyDaily:
		return true
	case models.FrequencyWeekly:
		return date.Weekday() == constants.WeeklyDay
	case models.FrequencyCustom:
		return f.Contains(date.Weekday())
	default:
		return false
	}
}

// EventOccursOn reports whether an event occurs on the given date. Once
// events occur only on their anchor date; recurring events follow their
// frequency.
func EventOccursOn(ev models.Event, date time.Time) bool {
	if ev.Frequency.Type == models.FrequencyOnce {
		return ev.Date == date.Format(constants.DateFormat)
	}
	return IsActiveOn(ev.Frequency, date)
}

// NextOccurrence returns the soonest instant strictly after from at which
// the frequency is active and the local clock reads timeOfDay (HH:MM). A
// candidate exactly equal to from counts as already passed, so an on-time
// wake never re-fires for the same instant. The forward scan is bounded at
// constants.MaxScanDays; ok is false when no occurrence exists within the
// bound (notably a custom frequency with an empty weekday set).
func NextOccurrence(f models.Frequency, timeOfDay string, from time.Time) (time.Time, bool) {
	tod, err := time.Parse(constants.TimeFormat, timeOfDay)
	if err != nil {
		return time.Time{}, false
	}
	if f.Type == models.FrequencyCustom && len(f.CustomDays) == 0 {
		return time.Time{}, false
	}

	candidate := time.Date(from.Year(), from.Month(), from.Day(),
		tod.Hour(), tod.Minute(), 0, 0, from.Location())

	if IsActiveOn(f, candidate) && candidate.After(from) {
		return candidate, true
	}

	for i := 1; i <= constants.MaxScanDays; i++ {
		candidate = candidate.AddDate(0, 0, 1)
		if IsActiveOn(f, candidate) {
			return candidate, true
		}
	}

	return time.Time{}, false
}

// NextEventOccurrence returns the notification instant for an event: the
// event's date at timeOfDay if it is still ahead of from. Recurring events
// fall back to the frequency scan.
func NextEventOccurrence(ev models.Event, timeOfDay string, from time.Time) (time.Time, bool) {
	if ev.Frequency.Type != models.FrequencyOnce {
		return NextOccurrence(ev.Frequency, timeOfDay, from)
	}

	date, err := time.Parse(constants.DateFormat, ev.Date)
	if err != nil {
		return time.Time{}, false
	}
	tod, err := time.Parse(constants.TimeFormat, timeOfDay)
	if err != nil {
		return time.Time{}, false
	}

	at := time.Date(date.Year(), date.Month(), date.Day(),
		tod.Hour(), tod.Minute(), 0, 0, from.Location())
	if !at.After(from) {
		return time.Time{}, false
	}
	return at, true
}
