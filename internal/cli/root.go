package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/b612app/b612/internal/bus"
	"github.com/b612app/b612/internal/constants"
	"github.com/b612app/b612/internal/logger"
	"github.com/b612app/b612/internal/models"
	"github.com/b612app/b612/internal/storage"
)

type Context struct {
	Store storage.Provider
	Debug bool
}

// PingScheduler tells a running serve process to act on a store change.
// With no live process the message parks in the durable queue for the
// agent, so the change is never lost.
func (c *Context) PingScheduler(msg bus.Message) {
	outbox := bus.NewOutbox(c.Store, constants.AppLockfileName)
	if err := outbox.Deliver(msg); err != nil {
		logger.Warn("failed to deliver message", "type", msg.Type, "error", err)
	}
}

// ParseWeekdays parses a comma-separated list of weekdays. Accepts names,
// three-letter abbreviations, and numbers (0=Sunday, 6=Saturday).
func ParseWeekdays(s string) ([]time.Weekday, error) {
	parts := strings.Split(s, ",")
	var weekdays []time.Weekday

	dayMap := map[string]time.Weekday{
		"sun":       time.Sunday,
		"sunday":    time.Sunday,
		"mon":       time.Monday,
		"monday":    time.Monday,
		"tue":       time.Tuesday,
		"tuesday":   time.Tuesday,
		"wed":       time.Wednesday,
		"wednesday": time.Wednesday,
		"thu":       time.Thursday,
		"thursday":  time.Thursday,
		"fri":       time.Friday,
		"friday":    time.Friday,
		"sat":       time.Saturday,
		"saturday":  time.Saturday,
	}

	for _, part := range parts {
		part = strings.TrimSpace(strings.ToLower(part))
		if wd, ok := dayMap[part]; ok {
			weekdays = append(weekdays, wd)
			continue
		}
		num, err := strconv.Atoi(part)
		if err == nil && num >= 0 && num <= 6 {
			weekdays = append(weekdays, time.Weekday(num))
			continue
		}
		return nil, fmt.Errorf("invalid weekday: %s", part)
	}

	return weekdays, nil
}

// ParseFrequency builds a frequency from CLI flags.
func ParseFrequency(freq, days string) (models.Frequency, error) {
	f := models.Frequency{Type: models.FrequencyType(freq)}
	if f.Type == models.FrequencyCustom {
		if days == "" {
			return models.Frequency{}, fmt.Errorf("custom frequency requires --days")
		}
		weekdays, err := ParseWeekdays(days)
		if err != nil {
			return models.Frequency{}, err
		}
		f.CustomDays = weekdays
	} else if days != "" {
		return models.Frequency{}, fmt.Errorf("--days is only valid with --frequency custom")
	}

	if err := f.Validate(); err != nil {
		return models.Frequency{}, err
	}
	return f, nil
}

// FormatFrequency renders a frequency as a human-readable string.
func FormatFrequency(f models.Frequency) string {
	switch f.Type {
	case models.FrequencyOnce:
		return "once"
	case models.FrequencyDaily:
		return "daily"
	case models.FrequencyWeekly:
		return fmt.Sprintf("weekly on %s", constants.WeeklyDay.String()[:3])
	case models.FrequencyCustom:
		var days []string
		for _, wd := range f.CustomDays {
			days = append(days, wd.String()[:3])
		}
		return strings.Join(days, ",")
	default:
		return "unknown"
	}
}
