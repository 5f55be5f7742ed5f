package models

import (
	"fmt"
	"time"
)

type FrequencyType string

const (
	// FrequencyOnce is only valid for events; a once item occurs on its
	// anchor date and never again.
	FrequencyOnce   FrequencyType = "once"
	FrequencyDaily  FrequencyType = "daily"
	FrequencyWeekly FrequencyType = "weekly"
	FrequencyCustom FrequencyType = "custom"
)

// Frequency describes how often a habit or event recurs. Custom frequencies
// carry an explicit weekday set (Sunday = 0).
type Frequency struct {
	Type       FrequencyType  `json:"type"`
	CustomDays []time.Weekday `json:"custom_days,omitempty"`
}

func (f Frequency) Validate() error {
	switch f.Type {
	case FrequencyOnce, FrequencyDaily, FrequencyWeekly:
	case FrequencyCustom:
		if len(f.CustomDays) == 0 {
			return fmt.Errorf("custom frequency requires at least one weekday")
		}
	default:
		return fmt.Errorf("invalid frequency type: %q", f.Type)
	}

	seen := map[time.Weekday]bool{}
	for _, wd := range f.CustomDays {
		if wd < time.Sunday || wd > time.Saturday {
			return fmt.Errorf("invalid weekday: %d", wd)
		}
		if seen[wd] {
			return fmt.Errorf("duplicate weekday: %s", wd)
		}
		seen[wd] = true
	}

	return nil
}

// Contains reports whether the custom weekday set includes wd.
func (f Frequency) Contains(wd time.Weekday) bool {
	for _, d := range f.CustomDays {
		if d == wd {
			return true
		}
	}
	return false
}
