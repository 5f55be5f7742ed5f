package models

import (
	"fmt"
	"time"

	"github.com/b612app/b612/internal/constants"
)

// Habit is a user-defined recurring action with a streak and an optional
// daily reminder. Habits are soft-deleted: Active flips to false and the
// record stays in the store.
type Habit struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	Icon             string     `json:"icon,omitempty"`
	Frequency        Frequency  `json:"frequency"`
	Streak           int        `json:"streak"`
	LastCompleted    *time.Time `json:"last_completed,omitempty"`
	HasNotification  bool       `json:"has_notification"`
	NotificationTime string     `json:"notification_time,omitempty"` // HH:MM
	Active           bool       `json:"active"`
	CreatedAt        time.Time  `json:"created_at"`
}

func (h *Habit) Validate() error {
	if h.Title == "" {
		return fmt.Errorf("habit title cannot be empty")
	}

	if h.Frequency.Type == FrequencyOnce {
		return fmt.Errorf("habits cannot use the once frequency")
	}
	if err := h.Frequency.Validate(); err != nil {
		return err
	}

	if h.HasNotification {
		if h.NotificationTime == "" {
			return fmt.Errorf("notification time cannot be empty when notifications are enabled")
		}
		if _, err := time.Parse(constants.TimeFormat, h.NotificationTime); err != nil {
			return fmt.Errorf("invalid notification time format (expected HH:MM): %w", err)
		}
	}

	return nil
}

// CompletedOn reports whether the habit was last completed on the given day
// (YYYY-MM-DD in the local clock).
func (h *Habit) CompletedOn(day string) bool {
	if h.LastCompleted == nil {
		return false
	}
	return h.LastCompleted.Format(constants.DateFormat) == day
}
