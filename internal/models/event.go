package models

import (
	"fmt"
	"time"

	"github.com/b612app/b612/internal/constants"
)

// Event is a calendar-anchored occurrence. A recurring root event spawns
// dependent instance records that share its ParentEventID, each pinned to
// one concrete date and independently editable or deletable.
type Event struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	Date             string    `json:"date"`                 // YYYY-MM-DD
	StartTime        string    `json:"start_time"`           // HH:MM
	EndTime          string    `json:"end_time,omitempty"`   // HH:MM
	Category         string    `json:"category,omitempty"`
	Frequency        Frequency `json:"frequency"`
	HasNotification  bool      `json:"has_notification"`
	NotificationTime string    `json:"notification_time,omitempty"` // HH:MM
	IsRecurring      bool      `json:"is_recurring"`
	ParentEventID    string    `json:"parent_event_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

func (e *Event) Validate() error {
	if e.Title == "" {
		return fmt.Errorf("event title cannot be empty")
	}

	if _, err := time.Parse(constants.DateFormat, e.Date); err != nil {
		return fmt.Errorf("invalid date format (expected YYYY-MM-DD): %w", err)
	}
	if _, err := time.Parse(constants.TimeFormat, e.StartTime); err != nil {
		return fmt.Errorf("invalid start time format (expected HH:MM): %w", err)
	}
	if e.EndTime != "" {
		if _, err := time.Parse(constants.TimeFormat, e.EndTime); err != nil {
			return fmt.Errorf("invalid end time format (expected HH:MM): %w", err)
		}
	}

	if err := e.Frequency.Validate(); err != nil {
		return err
	}

	if e.HasNotification && e.NotificationTime != "" {
		if _, err := time.Parse(constants.TimeFormat, e.NotificationTime); err != nil {
			return fmt.Errorf("invalid notification time format (expected HH:MM): %w", err)
		}
	}

	return nil
}
