// Package bus moves messages between the b612 processes. Live peers are
// discovered through lockfiles and receive messages over a loopback webhook;
// messages with no live peer are parked in a durable store-backed queue.
package bus

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/hashstructure/v2"
)

type Kind string

// The message set is closed. Receivers reject anything else.
const (
	// KindUpdateNotifications asks the foreground process to refresh its
	// notification list from the store.
	KindUpdateNotifications Kind = "UPDATE_NOTIFICATIONS"
	// KindCompleteHabit marks a habit done, typically from a notification
	// action click.
	KindCompleteHabit Kind = "COMPLETE_HABIT"
	// KindScheduleNotification arms a reminder for a single habit.
	KindScheduleNotification Kind = "SCHEDULE_NOTIFICATION"
	// KindRescheduleNotifications rebuilds the whole reminder schedule
	// from the store.
	KindRescheduleNotifications Kind = "RESCHEDULE_NOTIFICATIONS"
)

type Message struct {
	Type       Kind            `json:"type"`
	HabitID    string          `json:"habit_id,omitempty"`
	HabitTitle string          `json:"habit_title,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
}

func (m Message) Validate() error {
	switch m.Type {
	case KindUpdateNotifications, KindRescheduleNotifications:
		return nil
	case KindCompleteHabit, KindScheduleNotification:
		if m.HabitID == "" {
			return fmt.Errorf("%s message requires a habit id", m.Type)
		}
		return nil
	default:
		return fmt.Errorf("unknown message type: %q", m.Type)
	}
}

// ContentHash returns a stable hash of the message content. Identical
// messages hash identically, which lets the durable queue drop duplicate
// enqueues.
func (m Message) ContentHash() (uint64, error) {
	hash, err := hashstructure.Hash(m, hashstructure.FormatV2, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to hash message: %w", err)
	}
	return hash, nil
}
