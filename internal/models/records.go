package models

import "time"

// Progress is one completion record for a habit on one calendar day.
// At most one progress record exists per (habit, day) pair.
type Progress struct {
	ID          string    `json:"id"`
	HabitID     string    `json:"habit_id"`
	CompletedAt time.Time `json:"completed_at"`
	Day         string    `json:"day"` // YYYY-MM-DD
}

// NotificationRecord is a persisted note that a reminder was scheduled for
// an entity. Deactivated records are kept for history.
type NotificationRecord struct {
	ID            string `json:"id"`
	Kind          string `json:"kind"` // "habit" or "event"
	EntityID      string `json:"entity_id"`
	ScheduledTime string `json:"scheduled_time"` // HH:MM
	Message       string `json:"message,omitempty"`
	Active        bool   `json:"active"`
}

// QueuedMessage is a durable inter-process message waiting for a live peer.
// Hash is a content hash used to drop duplicate enqueues.
type QueuedMessage struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Payload   []byte    `json:"payload"`
	Hash      uint64    `json:"hash"`
	CreatedAt time.Time `json:"created_at"`
}
