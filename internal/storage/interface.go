package storage

import (
	"errors"

	"github.com/b612app/b612/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Counts holds per-table record counts, used by backup info reporting.
type Counts struct {
	Habits        int `json:"habits"`
	Events        int `json:"events"`
	Progress      int `json:"progress"`
	Notifications int `json:"notifications"`
}

// Provider is the record store consumed by the schedulers, the services and
// the backup layer. All implementations are safe for use from a single
// process; cross-process coordination happens through the message queue.
type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Habits. Deactivate is the only delete path; habit records are never
	// removed by normal flows.
	AddHabit(models.Habit) error
	GetHabit(id string) (models.Habit, error)
	GetHabitByTitle(title string) (models.Habit, error)
	GetAllHabits(includeInactive bool) ([]models.Habit, error)
	GetHabitsWithNotifications() ([]models.Habit, error)
	UpdateHabit(models.Habit) error
	DeactivateHabit(id string) error

	// Events
	AddEvent(models.Event) error
	AddEvents([]models.Event) error
	GetEvent(id string) (models.Event, error)
	GetAllEvents() ([]models.Event, error)
	GetEventByTitleAndDate(title, date string) (models.Event, error)
	GetEventsByDateRange(start, end string) ([]models.Event, error)
	GetEventInstances(parentID string) ([]models.Event, error)
	UpdateEvent(models.Event) error
	DeleteEvent(id string) error

	// Progress
	AddProgress(models.Progress) error
	GetProgressForDay(habitID, day string) (models.Progress, error)
	GetProgressForHabit(habitID string) ([]models.Progress, error)
	GetAllProgress() ([]models.Progress, error)

	// Notification records
	AddNotificationRecord(models.NotificationRecord) error
	GetActiveNotificationRecords() ([]models.NotificationRecord, error)
	DeactivateNotificationRecord(id string) error

	// Durable message queue
	EnqueueMessage(models.QueuedMessage) error
	PendingMessages() ([]models.QueuedMessage, error)
	DeleteMessage(id string) error

	// Utils
	Counts() (Counts, error)
	GetConfigPath() string
}
