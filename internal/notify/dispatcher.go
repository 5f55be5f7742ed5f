// Package notify turns due reminders into desktop notifications. Delivery
// is gated on an enabled flag mirroring the user's notification permission;
// reminders raised while disabled queue up and flush when permission
// arrives.
package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/b612app/b612/internal/constants"
	"github.com/b612app/b612/internal/logger"
	"github.com/b612app/b612/internal/models"
)

// Notification is one displayable reminder. Tag is stable per entity so a
// re-raised reminder replaces the previous one instead of stacking.
type Notification struct {
	Tag        string    `json:"tag"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Icon       string    `json:"icon,omitempty"`
	HabitID    string    `json:"habit_id,omitempty"`
	HabitTitle string    `json:"habit_title,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// SendFunc performs the actual display of a notification.
type SendFunc func(Notification) error

type Dispatcher struct {
	mu       sync.Mutex
	enabled  bool
	pending  []Notification
	deferred map[string]*time.Timer

	send      SendFunc
	now       func() time.Time
	afterFunc func(time.Duration, func()) *time.Timer
}

// NewDispatcher starts disabled; reminders queue until SetEnabled(true).
func NewDispatcher(send SendFunc) *Dispatcher {
	return &Dispatcher{
		deferred:  map[string]*time.Timer{},
		send:      send,
		now:       time.Now,
		afterFunc: time.AfterFunc,
	}
}

// HabitReminder builds the notification for a due habit.
func HabitReminder(habit models.Habit, at time.Time) Notification {
	return Notification{
		Tag:        "habit-" + habit.ID,
		Title:      "Time for: " + habit.Title,
		Body:       fmt.Sprintf("Don't forget your habit \"%s\"", habit.Title),
		Icon:       habit.Icon,
		HabitID:    habit.ID,
		HabitTitle: habit.Title,
		Timestamp:  at,
	}
}

// EventReminder builds the notification for an upcoming event.
func EventReminder(event models.Event, at time.Time) Notification {
	return Notification{
		Tag:       "event-" + event.ID,
		Title:     "Upcoming: " + event.Title,
		Body:      fmt.Sprintf("\"%s\" starts at %s", event.Title, event.StartTime),
		Timestamp: at,
	}
}

// Show displays a notification, or queues it while notifications are
// disabled. A queued notification with the same tag is replaced rather than
// duplicated.
func (d *Dispatcher) Show(n Notification) error {
	d.mu.Lock()
	if !d.enabled {
		for i, queued := range d.pending {
			if queued.Tag == n.Tag {
				d.pending[i] = n
				d.mu.Unlock()
				return nil
			}
		}
		d.pending = append(d.pending, n)
		d.mu.Unlock()
		logger.Debug("notifications disabled, queued reminder", "tag", n.Tag)
		return nil
	}
	d.mu.Unlock()

	return d.send(n)
}

// SetEnabled flips the permission gate. Enabling flushes the pending queue.
func (d *Dispatcher) SetEnabled(enabled bool) {
	d.mu.Lock()
	d.enabled = enabled
	d.mu.Unlock()

	if enabled {
		d.Flush()
	}
}

// Flush displays every queued notification and returns how many were shown.
// Failed sends are dropped rather than re-queued; the scheduler will raise
// them again on the next occurrence.
func (d *Dispatcher) Flush() int {
	d.mu.Lock()
	queued := d.pending
	d.pending = nil
	d.mu.Unlock()

	shown := 0
	for _, n := range queued {
		if err := d.send(n); err != nil {
			logger.Warn("failed to show queued notification", "tag", n.Tag, "error", err)
			continue
		}
		shown++
	}
	return shown
}

// Later postpones a habit reminder, re-raising it after the defer interval.
// A second deferral for the same habit restarts the clock.
func (d *Dispatcher) Later(habit models.Habit) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if timer, ok := d.deferred[habit.ID]; ok {
		timer.Stop()
	}
	d.deferred[habit.ID] = d.afterFunc(constants.DeferInterval, func() {
		d.mu.Lock()
		delete(d.deferred, habit.ID)
		d.mu.Unlock()

		if err := d.Show(HabitReminder(habit, d.now())); err != nil {
			logger.Error("failed to re-show deferred reminder", "habit", habit.Title, "error", err)
		}
	})
}

// Dismiss cancels a pending deferral for a habit, typically after the habit
// was completed.
func (d *Dispatcher) Dismiss(habitID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if timer, ok := d.deferred[habitID]; ok {
		timer.Stop()
		delete(d.deferred, habitID)
	}
}

// Close stops all deferral timers.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for id, timer := range d.deferred {
		timer.Stop()
		delete(d.deferred, id)
	}
}
