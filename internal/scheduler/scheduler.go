// Package scheduler owns the reminder timers. One timer exists per
// scheduled item; arming replaces any previous timer for the same item, so
// reminders never stack. Armed delays are capped, so a long wait runs as a
// chain of short wakes that each re-check the wall clock before firing or
// re-arming. Host timers drift across suspend and resume; no single long
// timer is trusted.
package scheduler

import (
	"strings"
	"sync"
	"time"

	"github.com/b612app/b612/internal/constants"
	"github.com/b612app/b612/internal/logger"
	"github.com/b612app/b612/internal/models"
	"github.com/b612app/b612/internal/notify"
	"github.com/b612app/b612/internal/recurrence"
)

// HabitSource supplies the habits that want reminders. The scheduler
// re-reads it on every fire so a habit edited or completed since arming is
// seen before the notification shows.
type HabitSource interface {
	GetHabitsWithNotifications() ([]models.Habit, error)
}

// Presenter displays a due reminder.
type Presenter interface {
	Show(n notify.Notification) error
}

type Scheduler struct {
	mu     sync.Mutex
	timers map[string]*time.Timer

	source    HabitSource
	presenter Presenter

	// injectable for tests
	now       func() time.Time
	afterFunc func(time.Duration, func()) *time.Timer
}

func New(source HabitSource, presenter Presenter) *Scheduler {
	return &Scheduler{
		timers:    map[string]*time.Timer{},
		source:    source,
		presenter: presenter,
		now:       time.Now,
		afterFunc: time.AfterFunc,
	}
}

// Schedule arms the reminder timer for a habit, replacing any existing one.
// Returns false when the habit has no upcoming occurrence.
func (s *Scheduler) Schedule(habit models.Habit) bool {
	if !habit.HasNotification || !habit.Active {
		s.Cancel(habit.ID)
		return false
	}

	target, ok := recurrence.NextOccurrence(habit.Frequency, habit.NotificationTime, s.now())
	if !ok {
		s.Cancel(habit.ID)
		return false
	}

	logger.Debug("scheduling reminder", "habit", habit.Title, "at", target)
	s.arm(habit.ID, target, func() { s.wakeHabit(habit.ID, target) })
	return true
}

// ScheduleEvent arms a one-shot reminder for an event. The notification time
// falls back to the event's start time.
func (s *Scheduler) ScheduleEvent(event models.Event) bool {
	if !event.HasNotification {
		return false
	}
	timeOfDay := event.NotificationTime
	if timeOfDay == "" {
		timeOfDay = event.StartTime
	}

	target, ok := recurrence.NextEventOccurrence(event, timeOfDay, s.now())
	if !ok {
		s.Cancel("event-" + event.ID)
		return false
	}

	key := "event-" + event.ID
	s.arm(key, target, func() { s.wakeEvent(key, event, target) })
	return true
}

// arm sets the timer for key toward target. The actual delay is capped so
// the timer wakes at least every MaxTimerDelay and re-evaluates.
func (s *Scheduler) arm(key string, target time.Time, wake func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.timers[key]; ok {
		timer.Stop()
	}

	delay := target.Sub(s.now())
	if delay > constants.MaxTimerDelay {
		delay = constants.MaxTimerDelay
	}
	if delay < 0 {
		delay = 0
	}

	s.timers[key] = s.afterFunc(delay, wake)
}

// wakeHabit runs when a habit timer fires. The wall clock decides what
// happens: ahead of the window it re-arms, inside the window it fires,
// past the window the occurrence was missed and the next one is armed.
func (s *Scheduler) wakeHabit(habitID string, target time.Time) {
	now := s.now()
	remaining := target.Sub(now)

	if remaining > constants.FireTolerance {
		s.arm(habitID, target, func() { s.wakeHabit(habitID, target) })
		return
	}

	habit, ok, err := s.lookupHabit(habitID)
	if err != nil {
		// Transient store failure. The chain stays alive; retry shortly
		// against the same target and let the window logic sort it out.
		logger.Error("failed to read habits on wake, retrying", "error", err)
		s.arm(habitID, now.Add(constants.FireTolerance), func() { s.wakeHabit(habitID, target) })
		return
	}
	if !ok {
		// Deactivated or notifications switched off since arming
		s.Cancel(habitID)
		return
	}

	overslept := -remaining > constants.FireTolerance
	if overslept {
		logger.Warn("missed reminder window", "habit", habit.Title, "target", target, "late_by", -remaining)
	} else if habit.CompletedOn(now.Format(constants.DateFormat)) {
		logger.Debug("habit already completed, skipping reminder", "habit", habit.Title)
	} else {
		if err := s.presenter.Show(notify.HabitReminder(habit, now)); err != nil {
			logger.Error("failed to show reminder", "habit", habit.Title, "error", err)
		}
	}

	from := target
	if now.After(from) {
		from = now
	}
	next, ok := recurrence.NextOccurrence(habit.Frequency, habit.NotificationTime, from)
	if !ok {
		s.Cancel(habitID)
		return
	}
	s.arm(habitID, next, func() { s.wakeHabit(habitID, next) })
}

func (s *Scheduler) wakeEvent(key string, event models.Event, target time.Time) {
	now := s.now()
	remaining := target.Sub(now)

	if remaining > constants.FireTolerance {
		s.arm(key, target, func() { s.wakeEvent(key, event, target) })
		return
	}

	if -remaining > constants.FireTolerance {
		logger.Warn("missed event reminder window", "event", event.Title, "target", target)
	} else {
		if err := s.presenter.Show(notify.EventReminder(event, now)); err != nil {
			logger.Error("failed to show event reminder", "event", event.Title, "error", err)
		}
	}

	// Event reminders are one-shot; recurring series are covered by their
	// dated instances.
	s.Cancel(key)
}

// lookupHabit re-reads the habit at wake time. A store error is reported
// separately from a missing habit; only the latter means the reminder chain
// should end.
func (s *Scheduler) lookupHabit(habitID string) (models.Habit, bool, error) {
	habits, err := s.source.GetHabitsWithNotifications()
	if err != nil {
		return models.Habit{}, false, err
	}
	for _, h := range habits {
		if h.ID == habitID {
			return h, true, nil
		}
	}
	return models.Habit{}, false, nil
}

// Cancel drops the timer for a key if one exists.
func (s *Scheduler) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.timers[key]; ok {
		timer.Stop()
		delete(s.timers, key)
	}
}

// CancelAll drops every timer.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, timer := range s.timers {
		timer.Stop()
		delete(s.timers, key)
	}
}

// Active returns how many timers are currently armed.
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// RescheduleAll rebuilds the habit timer set from the source. On a read
// error the existing timers stay armed. Event timers are untouched.
func (s *Scheduler) RescheduleAll() error {
	habits, err := s.source.GetHabitsWithNotifications()
	if err != nil {
		logger.Error("reschedule failed, keeping current timers", "error", err)
		return err
	}

	s.mu.Lock()
	for key, timer := range s.timers {
		if strings.HasPrefix(key, "event-") {
			continue
		}
		timer.Stop()
		delete(s.timers, key)
	}
	s.mu.Unlock()

	scheduled := 0
	for _, habit := range habits {
		if s.Schedule(habit) {
			scheduled++
		}
	}

	logger.Info("rebuilt reminder schedule", "habits", len(habits), "scheduled", scheduled)
	return nil
}
