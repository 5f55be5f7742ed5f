// Package agent implements the background process. The agent keeps no
// armed timers; on every wake it re-derives what is due directly from the
// store, so a wake delayed by suspend or a skipped tick still lands on the
// right answer. It also drains the durable message queue, which lets
// notification actions taken while no foreground process was running take
// effect.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/b612app/b612/internal/bus"
	"github.com/b612app/b612/internal/constants"
	"github.com/b612app/b612/internal/logger"
	"github.com/b612app/b612/internal/models"
	"github.com/b612app/b612/internal/notify"
	"github.com/b612app/b612/internal/recurrence"
	"github.com/b612app/b612/internal/service"
)

// Store is the slice of the storage provider the agent needs.
type Store interface {
	GetHabitsWithNotifications() ([]models.Habit, error)
	GetEventsByDateRange(start, end string) ([]models.Event, error)
	PendingMessages() ([]models.QueuedMessage, error)
	DeleteMessage(id string) error
}

// Completer marks habits done on behalf of queued messages.
type Completer interface {
	Complete(id string) (models.Habit, error)
}

// Presenter displays a due reminder.
type Presenter interface {
	Show(n notify.Notification) error
}

type Agent struct {
	store     Store
	completer Completer
	presenter Presenter

	// fired maps a reminder key to the day it last fired, so one wake
	// window never produces duplicate notifications.
	fired map[string]string

	// deferred maps a habit ID to the instant a "later" action pushed its
	// reminder to. A deferred reminder re-shows at that instant even though
	// the fired guard is already set for the day.
	deferred map[string]time.Time

	now func() time.Time
}

func New(store Store, completer Completer, presenter Presenter) *Agent {
	return &Agent{
		store:     store,
		completer: completer,
		presenter: presenter,
		fired:     map[string]string{},
		deferred:  map[string]time.Time{},
		now:       time.Now,
	}
}

// Run sweeps immediately, then on every tick until the context is
// cancelled.
func (a *Agent) Run(ctx context.Context) error {
	logger.Info("agent started", "interval", constants.AgentWakeInterval)

	a.Sweep()

	ticker := time.NewTicker(constants.AgentWakeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("agent stopping")
			return nil
		case <-ticker.C:
			a.Sweep()
		}
	}
}

// Sweep performs one full wake: drain queued messages, then raise whatever
// reminders are due right now.
func (a *Agent) Sweep() {
	now := a.now()
	a.drainQueue()
	a.checkHabitReminders(now)
	a.checkEventReminders(now)
}

// drainQueue applies parked messages against the store. Handled and
// unusable entries are removed; transient failures keep the entry for the
// next sweep.
func (a *Agent) drainQueue() {
	pending, err := a.store.PendingMessages()
	if err != nil {
		logger.Error("failed to read message queue", "error", err)
		return
	}

	for _, queued := range pending {
		var msg bus.Message
		if err := json.Unmarshal(queued.Payload, &msg); err != nil {
			logger.Warn("dropping undecodable queued message", "id", queued.ID, "error", err)
			if err := a.store.DeleteMessage(queued.ID); err != nil {
				logger.Error("failed to delete queued message", "id", queued.ID, "error", err)
			}
			continue
		}

		if err := a.HandleMessage(msg); err != nil {
			logger.Error("queued message failed, keeping for retry", "type", msg.Type, "error", err)
			continue
		}
		if err := a.store.DeleteMessage(queued.ID); err != nil {
			logger.Error("failed to delete queued message", "id", queued.ID, "error", err)
		}
	}
}

// HandleMessage applies one bus message. The message set is closed;
// anything else is an error.
func (a *Agent) HandleMessage(msg bus.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	switch msg.Type {
	case bus.KindCompleteHabit:
		_, err := a.completer.Complete(msg.HabitID)
		if errors.Is(err, service.ErrAlreadyCompleted) {
			// Completed through another path since the message was queued
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to complete habit %s: %w", msg.HabitID, err)
		}
		logger.Info("completed habit from queued message", "habit", msg.HabitTitle)
		return nil
	case bus.KindScheduleNotification:
		var opts struct {
			Defer bool `json:"defer"`
		}
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &opts); err != nil {
				return fmt.Errorf("invalid message data: %w", err)
			}
		}
		if opts.Defer {
			until := a.now().Add(constants.DeferInterval)
			a.deferred[msg.HabitID] = until
			logger.Info("reminder deferred", "habit", msg.HabitTitle, "until", until)
			return nil
		}
		now := a.now()
		a.checkHabitReminders(now)
		a.checkEventReminders(now)
		return nil
	case bus.KindUpdateNotifications, bus.KindRescheduleNotifications:
		now := a.now()
		a.checkHabitReminders(now)
		a.checkEventReminders(now)
		return nil
	default:
		return fmt.Errorf("unhandled message type: %q", msg.Type)
	}
}

func (a *Agent) checkHabitReminders(now time.Time) {
	habits, err := a.store.GetHabitsWithNotifications()
	if err != nil {
		logger.Error("failed to read habits", "error", err)
		return
	}

	day := now.Format(constants.DateFormat)
	for _, habit := range habits {
		if !recurrence.IsActiveOn(habit.Frequency, now) {
			continue
		}
		if habit.CompletedOn(day) {
			delete(a.deferred, habit.ID)
			continue
		}
		// A deferral overrides both the fired guard and the time window:
		// the reminder already showed once today and its re-show instant
		// is not on the habit's schedule.
		if until, ok := a.deferred[habit.ID]; ok {
			if now.Before(until) {
				continue
			}
			if err := a.presenter.Show(notify.HabitReminder(habit, now)); err != nil {
				logger.Error("failed to show deferred reminder", "habit", habit.Title, "error", err)
				continue
			}
			delete(a.deferred, habit.ID)
			a.fired[habit.ID] = day
			continue
		}
		if a.fired[habit.ID] == day {
			continue
		}
		if !withinWindow(now, habit.NotificationTime) {
			continue
		}

		if err := a.presenter.Show(notify.HabitReminder(habit, now)); err != nil {
			logger.Error("failed to show reminder", "habit", habit.Title, "error", err)
			continue
		}
		a.fired[habit.ID] = day
	}
}

func (a *Agent) checkEventReminders(now time.Time) {
	day := now.Format(constants.DateFormat)
	events, err := a.store.GetEventsByDateRange(day, day)
	if err != nil {
		logger.Error("failed to read events", "error", err)
		return
	}

	for _, event := range events {
		if !event.HasNotification {
			continue
		}
		// Recurring roots are represented by their dated instances
		if event.IsRecurring {
			continue
		}

		key := "event-" + event.ID
		if a.fired[key] == day {
			continue
		}

		timeOfDay := event.NotificationTime
		if timeOfDay == "" {
			timeOfDay = event.StartTime
		}
		if !withinWindow(now, timeOfDay) {
			continue
		}

		if err := a.presenter.Show(notify.EventReminder(event, now)); err != nil {
			logger.Error("failed to show event reminder", "event", event.Title, "error", err)
			continue
		}
		a.fired[key] = day
	}
}

// withinWindow reports whether now falls inside the fire tolerance around
// today's occurrence of timeOfDay. The exact instant counts as due.
func withinWindow(now time.Time, timeOfDay string) bool {
	tod, err := time.Parse(constants.TimeFormat, timeOfDay)
	if err != nil {
		return false
	}

	target := time.Date(now.Year(), now.Month(), now.Day(),
		tod.Hour(), tod.Minute(), 0, 0, now.Location())

	diff := now.Sub(target)
	if diff < 0 {
		diff = -diff
	}
	return diff <= constants.FireTolerance
}
