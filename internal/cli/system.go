package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/b612app/b612/internal/agent"
	"github.com/b612app/b612/internal/bus"
	"github.com/b612app/b612/internal/constants"
	"github.com/b612app/b612/internal/keyring"
	"github.com/b612app/b612/internal/logger"
	"github.com/b612app/b612/internal/notify"
	"github.com/b612app/b612/internal/scheduler"
	"github.com/b612app/b612/internal/service"
	"github.com/b612app/b612/internal/storage"
)

type InitCmd struct {
	Force bool `help:"Force reset by deleting the existing database before initialization."`
}

func (c *InitCmd) Run(ctx *Context) error {
	if c.Force {
		dbPath := ctx.Store.GetConfigPath()
		if _, err := os.Stat(dbPath); err == nil {
			if err := ctx.Store.Close(); err != nil {
				return fmt.Errorf("failed to close existing database: %w", err)
			}
			if err := os.Remove(dbPath); err != nil {
				return fmt.Errorf("failed to delete existing database: %w", err)
			}
			fmt.Printf("Deleted existing database at: %s\n", dbPath)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to access existing database: %w", err)
		}
	}

	if err := ctx.Store.Init(); err != nil {
		return err
	}
	fmt.Printf("Initialized b612 storage at: %s\n", ctx.Store.GetConfigPath())
	return nil
}

type DoctorCmd struct{}

func (c *DoctorCmd) Run(ctx *Context) error {
	ok := true
	check := func(name string, err error) {
		if err != nil {
			fmt.Printf("  FAIL  %s: %v\n", name, err)
			ok = false
			return
		}
		fmt.Printf("  OK    %s\n", name)
	}

	fmt.Println("Running health checks...")

	check("storage reachable", ctx.Store.Load())

	counts, err := ctx.Store.Counts()
	check("storage readable", err)
	if err == nil {
		fmt.Printf("        %d habits, %d events, %d progress records\n",
			counts.Habits, counts.Events, counts.Progress)
	}

	if keyring.IsAvailable() {
		fmt.Println("  OK    OS keyring available")
	} else {
		fmt.Println("  WARN  OS keyring unavailable, message secrets are per-session")
	}

	for _, proc := range []struct{ label, lockfile string }{
		{"serve process", constants.AppLockfileName},
		{"agent process", constants.AgentLockfileName},
		{"tray process", constants.NotifierLockfileName},
	} {
		if _, err := bus.FindPeer(proc.lockfile); err != nil {
			fmt.Printf("  INFO  %s not running\n", proc.label)
		} else {
			fmt.Printf("  OK    %s running\n", proc.label)
		}
	}

	pending, err := ctx.Store.PendingMessages()
	check("message queue readable", err)
	if err == nil && len(pending) > 0 {
		fmt.Printf("        %d messages waiting for delivery\n", len(pending))
	}

	if !ok {
		return errors.New("some health checks failed")
	}
	fmt.Println("All checks passed.")
	return nil
}

type ServeCmd struct {
	NoNotifications bool `help:"Run the scheduler without showing notifications."`
}

func (c *ServeCmd) Run(ctx *Context) error {
	secret, err := keyring.GetMessageSecret()
	if err != nil {
		return err
	}

	dispatcher := notify.NewDispatcher(notify.TraySend)
	dispatcher.SetEnabled(!c.NoNotifications)
	defer dispatcher.Close()

	sched := scheduler.New(ctx.Store, dispatcher)
	defer sched.CancelAll()

	handler := serveHandler(ctx.Store, sched, dispatcher)

	// Apply messages parked while nothing was running
	applyPending(ctx.Store, handler)

	receiver := bus.NewReceiver(constants.AppLockfileName, secret, handler)
	if err := receiver.Start(); err != nil {
		return err
	}
	defer receiver.Close()

	if err := sched.RescheduleAll(); err != nil {
		return err
	}
	scheduleTodaysEvents(ctx.Store, sched)

	fmt.Printf("b612 scheduler running (port %s). Ctrl-C to stop.\n", receiver.Port())

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Event timers only cover the current day; re-derive them as days roll
	// over.
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-sigCtx.Done():
			logger.Info("scheduler stopping")
			return nil
		case <-ticker.C:
			scheduleTodaysEvents(ctx.Store, sched)
		}
	}
}

func serveHandler(store storage.Provider, sched *scheduler.Scheduler, dispatcher *notify.Dispatcher) bus.Handler {
	habitSvc := service.NewHabitService(store)

	return func(msg bus.Message) error {
		switch msg.Type {
		case bus.KindCompleteHabit:
			_, err := habitSvc.Complete(msg.HabitID)
			if err != nil && !errors.Is(err, service.ErrAlreadyCompleted) {
				return err
			}
			dispatcher.Dismiss(msg.HabitID)
			if habit, err := store.GetHabit(msg.HabitID); err == nil {
				sched.Schedule(habit)
			} else {
				logger.Error("completed habit not re-scheduled", "habit", msg.HabitID, "error", err)
			}
			return nil
		case bus.KindScheduleNotification:
			habit, err := store.GetHabit(msg.HabitID)
			if err != nil {
				return err
			}
			var opts struct {
				Defer bool `json:"defer"`
			}
			if len(msg.Data) > 0 {
				if err := json.Unmarshal(msg.Data, &opts); err != nil {
					return fmt.Errorf("invalid message data: %w", err)
				}
			}
			if opts.Defer {
				dispatcher.Later(habit)
				return nil
			}
			sched.Schedule(habit)
			return nil
		case bus.KindUpdateNotifications, bus.KindRescheduleNotifications:
			return sched.RescheduleAll()
		default:
			return fmt.Errorf("unhandled message type: %q", msg.Type)
		}
	}
}

func applyPending(store storage.Provider, handler bus.Handler) {
	pending, err := store.PendingMessages()
	if err != nil {
		logger.Error("failed to read message queue", "error", err)
		return
	}

	for _, queued := range pending {
		var msg bus.Message
		if err := json.Unmarshal(queued.Payload, &msg); err != nil {
			logger.Warn("dropping undecodable queued message", "id", queued.ID, "error", err)
			_ = store.DeleteMessage(queued.ID)
			continue
		}
		if err := handler(msg); err != nil {
			logger.Error("queued message failed, keeping for retry", "type", msg.Type, "error", err)
			continue
		}
		if err := store.DeleteMessage(queued.ID); err != nil {
			logger.Error("failed to delete queued message", "id", queued.ID, "error", err)
		}
	}
}

func scheduleTodaysEvents(store storage.Provider, sched *scheduler.Scheduler) {
	day := time.Now().Format(constants.DateFormat)
	events, err := store.GetEventsByDateRange(day, day)
	if err != nil {
		logger.Error("failed to read today's events", "error", err)
		return
	}

	for _, event := range events {
		if !event.HasNotification || event.IsRecurring {
			continue
		}
		sched.ScheduleEvent(event)
	}
}

type AgentCmd struct{}

func (c *AgentCmd) Run(ctx *Context) error {
	secret, err := keyring.GetMessageSecret()
	if err != nil {
		return err
	}

	dispatcher := notify.NewDispatcher(notify.TraySend)
	dispatcher.SetEnabled(true)
	defer dispatcher.Close()

	habitSvc := service.NewHabitService(ctx.Store)
	ag := agent.New(ctx.Store, habitSvc, dispatcher)

	receiver := bus.NewReceiver(constants.AgentLockfileName, secret, ag.HandleMessage)
	if err := receiver.Start(); err != nil {
		return err
	}
	defer receiver.Close()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return ag.Run(sigCtx)
}

// NotifyClickCmd routes a notification action click back into the system.
// Invoked by the notification surface, not by users.
type NotifyClickCmd struct {
	Action  string `arg:"" enum:"complete,later" help:"Notification action."`
	HabitID string `arg:"" help:"Habit ID from the notification."`
}

func (c *NotifyClickCmd) Run(ctx *Context) error {
	habit, err := ctx.Store.GetHabit(c.HabitID)
	if err != nil {
		return err
	}

	msg := bus.Message{HabitID: habit.ID, HabitTitle: habit.Title}
	switch c.Action {
	case "complete":
		msg.Type = bus.KindCompleteHabit
	case "later":
		msg.Type = bus.KindScheduleNotification
		msg.Data = json.RawMessage(`{"defer":true}`)
	}

	outbox := bus.NewOutbox(ctx.Store, constants.AppLockfileName)
	return outbox.Deliver(msg)
}

type ConfigCmd struct {
	SetConnection   ConfigSetConnectionCmd   `cmd:"" name:"set-connection" help:"Store a PostgreSQL connection string in the OS keyring."`
	ClearConnection ConfigClearConnectionCmd `cmd:"" name:"clear-connection" help:"Remove the stored connection string."`
}

type ConfigSetConnectionCmd struct {
	ConnectionString string `arg:"" help:"PostgreSQL connection string."`
}

func (c *ConfigSetConnectionCmd) Run(ctx *Context) error {
	if err := keyring.SetConnectionString(c.ConnectionString); err != nil {
		return err
	}
	fmt.Println("Connection string stored in OS keyring.")
	return nil
}

type ConfigClearConnectionCmd struct{}

func (c *ConfigClearConnectionCmd) Run(ctx *Context) error {
	if err := keyring.DeleteConnectionString(); err != nil {
		return err
	}
	fmt.Println("Connection string removed from OS keyring.")
	return nil
}
