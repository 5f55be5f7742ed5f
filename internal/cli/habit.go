package cli

import (
	"fmt"
	"time"

	"github.com/b612app/b612/internal/bus"
	"github.com/b612app/b612/internal/constants"
	"github.com/b612app/b612/internal/models"
	"github.com/b612app/b612/internal/service"
)

type HabitCmd struct {
	Add     HabitAddCmd     `cmd:"" help:"Add a new habit."`
	List    HabitListCmd    `cmd:"" help:"List habits."`
	Done    HabitDoneCmd    `cmd:"" help:"Mark a habit as done for today."`
	Edit    HabitEditCmd    `cmd:"" help:"Edit an existing habit."`
	History HabitHistoryCmd `cmd:"" help:"Show a habit's completion history."`
	Today   HabitTodayCmd   `cmd:"" help:"Show which habits are due today."`
	Delete  HabitDeleteCmd  `cmd:"" help:"Delete a habit (soft delete)."`
}

type HabitAddCmd struct {
	Title       string `arg:"" help:"Habit title."`
	Description string `help:"Optional description." default:""`
	Icon        string `help:"Optional icon (emoji)." default:""`
	Frequency   string `help:"Frequency: daily, weekly, or custom." enum:"daily,weekly,custom" default:"daily"`
	Days        string `help:"Weekdays for custom frequency (e.g. mon,wed,fri)." default:""`
	NotifyAt    string `help:"Daily reminder time (HH:MM)." default:""`
}

func (c *HabitAddCmd) Run(ctx *Context) error {
	frequency, err := ParseFrequency(c.Frequency, c.Days)
	if err != nil {
		return err
	}

	habit := models.Habit{
		Title:            c.Title,
		Description:      c.Description,
		Icon:             c.Icon,
		Frequency:        frequency,
		HasNotification:  c.NotifyAt != "",
		NotificationTime: c.NotifyAt,
	}

	svc := service.NewHabitService(ctx.Store)
	created, err := svc.Create(habit)
	if err != nil {
		return err
	}

	fmt.Printf("Added habit: %s (%s)\n", created.Title, FormatFrequency(created.Frequency))

	if created.HasNotification {
		ctx.PingScheduler(bus.Message{
			Type:       bus.KindScheduleNotification,
			HabitID:    created.ID,
			HabitTitle: created.Title,
		})
	}
	return nil
}

type HabitListCmd struct {
	All bool `help:"Include deleted habits."`
}

func (c *HabitListCmd) Run(ctx *Context) error {
	svc := service.NewHabitService(ctx.Store)
	habits, err := svc.List(c.All)
	if err != nil {
		return err
	}

	if len(habits) == 0 {
		fmt.Println("No habits found.")
		return nil
	}

	for _, habit := range habits {
		status := ""
		if !habit.Active {
			status = " [DELETED]"
		}
		reminder := ""
		if habit.HasNotification {
			reminder = fmt.Sprintf(" @ %s", habit.NotificationTime)
		}
		streak := ""
		if habit.Streak > 0 {
			streak = fmt.Sprintf(" (streak: %d)", habit.Streak)
		}
		fmt.Printf("%s %s [%s]%s%s%s\n",
			habit.Icon, habit.Title, FormatFrequency(habit.Frequency), reminder, streak, status)
	}

	return nil
}

type HabitDoneCmd struct {
	Title string `arg:"" help:"Habit title."`
}

func (c *HabitDoneCmd) Run(ctx *Context) error {
	svc := service.NewHabitService(ctx.Store)
	habit, err := svc.GetByTitle(c.Title)
	if err != nil {
		return fmt.Errorf("habit %q not found", c.Title)
	}

	completed, err := svc.Complete(habit.ID)
	if err != nil {
		return err
	}

	fmt.Printf("Done: %s (streak: %d)\n", completed.Title, completed.Streak)

	ctx.PingScheduler(bus.Message{
		Type:       bus.KindUpdateNotifications,
		HabitID:    completed.ID,
		HabitTitle: completed.Title,
	})
	return nil
}

type HabitEditCmd struct {
	Title       string `arg:"" help:"Habit title."`
	NewTitle    string `help:"New title." default:""`
	Description string `help:"New description." default:""`
	Icon        string `help:"New icon." default:""`
	Frequency   string `help:"New frequency: daily, weekly, or custom." enum:",daily,weekly,custom" default:""`
	Days        string `help:"Weekdays for custom frequency." default:""`
	NotifyAt    string `help:"New reminder time (HH:MM), or 'off' to disable." default:""`
}

func (c *HabitEditCmd) Run(ctx *Context) error {
	svc := service.NewHabitService(ctx.Store)
	habit, err := svc.GetByTitle(c.Title)
	if err != nil {
		return fmt.Errorf("habit %q not found", c.Title)
	}

	if c.NewTitle != "" {
		habit.Title = c.NewTitle
	}
	if c.Description != "" {
		habit.Description = c.Description
	}
	if c.Icon != "" {
		habit.Icon = c.Icon
	}
	if c.Frequency != "" {
		frequency, err := ParseFrequency(c.Frequency, c.Days)
		if err != nil {
			return err
		}
		habit.Frequency = frequency
	}
	switch c.NotifyAt {
	case "":
	case "off":
		habit.HasNotification = false
		habit.NotificationTime = ""
	default:
		habit.HasNotification = true
		habit.NotificationTime = c.NotifyAt
	}

	updated, err := svc.Update(habit)
	if err != nil {
		return err
	}

	fmt.Printf("Updated habit: %s\n", updated.Title)

	ctx.PingScheduler(bus.Message{Type: bus.KindRescheduleNotifications})
	return nil
}

type HabitHistoryCmd struct {
	Title string `arg:"" help:"Habit title."`
	Limit int    `help:"Maximum entries to show." default:"30"`
}

func (c *HabitHistoryCmd) Run(ctx *Context) error {
	svc := service.NewHabitService(ctx.Store)
	habit, err := svc.GetByTitle(c.Title)
	if err != nil {
		return fmt.Errorf("habit %q not found", c.Title)
	}

	history, err := svc.History(habit.ID)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Printf("No completions recorded for %q.\n", habit.Title)
		return nil
	}

	if c.Limit > 0 && len(history) > c.Limit {
		history = history[:c.Limit]
	}
	for _, entry := range history {
		fmt.Printf("%s  %s\n", entry.Day, entry.CompletedAt.Local().Format(constants.TimeFormat))
	}

	return nil
}

type HabitTodayCmd struct{}

func (c *HabitTodayCmd) Run(ctx *Context) error {
	svc := service.NewHabitService(ctx.Store)
	due, err := svc.DueOn(time.Now())
	if err != nil {
		return err
	}

	if len(due) == 0 {
		fmt.Println("All done for today.")
		return nil
	}

	fmt.Println("Due today:")
	for _, habit := range due {
		fmt.Printf("  %s %s\n", habit.Icon, habit.Title)
	}
	return nil
}

type HabitDeleteCmd struct {
	Title string `arg:"" help:"Habit title."`
}

func (c *HabitDeleteCmd) Run(ctx *Context) error {
	svc := service.NewHabitService(ctx.Store)
	habit, err := svc.GetByTitle(c.Title)
	if err != nil {
		return fmt.Errorf("habit %q not found", c.Title)
	}

	if err := svc.Delete(habit.ID); err != nil {
		return err
	}

	fmt.Printf("Deleted habit: %s\n", habit.Title)

	ctx.PingScheduler(bus.Message{Type: bus.KindRescheduleNotifications})
	return nil
}
