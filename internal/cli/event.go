package cli

import (
	"fmt"
	"time"

	"github.com/b612app/b612/internal/bus"
	"github.com/b612app/b612/internal/constants"
	"github.com/b612app/b612/internal/models"
	"github.com/b612app/b612/internal/service"
)

type EventCmd struct {
	Add    EventAddCmd    `cmd:"" help:"Add a calendar event."`
	List   EventListCmd   `cmd:"" help:"List upcoming events."`
	Delete EventDeleteCmd `cmd:"" help:"Delete an event."`
}

type EventAddCmd struct {
	Title     string `arg:"" help:"Event title."`
	Date      string `help:"Event date (YYYY-MM-DD, default: today)." default:""`
	At        string `arg:"" help:"Start time (HH:MM)."`
	End       string `help:"End time (HH:MM)." default:""`
	Category  string `help:"Optional category." default:""`
	Frequency string `help:"Recurrence: once, daily, weekly, or custom." enum:"once,daily,weekly,custom" default:"once"`
	Days      string `help:"Weekdays for custom recurrence (e.g. mon,wed,fri)." default:""`
	NotifyAt  string `help:"Reminder time (HH:MM, default: start time)." default:""`
	Notify    bool   `help:"Enable a reminder for this event."`
}

func (c *EventAddCmd) Run(ctx *Context) error {
	frequency, err := ParseFrequency(c.Frequency, c.Days)
	if err != nil {
		return err
	}

	date := c.Date
	if date == "" {
		date = time.Now().Format(constants.DateFormat)
	}

	event := models.Event{
		Title:            c.Title,
		Date:             date,
		StartTime:        c.At,
		EndTime:          c.End,
		Category:         c.Category,
		Frequency:        frequency,
		HasNotification:  c.Notify || c.NotifyAt != "",
		NotificationTime: c.NotifyAt,
	}

	svc := service.NewEventService(ctx.Store)
	created, err := svc.Create(event)
	if err != nil {
		return err
	}

	if created.IsRecurring {
		fmt.Printf("Added recurring event: %s (%s at %s)\n",
			created.Title, FormatFrequency(created.Frequency), created.StartTime)
	} else {
		fmt.Printf("Added event: %s on %s at %s\n", created.Title, created.Date, created.StartTime)
	}

	if created.HasNotification {
		ctx.PingScheduler(bus.Message{Type: bus.KindRescheduleNotifications})
	}
	return nil
}

type EventListCmd struct {
	From string `help:"Range start (YYYY-MM-DD, default: today)." default:""`
	To   string `help:"Range end (YYYY-MM-DD, default: a week out)." default:""`
}

func (c *EventListCmd) Run(ctx *Context) error {
	from := c.From
	if from == "" {
		from = time.Now().Format(constants.DateFormat)
	}
	to := c.To
	if to == "" {
		to = time.Now().AddDate(0, 0, 7).Format(constants.DateFormat)
	}

	svc := service.NewEventService(ctx.Store)
	events, err := svc.ListRange(from, to)
	if err != nil {
		return err
	}

	if len(events) == 0 {
		fmt.Printf("No events between %s and %s.\n", from, to)
		return nil
	}

	for _, event := range events {
		// Recurring roots are templates; their dated instances carry the
		// actual occurrences.
		if event.IsRecurring {
			continue
		}
		span := event.StartTime
		if event.EndTime != "" {
			span += "-" + event.EndTime
		}
		category := ""
		if event.Category != "" {
			category = fmt.Sprintf(" [%s]", event.Category)
		}
		fmt.Printf("%s %s  %s%s\n", event.Date, span, event.Title, category)
	}

	return nil
}

type EventDeleteCmd struct {
	Title string `arg:"" help:"Event title."`
	Date  string `arg:"" help:"Event date (YYYY-MM-DD)."`
}

func (c *EventDeleteCmd) Run(ctx *Context) error {
	event, err := ctx.Store.GetEventByTitleAndDate(c.Title, c.Date)
	if err != nil {
		return fmt.Errorf("event %q on %s not found", c.Title, c.Date)
	}

	svc := service.NewEventService(ctx.Store)
	if err := svc.Delete(event.ID); err != nil {
		return err
	}

	if event.IsRecurring {
		fmt.Printf("Deleted recurring event and its instances: %s\n", event.Title)
	} else {
		fmt.Printf("Deleted event: %s on %s\n", event.Title, event.Date)
	}

	ctx.PingScheduler(bus.Message{Type: bus.KindRescheduleNotifications})
	return nil
}
