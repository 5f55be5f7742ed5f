package notify

import (
	"errors"
	"testing"
	"time"

	"github.com/b612app/b612/internal/models"
)

type capture struct {
	sent []Notification
	err  error
}

func (c *capture) send(n Notification) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, n)
	return nil
}

func testHabit(id, title string) models.Habit {
	return models.Habit{
		ID:    id,
		Title: title,
		Frequency: models.Frequency{
			Type: models.FrequencyDaily,
		},
		Active: true,
	}
}

func TestShowWhenEnabled(t *testing.T) {
	c := &capture{}
	d := NewDispatcher(c.send)
	d.SetEnabled(true)

	n := HabitReminder(testHabit("h1", "Water the rose"), time.Now())
	if err := d.Show(n); err != nil {
		t.Fatalf("Show() failed: %v", err)
	}

	if len(c.sent) != 1 {
		t.Fatalf("sent %d notifications, want 1", len(c.sent))
	}
	if c.sent[0].Tag != "habit-h1" {
		t.Errorf("Tag = %q, want habit-h1", c.sent[0].Tag)
	}
}

func TestShowQueuesWhenDisabled(t *testing.T) {
	c := &capture{}
	d := NewDispatcher(c.send)

	n := HabitReminder(testHabit("h1", "Water the rose"), time.Now())
	if err := d.Show(n); err != nil {
		t.Fatalf("Show() failed: %v", err)
	}

	if len(c.sent) != 0 {
		t.Errorf("sent %d notifications while disabled, want 0", len(c.sent))
	}

	d.SetEnabled(true)
	if len(c.sent) != 1 {
		t.Errorf("sent %d notifications after enable, want 1", len(c.sent))
	}
}

func TestQueueReplacesSameTag(t *testing.T) {
	c := &capture{}
	d := NewDispatcher(c.send)

	habit := testHabit("h1", "Water the rose")
	first := HabitReminder(habit, time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC))
	second := HabitReminder(habit, time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC))
	other := HabitReminder(testHabit("h2", "Read"), time.Now())

	for _, n := range []Notification{first, second, other} {
		if err := d.Show(n); err != nil {
			t.Fatalf("Show() failed: %v", err)
		}
	}

	shown := d.Flush()
	if shown != 0 {
		// still disabled, flush is called by SetEnabled
		t.Logf("Flush() while disabled shown = %d", shown)
	}

	d.SetEnabled(true)
	// Flush already ran inside SetEnabled; first and second collapsed
	total := len(c.sent)
	if total != 2 {
		t.Fatalf("sent %d notifications, want 2 (same-tag reminders collapse)", total)
	}
	if c.sent[0].Timestamp != second.Timestamp {
		t.Errorf("kept the older reminder for the tag, want the newer one")
	}
}

func TestFlushDropsFailedSends(t *testing.T) {
	c := &capture{err: errors.New("tray not running")}
	d := NewDispatcher(c.send)

	if err := d.Show(HabitReminder(testHabit("h1", "Read"), time.Now())); err != nil {
		t.Fatalf("Show() failed: %v", err)
	}

	d.SetEnabled(true)
	if len(c.sent) != 0 {
		t.Errorf("sent %d notifications, want 0", len(c.sent))
	}

	// The failed notification is not re-queued
	c.err = nil
	if shown := d.Flush(); shown != 0 {
		t.Errorf("Flush() re-showed %d dropped notifications, want 0", shown)
	}
}

func TestLaterReshowsAfterDeferInterval(t *testing.T) {
	c := &capture{}
	d := NewDispatcher(c.send)
	d.SetEnabled(true)

	fired := make(chan struct{}, 1)
	var deferredFunc func()
	d.afterFunc = func(delay time.Duration, f func()) *time.Timer {
		deferredFunc = f
		fired <- struct{}{}
		// Return a real timer far in the future so Stop works
		return time.AfterFunc(time.Hour, func() {})
	}

	d.Later(testHabit("h1", "Water the rose"))
	<-fired

	if len(c.sent) != 0 {
		t.Fatalf("sent %d notifications before the deferral elapsed, want 0", len(c.sent))
	}

	deferredFunc()
	if len(c.sent) != 1 {
		t.Fatalf("sent %d notifications after the deferral, want 1", len(c.sent))
	}
	if c.sent[0].Tag != "habit-h1" {
		t.Errorf("Tag = %q, want habit-h1", c.sent[0].Tag)
	}
}

func TestDismissCancelsDeferral(t *testing.T) {
	c := &capture{}
	d := NewDispatcher(c.send)
	d.SetEnabled(true)

	d.afterFunc = func(delay time.Duration, f func()) *time.Timer {
		return time.AfterFunc(time.Hour, f)
	}

	d.Later(testHabit("h1", "Water the rose"))
	d.Dismiss("h1")

	d.mu.Lock()
	remaining := len(d.deferred)
	d.mu.Unlock()
	if remaining != 0 {
		t.Errorf("deferred timers = %d after Dismiss, want 0", remaining)
	}
}
