package cli

import (
	"fmt"
	"time"

	"github.com/b612app/b612/internal/backup"
	"github.com/b612app/b612/internal/bus"
)

type BackupCmd struct {
	Export BackupExportCmd `cmd:"" help:"Export everything to a JSON file."`
	Import BackupImportCmd `cmd:"" help:"Merge a backup file into the store."`
	Info   BackupInfoCmd   `cmd:"" help:"Show store record counts."`
}

type BackupExportCmd struct {
	Path string `arg:"" help:"Destination file path."`
}

func (c *BackupExportCmd) Run(ctx *Context) error {
	if err := backup.WriteFile(ctx.Store, c.Path, time.Now()); err != nil {
		return err
	}
	fmt.Printf("Exported backup to: %s\n", c.Path)
	return nil
}

type BackupImportCmd struct {
	Path string `arg:"" help:"Backup file to import."`
}

func (c *BackupImportCmd) Run(ctx *Context) error {
	stats, err := backup.ImportFile(ctx.Store, c.Path)
	if err != nil {
		return err
	}

	fmt.Printf("Imported: %d habits, %d events, %d progress records, %d notifications (%d skipped)\n",
		stats.HabitsAdded, stats.EventsAdded, stats.ProgressAdded,
		stats.NotificationsAdded, stats.Skipped)

	if stats.HabitsAdded > 0 || stats.NotificationsAdded > 0 {
		ctx.PingScheduler(bus.Message{Type: bus.KindRescheduleNotifications})
	}
	return nil
}

type BackupInfoCmd struct{}

func (c *BackupInfoCmd) Run(ctx *Context) error {
	counts, err := ctx.Store.Counts()
	if err != nil {
		return err
	}

	fmt.Printf("Store: %s\n", ctx.Store.GetConfigPath())
	fmt.Printf("  Habits:        %d\n", counts.Habits)
	fmt.Printf("  Events:        %d\n", counts.Events)
	fmt.Printf("  Progress:      %d\n", counts.Progress)
	fmt.Printf("  Notifications: %d\n", counts.Notifications)
	return nil
}
