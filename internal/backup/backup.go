// Package backup exports the store to a portable JSON document and merges
// such documents back in. Import is additive and idempotent: records are
// matched by natural keys (habit title, event title and date, progress habit
// and day), so importing the same file twice changes nothing.
package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/b612app/b612/internal/constants"
	"github.com/b612app/b612/internal/logger"
	"github.com/b612app/b612/internal/models"
	"github.com/b612app/b612/internal/storage"
)

const documentVersion = 1

// Store is the slice of the storage provider the backup layer needs.
type Store interface {
	GetAllHabits(includeInactive bool) ([]models.Habit, error)
	GetHabitByTitle(title string) (models.Habit, error)
	AddHabit(habit models.Habit) error
	GetAllEvents() ([]models.Event, error)
	GetEventByTitleAndDate(title, date string) (models.Event, error)
	AddEvent(event models.Event) error
	GetAllProgress() ([]models.Progress, error)
	GetProgressForDay(habitID, day string) (models.Progress, error)
	AddProgress(p models.Progress) error
	GetActiveNotificationRecords() ([]models.NotificationRecord, error)
	AddNotificationRecord(n models.NotificationRecord) error
}

// Document is the on-disk backup format.
type Document struct {
	Version    int    `json:"version"`
	ExportDate string `json:"export_date"`
	AppName    string `json:"app_name"`
	Data       Data   `json:"data"`
}

type Data struct {
	Habits        []models.Habit              `json:"habits"`
	Events        []models.Event              `json:"events"`
	Progress      []models.Progress           `json:"progress"`
	Notifications []models.NotificationRecord `json:"notifications"`
}

// ImportStats reports what an import changed.
type ImportStats struct {
	HabitsAdded        int
	EventsAdded        int
	ProgressAdded      int
	NotificationsAdded int
	Skipped            int
}

// Export builds a backup document from the store. Soft-deleted habits and
// deactivated notification records are not exported.
func Export(store Store, now time.Time) (Document, error) {
	habits, err := store.GetAllHabits(false)
	if err != nil {
		return Document{}, fmt.Errorf("failed to export habits: %w", err)
	}
	events, err := store.GetAllEvents()
	if err != nil {
		return Document{}, fmt.Errorf("failed to export events: %w", err)
	}
	progress, err := store.GetAllProgress()
	if err != nil {
		return Document{}, fmt.Errorf("failed to export progress: %w", err)
	}
	notifications, err := store.GetActiveNotificationRecords()
	if err != nil {
		return Document{}, fmt.Errorf("failed to export notification records: %w", err)
	}

	return Document{
		Version:    documentVersion,
		ExportDate: now.Format(time.RFC3339),
		AppName:    constants.AppName,
		Data: Data{
			Habits:        habits,
			Events:        events,
			Progress:      progress,
			Notifications: notifications,
		},
	}, nil
}

// WriteFile exports the store to path as indented JSON.
func WriteFile(store Store, path string, now time.Time) error {
	doc, err := Export(store, now)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal backup: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write backup file: %w", err)
	}

	logger.Info("wrote backup", "path", path,
		"habits", len(doc.Data.Habits), "events", len(doc.Data.Events))
	return nil
}

// ReadFile parses a backup document from path.
func ReadFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("failed to read backup file: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("failed to parse backup file: %w", err)
	}

	if doc.Version == 0 || doc.Version > documentVersion {
		return Document{}, fmt.Errorf("unsupported backup version: %d", doc.Version)
	}

	return doc, nil
}

// Import merges a backup document into the store. Existing records matched
// by natural key are left untouched; everything else is inserted with fresh
// IDs. Progress and notification records referencing an imported habit are
// remapped onto the habit's ID in this store.
func Import(store Store, doc Document) (ImportStats, error) {
	var stats ImportStats

	// Old habit ID → ID in this store, for remapping dependent records
	idMap := map[string]string{}

	for _, habit := range doc.Data.Habits {
		existing, err := store.GetHabitByTitle(habit.Title)
		if err == nil {
			idMap[habit.ID] = existing.ID
			stats.Skipped++
			continue
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return stats, fmt.Errorf("failed to check habit %q: %w", habit.Title, err)
		}

		oldID := habit.ID
		habit.ID = uuid.NewString()
		habit.Active = true
		if err := store.AddHabit(habit); err != nil {
			return stats, fmt.Errorf("failed to import habit %q: %w", habit.Title, err)
		}
		idMap[oldID] = habit.ID
		stats.HabitsAdded++
	}

	for _, event := range doc.Data.Events {
		_, err := store.GetEventByTitleAndDate(event.Title, event.Date)
		if err == nil {
			stats.Skipped++
			continue
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return stats, fmt.Errorf("failed to check event %q: %w", event.Title, err)
		}

		event.ID = uuid.NewString()
		// Parent links point at IDs from the source store; imported
		// instances stand alone.
		event.ParentEventID = ""
		if err := store.AddEvent(event); err != nil {
			return stats, fmt.Errorf("failed to import event %q: %w", event.Title, err)
		}
		stats.EventsAdded++
	}

	for _, p := range doc.Data.Progress {
		habitID, ok := idMap[p.HabitID]
		if !ok {
			stats.Skipped++
			continue
		}

		_, err := store.GetProgressForDay(habitID, p.Day)
		if err == nil {
			stats.Skipped++
			continue
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return stats, fmt.Errorf("failed to check progress for %s: %w", p.Day, err)
		}

		p.ID = uuid.NewString()
		p.HabitID = habitID
		if err := store.AddProgress(p); err != nil {
			return stats, fmt.Errorf("failed to import progress for %s: %w", p.Day, err)
		}
		stats.ProgressAdded++
	}

	existingRecords, err := store.GetActiveNotificationRecords()
	if err != nil {
		return stats, fmt.Errorf("failed to read notification records: %w", err)
	}
	for _, n := range doc.Data.Notifications {
		entityID, ok := idMap[n.EntityID]
		if !ok {
			stats.Skipped++
			continue
		}

		duplicate := false
		for _, existing := range existingRecords {
			if existing.Kind == n.Kind && existing.EntityID == entityID &&
				existing.ScheduledTime == n.ScheduledTime {
				duplicate = true
				break
			}
		}
		if duplicate {
			stats.Skipped++
			continue
		}

		n.ID = uuid.NewString()
		n.EntityID = entityID
		n.Active = true
		if err := store.AddNotificationRecord(n); err != nil {
			return stats, fmt.Errorf("failed to import notification record: %w", err)
		}
		existingRecords = append(existingRecords, n)
		stats.NotificationsAdded++
	}

	logger.Info("imported backup",
		"habits", stats.HabitsAdded, "events", stats.EventsAdded,
		"progress", stats.ProgressAdded, "notifications", stats.NotificationsAdded,
		"skipped", stats.Skipped)
	return stats, nil
}

// ImportFile reads and merges a backup file.
func ImportFile(store Store, path string) (ImportStats, error) {
	doc, err := ReadFile(path)
	if err != nil {
		return ImportStats{}, err
	}
	return Import(store, doc)
}
