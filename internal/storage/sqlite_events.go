package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/b612app/b612/internal/models"
)

const eventColumns = `id, title, description, date, start_time, end_time, category,
	frequency_type, custom_days, has_notification, notification_time,
	is_recurring, parent_event_id, created_at`

func (s *SQLiteStore) AddEvent(event models.Event) error {
	customDays, err := json.Marshal(event.Frequency.CustomDays)
	if err != nil {
		return fmt.Errorf("failed to marshal custom days: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.Title, event.Description, event.Date,
		event.StartTime, event.EndTime, event.Category,
		string(event.Frequency.Type), string(customDays),
		event.HasNotification, event.NotificationTime,
		event.IsRecurring, event.ParentEventID,
		event.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	return nil
}

func (s *SQLiteStore) AddEvents(events []models.Event) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, event := range events {
		customDays, err := json.Marshal(event.Frequency.CustomDays)
		if err != nil {
			return fmt.Errorf("failed to marshal custom days: %w", err)
		}

		_, err = tx.Exec(`
			INSERT INTO events (`+eventColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			event.ID, event.Title, event.Description, event.Date,
			event.StartTime, event.EndTime, event.Category,
			string(event.Frequency.Type), string(customDays),
			event.HasNotification, event.NotificationTime,
			event.IsRecurring, event.ParentEventID,
			event.CreatedAt.Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("failed to insert event %s: %w", event.ID, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetEvent(id string) (models.Event, error) {
	row := s.db.QueryRow(`SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	return scanEvent(row)
}

func (s *SQLiteStore) GetAllEvents() ([]models.Event, error) {
	rows, err := s.db.Query(`SELECT ` + eventColumns + ` FROM events ORDER BY date, start_time`)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	return collectEvents(rows)
}

func (s *SQLiteStore) GetEventByTitleAndDate(title, date string) (models.Event, error) {
	row := s.db.QueryRow(`SELECT `+eventColumns+` FROM events WHERE title = ? AND date = ?`, title, date)
	return scanEvent(row)
}

func (s *SQLiteStore) GetEventsByDateRange(start, end string) ([]models.Event, error) {
	rows, err := s.db.Query(`
		SELECT `+eventColumns+` FROM events
		WHERE date >= ? AND date <= ?
		ORDER BY date, start_time`, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	return collectEvents(rows)
}

func (s *SQLiteStore) GetEventInstances(parentID string) ([]models.Event, error) {
	rows, err := s.db.Query(`
		SELECT `+eventColumns+` FROM events
		WHERE parent_event_id = ?
		ORDER BY date`, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query event instances: %w", err)
	}
	defer rows.Close()

	return collectEvents(rows)
}

func (s *SQLiteStore) UpdateEvent(event models.Event) error {
	customDays, err := json.Marshal(event.Frequency.CustomDays)
	if err != nil {
		return fmt.Errorf("failed to marshal custom days: %w", err)
	}

	result, err := s.db.Exec(`
		UPDATE events SET
			title = ?, description = ?, date = ?, start_time = ?, end_time = ?,
			category = ?, frequency_type = ?, custom_days = ?,
			has_notification = ?, notification_time = ?,
			is_recurring = ?, parent_event_id = ?
		WHERE id = ?`,
		event.Title, event.Description, event.Date, event.StartTime, event.EndTime,
		event.Category, string(event.Frequency.Type), string(customDays),
		event.HasNotification, event.NotificationTime,
		event.IsRecurring, event.ParentEventID,
		event.ID)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *SQLiteStore) DeleteEvent(id string) error {
	result, err := s.db.Exec(`DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

func scanEvent(row rowScanner) (models.Event, error) {
	var e models.Event
	var frequencyType, customDaysJSON, createdAt string

	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Date,
		&e.StartTime, &e.EndTime, &e.Category,
		&frequencyType, &customDaysJSON,
		&e.HasNotification, &e.NotificationTime,
		&e.IsRecurring, &e.ParentEventID, &createdAt)
	if err == sql.ErrNoRows {
		return models.Event{}, ErrNotFound
	}
	if err != nil {
		return models.Event{}, fmt.Errorf("failed to scan event: %w", err)
	}

	e.Frequency.Type = models.FrequencyType(frequencyType)
	if err := json.Unmarshal([]byte(customDaysJSON), &e.Frequency.CustomDays); err != nil {
		return models.Event{}, fmt.Errorf("failed to unmarshal custom days: %w", err)
	}

	e.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return models.Event{}, fmt.Errorf("failed to parse created_at: %w", err)
	}

	return e, nil
}

func collectEvents(rows *sql.Rows) ([]models.Event, error) {
	var events []models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}
