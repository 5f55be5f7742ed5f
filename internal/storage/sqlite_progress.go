package storage

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/b612app/b612/internal/models"
)

func (s *SQLiteStore) AddProgress(p models.Progress) error {
	_, err := s.db.Exec(`
		INSERT INTO progress (id, habit_id, completed_at, day)
		VALUES (?, ?, ?, ?)`,
		p.ID, p.HabitID, p.CompletedAt.Format(time.RFC3339), p.Day)
	if err != nil {
		return fmt.Errorf("failed to insert progress: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetProgressForDay(habitID, day string) (models.Progress, error) {
	row := s.db.QueryRow(`
		SELECT id, habit_id, completed_at, day FROM progress
		WHERE habit_id = ? AND day = ?`, habitID, day)
	return scanProgress(row)
}

func (s *SQLiteStore) GetProgressForHabit(habitID string) ([]models.Progress, error) {
	rows, err := s.db.Query(`
		SELECT id, habit_id, completed_at, day FROM progress
		WHERE habit_id = ? ORDER BY day DESC`, habitID)
	if err != nil {
		return nil, fmt.Errorf("failed to query progress: %w", err)
	}
	defer rows.Close()

	return collectProgress(rows)
}

func (s *SQLiteStore) GetAllProgress() ([]models.Progress, error) {
	rows, err := s.db.Query(`SELECT id, habit_id, completed_at, day FROM progress ORDER BY day`)
	if err != nil {
		return nil, fmt.Errorf("failed to query progress: %w", err)
	}
	defer rows.Close()

	return collectProgress(rows)
}

func scanProgress(row rowScanner) (models.Progress, error) {
	var p models.Progress
	var completedAt string

	err := row.Scan(&p.ID, &p.HabitID, &completedAt, &p.Day)
	if err == sql.ErrNoRows {
		return models.Progress{}, ErrNotFound
	}
	if err != nil {
		return models.Progress{}, fmt.Errorf("failed to scan progress: %w", err)
	}

	p.CompletedAt, err = time.Parse(time.RFC3339, completedAt)
	if err != nil {
		return models.Progress{}, fmt.Errorf("failed to parse completed_at: %w", err)
	}

	return p, nil
}

func collectProgress(rows *sql.Rows) ([]models.Progress, error) {
	var entries []models.Progress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating progress: %w", err)
	}
	return entries, nil
}

// Notification records

func (s *SQLiteStore) AddNotificationRecord(n models.NotificationRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO notifications (id, kind, entity_id, scheduled_time, message, active)
		VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.Kind, n.EntityID, n.ScheduledTime, n.Message, n.Active)
	if err != nil {
		return fmt.Errorf("failed to insert notification record: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetActiveNotificationRecords() ([]models.NotificationRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, kind, entity_id, scheduled_time, message, active
		FROM notifications WHERE active = 1`)
	if err != nil {
		return nil, fmt.Errorf("failed to query notification records: %w", err)
	}
	defer rows.Close()

	var records []models.NotificationRecord
	for rows.Next() {
		var n models.NotificationRecord
		if err := rows.Scan(&n.ID, &n.Kind, &n.EntityID, &n.ScheduledTime, &n.Message, &n.Active); err != nil {
			return nil, fmt.Errorf("failed to scan notification record: %w", err)
		}
		records = append(records, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification records: %w", err)
	}

	return records, nil
}

func (s *SQLiteStore) DeactivateNotificationRecord(id string) error {
	result, err := s.db.Exec(`UPDATE notifications SET active = 0 WHERE id = ? AND active = 1`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate notification record: %w", err)
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

// Durable message queue

func (s *SQLiteStore) EnqueueMessage(m models.QueuedMessage) error {
	// The unique hash column drops duplicate enqueues of the same message.
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO messages (id, kind, payload, hash, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.Kind, m.Payload, strconv.FormatUint(m.Hash, 10),
		m.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to enqueue message: %w", err)
	}
	return nil
}

func (s *SQLiteStore) PendingMessages() ([]models.QueuedMessage, error) {
	rows, err := s.db.Query(`SELECT id, kind, payload, hash, created_at FROM messages ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []models.QueuedMessage
	for rows.Next() {
		var m models.QueuedMessage
		var hash, createdAt string
		if err := rows.Scan(&m.ID, &m.Kind, &m.Payload, &hash, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Hash, err = strconv.ParseUint(hash, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse message hash: %w", err)
		}
		m.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}

func (s *SQLiteStore) DeleteMessage(id string) error {
	_, err := s.db.Exec(`DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}
