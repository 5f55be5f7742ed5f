package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/b612app/b612/internal/models"
)

const habitColumns = `id, title, description, icon, frequency_type, custom_days,
	streak, last_completed, has_notification, notification_time, active, created_at`

func (s *SQLiteStore) AddHabit(habit models.Habit) error {
	customDays, err := json.Marshal(habit.Frequency.CustomDays)
	if err != nil {
		return fmt.Errorf("failed to marshal custom days: %w", err)
	}

	var lastCompleted sql.NullString
	if habit.LastCompleted != nil {
		lastCompleted = sql.NullString{String: habit.LastCompleted.Format(time.RFC3339), Valid: true}
	}

	_, err = s.db.Exec(`
		INSERT INTO habits (`+habitColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		habit.ID, habit.Title, habit.Description, habit.Icon,
		string(habit.Frequency.Type), string(customDays),
		habit.Streak, lastCompleted, habit.HasNotification,
		habit.NotificationTime, habit.Active, habit.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert habit: %w", err)
	}

	return nil
}

func (s *SQLiteStore) GetHabit(id string) (models.Habit, error) {
	row := s.db.QueryRow(`SELECT `+habitColumns+` FROM habits WHERE id = ?`, id)
	return scanHabit(row)
}

func (s *SQLiteStore) GetHabitByTitle(title string) (models.Habit, error) {
	row := s.db.QueryRow(`SELECT `+habitColumns+` FROM habits WHERE title = ? AND active = 1`, title)
	return scanHabit(row)
}

func (s *SQLiteStore) GetAllHabits(includeInactive bool) ([]models.Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits`
	if !includeInactive {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query habits: %w", err)
	}
	defer rows.Close()

	return collectHabits(rows)
}

func (s *SQLiteStore) GetHabitsWithNotifications() ([]models.Habit, error) {
	rows, err := s.db.Query(`
		SELECT ` + habitColumns + ` FROM habits
		WHERE active = 1 AND has_notification = 1
		ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query habits: %w", err)
	}
	defer rows.Close()

	return collectHabits(rows)
}

func (s *SQLiteStore) UpdateHabit(habit models.Habit) error {
	customDays, err := json.Marshal(habit.Frequency.CustomDays)
	if err != nil {
		return fmt.Errorf("failed to marshal custom days: %w", err)
	}

	var lastCompleted sql.NullString
	if habit.LastCompleted != nil {
		lastCompleted = sql.NullString{String: habit.LastCompleted.Format(time.RFC3339), Valid: true}
	}

	result, err := s.db.Exec(`
		UPDATE habits SET
			title = ?, description = ?, icon = ?,
			frequency_type = ?, custom_days = ?,
			streak = ?, last_completed = ?,
			has_notification = ?, notification_time = ?, active = ?
		WHERE id = ?`,
		habit.Title, habit.Description, habit.Icon,
		string(habit.Frequency.Type), string(customDays),
		habit.Streak, lastCompleted,
		habit.HasNotification, habit.NotificationTime, habit.Active,
		habit.ID)
	if err != nil {
		return fmt.Errorf("failed to update habit: %w", err)
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

func (s *SQLiteStore) DeactivateHabit(id string) error {
	result, err := s.db.Exec(`UPDATE habits SET active = 0 WHERE id = ? AND active = 1`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate habit: %w", err)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHabit(row rowScanner) (models.Habit, error) {
	var h models.Habit
	var frequencyType, customDaysJSON, createdAt string
	var lastCompleted sql.NullString

	err := row.Scan(&h.ID, &h.Title, &h.Description, &h.Icon,
		&frequencyType, &customDaysJSON, &h.Streak, &lastCompleted,
		&h.HasNotification, &h.NotificationTime, &h.Active, &createdAt)
	if err == sql.ErrNoRows {
		return models.Habit{}, ErrNotFound
	}
	if err != nil {
		return models.Habit{}, fmt.Errorf("failed to scan habit: %w", err)
	}

	h.Frequency.Type = models.FrequencyType(frequencyType)
	if err := json.Unmarshal([]byte(customDaysJSON), &h.Frequency.CustomDays); err != nil {
		return models.Habit{}, fmt.Errorf("failed to unmarshal custom days: %w", err)
	}

	if lastCompleted.Valid {
		t, err := time.Parse(time.RFC3339, lastCompleted.String)
		if err != nil {
			return models.Habit{}, fmt.Errorf("failed to parse last_completed: %w", err)
		}
		h.LastCompleted = &t
	}

	h.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return models.Habit{}, fmt.Errorf("failed to parse created_at: %w", err)
	}

	return h, nil
}

func collectHabits(rows *sql.Rows) ([]models.Habit, error) {
	var habits []models.Habit
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, err
		}
		habits = append(habits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating habits: %w", err)
	}
	return habits, nil
}
