package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	_ "github.com/lib/pq"

	"github.com/b612app/b612/internal/models"
)

type PostgresStore struct {
	connStr string
	db      *sql.DB
}

func NewPostgresStore(connStr string) *PostgresStore {
	return &PostgresStore{
		connStr: connStr,
	}
}

// HasEmbeddedCredentials reports whether a PostgreSQL connection string
// carries a password inline. Credentials belong in the OS keyring, the
// environment or .pgpass, never on the command line.
func HasEmbeddedCredentials(connStr string) bool {
	u, err := url.Parse(connStr)
	if err != nil {
		return false
	}
	if u.User == nil {
		return false
	}
	_, hasPassword := u.User.Password()
	return hasPassword
}

func (s *PostgresStore) Init() error {
	db, err := sql.Open("postgres", s.connStr)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	s.db = db

	if err := s.db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := s.createSchema(); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

func (s *PostgresStore) Load() error {
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("postgres", s.connStr)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	s.db = db

	if err := s.db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := s.createSchema(); err != nil {
		return fmt.Errorf("failed to validate schema: %w", err)
	}

	return nil
}

func (s *PostgresStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *PostgresStore) GetConfigPath() string {
	return s.connStr
}

func (s *PostgresStore) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS habits (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			icon TEXT NOT NULL DEFAULT '',
			frequency_type TEXT NOT NULL,
			custom_days TEXT NOT NULL DEFAULT '[]',
			streak INTEGER NOT NULL DEFAULT 0,
			last_completed TEXT,
			has_notification BOOLEAN NOT NULL DEFAULT FALSE,
			notification_time TEXT NOT NULL DEFAULT '',
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			date TEXT NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			frequency_type TEXT NOT NULL DEFAULT 'once',
			custom_days TEXT NOT NULL DEFAULT '[]',
			has_notification BOOLEAN NOT NULL DEFAULT FALSE,
			notification_time TEXT NOT NULL DEFAULT '',
			is_recurring BOOLEAN NOT NULL DEFAULT FALSE,
			parent_event_id TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_date ON events(date)`,
		`CREATE TABLE IF NOT EXISTS progress (
			id TEXT PRIMARY KEY,
			habit_id TEXT NOT NULL,
			completed_at TEXT NOT NULL,
			day TEXT NOT NULL,
			UNIQUE(habit_id, day)
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			scheduled_time TEXT NOT NULL,
			message TEXT NOT NULL DEFAULT '',
			active BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			payload BYTEA NOT NULL,
			hash TEXT NOT NULL UNIQUE,
			created_at TEXT NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}

// Habits

func (s *PostgresStore) AddHabit(habit models.Habit) error {
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
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		habit.ID, habit.Title, habit.Description, habit.Icon,
		string(habit.Frequency.Type), string(customDays),
		habit.Streak, lastCompleted, habit.HasNotification,
		habit.NotificationTime, habit.Active, habit.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert habit: %w", err)
	}

	return nil
}

func (s *PostgresStore) GetHabit(id string) (models.Habit, error) {
	row := s.db.QueryRow(`SELECT `+habitColumns+` FROM habits WHERE id = $1`, id)
	return scanHabit(row)
}

func (s *PostgresStore) GetHabitByTitle(title string) (models.Habit, error) {
	row := s.db.QueryRow(`SELECT `+habitColumns+` FROM habits WHERE title = $1 AND active`, title)
	return scanHabit(row)
}

func (s *PostgresStore) GetAllHabits(includeInactive bool) ([]models.Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits`
	if !includeInactive {
		query += ` WHERE active`
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query habits: %w", err)
	}
	defer rows.Close()

	return collectHabits(rows)
}

func (s *PostgresStore) GetHabitsWithNotifications() ([]models.Habit, error) {
	rows, err := s.db.Query(`
		SELECT ` + habitColumns + ` FROM habits
		WHERE active AND has_notification
		ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query habits: %w", err)
	}
	defer rows.Close()

	return collectHabits(rows)
}

func (s *PostgresStore) UpdateHabit(habit models.Habit) error {
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
			title = $1, description = $2, icon = $3,
			frequency_type = $4, custom_days = $5,
			streak = $6, last_completed = $7,
			has_notification = $8, notification_time = $9, active = $10
		WHERE id = $11`,
		habit.Title, habit.Description, habit.Icon,
		string(habit.Frequency.Type), string(customDays),
		habit.Streak, lastCompleted,
		habit.HasNotification, habit.NotificationTime, habit.Active,
		habit.ID)
	if err != nil {
		return fmt.Errorf("failed to update habit: %w", err)
	}

	return requireRows(result)
}

func (s *PostgresStore) DeactivateHabit(id string) error {
	result, err := s.db.Exec(`UPDATE habits SET active = FALSE WHERE id = $1 AND active`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate habit: %w", err)
	}
	return requireRows(result)
}

// Events

func (s *PostgresStore) AddEvent(event models.Event) error {
	return s.insertEvent(s.db.Exec, event)
}

func (s *PostgresStore) AddEvents(events []models.Event) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, event := range events {
		if err := s.insertEvent(tx.Exec, event); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *PostgresStore) insertEvent(exec func(string, ...any) (sql.Result, error), event models.Event) error {
	customDays, err := json.Marshal(event.Frequency.CustomDays)
	if err != nil {
		return fmt.Errorf("failed to marshal custom days: %w", err)
	}

	_, err = exec(`
		INSERT INTO events (`+eventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		event.ID, event.Title, event.Description, event.Date,
		event.StartTime, event.EndTime, event.Category,
		string(event.Frequency.Type), string(customDays),
		event.HasNotification, event.NotificationTime,
		event.IsRecurring, event.ParentEventID,
		event.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert event %s: %w", event.ID, err)
	}

	return nil
}

func (s *PostgresStore) GetEvent(id string) (models.Event, error) {
	row := s.db.QueryRow(`SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	return scanEvent(row)
}

func (s *PostgresStore) GetAllEvents() ([]models.Event, error) {
	rows, err := s.db.Query(`SELECT ` + eventColumns + ` FROM events ORDER BY date, start_time`)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	return collectEvents(rows)
}

func (s *PostgresStore) GetEventByTitleAndDate(title, date string) (models.Event, error) {
	row := s.db.QueryRow(`SELECT `+eventColumns+` FROM events WHERE title = $1 AND date = $2`, title, date)
	return scanEvent(row)
}

func (s *PostgresStore) GetEventsByDateRange(start, end string) ([]models.Event, error) {
	rows, err := s.db.Query(`
		SELECT `+eventColumns+` FROM events
		WHERE date >= $1 AND date <= $2
		ORDER BY date, start_time`, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	return collectEvents(rows)
}

func (s *PostgresStore) GetEventInstances(parentID string) ([]models.Event, error) {
	rows, err := s.db.Query(`
		SELECT `+eventColumns+` FROM events
		WHERE parent_event_id = $1
		ORDER BY date`, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query event instances: %w", err)
	}
	defer rows.Close()

	return collectEvents(rows)
}

func (s *PostgresStore) UpdateEvent(event models.Event) error {
	customDays, err := json.Marshal(event.Frequency.CustomDays)
	if err != nil {
		return fmt.Errorf("failed to marshal custom days: %w", err)
	}

	result, err := s.db.Exec(`
		UPDATE events SET
			title = $1, description = $2, date = $3, start_time = $4, end_time = $5,
			category = $6, frequency_type = $7, custom_days = $8,
			has_notification = $9, notification_time = $10,
			is_recurring = $11, parent_event_id = $12
		WHERE id = $13`,
		event.Title, event.Description, event.Date, event.StartTime, event.EndTime,
		event.Category, string(event.Frequency.Type), string(customDays),
		event.HasNotification, event.NotificationTime,
		event.IsRecurring, event.ParentEventID,
		event.ID)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}

	return requireRows(result)
}

func (s *PostgresStore) DeleteEvent(id string) error {
	result, err := s.db.Exec(`DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return requireRows(result)
}

// Progress

func (s *PostgresStore) AddProgress(p models.Progress) error {
	_, err := s.db.Exec(`
		INSERT INTO progress (id, habit_id, completed_at, day)
		VALUES ($1, $2, $3, $4)`,
		p.ID, p.HabitID, p.CompletedAt.Format(time.RFC3339), p.Day)
	if err != nil {
		return fmt.Errorf("failed to insert progress: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetProgressForDay(habitID, day string) (models.Progress, error) {
	row := s.db.QueryRow(`
		SELECT id, habit_id, completed_at, day FROM progress
		WHERE habit_id = $1 AND day = $2`, habitID, day)
	return scanProgress(row)
}

func (s *PostgresStore) GetProgressForHabit(habitID string) ([]models.Progress, error) {
	rows, err := s.db.Query(`
		SELECT id, habit_id, completed_at, day FROM progress
		WHERE habit_id = $1 ORDER BY day DESC`, habitID)
	if err != nil {
		return nil, fmt.Errorf("failed to query progress: %w", err)
	}
	defer rows.Close()

	return collectProgress(rows)
}

func (s *PostgresStore) GetAllProgress() ([]models.Progress, error) {
	rows, err := s.db.Query(`SELECT id, habit_id, completed_at, day FROM progress ORDER BY day`)
	if err != nil {
		return nil, fmt.Errorf("failed to query progress: %w", err)
	}
	defer rows.Close()

	return collectProgress(rows)
}

// Notification records

func (s *PostgresStore) AddNotificationRecord(n models.NotificationRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO notifications (id, kind, entity_id, scheduled_time, message, active)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		n.ID, n.Kind, n.EntityID, n.ScheduledTime, n.Message, n.Active)
	if err != nil {
		return fmt.Errorf("failed to insert notification record: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetActiveNotificationRecords() ([]models.NotificationRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, kind, entity_id, scheduled_time, message, active
		FROM notifications WHERE active`)
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

func (s *PostgresStore) DeactivateNotificationRecord(id string) error {
	result, err := s.db.Exec(`UPDATE notifications SET active = FALSE WHERE id = $1 AND active`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate notification record: %w", err)
	}
	return requireRows(result)
}

// Durable message queue

func (s *PostgresStore) EnqueueMessage(m models.QueuedMessage) error {
	_, err := s.db.Exec(`
		INSERT INTO messages (id, kind, payload, hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (hash) DO NOTHING`,
		m.ID, m.Kind, m.Payload, strconv.FormatUint(m.Hash, 10),
		m.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to enqueue message: %w", err)
	}
	return nil
}

func (s *PostgresStore) PendingMessages() ([]models.QueuedMessage, error) {
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

func (s *PostgresStore) DeleteMessage(id string) error {
	_, err := s.db.Exec(`DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

func (s *PostgresStore) Counts() (Counts, error) {
	var c Counts
	tables := []struct {
		name string
		dst  *int
	}{
		{"habits", &c.Habits},
		{"events", &c.Events},
		{"progress", &c.Progress},
		{"notifications", &c.Notifications},
	}

	for _, t := range tables {
		row := s.db.QueryRow("SELECT COUNT(*) FROM " + t.name)
		if err := row.Scan(t.dst); err != nil {
			return Counts{}, fmt.Errorf("failed to count %s: %w", t.name, err)
		}
	}

	return c, nil
}

func requireRows(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
