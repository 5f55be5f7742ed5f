// Package service implements the domain operations on habits and events.
// Services validate input, own streak and completion rules, and leave
// persistence to a storage provider.
package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/b612app/b612/internal/constants"
	"github.com/b612app/b612/internal/models"
	"github.com/b612app/b612/internal/recurrence"
	"github.com/b612app/b612/internal/storage"
)

var (
	// ErrAlreadyCompleted is returned when a habit is completed twice on
	// the same calendar day.
	ErrAlreadyCompleted = errors.New("habit already completed today")
	// ErrDuplicateTitle is returned when a new habit reuses the title of
	// an active habit.
	ErrDuplicateTitle = errors.New("an active habit with this title already exists")
)

// HabitStore is the slice of the storage provider the habit service needs.
type HabitStore interface {
	AddHabit(habit models.Habit) error
	GetHabit(id string) (models.Habit, error)
	GetHabitByTitle(title string) (models.Habit, error)
	GetAllHabits(includeInactive bool) ([]models.Habit, error)
	UpdateHabit(habit models.Habit) error
	DeactivateHabit(id string) error
	AddProgress(p models.Progress) error
	GetProgressForDay(habitID, day string) (models.Progress, error)
	GetProgressForHabit(habitID string) ([]models.Progress, error)
}

type HabitService struct {
	store HabitStore
	now   func() time.Time
}

func NewHabitService(store HabitStore) *HabitService {
	return &HabitService{
		store: store,
		now:   time.Now,
	}
}

func (s *HabitService) Create(habit models.Habit) (models.Habit, error) {
	if err := habit.Validate(); err != nil {
		return models.Habit{}, err
	}

	if _, err := s.store.GetHabitByTitle(habit.Title); err == nil {
		return models.Habit{}, ErrDuplicateTitle
	} else if !errors.Is(err, storage.ErrNotFound) {
		return models.Habit{}, err
	}

	habit.ID = uuid.NewString()
	habit.Streak = 0
	habit.LastCompleted = nil
	habit.Active = true
	habit.CreatedAt = s.now()

	if err := s.store.AddHabit(habit); err != nil {
		return models.Habit{}, fmt.Errorf("failed to create habit: %w", err)
	}

	return habit, nil
}

func (s *HabitService) Get(id string) (models.Habit, error) {
	return s.store.GetHabit(id)
}

func (s *HabitService) GetByTitle(title string) (models.Habit, error) {
	return s.store.GetHabitByTitle(title)
}

func (s *HabitService) List(includeInactive bool) ([]models.Habit, error) {
	return s.store.GetAllHabits(includeInactive)
}

// Update replaces the mutable fields of a habit. Streak and completion state
// are owned by Complete and pass through unchanged from the stored record.
func (s *HabitService) Update(habit models.Habit) (models.Habit, error) {
	if err := habit.Validate(); err != nil {
		return models.Habit{}, err
	}

	current, err := s.store.GetHabit(habit.ID)
	if err != nil {
		return models.Habit{}, err
	}

	habit.Streak = current.Streak
	habit.LastCompleted = current.LastCompleted
	habit.Active = current.Active
	habit.CreatedAt = current.CreatedAt

	if err := s.store.UpdateHabit(habit); err != nil {
		return models.Habit{}, fmt.Errorf("failed to update habit: %w", err)
	}

	return habit, nil
}

// Delete soft-deletes a habit. Progress history stays in the store.
func (s *HabitService) Delete(id string) error {
	return s.store.DeactivateHabit(id)
}

// Complete marks a habit done for the current day. A habit can only be
// completed once per calendar day; the second attempt returns
// ErrAlreadyCompleted. Completion sets the streak to 1 and records a
// progress entry.
func (s *HabitService) Complete(id string) (models.Habit, error) {
	habit, err := s.store.GetHabit(id)
	if err != nil {
		return models.Habit{}, err
	}
	if !habit.Active {
		return models.Habit{}, storage.ErrNotFound
	}

	now := s.now()
	day := now.Format(constants.DateFormat)

	if habit.CompletedOn(day) {
		return models.Habit{}, ErrAlreadyCompleted
	}
	if _, err := s.store.GetProgressForDay(id, day); err == nil {
		return models.Habit{}, ErrAlreadyCompleted
	} else if !errors.Is(err, storage.ErrNotFound) {
		return models.Habit{}, err
	}

	habit.Streak = 1
	habit.LastCompleted = &now

	if err := s.store.UpdateHabit(habit); err != nil {
		return models.Habit{}, fmt.Errorf("failed to record completion: %w", err)
	}

	progress := models.Progress{
		ID:          uuid.NewString(),
		HabitID:     id,
		CompletedAt: now,
		Day:         day,
	}
	if err := s.store.AddProgress(progress); err != nil {
		return models.Habit{}, fmt.Errorf("failed to record progress: %w", err)
	}

	return habit, nil
}

// History returns the completion records for a habit, most recent first.
func (s *HabitService) History(id string) ([]models.Progress, error) {
	return s.store.GetProgressForHabit(id)
}

// DueOn returns the active habits whose frequency is active on the given
// day and that have not yet been completed on it.
func (s *HabitService) DueOn(now time.Time) ([]models.Habit, error) {
	habits, err := s.store.GetAllHabits(false)
	if err != nil {
		return nil, err
	}

	day := now.Format(constants.DateFormat)
	var due []models.Habit
	for _, h := range habits {
		if !recurrence.IsActiveOn(h.Frequency, now) {
			continue
		}
		if h.CompletedOn(day) {
			continue
		}
		due = append(due, h)
	}

	return due, nil
}
