package service

import (
	"sort"

	"github.com/b612app/b612/internal/models"
	"github.com/b612app/b612/internal/storage"
)

// fakeStore is an in-memory stand-in for the storage provider.
type fakeStore struct {
	habits   map[string]models.Habit
	events   map[string]models.Event
	progress map[string]models.Progress // habitID|day
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		habits:   map[string]models.Habit{},
		events:   map[string]models.Event{},
		progress: map[string]models.Progress{},
	}
}

func (f *fakeStore) AddHabit(h models.Habit) error {
	f.habits[h.ID] = h
	return nil
}

func (f *fakeStore) GetHabit(id string) (models.Habit, error) {
	h, ok := f.habits[id]
	if !ok {
		return models.Habit{}, storage.ErrNotFound
	}
	return h, nil
}

func (f *fakeStore) GetHabitByTitle(title string) (models.Habit, error) {
	for _, h := range f.habits {
		if h.Title == title && h.Active {
			return h, nil
		}
	}
	return models.Habit{}, storage.ErrNotFound
}

func (f *fakeStore) GetAllHabits(includeInactive bool) ([]models.Habit, error) {
	var habits []models.Habit
	for _, h := range f.habits {
		if h.Active || includeInactive {
			habits = append(habits, h)
		}
	}
	sort.Slice(habits, func(i, j int) bool { return habits[i].Title < habits[j].Title })
	return habits, nil
}

func (f *fakeStore) UpdateHabit(h models.Habit) error {
	if _, ok := f.habits[h.ID]; !ok {
		return storage.ErrNotFound
	}
	f.habits[h.ID] = h
	return nil
}

func (f *fakeStore) DeactivateHabit(id string) error {
	h, ok := f.habits[id]
	if !ok || !h.Active {
		return storage.ErrNotFound
	}
	h.Active = false
	f.habits[id] = h
	return nil
}

func (f *fakeStore) AddProgress(p models.Progress) error {
	f.progress[p.HabitID+"|"+p.Day] = p
	return nil
}

func (f *fakeStore) GetProgressForDay(habitID, day string) (models.Progress, error) {
	p, ok := f.progress[habitID+"|"+day]
	if !ok {
		return models.Progress{}, storage.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) GetProgressForHabit(habitID string) ([]models.Progress, error) {
	var entries []models.Progress
	for _, p := range f.progress {
		if p.HabitID == habitID {
			entries = append(entries, p)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Day > entries[j].Day })
	return entries, nil
}

func (f *fakeStore) AddEvent(e models.Event) error {
	f.events[e.ID] = e
	return nil
}

func (f *fakeStore) AddEvents(events []models.Event) error {
	for _, e := range events {
		f.events[e.ID] = e
	}
	return nil
}

func (f *fakeStore) GetEvent(id string) (models.Event, error) {
	e, ok := f.events[id]
	if !ok {
		return models.Event{}, storage.ErrNotFound
	}
	return e, nil
}

func (f *fakeStore) GetEventsByDateRange(start, end string) ([]models.Event, error) {
	var events []models.Event
	for _, e := range f.events {
		if e.Date >= start && e.Date <= end {
			events = append(events, e)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].Date != events[j].Date {
			return events[i].Date < events[j].Date
		}
		return events[i].StartTime < events[j].StartTime
	})
	return events, nil
}

func (f *fakeStore) GetEventInstances(parentID string) ([]models.Event, error) {
	var events []models.Event
	for _, e := range f.events {
		if e.ParentEventID == parentID {
			events = append(events, e)
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Date < events[j].Date })
	return events, nil
}

func (f *fakeStore) UpdateEvent(e models.Event) error {
	if _, ok := f.events[e.ID]; !ok {
		return storage.ErrNotFound
	}
	f.events[e.ID] = e
	return nil
}

func (f *fakeStore) DeleteEvent(id string) error {
	if _, ok := f.events[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.events, id)
	return nil
}
