package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b612app/b612/internal/models"
	"github.com/b612app/b612/internal/storage"
)

func newTestEventService(store *fakeStore, now time.Time) *EventService {
	s := NewEventService(store)
	s.now = func() time.Time { return now }
	return s
}

func TestCreateOnceEvent(t *testing.T) {
	store := newFakeStore()
	svc := newTestEventService(store, time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC))

	created, err := svc.Create(models.Event{
		Title:     "Dentist",
		Date:      "2026-09-10",
		StartTime: "14:30",
		Frequency: models.Frequency{Type: models.FrequencyOnce},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.False(t, created.IsRecurring)
	assert.Len(t, store.events, 1)
}

func TestCreateRecurringEventSpawnsInstances(t *testing.T) {
	store := newFakeStore()
	svc := newTestEventService(store, time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC))

	root, err := svc.Create(models.Event{
		Title:     "Standup",
		Date:      "2026-08-31", // a Monday
		StartTime: "10:00",
		Frequency: models.Frequency{
			Type:       models.FrequencyCustom,
			CustomDays: []time.Weekday{time.Monday},
		},
	})
	require.NoError(t, err)
	assert.True(t, root.IsRecurring)

	instances, err := store.GetEventInstances(root.ID)
	require.NoError(t, err)
	require.NotEmpty(t, instances)

	// Instances start the day after the root date, one per matching weekday
	// across a three month horizon.
	assert.Equal(t, "2026-09-07", instances[0].Date)
	assert.Equal(t, 13, len(instances))

	for _, inst := range instances {
		assert.False(t, inst.IsRecurring)
		assert.Equal(t, root.ID, inst.ParentEventID)
		assert.Equal(t, models.FrequencyOnce, inst.Frequency.Type)
		assert.Equal(t, root.Title, inst.Title)
		assert.Equal(t, root.StartTime, inst.StartTime)

		day, perr := time.Parse("2006-01-02", inst.Date)
		require.NoError(t, perr)
		assert.Equal(t, time.Monday, day.Weekday())
	}
}

func TestCreateDailyRecurringEventHorizon(t *testing.T) {
	store := newFakeStore()
	svc := newTestEventService(store, time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC))

	root, err := svc.Create(models.Event{
		Title:     "Walk",
		Date:      "2026-09-01",
		StartTime: "07:00",
		Frequency: models.Frequency{Type: models.FrequencyDaily},
	})
	require.NoError(t, err)

	instances, err := store.GetEventInstances(root.ID)
	require.NoError(t, err)

	// 2026-09-02 through 2026-12-01 inclusive
	assert.Equal(t, 91, len(instances))
	assert.Equal(t, "2026-09-02", instances[0].Date)
	assert.Equal(t, "2026-12-01", instances[len(instances)-1].Date)
}

func TestUpdateEventPreservesRecurrenceShape(t *testing.T) {
	store := newFakeStore()
	svc := newTestEventService(store, time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC))

	root, err := svc.Create(models.Event{
		Title:     "Standup",
		Date:      "2026-08-31",
		StartTime: "10:00",
		Frequency: models.Frequency{Type: models.FrequencyWeekly},
	})
	require.NoError(t, err)

	edited := root
	edited.Title = "Weekly sync"
	edited.IsRecurring = false // caller cannot change recurrence shape
	edited.ParentEventID = "bogus"

	updated, err := svc.Update(edited)
	require.NoError(t, err)

	assert.Equal(t, "Weekly sync", updated.Title)
	assert.True(t, updated.IsRecurring)
	assert.Empty(t, updated.ParentEventID)
}

func TestDeleteRecurringRootCascades(t *testing.T) {
	store := newFakeStore()
	svc := newTestEventService(store, time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC))

	root, err := svc.Create(models.Event{
		Title:     "Standup",
		Date:      "2026-08-31",
		StartTime: "10:00",
		Frequency: models.Frequency{Type: models.FrequencyWeekly},
	})
	require.NoError(t, err)
	require.NotEmpty(t, store.events)

	require.NoError(t, svc.Delete(root.ID))
	assert.Empty(t, store.events)
}

func TestDeleteInstanceLeavesSiblings(t *testing.T) {
	store := newFakeStore()
	svc := newTestEventService(store, time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC))

	root, err := svc.Create(models.Event{
		Title:     "Standup",
		Date:      "2026-08-31",
		StartTime: "10:00",
		Frequency: models.Frequency{Type: models.FrequencyWeekly},
	})
	require.NoError(t, err)

	instances, err := store.GetEventInstances(root.ID)
	require.NoError(t, err)
	require.True(t, len(instances) >= 2)

	require.NoError(t, svc.Delete(instances[0].ID))

	remaining, err := store.GetEventInstances(root.ID)
	require.NoError(t, err)
	assert.Len(t, remaining, len(instances)-1)

	_, err = svc.Get(root.ID)
	assert.NoError(t, err)
}

func TestDeleteMissingEvent(t *testing.T) {
	svc := newTestEventService(newFakeStore(), time.Now())

	err := svc.Delete("missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListRangeValidatesDates(t *testing.T) {
	svc := newTestEventService(newFakeStore(), time.Now())

	_, err := svc.ListRange("not-a-date", "2026-09-01")
	assert.Error(t, err)
}
