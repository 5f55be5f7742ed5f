package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/b612app/b612/internal/constants"
	"github.com/b612app/b612/internal/models"
	"github.com/b612app/b612/internal/recurrence"
)

// EventStore is the slice of the storage provider the event service needs.
type EventStore interface {
	AddEvent(event models.Event) error
	AddEvents(events []models.Event) error
	GetEvent(id string) (models.Event, error)
	GetEventsByDateRange(start, end string) ([]models.Event, error)
	GetEventInstances(parentID string) ([]models.Event, error)
	UpdateEvent(event models.Event) error
	DeleteEvent(id string) error
}

type EventService struct {
	store EventStore
	now   func() time.Time
}

func NewEventService(store EventStore) *EventService {
	return &EventService{
		store: store,
		now:   time.Now,
	}
}

// Create stores an event. A recurring event becomes a root record plus one
// dated instance per occurrence over the next few months, all written in a
// single transaction. Instances carry the root's ID in ParentEventID and can
// be edited or deleted without touching their siblings.
func (s *EventService) Create(event models.Event) (models.Event, error) {
	if err := event.Validate(); err != nil {
		return models.Event{}, err
	}

	event.ID = uuid.NewString()
	event.CreatedAt = s.now()
	event.ParentEventID = ""
	event.IsRecurring = event.Frequency.Type != models.FrequencyOnce

	if !event.IsRecurring {
		if err := s.store.AddEvent(event); err != nil {
			return models.Event{}, fmt.Errorf("failed to create event: %w", err)
		}
		return event, nil
	}

	instances, err := buildRecurringInstances(event)
	if err != nil {
		return models.Event{}, err
	}

	if err := s.store.AddEvents(append([]models.Event{event}, instances...)); err != nil {
		return models.Event{}, fmt.Errorf("failed to create recurring event: %w", err)
	}

	return event, nil
}

// buildRecurringInstances expands a recurring root event into concrete dated
// instances, starting the day after the root's own date. The horizon is
// capped both by calendar distance and by instance count.
func buildRecurringInstances(root models.Event) ([]models.Event, error) {
	start, err := time.Parse(constants.DateFormat, root.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid event date: %w", err)
	}
	horizon := start.AddDate(0, constants.RecurringInstanceMonths, 0)

	var instances []models.Event
	for day := start.AddDate(0, 0, 1); !day.After(horizon); day = day.AddDate(0, 0, 1) {
		if !recurrence.IsActiveOn(root.Frequency, day) {
			continue
		}

		instance := root
		instance.ID = uuid.NewString()
		instance.Date = day.Format(constants.DateFormat)
		instance.Frequency = models.Frequency{Type: models.FrequencyOnce}
		instance.IsRecurring = false
		instance.ParentEventID = root.ID
		instances = append(instances, instance)

		if len(instances) >= constants.MaxRecurringInstances {
			break
		}
	}

	return instances, nil
}

func (s *EventService) Get(id string) (models.Event, error) {
	return s.store.GetEvent(id)
}

// ListRange returns events whose date falls within [start, end], ordered by
// date and start time.
func (s *EventService) ListRange(start, end string) ([]models.Event, error) {
	if _, err := time.Parse(constants.DateFormat, start); err != nil {
		return nil, fmt.Errorf("invalid start date: %w", err)
	}
	if _, err := time.Parse(constants.DateFormat, end); err != nil {
		return nil, fmt.Errorf("invalid end date: %w", err)
	}
	return s.store.GetEventsByDateRange(start, end)
}

// ListDay returns the events occurring on a single day.
func (s *EventService) ListDay(day string) ([]models.Event, error) {
	return s.ListRange(day, day)
}

// Update replaces an event's fields. Recurrence shape is fixed at creation:
// updating a root does not regenerate its instances, and an instance keeps
// its parent link.
func (s *EventService) Update(event models.Event) (models.Event, error) {
	if err := event.Validate(); err != nil {
		return models.Event{}, err
	}

	current, err := s.store.GetEvent(event.ID)
	if err != nil {
		return models.Event{}, err
	}

	event.IsRecurring = current.IsRecurring
	event.ParentEventID = current.ParentEventID
	event.CreatedAt = current.CreatedAt

	if err := s.store.UpdateEvent(event); err != nil {
		return models.Event{}, fmt.Errorf("failed to update event: %w", err)
	}

	return event, nil
}

// Delete removes an event. Deleting a recurring root also removes all of its
// instances; deleting an instance leaves the rest of the series alone.
func (s *EventService) Delete(id string) error {
	event, err := s.store.GetEvent(id)
	if err != nil {
		return err
	}

	if event.IsRecurring {
		instances, err := s.store.GetEventInstances(id)
		if err != nil {
			return err
		}
		for _, instance := range instances {
			if err := s.store.DeleteEvent(instance.ID); err != nil {
				return fmt.Errorf("failed to delete event instance %s: %w", instance.ID, err)
			}
		}
	}

	return s.store.DeleteEvent(id)
}
