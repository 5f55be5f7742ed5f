package bus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/b612app/b612/internal/logger"
	"github.com/b612app/b612/internal/models"
)

// QueueStore is the slice of the storage provider the outbox needs.
type QueueStore interface {
	EnqueueMessage(m models.QueuedMessage) error
	PendingMessages() ([]models.QueuedMessage, error)
	DeleteMessage(id string) error
}

// Outbox delivers messages to a peer process. When the peer is not running
// the message is parked in the durable queue and handed over the next time
// Drain finds a live peer. Duplicate messages collapse to one queue entry
// via their content hash.
type Outbox struct {
	store        QueueStore
	peerLockfile string

	// injectable for tests
	send func(Peer, Message) error
	find func(string) (Peer, error)
	now  func() time.Time
}

func NewOutbox(store QueueStore, peerLockfile string) *Outbox {
	return &Outbox{
		store:        store,
		peerLockfile: peerLockfile,
		send:         Send,
		find:         FindPeer,
		now:          time.Now,
	}
}

// Deliver sends a message to the peer if it is alive, otherwise parks it
// durably. Parking is not an error; the message will arrive later.
func (o *Outbox) Deliver(msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	peer, err := o.find(o.peerLockfile)
	if err == nil {
		if err := o.send(peer, msg); err == nil {
			return nil
		}
		logger.Debug("live delivery failed, parking message", "type", msg.Type)
	}

	return o.park(msg)
}

func (o *Outbox) park(msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	hash, err := msg.ContentHash()
	if err != nil {
		return err
	}

	return o.store.EnqueueMessage(models.QueuedMessage{
		ID:        uuid.NewString(),
		Kind:      string(msg.Type),
		Payload:   payload,
		Hash:      hash,
		CreatedAt: o.now(),
	})
}

// Drain forwards parked messages to the peer, oldest first, and returns how
// many were delivered. Draining stops at the first delivery failure so
// ordering is preserved for the rest of the queue.
func (o *Outbox) Drain() (int, error) {
	pending, err := o.store.PendingMessages()
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	peer, err := o.find(o.peerLockfile)
	if err != nil {
		return 0, nil
	}

	delivered := 0
	for _, queued := range pending {
		var msg Message
		if err := json.Unmarshal(queued.Payload, &msg); err != nil {
			// Undecodable entries can never be delivered. Drop them.
			logger.Warn("dropping undecodable queued message", "id", queued.ID, "error", err)
			if err := o.store.DeleteMessage(queued.ID); err != nil {
				return delivered, err
			}
			continue
		}

		if err := o.send(peer, msg); err != nil {
			return delivered, nil
		}
		if err := o.store.DeleteMessage(queued.ID); err != nil {
			return delivered, err
		}
		delivered++
	}

	return delivered, nil
}
