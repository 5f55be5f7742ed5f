package bus

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/b612app/b612/internal/models"
)

type fakeQueueStore struct {
	messages []models.QueuedMessage
}

func (f *fakeQueueStore) EnqueueMessage(m models.QueuedMessage) error {
	for _, existing := range f.messages {
		if existing.Hash == m.Hash {
			return nil
		}
	}
	f.messages = append(f.messages, m)
	return nil
}

func (f *fakeQueueStore) PendingMessages() ([]models.QueuedMessage, error) {
	return append([]models.QueuedMessage(nil), f.messages...), nil
}

func (f *fakeQueueStore) DeleteMessage(id string) error {
	for i, m := range f.messages {
		if m.ID == id {
			f.messages = append(f.messages[:i], f.messages[i+1:]...)
			return nil
		}
	}
	return nil
}

func newTestOutbox(store *fakeQueueStore) *Outbox {
	o := NewOutbox(store, "peer.lock")
	o.find = func(string) (Peer, error) { return Peer{}, errors.New("no peer") }
	o.send = func(Peer, Message) error { return errors.New("no peer") }
	o.now = func() time.Time { return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) }
	return o
}

func TestDeliverParksWithoutPeer(t *testing.T) {
	store := &fakeQueueStore{}
	outbox := newTestOutbox(store)

	msg := Message{Type: KindCompleteHabit, HabitID: "h1"}
	if err := outbox.Deliver(msg); err != nil {
		t.Fatalf("Deliver() failed: %v", err)
	}

	if len(store.messages) != 1 {
		t.Fatalf("queue holds %d messages, want 1", len(store.messages))
	}
	if store.messages[0].Kind != string(KindCompleteHabit) {
		t.Errorf("queued kind = %q, want %q", store.messages[0].Kind, KindCompleteHabit)
	}
}

func TestDeliverCollapsesDuplicates(t *testing.T) {
	store := &fakeQueueStore{}
	outbox := newTestOutbox(store)

	msg := Message{Type: KindCompleteHabit, HabitID: "h1"}
	for i := 0; i < 3; i++ {
		if err := outbox.Deliver(msg); err != nil {
			t.Fatalf("Deliver() #%d failed: %v", i, err)
		}
	}

	if len(store.messages) != 1 {
		t.Errorf("queue holds %d messages, want 1 after duplicate delivers", len(store.messages))
	}

	// A different message still gets its own entry
	other := Message{Type: KindCompleteHabit, HabitID: "h2"}
	if err := outbox.Deliver(other); err != nil {
		t.Fatalf("Deliver() failed: %v", err)
	}
	if len(store.messages) != 2 {
		t.Errorf("queue holds %d messages, want 2", len(store.messages))
	}
}

func TestDeliverPrefersLivePeer(t *testing.T) {
	store := &fakeQueueStore{}
	outbox := newTestOutbox(store)

	var sent []Message
	outbox.find = func(string) (Peer, error) { return Peer{Port: "4242"}, nil }
	outbox.send = func(_ Peer, msg Message) error {
		sent = append(sent, msg)
		return nil
	}

	if err := outbox.Deliver(Message{Type: KindUpdateNotifications}); err != nil {
		t.Fatalf("Deliver() failed: %v", err)
	}

	if len(sent) != 1 {
		t.Errorf("sent %d messages, want 1", len(sent))
	}
	if len(store.messages) != 0 {
		t.Errorf("queue holds %d messages, want 0 after live delivery", len(store.messages))
	}
}

func TestDrainDeliversInOrder(t *testing.T) {
	store := &fakeQueueStore{}
	outbox := newTestOutbox(store)

	for i := 0; i < 3; i++ {
		msg := Message{Type: KindCompleteHabit, HabitID: "h" + strconv.Itoa(i)}
		if err := outbox.Deliver(msg); err != nil {
			t.Fatalf("Deliver() failed: %v", err)
		}
	}

	var sent []Message
	outbox.find = func(string) (Peer, error) { return Peer{Port: "4242"}, nil }
	outbox.send = func(_ Peer, msg Message) error {
		sent = append(sent, msg)
		return nil
	}

	delivered, err := outbox.Drain()
	if err != nil {
		t.Fatalf("Drain() failed: %v", err)
	}
	if delivered != 3 {
		t.Errorf("Drain() delivered %d, want 3", delivered)
	}
	if len(store.messages) != 0 {
		t.Errorf("queue holds %d messages, want 0 after drain", len(store.messages))
	}
	for i, msg := range sent {
		want := "h" + strconv.Itoa(i)
		if msg.HabitID != want {
			t.Errorf("sent[%d].HabitID = %q, want %q", i, msg.HabitID, want)
		}
	}
}

func TestDrainStopsOnFailure(t *testing.T) {
	store := &fakeQueueStore{}
	outbox := newTestOutbox(store)

	for i := 0; i < 3; i++ {
		msg := Message{Type: KindCompleteHabit, HabitID: "h" + strconv.Itoa(i)}
		if err := outbox.Deliver(msg); err != nil {
			t.Fatalf("Deliver() failed: %v", err)
		}
	}

	calls := 0
	outbox.find = func(string) (Peer, error) { return Peer{Port: "4242"}, nil }
	outbox.send = func(Peer, Message) error {
		calls++
		if calls > 1 {
			return errors.New("peer went away")
		}
		return nil
	}

	delivered, err := outbox.Drain()
	if err != nil {
		t.Fatalf("Drain() failed: %v", err)
	}
	if delivered != 1 {
		t.Errorf("Drain() delivered %d, want 1", delivered)
	}
	if len(store.messages) != 2 {
		t.Errorf("queue holds %d messages, want 2 after partial drain", len(store.messages))
	}
}

func TestDrainWithoutPeer(t *testing.T) {
	store := &fakeQueueStore{}
	outbox := newTestOutbox(store)

	if err := outbox.Deliver(Message{Type: KindCompleteHabit, HabitID: "h1"}); err != nil {
		t.Fatalf("Deliver() failed: %v", err)
	}

	delivered, err := outbox.Drain()
	if err != nil {
		t.Fatalf("Drain() failed: %v", err)
	}
	if delivered != 0 {
		t.Errorf("Drain() delivered %d, want 0 with no peer", delivered)
	}
	if len(store.messages) != 1 {
		t.Errorf("queue holds %d messages, want 1", len(store.messages))
	}
}
