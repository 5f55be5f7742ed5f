package bus

import (
	"os"
	"testing"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/b612app/b612/internal/constants"
)

type fakeProcess struct {
	pid        int
	executable string
}

func (p fakeProcess) Pid() int           { return p.pid }
func (p fakeProcess) PPid() int          { return 0 }
func (p fakeProcess) Executable() string { return p.executable }

func stubProcessLookup(t *testing.T, executable string) {
	t.Helper()
	origFind := findProcessFunc
	findProcessFunc = func(pid int) (ps.Process, error) {
		return fakeProcess{pid: pid, executable: executable}, nil
	}
	t.Cleanup(func() { findProcessFunc = origFind })
}

func stubConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origConfig := userConfigDirFunc
	userConfigDirFunc = func() (string, error) { return dir, nil }
	t.Cleanup(func() { userConfigDirFunc = origConfig })
	return dir
}

func TestMessageValidate(t *testing.T) {
	tests := []struct {
		name    string
		msg     Message
		wantErr bool
	}{
		{"update notifications", Message{Type: KindUpdateNotifications}, false},
		{"reschedule", Message{Type: KindRescheduleNotifications}, false},
		{"complete with id", Message{Type: KindCompleteHabit, HabitID: "h1"}, false},
		{"complete without id", Message{Type: KindCompleteHabit}, true},
		{"schedule without id", Message{Type: KindScheduleNotification}, true},
		{"unknown type", Message{Type: "SELF_DESTRUCT"}, true},
		{"empty type", Message{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestContentHashStable(t *testing.T) {
	msg := Message{Type: KindCompleteHabit, HabitID: "h1", HabitTitle: "Water the rose"}

	first, err := msg.ContentHash()
	if err != nil {
		t.Fatalf("ContentHash() failed: %v", err)
	}
	second, err := msg.ContentHash()
	if err != nil {
		t.Fatalf("ContentHash() failed: %v", err)
	}
	if first != second {
		t.Errorf("ContentHash() not stable: %d then %d", first, second)
	}

	other := msg
	other.HabitID = "h2"
	otherHash, err := other.ContentHash()
	if err != nil {
		t.Fatalf("ContentHash() failed: %v", err)
	}
	if otherHash == first {
		t.Error("ContentHash() collided for different messages")
	}
}

func TestLockfileRoundTrip(t *testing.T) {
	stubConfigDir(t)
	stubProcessLookup(t, "b612")

	path, err := WriteLockfile("test.lock", "4242", "s3cret")
	if err != nil {
		t.Fatalf("WriteLockfile() failed: %v", err)
	}
	defer os.Remove(path)

	peer, err := FindPeer("test.lock")
	if err != nil {
		t.Fatalf("FindPeer() failed: %v", err)
	}

	if peer.Port != "4242" {
		t.Errorf("Port = %q, want 4242", peer.Port)
	}
	if peer.PID != os.Getpid() {
		t.Errorf("PID = %d, want %d", peer.PID, os.Getpid())
	}
	if peer.Secret != "s3cret" {
		t.Errorf("Secret = %q, want s3cret", peer.Secret)
	}
}

func TestFindPeerRejectsForeignProcess(t *testing.T) {
	stubConfigDir(t)
	stubProcessLookup(t, "definitely-not-ours")

	if _, err := WriteLockfile("test.lock", "4242", "s3cret"); err != nil {
		t.Fatalf("WriteLockfile() failed: %v", err)
	}

	if _, err := FindPeer("test.lock"); err == nil {
		t.Error("FindPeer() accepted a lockfile owned by a foreign process")
	}
}

func TestFindPeerValidatesTrayExecutable(t *testing.T) {
	stubConfigDir(t)

	// The CLI binary must not pass for the tray notifier's lockfile
	stubProcessLookup(t, "b612")
	if _, err := WriteLockfile(constants.NotifierLockfileName, "4242", "s3cret"); err != nil {
		t.Fatalf("WriteLockfile() failed: %v", err)
	}
	if _, err := FindPeer(constants.NotifierLockfileName); err == nil {
		t.Error("FindPeer() accepted a tray lockfile owned by the CLI binary")
	}

	stubProcessLookup(t, "b612-tray")
	if _, err := FindPeer(constants.NotifierLockfileName); err != nil {
		t.Errorf("FindPeer() rejected the tray binary: %v", err)
	}
}

func TestFindPeerMissingLockfile(t *testing.T) {
	stubConfigDir(t)

	if _, err := FindPeer("never-written.lock"); err == nil {
		t.Error("FindPeer() should fail when no lockfile exists")
	}
}

func TestLoopbackSendReceive(t *testing.T) {
	stubConfigDir(t)

	received := make(chan Message, 1)
	receiver := NewReceiver("test.lock", "s3cret", func(msg Message) error {
		received <- msg
		return nil
	})
	if err := receiver.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer receiver.Close()

	peer := Peer{Port: receiver.Port(), Secret: "s3cret"}
	msg := Message{Type: KindCompleteHabit, HabitID: "h1", HabitTitle: "Water the rose"}

	if err := Send(peer, msg); err != nil {
		t.Fatalf("Send() failed: %v", err)
	}

	select {
	case got := <-received:
		if got.Type != KindCompleteHabit || got.HabitID != "h1" {
			t.Errorf("received %+v, want %+v", got, msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestLoopbackRejectsBadSecret(t *testing.T) {
	stubConfigDir(t)

	receiver := NewReceiver("test.lock", "s3cret", func(Message) error {
		t.Error("handler should not run for an unauthenticated message")
		return nil
	})
	if err := receiver.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer receiver.Close()

	peer := Peer{Port: receiver.Port(), Secret: "wrong"}
	err := Send(peer, Message{Type: KindUpdateNotifications})
	if err == nil {
		t.Error("Send() with a bad secret should fail")
	}
}
