package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/b612app/b612/internal/bus"
	"github.com/b612app/b612/internal/constants"
)

// trayPayload is the wire format the tray application accepts.
type trayPayload struct {
	Text       string `json:"text"`
	DurationMs uint32 `json:"duration_ms"`
}

// TraySend displays a notification through the tray application's loopback
// webhook. Fails when the tray is not running; callers queue or retry.
func TraySend(n Notification) error {
	peer, err := bus.FindPeer(constants.NotifierLockfileName)
	if err != nil {
		return err
	}

	payload := trayPayload{
		Text:       n.Title,
		DurationMs: constants.NotificationDurationMs,
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("http://127.0.0.1:%s", peer.Port)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-B612-Secret", peer.Secret)

	client := &http.Client{}
	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusOK {
		return nil
	}

	body, _ := io.ReadAll(res.Body)
	return fmt.Errorf("notification failed with status %d: %s", res.StatusCode, string(body))
}
