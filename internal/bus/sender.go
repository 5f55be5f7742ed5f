package bus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Send posts a message to a live peer's loopback webhook.
func Send(peer Peer, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	jsonData, err := json.Marshal(msg)
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
	return fmt.Errorf("message delivery failed with status %d: %s", res.StatusCode, string(body))
}
