package bus

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"

	"github.com/b612app/b612/internal/logger"
)

// Handler processes an incoming message. A non-nil error is reported to the
// sender as a 500.
type Handler func(Message) error

// Receiver accepts messages from peer processes over a loopback webhook and
// advertises its endpoint through a lockfile.
type Receiver struct {
	lockfileName string
	secret       string
	handler      Handler

	listener net.Listener
	server   *http.Server
	lockPath string
}

func NewReceiver(lockfileName, secret string, handler Handler) *Receiver {
	return &Receiver{
		lockfileName: lockfileName,
		secret:       secret,
		handler:      handler,
	}
}

// Start binds a random loopback port, writes the lockfile, and begins
// serving in the background.
func (r *Receiver) Start() error {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to bind loopback listener: %w", err)
	}
	r.listener = listener

	port := strconv.Itoa(listener.Addr().(*net.TCPAddr).Port)
	lockPath, err := WriteLockfile(r.lockfileName, port, r.secret)
	if err != nil {
		listener.Close()
		return err
	}
	r.lockPath = lockPath

	r.server = &http.Server{Handler: r}
	go func() {
		if err := r.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Error("message receiver stopped", "error", err)
		}
	}()

	logger.Debug("message receiver listening", "port", port, "lockfile", lockPath)
	return nil
}

// Port returns the bound port. Only valid after Start.
func (r *Receiver) Port() string {
	if r.listener == nil {
		return ""
	}
	return strconv.Itoa(r.listener.Addr().(*net.TCPAddr).Port)
}

func (r *Receiver) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if req.Header.Get("X-B612-Secret") != r.secret {
		http.Error(w, "invalid secret", http.StatusUnauthorized)
		return
	}

	var msg Message
	if err := json.NewDecoder(req.Body).Decode(&msg); err != nil {
		http.Error(w, "invalid message body", http.StatusBadRequest)
		return
	}
	if err := msg.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := r.handler(msg); err != nil {
		logger.Error("message handler failed", "type", msg.Type, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// Close stops the listener and removes the lockfile.
func (r *Receiver) Close() error {
	if r.lockPath != "" {
		if err := os.Remove(r.lockPath); err != nil && !os.IsNotExist(err) {
			logger.Warn("failed to remove lockfile", "path", r.lockPath, "error", err)
		}
	}
	if r.server != nil {
		return r.server.Close()
	}
	return nil
}
