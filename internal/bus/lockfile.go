package bus

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/b612app/b612/internal/constants"
)

var (
	userConfigDirFunc = os.UserConfigDir
	findProcessFunc   = ps.FindProcess
)

// Peer is a live process discovered through its lockfile.
type Peer struct {
	Port   string
	PID    int
	Secret string
}

// ConfigDir returns the directory holding the application's lockfiles.
func ConfigDir() (string, error) {
	configDir, err := userConfigDirFunc()
	if err != nil {
		return "", fmt.Errorf("failed to get user config dir: %w", err)
	}
	return filepath.Join(configDir, constants.AppName), nil
}

// WriteLockfile records this process's webhook endpoint so peers can find
// it. The file holds port|pid|secret on a single line. Returns the lockfile
// path for later removal.
func WriteLockfile(name, port, secret string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	path := filepath.Join(dir, name)
	content := fmt.Sprintf("%s|%d|%s", port, os.Getpid(), secret)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return "", fmt.Errorf("failed to write lockfile: %w", err)
	}

	return path, nil
}

// FindPeer reads a peer's lockfile and validates that the recorded process
// is still alive and is one of ours. A stale lockfile left by a crashed
// process fails the validation rather than directing messages at whatever
// now owns the port.
func FindPeer(name string) (Peer, error) {
	dir, err := ConfigDir()
	if err != nil {
		return Peer{}, err
	}
	return readAndValidateLockfile(filepath.Join(dir, name), executablePrefix(name))
}

// executablePrefix maps a lockfile to the executable expected to own it.
// The tray notifier runs as its own binary.
func executablePrefix(name string) string {
	if name == constants.NotifierLockfileName {
		return constants.NotifierExecutablePrefix
	}
	return constants.AppExecutablePrefix
}

func readAndValidateLockfile(path, execPrefix string) (Peer, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Peer{}, errors.New("peer is not running")
	}

	parts := strings.Split(strings.TrimSpace(string(content)), "|")
	if len(parts) != 3 {
		return Peer{}, errors.New("lockfile is malformed")
	}

	port := parts[0]
	if strings.TrimSpace(port) == "" {
		return Peer{}, errors.New("port in lockfile is empty")
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return Peer{}, errors.New("invalid port number in lockfile")
	}
	if portNum < 1 || portNum > 65535 {
		return Peer{}, fmt.Errorf("port number %d is outside valid range (1-65535)", portNum)
	}

	pid, err := strconv.Atoi(parts[1])
	if err != nil {
		return Peer{}, errors.New("invalid process ID in lockfile")
	}
	secret := parts[2]
	if strings.TrimSpace(secret) == "" {
		return Peer{}, errors.New("secret in lockfile is empty")
	}

	process, err := findProcessFunc(pid)
	if err != nil || process == nil {
		return Peer{}, errors.New("peer process not running")
	}

	if !strings.HasPrefix(process.Executable(), execPrefix) {
		return Peer{}, fmt.Errorf("process with PID %d is not %s (is %s)",
			pid, execPrefix, process.Executable())
	}

	return Peer{Port: port, PID: pid, Secret: secret}, nil
}
