package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

const (
	stateDirName    = ".cropsage"
	currentFileName = "current_session"
)

// StateDir returns the per-user state directory (~/.cropsage), creating it
// if needed.
func StateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	dir := filepath.Join(home, stateDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating state directory: %w", err)
	}
	return dir, nil
}

// currentFilePath returns the path of the current-session pointer file.
func currentFilePath() (string, error) {
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, currentFileName), nil
}

// withCurrentLock holds the pointer file's advisory lock while fn runs.
// The lock spans processes, so two CLI invocations cannot race the pointer.
func withCurrentLock(ctx context.Context, path string, fn func() error) error {
	fl := flock.New(path + ".lock")
	locked, err := fl.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("locking current session file: %w", err)
	}
	if !locked {
		return fmt.Errorf("locking current session file: not acquired")
	}
	defer fl.Unlock()
	return fn()
}

// LoadCurrentChatID reads the chat ID of the active CLI session. A missing
// or empty pointer file returns "" without error.
func LoadCurrentChatID(ctx context.Context) (string, error) {
	path, err := currentFilePath()
	if err != nil {
		return "", err
	}

	var chatID string
	err = withCurrentLock(ctx, path, func() error {
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading current session file: %w", err)
		}
		chatID = strings.TrimSpace(string(data))
		return nil
	})
	if err != nil {
		return "", err
	}
	if chatID == "" {
		return "", nil
	}
	if err := ValidateChatID(chatID); err != nil {
		// Stale garbage in the pointer file; treat as no current session.
		return "", nil
	}
	return chatID, nil
}

// SaveCurrentChatID records chatID as the active CLI session.
func SaveCurrentChatID(ctx context.Context, chatID string) error {
	if err := ValidateChatID(chatID); err != nil {
		return err
	}
	path, err := currentFilePath()
	if err != nil {
		return err
	}
	return withCurrentLock(ctx, path, func() error {
		if err := os.WriteFile(path, []byte(chatID+"\n"), 0o644); err != nil {
			return fmt.Errorf("writing current session file: %w", err)
		}
		return nil
	})
}

// ClearCurrentChatID removes the pointer file. Clearing when none exists is
// not an error.
func ClearCurrentChatID(ctx context.Context) error {
	path, err := currentFilePath()
	if err != nil {
		return err
	}
	return withCurrentLock(ctx, path, func() error {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing current session file: %w", err)
		}
		return nil
	})
}
