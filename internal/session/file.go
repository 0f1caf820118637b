package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/cropsage/cropsage/internal/advisor"
	"github.com/cropsage/cropsage/internal/log"
)

const stateFileExt = ".json"

// FileStore persists sessions as one JSON file per chat under a directory.
// Writes go through a temp file and rename, so readers never observe a
// partial state. An advisory file lock guards against two processes writing
// the same session directory concurrently.
type FileStore struct {
	dir    string
	logger log.Logger
}

// NewFileStore creates the directory if needed and returns a store over it.
func NewFileStore(dir string, logger log.Logger) (*FileStore, error) {
	if logger == nil {
		logger = log.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

func (s *FileStore) path(chatID string) string {
	return filepath.Join(s.dir, chatID+stateFileExt)
}

// lockPath is the shared advisory lock for the whole directory.
func (s *FileStore) lockPath() string {
	return filepath.Join(s.dir, ".lock")
}

// withLock runs fn while holding the directory's file lock.
func (s *FileStore) withLock(ctx context.Context, fn func() error) error {
	fl := flock.New(s.lockPath())
	locked, err := fl.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("acquiring session lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("acquiring session lock: not acquired")
	}
	defer func() {
		if err := fl.Unlock(); err != nil {
			s.logger.Warn("releasing session lock", "error", err)
		}
	}()
	return fn()
}

// Load reads the state file for chatID. Missing or corrupt files yield a
// fresh state.
func (s *FileStore) Load(ctx context.Context, chatID string) (*advisor.State, error) {
	if err := ValidateChatID(chatID); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(s.path(chatID))
	if os.IsNotExist(err) {
		return advisor.NewState(chatID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", chatID, err)
	}

	var state advisor.State
	if err := json.Unmarshal(raw, &state); err != nil {
		s.logger.Warn("discarding corrupt session file", "chat_id", chatID, "error", err)
		return advisor.NewState(chatID), nil
	}
	state.ChatID = chatID
	return &state, nil
}

// Save writes the state atomically: temp file in the same directory, fsync,
// then rename over the destination.
func (s *FileStore) Save(ctx context.Context, state *advisor.State) error {
	if err := ValidateChatID(state.ChatID); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding session %s: %w", state.ChatID, err)
	}

	return s.withLock(ctx, func() error {
		tmp, err := os.CreateTemp(s.dir, state.ChatID+".tmp-*")
		if err != nil {
			return fmt.Errorf("creating temp file: %w", err)
		}
		tmpName := tmp.Name()
		defer os.Remove(tmpName)

		if _, err := tmp.Write(raw); err != nil {
			tmp.Close()
			return fmt.Errorf("writing session %s: %w", state.ChatID, err)
		}
		if err := tmp.Sync(); err != nil {
			tmp.Close()
			return fmt.Errorf("syncing session %s: %w", state.ChatID, err)
		}
		if err := tmp.Close(); err != nil {
			return fmt.Errorf("closing session %s: %w", state.ChatID, err)
		}
		if err := os.Rename(tmpName, s.path(state.ChatID)); err != nil {
			return fmt.Errorf("replacing session %s: %w", state.ChatID, err)
		}
		s.logger.Debug("saved session", "chat_id", state.ChatID, "turn", state.TurnCount)
		return nil
	})
}

// Delete removes the state file. Deleting a missing session is not an error.
func (s *FileStore) Delete(ctx context.Context, chatID string) error {
	if err := ValidateChatID(chatID); err != nil {
		return err
	}
	return s.withLock(ctx, func() error {
		if err := os.Remove(s.path(chatID)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("deleting session %s: %w", chatID, err)
		}
		return nil
	})
}

// List returns every stored session, most recently updated first.
func (s *FileStore) List(ctx context.Context) ([]Info, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	var infos []Info
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, stateFileExt) {
			continue
		}
		chatID := strings.TrimSuffix(name, stateFileExt)
		if ValidateChatID(chatID) != nil {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		state, err := s.Load(ctx, chatID)
		if err != nil {
			continue
		}
		infos = append(infos, Info{
			ChatID:    chatID,
			Turns:     state.TurnCount,
			UpdatedAt: fi.ModTime(),
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].UpdatedAt.After(infos[j].UpdatedAt)
	})
	return infos, nil
}
