package session

import (
	"context"
	"errors"
	"time"

	"github.com/cropsage/cropsage/internal/advisor"
)

// MaxChatIDLength bounds chat identifiers. File backends embed the ID in a
// filename, so the bound is deliberately tight.
const MaxChatIDLength = 128

// Sentinel errors for session operations, checked with errors.Is.
var (
	// ErrInvalidChatID indicates a chat identifier that no backend will
	// accept (empty, too long, or containing unsafe characters).
	ErrInvalidChatID = errors.New("invalid chat id")
)

// Info is a listing entry for one stored session.
type Info struct {
	ChatID    string
	Turns     int
	UpdatedAt time.Time
}

// Store persists per-chat conversation state.
//
// Load never fails on bad data: a missing or unparseable record yields a
// fresh state so the conversation can restart. Only infrastructure errors
// (I/O, connection) surface.
type Store interface {
	Load(ctx context.Context, chatID string) (*advisor.State, error)
	Save(ctx context.Context, state *advisor.State) error
	Delete(ctx context.Context, chatID string) error
	List(ctx context.Context) ([]Info, error)
}

// ValidateChatID checks that chatID is usable by every backend: non-empty,
// at most MaxChatIDLength bytes, and limited to letters, digits, '-', '_',
// and '.'.
func ValidateChatID(chatID string) error {
	if chatID == "" || len(chatID) > MaxChatIDLength {
		return ErrInvalidChatID
	}
	for i := 0; i < len(chatID); i++ {
		c := chatID[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_' || c == '.':
		default:
			return ErrInvalidChatID
		}
	}
	// Reject names that resolve outside the store directory.
	if chatID == "." || chatID == ".." {
		return ErrInvalidChatID
	}
	return nil
}
