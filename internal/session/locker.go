package session

import "sync"

// Locker serializes turns per chat within one process. A turn is a
// read-modify-write over the whole state; two concurrent turns for the same
// chat would silently drop one side's updates.
//
// The zero value is not usable; call NewLocker.
type Locker struct {
	mu    sync.Mutex
	chats map[string]*sync.Mutex
}

// NewLocker returns an empty Locker.
func NewLocker() *Locker {
	return &Locker{chats: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for chatID, creating it on first use. The
// returned function releases it.
func (l *Locker) Lock(chatID string) (unlock func()) {
	l.mu.Lock()
	m, ok := l.chats[chatID]
	if !ok {
		m = &sync.Mutex{}
		l.chats[chatID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
