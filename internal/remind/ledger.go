package remind

import (
	"sync"
	"time"
)

// MemoryLedger keeps delivered identities in memory. It is the default
// ledger when durability across restarts is not needed.
type MemoryLedger struct {
	mu   sync.Mutex
	sent map[string]time.Time
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{sent: make(map[string]time.Time)}
}

// Seen reports whether the identity has been recorded.
func (l *MemoryLedger) Seen(identity string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.sent[identity]
	return ok, nil
}

// MarkSent records the identity.
func (l *MemoryLedger) MarkSent(identity string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent[identity] = at
	return nil
}
