package bot

import (
	"sync"

	"github.com/coopco/castbot/internal/cast"
)

// PendingKind is the kind of multi-step action awaiting free text.
type PendingKind string

const (
	PendingReply PendingKind = "reply"
	PendingQuote PendingKind = "quote"
)

// Pending is one conversation's in-progress action: the next free-text
// message from that conversation resolves it against Target.
type Pending struct {
	Kind            PendingKind
	Target          cast.CastID
	OriginMessageID string
}

// PendingStore holds at most one Pending per conversation key. It is owned by
// the Bot and passed into handlers; there is no package-level state. The
// per-conversation event queues guarantee a single writer per key during
// handling, the mutex covers access across conversations.
type PendingStore struct {
	mu sync.Mutex
	m  map[string]Pending
}

func NewPendingStore() *PendingStore {
	return &PendingStore{m: make(map[string]Pending)}
}

// Begin records p for the conversation, silently replacing any previous
// pending action (last writer wins; nothing is queued).
func (s *PendingStore) Begin(key string, p Pending) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = p
}

// Take removes and returns the conversation's pending action. The slot is
// always cleared on consumption, before the resolving action runs, so a
// failed resolution can never re-consume the same text.
func (s *PendingStore) Take(key string) (Pending, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.m[key]
	if ok {
		delete(s.m, key)
	}
	return p, ok
}

// Peek returns the pending action without consuming it.
func (s *PendingStore) Peek(key string) (Pending, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.m[key]
	return p, ok
}

// Clear discards the conversation's pending action, reporting whether one
// existed. No side effects beyond the slot itself.
func (s *PendingStore) Clear(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.m[key]
	delete(s.m, key)
	return ok
}
