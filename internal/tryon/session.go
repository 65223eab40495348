package tryon

import (
	"container/list"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"tryon/internal/domain"
)

// DefaultMaxSessions bounds a SessionStore when no limit is configured.
const DefaultMaxSessions = 10000

// Session carries the state the orchestrator keeps per caller: the number
// of direct API attempts and the in-flight guard.
type Session struct {
	id          string
	directCalls atomic.Int64
	busy        atomic.Bool
}

func NewSession(id string) *Session {
	return &Session{id: id}
}

func (s *Session) ID() string { return s.id }

// DirectCalls reports how many direct API attempts the session has made.
func (s *Session) DirectCalls() int {
	return int(s.directCalls.Load())
}

func (s *Session) recordDirect() {
	s.directCalls.Add(1)
}

// Acquire takes the in-flight guard. A second caller gets ErrBusy until the
// returned release func runs.
func (s *Session) Acquire() (func(), error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("%w: a try-on is already running for this session", domain.ErrBusy)
	}
	var once sync.Once
	return func() { once.Do(func() { s.busy.Store(false) }) }, nil
}

type sessionEntry struct {
	key     string
	session *Session
	seen    time.Time
}

// SessionStore maps session keys to sessions and evicts the least recently
// used one once it holds max entries.
type SessionStore struct {
	mu    sync.Mutex
	max   int
	order *list.List
	items map[string]*list.Element
	now   func() time.Time
}

func NewSessionStore(max int) *SessionStore {
	if max <= 0 {
		max = DefaultMaxSessions
	}
	return &SessionStore{
		max:   max,
		order: list.New(),
		items: make(map[string]*list.Element),
		now:   time.Now,
	}
}

// Get returns the session for key, creating it on first use.
func (st *SessionStore) Get(key string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	if el, ok := st.items[key]; ok {
		entry := el.Value.(*sessionEntry)
		entry.seen = st.now()
		st.order.MoveToFront(el)
		return entry.session
	}
	entry := &sessionEntry{key: key, session: NewSession(key), seen: st.now()}
	st.items[key] = st.order.PushFront(entry)
	for st.order.Len() > st.max {
		oldest := st.order.Back()
		st.order.Remove(oldest)
		delete(st.items, oldest.Value.(*sessionEntry).key)
	}
	return entry.session
}

// Len reports the number of live sessions.
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.order.Len()
}

// Prune drops sessions idle for longer than ttl and returns how many went.
func (st *SessionStore) Prune(ttl time.Duration) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	cutoff := st.now().Add(-ttl)
	removed := 0
	for el := st.order.Back(); el != nil; {
		entry := el.Value.(*sessionEntry)
		if !entry.seen.Before(cutoff) {
			break
		}
		prev := el.Prev()
		st.order.Remove(el)
		delete(st.items, entry.key)
		removed++
		el = prev
	}
	return removed
}
