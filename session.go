package authclient

import (
	"fmt"
	"sync"
)

// SessionState is the value observed by guards and pages
type SessionState struct {
	Identity *Identity
	// IsLoading is true only during the very first identity check.
	IsLoading bool
	// Refreshing is true while an explicit refresh is in flight.
	Refreshing bool
}

// Authenticated reports whether an identity is present
func (s SessionState) Authenticated() bool {
	return s.Identity != nil
}

func (s SessionState) clone() SessionState {
	s.Identity = s.Identity.Clone()
	return s
}

func (s SessionState) String() string {
	return fmt.Sprintf("SessionState{identity=%s loading=%t refreshing=%t}", s.Identity, s.IsLoading, s.Refreshing)
}

// SessionObserver receives the latest state after every mutation
type SessionObserver func(state SessionState)

type observerEntry struct {
	id uint64
	fn SessionObserver
}

type delivery struct {
	state   SessionState
	targets []observerEntry
}

// SessionStore is the single source of truth for "is anyone logged in, and
// who". Mutations replace whole values.
//
// Observers run in subscription order and see every state in mutation
// order. Deliveries are queued and drained by whichever caller finds the
// queue idle, outside the store locks, so an observer may mutate the store
// itself: the nested change is delivered once the current one has reached
// every observer.
type SessionStore struct {
	mu        sync.RWMutex
	state     SessionState
	observers []observerEntry
	nextID    uint64
	refreshes int
	pending   []delivery
	flushing  bool
}

// NewSessionStore returns a store in its start-up state: no identity, loading.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		state: SessionState{IsLoading: true},
	}
}

// State returns a snapshot of the current state
func (s *SessionStore) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// SetIdentity replaces the identity and returns the one it replaced. It does
// not touch the loading flag.
func (s *SessionStore) SetIdentity(identity *Identity) *Identity {
	var previous *Identity
	s.update(func(state *SessionState) bool {
		previous = state.Identity
		state.Identity = identity.Clone()
		return true
	})
	return previous
}

// SetLoading toggles the initial loading flag
func (s *SessionStore) SetLoading(loading bool) {
	s.update(func(state *SessionState) bool {
		state.IsLoading = loading
		return true
	})
}

// SetRefreshing toggles the refresh sub-state
func (s *SessionStore) SetRefreshing(refreshing bool) {
	s.update(func(state *SessionState) bool {
		state.Refreshing = refreshing
		return true
	})
}

// beginRefresh counts an in flight refresh. Only the first one notifies.
func (s *SessionStore) beginRefresh() {
	s.update(func(state *SessionState) bool {
		s.refreshes++
		if s.refreshes > 1 {
			return false
		}
		state.Refreshing = true
		return true
	})
}

// endRefresh clears the refresh flag once the last refresh is done
func (s *SessionStore) endRefresh() {
	s.update(func(state *SessionState) bool {
		if s.refreshes > 0 {
			s.refreshes--
		}
		if s.refreshes > 0 {
			return false
		}
		state.Refreshing = false
		return true
	})
}

// Subscribe registers fn and delivers the current state to it before any
// later change.
func (s *SessionStore) Subscribe(fn SessionObserver) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	entry := observerEntry{id: id, fn: fn}
	s.observers = append(s.observers, entry)
	drain := s.enqueue(delivery{state: s.state.clone(), targets: []observerEntry{entry}})
	s.mu.Unlock()

	if drain {
		s.flush()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, o := range s.observers {
				if o.id == id {
					s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
					break
				}
			}
		})
	}
}

// update applies fn under the write lock. Observers are notified when fn
// reports a change.
func (s *SessionStore) update(fn func(state *SessionState) bool) {
	s.mu.Lock()
	if !fn(&s.state) {
		s.mu.Unlock()
		return
	}
	targets := make([]observerEntry, len(s.observers))
	copy(targets, s.observers)
	drain := s.enqueue(delivery{state: s.state.clone(), targets: targets})
	s.mu.Unlock()

	if drain {
		s.flush()
	}
}

// enqueue must be called with mu held. It reports whether the caller has
// to drain the queue.
func (s *SessionStore) enqueue(d delivery) bool {
	s.pending = append(s.pending, d)
	if s.flushing {
		return false
	}
	s.flushing = true
	return true
}

func (s *SessionStore) flush() {
	done := false
	defer func() {
		if !done {
			s.mu.Lock()
			s.pending = nil
			s.flushing = false
			s.mu.Unlock()
		}
	}()

	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.pending = nil
			s.flushing = false
			s.mu.Unlock()
			done = true
			return
		}
		next := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()

		for _, o := range next.targets {
			if s.subscribed(o.id) {
				o.fn(next.state.clone())
			}
		}
	}
}

func (s *SessionStore) subscribed(id uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.observers {
		if o.id == id {
			return true
		}
	}
	return false
}
