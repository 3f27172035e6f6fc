// Package authstore maintains the single authoritative answer to "who is
// logged in". It folds the provider's bootstrap result and asynchronous
// change notifications into one Snapshot and fans the result out to UI
// subscribers, suppressing duplicate transitions so overlapping provider
// notifications do not trigger downstream work twice.
package authstore

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mlevkov/shortly/internal/logger"
	"github.com/mlevkov/shortly/internal/session"
)

// State classifies a Snapshot for display and diagnostics.
type State int

const (
	StateUnknown State = iota
	StateSyncing
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateSyncing:
		return "syncing"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	}

	return "unknown"
}

// Snapshot is the session state as the UI sees it.
//
// IsAuthenticated implies UserID is set; it does not imply AccessToken
// is set yet, since identity can be confirmed before the credential
// finishes loading.
type Snapshot struct {
	UserID          string
	AccessToken     string
	IsAuthenticated bool
	IsSyncing       bool
	LastUpdate      time.Time
}

// State reports where the snapshot sits in the session lifecycle.
func (s Snapshot) State() State {
	switch {
	case s.IsSyncing:
		return StateSyncing
	case s.IsAuthenticated:
		return StateAuthenticated
	case !s.LastUpdate.IsZero():
		return StateAnonymous
	}

	return StateUnknown
}

const defaultDedupWindow = 100 * time.Millisecond

// Store owns the Snapshot. It is constructed explicitly and passed by
// reference; there is no package-level instance. All mutation goes
// through Login, Logout, Bootstrap and the provider subscription, and
// every accepted transition is fanned out to subscribers.
type Store struct {
	mu          sync.Mutex
	snap        Snapshot
	source      session.Source
	now         func() time.Time
	dedupWindow time.Duration

	subscribers map[int]func(Snapshot)
	nextSubID   int
}

// Option customizes a Store.
type Option func(*Store)

// WithClock replaces the time source, letting tests drive the dedup
// window deterministically.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithDedupWindow overrides the duplicate-suppression window.
func WithDedupWindow(window time.Duration) Option {
	return func(s *Store) {
		s.dedupWindow = window
	}
}

// New creates a Store bound to the given session source.
func New(source session.Source, opts ...Option) *Store {
	s := &Store{
		source:      source,
		now:         time.Now,
		dedupWindow: defaultDedupWindow,
		subscribers: map[int]func(Snapshot){},
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// reduce folds one provider event into the snapshot. The second return
// reports whether the snapshot changed; a false result must produce no
// subscriber notification.
//
// An event that would leave the snapshot unchanged is always a no-op:
// re-applying the same session, or clearing an already cleared snapshot,
// never re-triggers downstream work. Events inside the dedup window are
// only dropped when they are such exact duplicates — a genuinely new
// session arriving early is applied, not lost.
func reduce(snap Snapshot, ev session.Event, now time.Time) (Snapshot, bool) {
	if ev.Active {
		if snap.IsAuthenticated &&
			snap.UserID == ev.Session.UserID &&
			snap.AccessToken == ev.Session.AccessToken {
			if !snap.IsSyncing {
				return snap, false
			}

			// Re-confirming the session the snapshot already holds ends
			// the syncing state without counting as a new transition.
			snap.IsSyncing = false

			return snap, true
		}

		return Snapshot{
			UserID:          ev.Session.UserID,
			AccessToken:     ev.Session.AccessToken,
			IsAuthenticated: true,
			LastUpdate:      now,
		}, true
	}

	if !snap.IsAuthenticated && snap.UserID == "" && snap.AccessToken == "" && !snap.IsSyncing {
		if snap.LastUpdate.IsZero() {
			return Snapshot{LastUpdate: now}, true
		}

		return snap, false
	}

	return Snapshot{LastUpdate: now}, true
}

func (s *Store) apply(ev session.Event) {
	s.mu.Lock()

	now := s.now()
	next, changed := reduce(s.snap, ev, now)
	if !changed {
		coalesced := now.Sub(s.snap.LastUpdate) < s.dedupWindow
		s.mu.Unlock()

		if coalesced {
			logger.Log.Debugln("coalesced duplicate session event", "active", ev.Active)
		}

		return
	}

	s.snap = next
	callbacks := make([]func(Snapshot), 0, len(s.subscribers))
	for _, callback := range s.subscribers {
		callbacks = append(callbacks, callback)
	}
	s.mu.Unlock()

	for _, callback := range callbacks {
		callback(next)
	}
}

// Login applies an accepted session. The caller must have validated a
// successful provider response first; empty arguments are a contract
// violation and are not defended here.
func (s *Store) Login(userID, accessToken string) {
	s.apply(session.ActiveEvent(session.Session{UserID: userID, AccessToken: accessToken}))
}

// Logout clears the snapshot immediately and tells the provider to
// terminate the session without waiting for its acknowledgment. The
// local state change is authoritative for the UI regardless of whether
// the provider round-trip succeeds.
func (s *Store) Logout(ctx context.Context) {
	s.apply(session.InactiveEvent())

	go func() {
		if err := s.source.SignOut(ctx); err != nil {
			logger.Log.Warnln("provider sign-out failed", zap.Error(err))
		}
	}()
}

// Bootstrap runs the one-shot "is there already a session?" query. A
// provider failure degrades to signed-out rather than leaving the app
// stuck in a loading state.
func (s *Store) Bootstrap(ctx context.Context) {
	s.mu.Lock()
	s.snap.IsSyncing = true
	s.mu.Unlock()

	sess, active, err := s.source.CurrentSession(ctx)
	if err != nil {
		logger.Log.Warnln("session bootstrap failed, treating as signed out", zap.Error(err))
		s.apply(session.InactiveEvent())

		return
	}

	if !active {
		s.apply(session.InactiveEvent())

		return
	}

	s.apply(session.ActiveEvent(sess))
}

// AccessToken returns the current bearer credential. The second return
// is false when no authenticated session holds one.
func (s *Store) AccessToken() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.snap.IsAuthenticated || s.snap.AccessToken == "" {
		return "", false
	}

	return s.snap.AccessToken, true
}

// Current returns a copy of the snapshot.
func (s *Store) Current() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snap
}

// Subscribe registers a callback invoked with a snapshot copy after
// every accepted transition. The returned handle releases the
// subscription.
func (s *Store) Subscribe(callback func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = callback
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// Run attaches the store to the provider's change notifications until
// ctx is cancelled. The subscription is released on shutdown so no
// event is acted upon after teardown.
func (s *Store) Run(ctx context.Context) {
	unsubscribe := s.source.Subscribe(s.apply)

	go func() {
		<-ctx.Done()
		unsubscribe()
	}()
}
