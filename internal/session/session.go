// Package session defines the session value exchanged with the identity
// provider and the event-source contract the auth store consumes.
package session

import (
	"context"
	"errors"
)

// Session carries the identity and bearer credential of an active
// provider session. Both fields are opaque to this module.
type Session struct {
	UserID      string
	AccessToken string
}

// Event is one transition reported by the provider: either an active
// session or the absence of one.
type Event struct {
	Active  bool
	Session Session
}

// ActiveEvent wraps an established session into an event.
func ActiveEvent(sess Session) Event {
	return Event{Active: true, Session: sess}
}

// InactiveEvent reports that no session exists.
func InactiveEvent() Event {
	return Event{}
}

// ErrConfirmationRequired is returned by SignUp when the provider
// created the account but withheld the session until the user confirms
// their email address.
var ErrConfirmationRequired = errors.New("account created, email confirmation required before sign-in")

// Source is the session provider as seen by the rest of the client:
// imperative credential calls plus a subscribable stream of transitions.
type Source interface {
	SignUp(ctx context.Context, email, password string) (Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (Session, error)
	SignOut(ctx context.Context) error

	// CurrentSession is the one-shot bootstrap query. The second return
	// is false when the provider reports no active session.
	CurrentSession(ctx context.Context) (Session, bool, error)

	// Subscribe registers a callback for every subsequent transition and
	// returns a handle that releases the subscription.
	Subscribe(callback func(Event)) (unsubscribe func())
}
