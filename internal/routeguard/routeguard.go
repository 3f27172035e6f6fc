// Package routeguard decides whether a protected view may render for
// the current session snapshot.
package routeguard

import "github.com/mlevkov/shortly/internal/authstore"

// Decision is the outcome of gating one navigation attempt.
type Decision int

const (
	// Redirect sends the visitor to the sign-in entry point.
	Redirect Decision = iota
	// Loading renders a transient indicator: identity is confirmed but
	// the credential has not finished loading, so neither admitting nor
	// redirecting would be correct yet.
	Loading
	// Allow renders the protected view.
	Allow
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Loading:
		return "loading"
	}

	return "redirect"
}

// Decide gates a protected view against the snapshot. Collapsing the
// authenticated-without-token case into either neighbor would kick out
// a still-loading user or fire an unauthenticated request to a
// protected API.
func Decide(snap authstore.Snapshot) Decision {
	if !snap.IsAuthenticated {
		return Redirect
	}

	if snap.AccessToken == "" {
		return Loading
	}

	return Allow
}
