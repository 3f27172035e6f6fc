// Package urlstore holds the most recent outcome of shorten submissions
// for display: the last anonymous result, the signed-in history, a
// loading flag and the last error. Last write wins; a success clears
// the error and an error clears the success.
package urlstore

import (
	"sync"

	funk "github.com/thoas/go-funk"

	"github.com/mlevkov/shortly/internal/models"
)

// Store is a per-feature display container. One submission is in
// flight per form at a time, so no ordering guarantee beyond
// last-write-wins is needed.
type Store struct {
	mu               sync.Mutex
	anonResult       *models.ShortenResponse
	lastAuthedResult *models.ShortenResponse
	history          []models.ShortenResponse
	loading          bool
	errMsg           string
}

// New creates an empty Store.
func New() *Store {
	return &Store{}
}

// RecordSuccess stores an anonymous shorten result, replacing any prior
// one and clearing any prior error.
func (s *Store) RecordSuccess(result models.ShortenResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.anonResult = &result
	s.errMsg = ""
	s.loading = false
}

// RecordAuthedSuccess stores a signed-in shorten result and prepends it
// to the history, newest first. A re-shortened URL replaces its earlier
// history entry instead of duplicating it.
func (s *Store) RecordAuthedSuccess(result models.ShortenResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastAuthedResult = &result
	s.errMsg = ""
	s.loading = false

	remaining := funk.Filter(s.history, func(item models.ShortenResponse) bool {
		return item.ShortCode != result.ShortCode
	}).([]models.ShortenResponse)

	s.history = append([]models.ShortenResponse{result}, remaining...)
}

// RecordError stores a failure message, replacing any prior error and
// clearing any prior success.
func (s *Store) RecordError(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.errMsg = message
	s.anonResult = nil
	s.lastAuthedResult = nil
	s.loading = false
}

// SetLoading flips the in-flight flag for the form's submit control.
func (s *Store) SetLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loading = loading
}

// SetHistory replaces the signed-in history wholesale, e.g. after
// fetching the user's URL listing.
func (s *Store) SetHistory(urls []models.ShortenResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append([]models.ShortenResponse(nil), urls...)
}

// Reset clears both the success and error slots.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.anonResult = nil
	s.lastAuthedResult = nil
	s.errMsg = ""
	s.loading = false
}

// ClearOnLogout drops everything, including the history, when the
// session ends.
func (s *Store) ClearOnLogout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.anonResult = nil
	s.lastAuthedResult = nil
	s.history = nil
	s.errMsg = ""
	s.loading = false
}

// AnonResult returns a copy of the last anonymous result, if any.
func (s *Store) AnonResult() (models.ShortenResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.anonResult == nil {
		return models.ShortenResponse{}, false
	}

	return *s.anonResult, true
}

// LastAuthedResult returns a copy of the last signed-in result, if any.
func (s *Store) LastAuthedResult() (models.ShortenResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastAuthedResult == nil {
		return models.ShortenResponse{}, false
	}

	return *s.lastAuthedResult, true
}

// History returns a copy of the signed-in history, newest first.
func (s *Store) History() []models.ShortenResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]models.ShortenResponse(nil), s.history...)
}

// Loading reports whether a submission is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loading
}

// Err returns the last error message, if any.
func (s *Store) Err() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.errMsg, s.errMsg != ""
}
