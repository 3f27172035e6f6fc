package urlstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlevkov/shortly/internal/models"
)

func testResult(shortCode string) models.ShortenResponse {
	return models.ShortenResponse{
		ID:          "id-" + shortCode,
		ShortCode:   shortCode,
		ShortURL:    "https://short.ly/" + shortCode,
		OriginalURL: "https://example.com/" + shortCode,
	}
}

func TestSuccessClearsError(t *testing.T) {
	store := New()

	store.RecordError("something went wrong")
	store.RecordSuccess(testResult("abc123"))

	result, ok := store.AnonResult()
	require.True(t, ok)
	assert.Equal(t, "https://short.ly/abc123", result.ShortURL)

	_, hasErr := store.Err()
	assert.False(t, hasErr)
}

func TestErrorClearsSuccess(t *testing.T) {
	store := New()

	store.RecordSuccess(testResult("abc123"))
	store.RecordError("backend exploded")

	_, ok := store.AnonResult()
	assert.False(t, ok)

	message, hasErr := store.Err()
	require.True(t, hasErr)
	assert.Equal(t, "backend exploded", message)
}

func TestAuthedSuccessPrependsHistory(t *testing.T) {
	store := New()

	store.RecordAuthedSuccess(testResult("first"))
	store.RecordAuthedSuccess(testResult("second"))

	history := store.History()
	require.Len(t, history, 2)
	assert.Equal(t, "second", history[0].ShortCode)
	assert.Equal(t, "first", history[1].ShortCode)

	last, ok := store.LastAuthedResult()
	require.True(t, ok)
	assert.Equal(t, "second", last.ShortCode)
}

func TestReshortenedURLReplacesHistoryEntry(t *testing.T) {
	store := New()

	store.RecordAuthedSuccess(testResult("first"))
	store.RecordAuthedSuccess(testResult("second"))
	store.RecordAuthedSuccess(testResult("first"))

	history := store.History()
	require.Len(t, history, 2)
	assert.Equal(t, "first", history[0].ShortCode)
	assert.Equal(t, "second", history[1].ShortCode)
}

func TestLoadingFlag(t *testing.T) {
	store := New()

	store.SetLoading(true)
	assert.True(t, store.Loading())

	store.RecordSuccess(testResult("abc123"))
	assert.False(t, store.Loading(), "a settled result ends the in-flight state")
}

func TestReset(t *testing.T) {
	store := New()

	store.RecordAuthedSuccess(testResult("keep"))
	store.RecordError("oops")
	store.Reset()

	_, hasAnon := store.AnonResult()
	_, hasAuthed := store.LastAuthedResult()
	_, hasErr := store.Err()
	assert.False(t, hasAnon)
	assert.False(t, hasAuthed)
	assert.False(t, hasErr)
}

func TestClearOnLogoutDropsHistory(t *testing.T) {
	store := New()

	store.RecordAuthedSuccess(testResult("abc123"))
	store.SetHistory([]models.ShortenResponse{testResult("x"), testResult("y")})
	store.ClearOnLogout()

	assert.Empty(t, store.History())
	_, ok := store.LastAuthedResult()
	assert.False(t, ok)
}
