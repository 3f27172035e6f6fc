package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlevkov/shortly/internal/models"
)

type staticTokens struct {
	token string
}

func (s *staticTokens) AccessToken() (string, bool) {
	return s.token, s.token != ""
}

type recordedRequest struct {
	authorization string
	requestID     string
	query         map[string]string
	body          models.ShortenRequest
}

func writeJSON(t *testing.T, response http.ResponseWriter, status int, payload any) {
	t.Helper()

	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(status)
	require.NoError(t, json.NewEncoder(response).Encode(payload))
}

func newFakeBackend(t *testing.T, recorded *recordedRequest) *httptest.Server {
	t.Helper()

	record := func(request *http.Request) {
		recorded.authorization = request.Header.Get("Authorization")
		recorded.requestID = request.Header.Get("X-Request-ID")
		recorded.query = map[string]string{}
		for key, values := range request.URL.Query() {
			recorded.query[key] = values[0]
		}
	}

	router := chi.NewRouter()

	router.Post("/api/urls", func(response http.ResponseWriter, request *http.Request) {
		record(request)
		require.NoError(t, json.NewDecoder(request.Body).Decode(&recorded.body))

		writeJSON(t, response, http.StatusCreated, models.ShortenResponse{
			ID:          "7f1c",
			ShortCode:   "abc123",
			ShortURL:    "https://short.ly/abc123",
			OriginalURL: recorded.body.URL,
			CreatedAt:   "2025-06-01T12:00:00Z",
			IsPublic:    recorded.body.IsPublic,
		})
	})

	router.Get("/api/urls", func(response http.ResponseWriter, request *http.Request) {
		record(request)
		if request.Header.Get("Authorization") == "" {
			writeJSON(t, response, http.StatusUnauthorized, models.APIError{Message: "missing bearer token", Code: "UNAUTHORIZED"})
			return
		}

		writeJSON(t, response, http.StatusOK, models.UserURLsResponse{
			URLs: []models.ShortenResponse{
				{ShortCode: "abc123", OriginalURL: "https://example.com/a", ClickCount: 7},
				{ShortCode: "def456", OriginalURL: "https://example.com/b", ClickCount: 2},
			},
		})
	})

	router.Get("/api/urls/{shortCode}", func(response http.ResponseWriter, request *http.Request) {
		record(request)
		if chi.URLParam(request, "shortCode") != "abc123" {
			writeJSON(t, response, http.StatusNotFound, models.APIError{Message: "short code not found", Code: "NOT_FOUND"})
			return
		}

		writeJSON(t, response, http.StatusOK, models.ResolveResponse{
			OriginalURL: "https://example.com/a/b/c",
			ClickCount:  42,
		})
	})

	router.Get("/api/analytics/dashboard", func(response http.ResponseWriter, request *http.Request) {
		record(request)
		writeJSON(t, response, http.StatusOK, models.Dashboard{
			Overview: models.Overview{TotalURLs: 3, TotalClicks: 51, TrendDirection: "up"},
			TopURLs:  []models.TopURL{{ShortCode: "abc123", ClickCount: 42}},
		})
	})

	router.Get("/api/analytics/urls", func(response http.ResponseWriter, request *http.Request) {
		record(request)
		writeJSON(t, response, http.StatusOK, models.TopURLsResponse{
			URLs: []models.TopURL{{ShortCode: "abc123", ClickCount: 42}},
		})
	})

	router.Get("/api/analytics/referrers", func(response http.ResponseWriter, request *http.Request) {
		record(request)
		writeJSON(t, response, http.StatusOK, models.TopReferrersResponse{
			Referrers: []models.ReferrerStat{{Referrer: "news.ycombinator.com", Clicks: 30}},
		})
	})

	router.Get("/api/analytics/devices", func(response http.ResponseWriter, request *http.Request) {
		record(request)
		writeJSON(t, response, http.StatusOK, models.DeviceBreakdownResponse{
			Devices: []models.DeviceStat{{DeviceType: "mobile", Clicks: 28, Percentage: 54.9}},
		})
	})

	router.Get("/api/analytics/trend", func(response http.ResponseWriter, request *http.Request) {
		record(request)
		writeJSON(t, response, http.StatusOK, models.DailyTrendResponse{
			Trend: []models.DailyTrend{{Date: "2025-05-31", Clicks: 9}},
			Days:  7,
		})
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return server
}

func TestShortenRoundTrip(t *testing.T) {
	recorded := &recordedRequest{}
	server := newFakeBackend(t, recorded)
	client := New(server.URL, &staticTokens{})

	userID := "u1"
	result, err := client.Shorten(context.Background(), models.ShortenRequest{
		URL:        "https://example.com/a/b/c",
		IsPublic:   true,
		UserID:     &userID,
		CodeLength: 6,
	})
	require.NoError(t, err)

	assert.Equal(t, "abc123", result.ShortCode)
	assert.Equal(t, "https://short.ly/abc123", result.ShortURL)
	assert.Equal(t, "https://example.com/a/b/c", result.OriginalURL)

	require.NotNil(t, recorded.body.UserID)
	assert.Equal(t, "u1", *recorded.body.UserID)
	assert.Equal(t, 6, recorded.body.CodeLength)
	assert.NotEmpty(t, recorded.requestID, "every request carries a correlation id")
}

func TestShortenRejectsInvalidRequestLocally(t *testing.T) {
	recorded := &recordedRequest{}
	server := newFakeBackend(t, recorded)
	client := New(server.URL, &staticTokens{})

	_, err := client.Shorten(context.Background(), models.ShortenRequest{
		URL:        "not a url",
		CodeLength: 6,
	})

	assert.Error(t, err)
	assert.Empty(t, recorded.requestID, "an invalid request must not reach the backend")
}

func TestAPIErrorIsParsed(t *testing.T) {
	recorded := &recordedRequest{}
	server := newFakeBackend(t, recorded)
	client := New(server.URL, &staticTokens{})

	_, err := client.Resolve(context.Background(), "missing")
	require.Error(t, err)

	var apiErr *models.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "short code not found", apiErr.Message)
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
}

func TestNonJSONErrorFallsBackToRawText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(response http.ResponseWriter, _ *http.Request) {
		response.Header().Set("Content-Type", "text/plain")
		response.WriteHeader(http.StatusBadGateway)
		_, _ = response.Write([]byte("upstream exploded"))
	}))
	t.Cleanup(server.Close)

	client := New(server.URL, &staticTokens{})

	_, err := client.Resolve(context.Background(), "abc123")
	require.Error(t, err)

	var apiErr *models.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "upstream exploded", apiErr.Message)
	assert.Empty(t, apiErr.Code)
}

func TestUserURLsRequiresToken(t *testing.T) {
	recorded := &recordedRequest{}
	server := newFakeBackend(t, recorded)

	client := New(server.URL, &staticTokens{})
	_, err := client.UserURLs(context.Background())
	assert.ErrorIs(t, err, ErrUnauthenticated)

	client = New(server.URL, &staticTokens{token: "bearer-token"})
	listing, err := client.UserURLs(context.Background())
	require.NoError(t, err)

	assert.Len(t, listing.URLs, 2)
	assert.Equal(t, "Bearer bearer-token", recorded.authorization)
}

func TestAnalyticsEndpoints(t *testing.T) {
	recorded := &recordedRequest{}
	server := newFakeBackend(t, recorded)
	client := New(server.URL, &staticTokens{token: "bearer-token"})

	t.Run("dashboard", func(t *testing.T) {
		dashboard, err := client.Dashboard(context.Background())
		require.NoError(t, err)

		assert.Equal(t, int64(51), dashboard.Overview.TotalClicks)
		assert.Equal(t, "Bearer bearer-token", recorded.authorization)
	})

	t.Run("top urls with limit", func(t *testing.T) {
		topURLs, err := client.TopURLs(context.Background(), 5)
		require.NoError(t, err)

		assert.Len(t, topURLs.URLs, 1)
		assert.Equal(t, "5", recorded.query["limit"])
	})

	t.Run("top urls without limit", func(t *testing.T) {
		_, err := client.TopURLs(context.Background(), 0)
		require.NoError(t, err)

		_, present := recorded.query["limit"]
		assert.False(t, present)
	})

	t.Run("referrers", func(t *testing.T) {
		referrers, err := client.TopReferrers(context.Background(), 3)
		require.NoError(t, err)

		assert.Equal(t, "news.ycombinator.com", referrers.Referrers[0].Referrer)
		assert.Equal(t, "3", recorded.query["limit"])
	})

	t.Run("devices", func(t *testing.T) {
		devices, err := client.Devices(context.Background())
		require.NoError(t, err)

		assert.Equal(t, "mobile", devices.Devices[0].DeviceType)
	})

	t.Run("trend with days", func(t *testing.T) {
		trend, err := client.Trend(context.Background(), 7)
		require.NoError(t, err)

		assert.Equal(t, 7, trend.Days)
		assert.Equal(t, "7", recorded.query["days"])
	})
}
