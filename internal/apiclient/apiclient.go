// Package apiclient is the typed client for the shortener REST API:
// shorten, URL listing, short-code resolution and the analytics
// endpoints. Protected calls take their bearer token from an injected
// token source so the client never reads session state directly.
package apiclient

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/mlevkov/shortly/internal/logger"
	"github.com/mlevkov/shortly/internal/models"
)

// ErrUnauthenticated is returned when a protected call is attempted
// with no access token available.
var ErrUnauthenticated = errors.New("no access token for authenticated request")

// TokenSource yields the current bearer credential. The second return
// is false when no authenticated session holds one.
type TokenSource interface {
	AccessToken() (string, bool)
}

// Client talks to the shortener backend.
type Client struct {
	client   *resty.Client
	tokens   TokenSource
	validate *validator.Validate
}

// Option customizes a Client.
type Option func(*Client)

// WithTimeout bounds every API call.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.client.SetTimeout(timeout)
	}
}

// New creates a Client for the API at baseURL. Every request carries a
// fresh X-Request-ID for correlation with backend logs.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json")

	client.OnBeforeRequest(func(_ *resty.Client, request *resty.Request) error {
		request.SetHeader("X-Request-ID", uuid.New().String())

		return nil
	})

	c := &Client{
		client:   logger.WithLoggingRestyMiddleware(client),
		tokens:   tokens,
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// apiError converts a non-2xx response into a models.APIError. When the
// body is not the uniform JSON error shape the raw text degrades into
// the message.
func apiError(response *resty.Response, parsed *models.APIError) error {
	if parsed != nil && parsed.Message != "" {
		return parsed
	}

	message := strings.TrimSpace(string(response.Body()))
	if message == "" {
		message = http.StatusText(response.StatusCode())
	}

	return &models.APIError{Message: message}
}

// Shorten submits a URL for shortening. The request is validated
// client-side before it leaves the process.
func (c *Client) Shorten(ctx context.Context, request models.ShortenRequest) (*models.ShortenResponse, error) {
	if err := c.validate.Struct(request); err != nil {
		return nil, err
	}

	var result models.ShortenResponse
	var apiErr models.APIError

	response, err := c.client.R().
		SetContext(ctx).
		SetBody(request).
		SetResult(&result).
		SetError(&apiErr).
		Post("/api/urls")
	if err != nil {
		return nil, err
	}

	if response.IsError() {
		return nil, apiError(response, &apiErr)
	}

	return &result, nil
}

// UserURLs lists the signed-in user's URLs.
func (c *Client) UserURLs(ctx context.Context) (*models.UserURLsResponse, error) {
	var result models.UserURLsResponse
	if err := c.getAuthed(ctx, "/api/urls", nil, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// Resolve looks up the original URL and click count behind a short code.
func (c *Client) Resolve(ctx context.Context, shortCode string) (*models.ResolveResponse, error) {
	var result models.ResolveResponse
	var apiErr models.APIError

	response, err := c.client.R().
		SetContext(ctx).
		SetPathParam("shortCode", shortCode).
		SetResult(&result).
		SetError(&apiErr).
		Get("/api/urls/{shortCode}")
	if err != nil {
		return nil, err
	}

	if response.IsError() {
		return nil, apiError(response, &apiErr)
	}

	return &result, nil
}

// Dashboard fetches the full analytics aggregation.
func (c *Client) Dashboard(ctx context.Context) (*models.Dashboard, error) {
	var result models.Dashboard
	if err := c.getAuthed(ctx, "/api/analytics/dashboard", nil, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// TopURLs fetches the most-clicked URLs slice. A non-positive limit
// leaves the backend default in place.
func (c *Client) TopURLs(ctx context.Context, limit int) (*models.TopURLsResponse, error) {
	var result models.TopURLsResponse
	if err := c.getAuthed(ctx, "/api/analytics/urls", limitParam(limit), &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// TopReferrers fetches the referrer breakdown slice.
func (c *Client) TopReferrers(ctx context.Context, limit int) (*models.TopReferrersResponse, error) {
	var result models.TopReferrersResponse
	if err := c.getAuthed(ctx, "/api/analytics/referrers", limitParam(limit), &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// Devices fetches the device breakdown.
func (c *Client) Devices(ctx context.Context) (*models.DeviceBreakdownResponse, error) {
	var result models.DeviceBreakdownResponse
	if err := c.getAuthed(ctx, "/api/analytics/devices", nil, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// Trend fetches the daily click trend over the given number of days.
func (c *Client) Trend(ctx context.Context, days int) (*models.DailyTrendResponse, error) {
	params := map[string]string{}
	if days > 0 {
		params["days"] = strconv.Itoa(days)
	}

	var result models.DailyTrendResponse
	if err := c.getAuthed(ctx, "/api/analytics/trend", params, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

func limitParam(limit int) map[string]string {
	if limit <= 0 {
		return nil
	}

	return map[string]string{"limit": strconv.Itoa(limit)}
}

func (c *Client) getAuthed(ctx context.Context, path string, queryParams map[string]string, result any) error {
	token, ok := c.tokens.AccessToken()
	if !ok {
		return ErrUnauthenticated
	}

	var apiErr models.APIError

	response, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(queryParams).
		SetResult(result).
		SetError(&apiErr).
		Get(path)
	if err != nil {
		return err
	}

	if response.IsError() {
		return apiError(response, &apiErr)
	}

	return nil
}
