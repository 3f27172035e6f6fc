// Package models defines the JSON shapes exchanged with the shortener
// REST API. Field names are fixed by the backend contract.
package models

import "fmt"

// ShortenRequest is the payload of POST /api/urls. UserID is nil for
// anonymous submissions.
type ShortenRequest struct {
	URL        string  `json:"url" validate:"required,url"`
	IsPublic   bool    `json:"is_public"`
	UserID     *string `json:"user_id"`
	CodeLength int     `json:"code_length" validate:"min=4,max=16"`
}

// ShortenResponse is returned for a created short URL and for each item
// of a user's URL listing.
type ShortenResponse struct {
	ID          string `json:"id"`
	ShortCode   string `json:"short_code"`
	ShortURL    string `json:"short_url"`
	OriginalURL string `json:"original_url"`
	CreatedAt   string `json:"created_at"`
	IsPublic    bool   `json:"is_public"`
	ClickCount  int64  `json:"click_count"`
}

// UserURLsResponse is the payload of GET /api/urls.
type UserURLsResponse struct {
	URLs []ShortenResponse `json:"urls"`
}

// ResolveResponse is the payload of GET /api/urls/{shortCode}.
type ResolveResponse struct {
	OriginalURL string `json:"original_url"`
	ClickCount  int64  `json:"click_count"`
}

// Overview summarizes account-wide click activity.
type Overview struct {
	TotalURLs       int64   `json:"total_urls"`
	TotalClicks     int64   `json:"total_clicks"`
	ClicksToday     int64   `json:"clicks_today"`
	ClicksYesterday int64   `json:"clicks_yesterday"`
	AverageClicks   float64 `json:"average_clicks"`
	TrendDirection  string  `json:"trend_direction"`
}

// TopURL is one row of the most-clicked listing.
type TopURL struct {
	URLID       string `json:"url_id"`
	ShortCode   string `json:"short_code"`
	OriginalURL string `json:"original_url"`
	ClickCount  int64  `json:"click_count"`
	CreatedAt   string `json:"created_at"`
}

// ReferrerStat is one row of the referrer breakdown.
type ReferrerStat struct {
	Referrer string `json:"referrer"`
	Clicks   int64  `json:"clicks"`
}

// DeviceStat is one row of the device breakdown.
type DeviceStat struct {
	DeviceType string  `json:"device_type"`
	Clicks     int64   `json:"clicks"`
	Percentage float64 `json:"percentage"`
}

// DailyTrend is one day of the click trend.
type DailyTrend struct {
	Date   string `json:"date"`
	Clicks int64  `json:"clicks"`
}

// Dashboard is the payload of GET /api/analytics/dashboard.
type Dashboard struct {
	Overview        Overview       `json:"overview"`
	TopURLs         []TopURL       `json:"top_urls"`
	TopReferrers    []ReferrerStat `json:"top_referrers"`
	DeviceBreakdown []DeviceStat   `json:"device_breakdown"`
	DailyTrend      []DailyTrend   `json:"daily_trend"`
}

// TopURLsResponse is the payload of GET /api/analytics/urls.
type TopURLsResponse struct {
	URLs []TopURL `json:"urls"`
}

// TopReferrersResponse is the payload of GET /api/analytics/referrers.
type TopReferrersResponse struct {
	Referrers []ReferrerStat `json:"referrers"`
}

// DeviceBreakdownResponse is the payload of GET /api/analytics/devices.
type DeviceBreakdownResponse struct {
	Devices []DeviceStat `json:"devices"`
}

// DailyTrendResponse is the payload of GET /api/analytics/trend.
type DailyTrendResponse struct {
	Trend []DailyTrend `json:"trend"`
	Days  int          `json:"days"`
}

// APIError is the uniform error body the backend returns on failure.
// When the body is not valid JSON the raw response text is carried in
// Message instead.
type APIError struct {
	Message string `json:"error"`
	Code    string `json:"code,omitempty"`
	Field   string `json:"field,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Code)
	}

	return e.Message
}
