// Package provider implements the session.Source contract against a
// GoTrue-style identity HTTP API: email+password sign-up and sign-in,
// refresh-token rotation, sign-out and a current-user check. Every
// credential transition is pushed to subscribers, including the
// automatic refresh performed shortly before the access token expires.
package provider

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/mlevkov/shortly/internal/logger"
	"github.com/mlevkov/shortly/internal/session"
)

const (
	defaultRefreshLeeway = 30 * time.Second

	// minRefreshWait keeps an already-expired or short-lived token from
	// turning the refresh timer into a tight loop.
	minRefreshWait = time.Second
)

type userPayload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type sessionPayload struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    int64       `json:"expires_in"`
	User         userPayload `json:"user"`
}

type signUpPayload struct {
	User    *userPayload    `json:"user"`
	Session *sessionPayload `json:"session"`
}

type errorPayload struct {
	Message     string `json:"msg"`
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

func (e *errorPayload) text() string {
	switch {
	case e.Description != "":
		return e.Description
	case e.Message != "":
		return e.Message
	case e.Error != "":
		return e.Error
	}

	return "provider request failed"
}

// Provider is a session.Source backed by the identity service. It keeps
// the active session and refresh token in memory only; nothing is
// persisted on the client.
type Provider struct {
	client        *resty.Client
	refreshLeeway time.Duration
	now           func() time.Time

	mu           sync.Mutex
	current      *session.Session
	refreshToken string
	refreshTimer *time.Timer
	subscribers  map[int]func(session.Event)
	nextSubID    int
	closed       bool
}

// Option customizes a Provider.
type Option func(*Provider)

// WithTimeout bounds every provider HTTP call.
func WithTimeout(timeout time.Duration) Option {
	return func(p *Provider) {
		p.client.SetTimeout(timeout)
	}
}

// WithRefreshLeeway sets how long before token expiry the automatic
// refresh fires.
func WithRefreshLeeway(leeway time.Duration) Option {
	return func(p *Provider) {
		p.refreshLeeway = leeway
	}
}

// WithClock replaces the time source used for refresh scheduling.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		p.now = now
	}
}

// New creates a Provider for the identity service at baseURL. The key
// is the service's public API key, sent with every request.
func New(baseURL, key string, opts ...Option) *Provider {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("apikey", key).
		SetHeader("X-Client-Info", "shortly-client")

	p := &Provider{
		client:        logger.WithLoggingRestyMiddleware(client),
		refreshLeeway: defaultRefreshLeeway,
		now:           time.Now,
		subscribers:   map[int]func(session.Event){},
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// SignUp registers a new account. When the service withholds the
// session until email confirmation, session.ErrConfirmationRequired is
// returned and no event is emitted.
func (p *Provider) SignUp(ctx context.Context, email, password string) (session.Session, error) {
	var payload signUpPayload
	var apiErr errorPayload

	response, err := p.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&payload).
		SetError(&apiErr).
		Post("/auth/v1/signup")
	if err != nil {
		return session.Session{}, err
	}

	if response.IsError() {
		return session.Session{}, fmt.Errorf("sign-up rejected: %s", apiErr.text())
	}

	if payload.Session == nil || payload.User == nil {
		return session.Session{}, session.ErrConfirmationRequired
	}

	return p.adopt(*payload.Session), nil
}

// SignInWithPassword exchanges credentials for a session via the
// password grant.
func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (session.Session, error) {
	var payload sessionPayload
	var apiErr errorPayload

	response, err := p.client.R().
		SetContext(ctx).
		SetQueryParam("grant_type", "password").
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&payload).
		SetError(&apiErr).
		Post("/auth/v1/token")
	if err != nil {
		return session.Session{}, err
	}

	if response.IsError() {
		return session.Session{}, fmt.Errorf("sign-in rejected: %s", apiErr.text())
	}

	return p.adopt(payload), nil
}

// SignOut revokes the session server-side and drops it locally. The
// local teardown happens even when the revocation call fails.
func (p *Provider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	token := ""
	if p.current != nil {
		token = p.current.AccessToken
	}
	p.mu.Unlock()

	p.drop()

	if token == "" {
		return nil
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		Post("/auth/v1/logout")
	if err != nil {
		return err
	}

	if response.IsError() && response.StatusCode() != http.StatusUnauthorized {
		return fmt.Errorf("sign-out rejected: status %d", response.StatusCode())
	}

	return nil
}

// CurrentSession answers the one-shot bootstrap query. A held session
// is revalidated against the service; a definite 401 clears it, while a
// transport failure is reported to the caller to decide.
func (p *Provider) CurrentSession(ctx context.Context) (session.Session, bool, error) {
	p.mu.Lock()
	current := p.current
	p.mu.Unlock()

	if current == nil {
		return session.Session{}, false, nil
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetAuthToken(current.AccessToken).
		Get("/auth/v1/user")
	if err != nil {
		return session.Session{}, false, err
	}

	if response.StatusCode() == http.StatusUnauthorized {
		p.drop()

		return session.Session{}, false, nil
	}

	if response.IsError() {
		return session.Session{}, false, fmt.Errorf("session check failed: status %d", response.StatusCode())
	}

	return *current, true, nil
}

// Subscribe registers a callback for every subsequent session
// transition and returns its release handle.
func (p *Provider) Subscribe(callback func(session.Event)) func() {
	p.mu.Lock()
	id := p.nextSubID
	p.nextSubID++
	p.subscribers[id] = callback
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.subscribers, id)
		p.mu.Unlock()
	}
}

// Close stops the refresh timer and suppresses further events.
func (p *Provider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	if p.refreshTimer != nil {
		p.refreshTimer.Stop()
		p.refreshTimer = nil
	}
}

func (p *Provider) refresh() {
	p.mu.Lock()
	refreshToken := p.refreshToken
	p.mu.Unlock()

	if refreshToken == "" {
		return
	}

	var payload sessionPayload
	var apiErr errorPayload

	response, err := p.client.R().
		SetQueryParam("grant_type", "refresh_token").
		SetBody(map[string]string{"refresh_token": refreshToken}).
		SetResult(&payload).
		SetError(&apiErr).
		Post("/auth/v1/token")
	if err != nil {
		logger.Log.Warnln("token refresh failed", zap.Error(err))
		p.drop()

		return
	}

	if response.IsError() {
		logger.Log.Warnln("token refresh rejected", "reason", apiErr.text())
		p.drop()

		return
	}

	p.adopt(payload)
}

// adopt installs a freshly issued session, schedules the next refresh
// and notifies subscribers.
func (p *Provider) adopt(payload sessionPayload) session.Session {
	sess := session.Session{
		UserID:      payload.User.ID,
		AccessToken: payload.AccessToken,
	}
	if sess.UserID == "" {
		sess.UserID = subjectOf(payload.AccessToken)
	}

	p.mu.Lock()
	p.current = &sess
	p.refreshToken = payload.RefreshToken

	if p.refreshTimer != nil {
		p.refreshTimer.Stop()
		p.refreshTimer = nil
	}
	if !p.closed && payload.RefreshToken != "" {
		if wait, ok := p.untilRefresh(payload); ok {
			p.refreshTimer = time.AfterFunc(wait, p.refresh)
		}
	}
	p.mu.Unlock()

	p.emit(session.ActiveEvent(sess))

	return sess
}

func (p *Provider) drop() {
	p.mu.Lock()
	wasActive := p.current != nil
	p.current = nil
	p.refreshToken = ""
	if p.refreshTimer != nil {
		p.refreshTimer.Stop()
		p.refreshTimer = nil
	}
	p.mu.Unlock()

	if wasActive {
		p.emit(session.InactiveEvent())
	}
}

func (p *Provider) emit(ev session.Event) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()

		return
	}
	callbacks := make([]func(session.Event), 0, len(p.subscribers))
	for _, callback := range p.subscribers {
		callbacks = append(callbacks, callback)
	}
	p.mu.Unlock()

	for _, callback := range callbacks {
		callback(ev)
	}
}

// untilRefresh derives the refresh delay from the access token's exp
// claim, falling back to the advertised expires_in. Must be called with
// p.mu held.
func (p *Provider) untilRefresh(payload sessionPayload) (time.Duration, bool) {
	expiresAt := expiryOf(payload.AccessToken)
	if expiresAt.IsZero() && payload.ExpiresIn > 0 {
		expiresAt = p.now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	}
	if expiresAt.IsZero() {
		return 0, false
	}

	wait := expiresAt.Sub(p.now()) - p.refreshLeeway
	if wait < minRefreshWait {
		wait = minRefreshWait
	}

	return wait, true
}

// expiryOf reads the exp claim without verifying the signature. The
// client holds no signing key; verification is the backend's job, and
// the claim is only used to schedule the refresh early enough.
func expiryOf(accessToken string) time.Time {
	claims := &jwt.RegisteredClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(accessToken, claims)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}

	return claims.ExpiresAt.Time
}

// subjectOf reads the sub claim as the user identifier when the token
// response carries no user object.
func subjectOf(accessToken string) string {
	claims := &jwt.RegisteredClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(accessToken, claims)
	if err != nil {
		return ""
	}

	return claims.Subject
}
