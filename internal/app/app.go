// Package app wires the client together: configuration, logging, the
// session provider, the auth store, the API client and the display
// stores, plus the optional inactivity watchdog. It owns the
// subscription lifecycle so nothing acts on provider events after
// teardown.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mlevkov/shortly/internal/apiclient"
	"github.com/mlevkov/shortly/internal/authstore"
	"github.com/mlevkov/shortly/internal/config"
	"github.com/mlevkov/shortly/internal/logger"
	"github.com/mlevkov/shortly/internal/provider"
	"github.com/mlevkov/shortly/internal/urlstore"
)

// App is the composition root of the client.
type App struct {
	cfg      *config.Config
	provider *provider.Provider
	auth     *authstore.Store
	api      *apiclient.Client
	urls     *urlstore.Store

	mu       sync.Mutex
	watchdog *time.Timer
	stopRun  context.CancelFunc
}

// New loads configuration, initializes logging and assembles the
// client. Nothing talks to the network yet; that starts with Run.
func New(opts ...config.InitOption) (*App, error) {
	cfg, err := config.New(opts...)
	if err != nil {
		return nil, err
	}

	if err := logger.Init(cfg.LogLevel); err != nil {
		return nil, err
	}

	prov := provider.New(
		cfg.ProviderURL,
		cfg.ProviderKey,
		provider.WithTimeout(cfg.RequestTimeout),
	)

	auth := authstore.New(prov, authstore.WithDedupWindow(cfg.DedupWindow))

	return &App{
		cfg:      cfg,
		provider: prov,
		auth:     auth,
		api:      apiclient.New(cfg.APIBaseURL, auth, apiclient.WithTimeout(cfg.RequestTimeout)),
		urls:     urlstore.New(),
	}, nil
}

// Config returns the loaded configuration.
func (a *App) Config() *config.Config { return a.cfg }

// Auth returns the session state store.
func (a *App) Auth() *authstore.Store { return a.auth }

// API returns the shortener API client.
func (a *App) API() *apiclient.Client { return a.api }

// URLs returns the shorten result/error store.
func (a *App) URLs() *urlstore.Store { return a.urls }

// Run attaches the auth store to the provider's notifications and runs
// the bootstrap session check. The subscription lives until Close.
func (a *App) Run(ctx context.Context) {
	runCtx, stop := context.WithCancel(context.Background())

	a.mu.Lock()
	a.stopRun = stop
	a.mu.Unlock()

	a.auth.Run(runCtx)
	a.auth.Bootstrap(ctx)
	a.Touch()
}

// Touch records user activity, (re)arming the inactivity watchdog when
// one is configured. After the configured idle period the session is
// signed out locally and the display stores are cleared.
func (a *App) Touch() {
	if a.cfg.InactivityTimeout <= 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.watchdog != nil {
		a.watchdog.Stop()
	}

	a.watchdog = time.AfterFunc(a.cfg.InactivityTimeout, func() {
		logger.Log.Infoln("session expired after inactivity")
		a.auth.Logout(context.Background())
		a.urls.ClearOnLogout()
	})
}

// SignIn runs the password flow and applies the resulting session. The
// provider also reports the transition through the change stream; the
// store's reconciliation makes the second delivery a no-op.
func (a *App) SignIn(ctx context.Context, email, password string) error {
	sess, err := a.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		return err
	}

	a.auth.Login(sess.UserID, sess.AccessToken)
	a.Touch()

	return nil
}

// SignUp registers an account and, when the provider issues a session
// immediately, applies it.
func (a *App) SignUp(ctx context.Context, email, password string) error {
	sess, err := a.provider.SignUp(ctx, email, password)
	if err != nil {
		return err
	}

	a.auth.Login(sess.UserID, sess.AccessToken)
	a.Touch()

	return nil
}

// SignOut clears the session and the per-session display state.
func (a *App) SignOut(ctx context.Context) {
	a.auth.Logout(ctx)
	a.urls.ClearOnLogout()
}

// Close releases the provider subscription, stops timers and flushes
// the logger.
func (a *App) Close() {
	a.mu.Lock()
	if a.watchdog != nil {
		a.watchdog.Stop()
		a.watchdog = nil
	}
	stop := a.stopRun
	a.stopRun = nil
	a.mu.Unlock()

	if stop != nil {
		stop()
	}
	a.provider.Close()

	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}
