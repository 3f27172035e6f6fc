// Package logger provides structured logging functionality
// using the Uber zap logging library. It supports log levels and output customization.
package logger

import (
	"errors"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Log is a global SugaredLogger instance from the zap logging library.
// It provides a structured and leveled logging API with a simpler interface
// for common use cases like formatted output and key-value logging.
// Log should be initialized via Init().
var Log *zap.SugaredLogger

func init() {
	Log = zap.NewNop().Sugar()
}

// Init initializes the global logger configuration.
// It sets the output destination and global log level.
func Init(level string) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return err
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = lvl
	zl, err := cfg.Build()
	if err != nil {
		return err
	}
	Log = zl.Sugar()

	return nil
}

// Sync flushes any buffered log entries to the output.
// It should be called when shutting down to ensure all logs are written.
func Sync() error {
	if err := Log.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return err
	}

	return nil
}

// WithLoggingRestyMiddleware installs an OnAfterResponse hook on the
// given resty client that logs every outgoing request with its method,
// URL, status, duration and response size.
func WithLoggingRestyMiddleware(client *resty.Client) *resty.Client {
	client.OnAfterResponse(func(_ *resty.Client, response *resty.Response) error {
		var duration time.Duration
		if response.Request != nil {
			duration = response.Time()
		}

		Log.Infoln(
			"uri", response.Request.URL,
			"method", response.Request.Method,
			"status", response.StatusCode(),
			"duration", duration,
			"size", len(response.Body()),
		)

		return nil
	})

	return client
}
