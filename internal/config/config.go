// Package config loads and validates the client configuration from
// defaults, an optional .env file, environment variables and command-line
// flags, in that order of precedence.
package config

import (
	"flag"
	"log"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds every knob the client needs to reach the shortener API
// and the session provider.
type Config struct {
	APIBaseURL        string        `env:"API_BASE_URL" validate:"url"`
	ProviderURL       string        `env:"PROVIDER_URL" validate:"url"`
	ProviderKey       string        `env:"PROVIDER_KEY"`
	LogLevel          string        `env:"LOG_LEVEL" validate:"loglevel"`
	RequestTimeout    time.Duration `env:"REQUEST_TIMEOUT"`
	DedupWindow       time.Duration `env:"DEDUP_WINDOW"`
	DefaultCodeLength int           `env:"DEFAULT_CODE_LENGTH" validate:"min=4,max=16"`
	InactivityTimeout time.Duration `env:"INACTIVITY_TIMEOUT"`
}

var defaultConfig = Config{
	APIBaseURL:        "http://localhost:8080",
	ProviderURL:       "http://localhost:9999",
	ProviderKey:       "",
	LogLevel:          "info",
	RequestTimeout:    10 * time.Second,
	DedupWindow:       100 * time.Millisecond,
	DefaultCodeLength: 6,
	InactivityTimeout: 0,
}

func applyDefaults(values *Config, defaults Config) {
	*values = defaults
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()

	allowedLogLevels := map[string]bool{
		"debug":   true,
		"info":    true,
		"warning": true,
		"error":   true,
		"fatal":   true,
	}

	return allowedLogLevels[value]
}

func (c *Config) validate() error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	return validate.Struct(c)
}

// InitOption customizes config loading.
type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
}

// WithDisableFlagsParsing skips flag.Parse(), useful in tests where the
// test binary owns the flag set.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// New builds a validated Config.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	err := godotenv.Load()
	if err != nil {
		log.Printf("Unable to load .env file: %v", err)
	}

	values := &Config{}
	applyDefaults(values, defaultConfig)

	if !options.disableFlagsParsing {
		flag.StringVar(&values.APIBaseURL, "a", values.APIBaseURL, "base URL of the shortener REST API")
		flag.StringVar(&values.ProviderURL, "p", values.ProviderURL, "base URL of the session provider")
		flag.StringVar(&values.ProviderKey, "k", values.ProviderKey, "public API key for the session provider")
		flag.StringVar(&values.LogLevel, "l", values.LogLevel, "logger level")
		flag.IntVar(&values.DefaultCodeLength, "c", values.DefaultCodeLength, "short code length requested on shorten")
		flag.Parse()
	}

	var valuesFromEnv Config
	err = env.Parse(&valuesFromEnv)
	if err != nil {
		return nil, err
	}

	if valuesFromEnv.APIBaseURL != "" {
		values.APIBaseURL = valuesFromEnv.APIBaseURL
	}

	if valuesFromEnv.ProviderURL != "" {
		values.ProviderURL = valuesFromEnv.ProviderURL
	}

	if valuesFromEnv.ProviderKey != "" {
		values.ProviderKey = valuesFromEnv.ProviderKey
	}

	if valuesFromEnv.LogLevel != "" {
		values.LogLevel = valuesFromEnv.LogLevel
	}

	if valuesFromEnv.RequestTimeout != 0 {
		values.RequestTimeout = valuesFromEnv.RequestTimeout
	}

	if valuesFromEnv.DedupWindow != 0 {
		values.DedupWindow = valuesFromEnv.DedupWindow
	}

	if valuesFromEnv.DefaultCodeLength != 0 {
		values.DefaultCodeLength = valuesFromEnv.DefaultCodeLength
	}

	if valuesFromEnv.InactivityTimeout != 0 {
		values.InactivityTimeout = valuesFromEnv.InactivityTimeout
	}

	return values, values.validate()
}
