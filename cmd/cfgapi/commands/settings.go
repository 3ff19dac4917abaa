package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/markolofsen/django-cfg-sub001/internal/logging"
	"github.com/markolofsen/django-cfg-sub001/pkg/cfgapi"
)

// Settings is the resolved CLI configuration
type Settings struct {
	API         string          `mapstructure:"api" json:"api" yaml:"api"`
	Output      string          `mapstructure:"output" json:"output" yaml:"output"`
	Verbose     bool            `mapstructure:"verbose" json:"verbose" yaml:"verbose"`
	Timeout     time.Duration   `mapstructure:"timeout" json:"timeout" yaml:"timeout"`
	AutoRefresh bool            `mapstructure:"auto_refresh" json:"auto_refresh" yaml:"auto_refresh"`
	RefreshPath string          `mapstructure:"refresh_path" json:"refresh_path" yaml:"refresh_path"`
	SentryDSN   string          `mapstructure:"sentry_dsn" json:"sentry_dsn,omitempty" yaml:"sentry_dsn,omitempty"`
	Storage     StorageSettings `mapstructure:"storage" json:"storage" yaml:"storage"`
	Retry       RetrySettings   `mapstructure:"retry" json:"retry" yaml:"retry"`
	Log         LogSettings     `mapstructure:"log" json:"log" yaml:"log"`
}

// StorageSettings selects the credential store
type StorageSettings struct {
	Driver        string        `mapstructure:"driver" json:"driver" yaml:"driver"`
	Path          string        `mapstructure:"path" json:"path,omitempty" yaml:"path,omitempty"`
	RedisAddr     string        `mapstructure:"redis_addr" json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`
	RedisPassword string        `mapstructure:"redis_password" json:"redis_password,omitempty" yaml:"redis_password,omitempty"`
	RedisDB       int           `mapstructure:"redis_db" json:"redis_db,omitempty" yaml:"redis_db,omitempty"`
	RedisPrefix   string        `mapstructure:"redis_prefix" json:"redis_prefix,omitempty" yaml:"redis_prefix,omitempty"`
	RedisTTL      time.Duration `mapstructure:"redis_ttl" json:"redis_ttl,omitempty" yaml:"redis_ttl,omitempty"`
	SQLiteDSN     string        `mapstructure:"sqlite_dsn" json:"sqlite_dsn,omitempty" yaml:"sqlite_dsn,omitempty"`
}

// RetrySettings mirrors the client retry configuration
type RetrySettings struct {
	MaxAttempts int           `mapstructure:"max_attempts" json:"max_attempts" yaml:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay" json:"base_delay" yaml:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay" json:"max_delay" yaml:"max_delay"`
	Multiplier  float64       `mapstructure:"multiplier" json:"multiplier" yaml:"multiplier"`
}

// LogSettings controls request logging
type LogSettings struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	Level   string `mapstructure:"level" json:"level" yaml:"level"`
}

func (a *app) settings() (*Settings, error) {
	var s Settings
	if err := a.v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if s.Storage.Driver == cfgapi.StorageFile && s.Storage.Path == "" {
		s.Storage.Path = defaultCredentialsPath()
	}
	return &s, nil
}

func defaultCredentialsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".cfgapi", "credentials.json")
	}
	return filepath.Join(home, ".cfgapi", "credentials.json")
}

// ClientOptions converts the settings into client options. Diagnostics go to stderr.
func (s *Settings) ClientOptions(stderr io.Writer) (*cfgapi.ClientOptions, error) {
	if s.API == "" {
		return nil, ErrAPIRequired
	}

	opts := &cfgapi.ClientOptions{
		BaseURL:     s.API,
		Timeout:     s.Timeout,
		AutoRefresh: s.AutoRefresh,
		RefreshPath: s.RefreshPath,
		SentryDSN:   s.SentryDSN,
		RetryConfig: &cfgapi.RetryConfig{
			MaxAttempts:          s.Retry.MaxAttempts,
			BaseDelay:            s.Retry.BaseDelay,
			BackoffMultiplier:    s.Retry.Multiplier,
			MaxDelay:             s.Retry.MaxDelay,
			RetryableStatusCodes: cfgapi.DefaultRetryConfig().RetryableStatusCodes,
		},
		StorageConfig: &cfgapi.StorageConfig{Driver: s.Storage.Driver},
	}

	switch s.Storage.Driver {
	case cfgapi.StorageFile:
		opts.StorageConfig.File = &cfgapi.FileStorageConfig{Path: s.Storage.Path}
	case cfgapi.StorageRedis:
		opts.StorageConfig.Redis = &cfgapi.RedisStorageConfig{
			Addr:     s.Storage.RedisAddr,
			Password: s.Storage.RedisPassword,
			DB:       s.Storage.RedisDB,
			Prefix:   s.Storage.RedisPrefix,
			TTL:      s.Storage.RedisTTL,
		}
	case cfgapi.StorageSQLite:
		opts.StorageConfig.SQLite = &cfgapi.SQLiteStorageConfig{DSN: s.Storage.SQLiteDSN}
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	if s.Verbose {
		opts.Logger = cfgapi.NewSlogLogger(logger)
	}
	if s.Log.Enabled || s.Verbose {
		level, err := logging.ParseLevel(s.Log.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log.level: %w", err)
		}
		if s.Verbose {
			level = cfgapi.LogLevelDebug
		}
		opts.LoggerConfig = &cfgapi.LoggerConfig{Enabled: true, Level: level}
		opts.LogSinks = []cfgapi.LogSink{cfgapi.SlogSink(logger)}
	}

	return opts, nil
}

// newClient builds a client from the resolved settings
func (a *app) newClient(cmd *cobra.Command) (*cfgapi.Client, *Settings, error) {
	s, err := a.settings()
	if err != nil {
		return nil, nil, err
	}
	opts, err := s.ClientOptions(cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}
	client, err := cfgapi.NewClient(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, s, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
