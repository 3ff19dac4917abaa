// Package storage persists the credential values used by the API client.
//
// Every backend implements Store. Values are plain strings keyed by name;
// an absent key is reported with ok=false and a nil error. Backend failures
// are returned wrapped, and errors.Cause yields the original error.
package storage

import (
	"context"
	"io"
	"time"
)

// Store is the credential storage contract
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Config selects and configures a backend
type Config struct {
	Driver string        `json:"driver" yaml:"driver"`
	File   *FileConfig   `json:"file,omitempty" yaml:"file,omitempty"`
	Cookie *CookieConfig `json:"cookie,omitempty" yaml:"cookie,omitempty"`
	Redis  *RedisConfig  `json:"redis,omitempty" yaml:"redis,omitempty"`
	SQLite *SQLiteConfig `json:"sqlite,omitempty" yaml:"sqlite,omitempty"`
}

// FileConfig points the file backend at its document
type FileConfig struct {
	Path string `json:"path" yaml:"path"`
}

// CookieConfig scopes the cookie backend
type CookieConfig struct {
	// BaseURL is the origin the cookies are scoped to
	BaseURL string `json:"baseUrl" yaml:"base_url"`
	// MaxAge bounds cookie lifetime. Zero means session cookies.
	MaxAge time.Duration `json:"maxAge" yaml:"max_age"`
}

// RedisConfig captures connection options
type RedisConfig struct {
	Addr     string        `json:"addr" yaml:"addr"`
	Username string        `json:"username" yaml:"username"`
	Password string        `json:"password" yaml:"password"`
	DB       int           `json:"db" yaml:"db"`
	Prefix   string        `json:"prefix" yaml:"prefix"`
	TTL      time.Duration `json:"ttl" yaml:"ttl"`
}

// SQLiteConfig provides the database location
type SQLiteConfig struct {
	DSN string `json:"dsn" yaml:"dsn"`
}

// Close releases the resources held by s, if any
func Close(s Store) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Rebaser is implemented by stores whose contents are scoped to the API origin
type Rebaser interface {
	Rebase(ctx context.Context, baseURL string) error
}

// Rebase rescopes s to baseURL when it is origin-scoped. Other stores are left alone.
func Rebase(ctx context.Context, s Store, baseURL string) error {
	if r, ok := s.(Rebaser); ok {
		return r.Rebase(ctx, baseURL)
	}
	return nil
}
