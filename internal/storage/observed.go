package storage

import (
	"context"
	"time"

	"github.com/markolofsen/django-cfg-sub001/internal/types"
)

// Observed logs every operation of the wrapped store. Values are never logged.
type Observed struct {
	inner  Store
	logger types.Logger
	driver string
}

// Observe wraps s so its operations are logged through logger.
// A nil logger returns s unchanged.
func Observe(s Store, driver string, logger types.Logger) Store {
	if logger == nil || s == nil {
		return s
	}
	return &Observed{inner: s, logger: logger, driver: driver}
}

// Unwrap returns the wrapped store
func (o *Observed) Unwrap() Store {
	return o.inner
}

func (o *Observed) Get(ctx context.Context, key string) (string, bool, error) {
	start := time.Now()
	v, ok, err := o.inner.Get(ctx, key)
	if err != nil {
		o.logger.Warn("Credential read failed", "driver", o.driver, "key", key, "error", err)
		return v, ok, err
	}
	o.logger.Debug("Credential read", "driver", o.driver, "key", key, "found", ok, "duration", time.Since(start))
	return v, ok, nil
}

func (o *Observed) Set(ctx context.Context, key, value string) error {
	start := time.Now()
	if err := o.inner.Set(ctx, key, value); err != nil {
		o.logger.Warn("Credential write failed", "driver", o.driver, "key", key, "error", err)
		return err
	}
	o.logger.Debug("Credential written", "driver", o.driver, "key", key, "duration", time.Since(start))
	return nil
}

func (o *Observed) Remove(ctx context.Context, key string) error {
	start := time.Now()
	if err := o.inner.Remove(ctx, key); err != nil {
		o.logger.Warn("Credential removal failed", "driver", o.driver, "key", key, "error", err)
		return err
	}
	o.logger.Debug("Credential removed", "driver", o.driver, "key", key, "duration", time.Since(start))
	return nil
}

// Rebase rescopes the wrapped store when it is origin-scoped
func (o *Observed) Rebase(ctx context.Context, baseURL string) error {
	if err := Rebase(ctx, o.inner, baseURL); err != nil {
		o.logger.Warn("Credential store rebase failed", "driver", o.driver, "error", err)
		return err
	}
	return nil
}

// Close closes the wrapped store
func (o *Observed) Close() error {
	return Close(o.inner)
}
