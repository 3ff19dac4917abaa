// Package retry decides whether and when a failed call is attempted again.
//
// The policy is a pure function of the attempt number and the error. It does
// not know the HTTP verb: callers only consult it for requests they already
// know are safe to repeat.
package retry

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/markolofsen/django-cfg-sub001/internal/types"
)

// Config configures retry behavior
type Config struct {
	// MaxAttempts is the total number of sends, including the first one
	MaxAttempts int `json:"maxAttempts" yaml:"max_attempts"`
	// BaseDelay is the delay before the second attempt
	BaseDelay time.Duration `json:"baseDelay" yaml:"base_delay"`
	// BackoffMultiplier scales the delay after each failed attempt
	BackoffMultiplier float64 `json:"backoffMultiplier" yaml:"backoff_multiplier"`
	// MaxDelay caps a single delay. Zero or negative means uncapped.
	MaxDelay time.Duration `json:"maxDelay" yaml:"max_delay"`
	// RetryableStatusCodes lists statuses retried when KindHTTPStatus is retryable
	RetryableStatusCodes []int `json:"retryableStatusCodes" yaml:"retryable_status_codes"`
	// RetryableErrorKinds lists the kinds, besides network failures, that may be retried
	RetryableErrorKinds []types.ErrorKind `json:"retryableErrorKinds" yaml:"retryable_error_kinds"`
}

// DefaultConfig returns default retry configuration
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts:          types.DefaultMaxAttempts,
		BaseDelay:            types.DefaultBaseDelay,
		BackoffMultiplier:    types.DefaultBackoffMultiplier,
		MaxDelay:             types.DefaultMaxDelay,
		RetryableStatusCodes: append([]int(nil), types.DefaultRetryableStatusCodes...),
		RetryableErrorKinds:  []types.ErrorKind{types.KindHTTPStatus},
	}
}

// Validate checks the configured ranges
func (c *Config) Validate() error {
	if c.MaxAttempts < 1 {
		return types.NewConfigurationError("retry: maxAttempts must be >= 1, got %d", c.MaxAttempts)
	}
	if c.BaseDelay < 0 {
		return types.NewConfigurationError("retry: baseDelay must be >= 0, got %s", c.BaseDelay)
	}
	if c.BackoffMultiplier < 1 {
		return types.NewConfigurationError("retry: backoffMultiplier must be >= 1, got %v", c.BackoffMultiplier)
	}
	return nil
}

// Decision is the outcome of consulting the policy
type Decision struct {
	Retry bool
	Delay time.Duration
}

// AttemptInfo describes one failed attempt
type AttemptInfo struct {
	Attempt   int
	Err       error
	Kind      types.ErrorKind
	Delay     time.Duration
	WillRetry bool
}

// Observer is notified after every failed attempt
type Observer func(ctx context.Context, info AttemptInfo)

// Policy applies a Config. It is immutable once built.
type Policy struct {
	maxAttempts int
	baseDelay   time.Duration
	multiplier  float64
	maxDelay    time.Duration
	statusCodes map[int]struct{}
	kinds       map[types.ErrorKind]struct{}
}

// NewPolicy validates cfg and builds a policy. A nil cfg uses DefaultConfig.
func NewPolicy(cfg *Config) (*Policy, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Policy{
		maxAttempts: cfg.MaxAttempts,
		baseDelay:   cfg.BaseDelay,
		multiplier:  cfg.BackoffMultiplier,
		maxDelay:    cfg.MaxDelay,
		statusCodes: make(map[int]struct{}, len(cfg.RetryableStatusCodes)),
		kinds:       make(map[types.ErrorKind]struct{}, len(cfg.RetryableErrorKinds)),
	}
	for _, code := range cfg.RetryableStatusCodes {
		p.statusCodes[code] = struct{}{}
	}
	for _, kind := range cfg.RetryableErrorKinds {
		p.kinds[kind] = struct{}{}
	}
	return p, nil
}

// MaxAttempts returns the configured attempt budget
func (p *Policy) MaxAttempts() int {
	return p.maxAttempts
}

// ShouldRetry decides whether attempt (1-based) should be followed by another
func (p *Policy) ShouldRetry(attempt int, err error) Decision {
	if attempt >= p.maxAttempts || !p.Retryable(err) {
		return Decision{}
	}
	return Decision{Retry: true, Delay: p.Delay(attempt)}
}

// Retryable reports whether err is a transient failure under this policy
func (p *Policy) Retryable(err error) bool {
	if err == nil {
		return false
	}

	switch types.KindOf(err) {
	case types.KindNetworkFailure:
		return true
	case types.KindHTTPStatus:
		if _, ok := p.kinds[types.KindHTTPStatus]; !ok {
			return false
		}
		code := types.StatusCode(err)
		// Client errors mean the request itself is wrong; only throttling is transient.
		if code >= 400 && code < 500 && code != http.StatusTooManyRequests {
			return false
		}
		_, ok := p.statusCodes[code]
		return ok
	case types.KindUnknown:
		return false
	default:
		_, ok := p.kinds[types.KindOf(err)]
		return ok
	}
}

// Delay returns the wait scheduled after the given failed attempt
func (p *Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := float64(p.baseDelay) * math.Pow(p.multiplier, float64(attempt-1))
	if p.maxDelay > 0 && delay > float64(p.maxDelay) {
		return p.maxDelay
	}
	if delay > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(delay)
}
