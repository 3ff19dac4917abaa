package storage

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Cookie keeps credentials as cookies scoped to the API origin. Sharing the
// jar with the HTTP transport sends them to the server with every request.
type Cookie struct {
	jar    http.CookieJar
	maxAge time.Duration

	mu     sync.RWMutex
	origin *url.URL
	// keys written through this store; only these move on Rebase
	keys map[string]struct{}
}

// NewCookie creates a cookie store. A nil jar gets a fresh cookiejar.
func NewCookie(cfg CookieConfig, jar http.CookieJar) (*Cookie, error) {
	origin, err := parseOrigin(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	if jar == nil {
		jar, err = cookiejar.New(nil)
		if err != nil {
			return nil, errors.Wrap(err, "cookie store: failed to create jar")
		}
	}

	return &Cookie{jar: jar, origin: origin, maxAge: cfg.MaxAge, keys: make(map[string]struct{})}, nil
}

func parseOrigin(baseURL string) (*url.URL, error) {
	origin, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "cookie store: invalid base URL")
	}
	if (origin.Scheme != "http" && origin.Scheme != "https") || origin.Host == "" {
		return nil, errors.Errorf("cookie store: base URL must be absolute http(s), got %q", baseURL)
	}
	return &url.URL{Scheme: origin.Scheme, Host: origin.Host, Path: "/"}, nil
}

// Jar returns the jar holding the credential cookies
func (c *Cookie) Jar() http.CookieJar {
	return c.jar
}

// Origin returns the origin the cookies are currently scoped to
func (c *Cookie) Origin() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.origin.String()
}

func (c *Cookie) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.lookup(key)
	return v, ok, nil
}

func (c *Cookie) Set(_ context.Context, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jar.SetCookies(c.origin, []*http.Cookie{c.cookie(key, value)})
	c.keys[key] = struct{}{}
	return nil
}

func (c *Cookie) Remove(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jar.SetCookies(c.origin, []*http.Cookie{{Name: key, Path: "/", MaxAge: -1}})
	delete(c.keys, key)
	return nil
}

// Rebase rescopes the store to the origin of baseURL. Cookies written
// through the store move to the new origin and are expired at the old one.
func (c *Cookie) Rebase(_ context.Context, baseURL string) error {
	next, err := parseOrigin(baseURL)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if next.String() == c.origin.String() {
		return nil
	}

	moved := make([]*http.Cookie, 0, len(c.keys))
	expired := make([]*http.Cookie, 0, len(c.keys))
	for key := range c.keys {
		v, ok := c.lookup(key)
		if !ok {
			delete(c.keys, key)
			continue
		}
		moved = append(moved, &http.Cookie{Name: key, Value: v})
		expired = append(expired, &http.Cookie{Name: key, Path: "/", MaxAge: -1})
	}
	if len(expired) > 0 {
		c.jar.SetCookies(c.origin, expired)
	}

	c.origin = next
	for i, ck := range moved {
		moved[i] = c.cookie(ck.Name, ck.Value)
	}
	if len(moved) > 0 {
		c.jar.SetCookies(c.origin, moved)
	}
	return nil
}

// lookup reads key at the current origin. Callers hold mu.
func (c *Cookie) lookup(key string) (string, bool) {
	for _, ck := range c.jar.Cookies(c.origin) {
		if ck.Name == key {
			return ck.Value, true
		}
	}
	return "", false
}

// cookie builds a credential cookie for the current origin. Callers hold mu.
func (c *Cookie) cookie(key, value string) *http.Cookie {
	ck := &http.Cookie{
		Name:     key,
		Value:    value,
		Path:     "/",
		Secure:   c.origin.Scheme == "https",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if c.maxAge > 0 {
		ck.MaxAge = int(c.maxAge.Seconds())
	}
	return ck
}
