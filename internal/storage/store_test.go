package storage

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/markolofsen/django-cfg-sub001/internal/types"
)

func newTestSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:creds-%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *Redis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	s, err := NewRedis(context.Background(), RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return mr, s
}

func backends(t *testing.T) map[string]Store {
	t.Helper()

	file, err := NewFile(filepath.Join(t.TempDir(), "nested", "credentials.json"))
	require.NoError(t, err)

	cookie, err := NewCookie(CookieConfig{BaseURL: "https://api.example.com/v1/"}, nil)
	require.NoError(t, err)

	_, rs := newTestRedis(t)

	sq, err := NewSQLite(newTestSQLiteDB(t))
	require.NoError(t, err)

	return map[string]Store{
		DriverMemory: NewMemory(),
		DriverFile:   file,
		DriverCookie: cookie,
		DriverRedis:  rs,
		DriverSQLite: sq,
	}
}

func TestStores_RoundTrip(t *testing.T) {
	ctx := context.Background()

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.Get(ctx, types.KeyAccessToken)
			require.NoError(t, err)
			assert.False(t, ok, "fresh store must be empty")

			require.NoError(t, s.Set(ctx, types.KeyAccessToken, "eyJhbGciOi.payload.sig"))
			require.NoError(t, s.Set(ctx, types.KeyRefreshToken, "refresh-1"))

			v, ok, err := s.Get(ctx, types.KeyAccessToken)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "eyJhbGciOi.payload.sig", v)

			require.NoError(t, s.Set(ctx, types.KeyAccessToken, "second"))
			v, _, err = s.Get(ctx, types.KeyAccessToken)
			require.NoError(t, err)
			assert.Equal(t, "second", v, "last write wins")

			require.NoError(t, s.Remove(ctx, types.KeyAccessToken))
			_, ok, err = s.Get(ctx, types.KeyAccessToken)
			require.NoError(t, err)
			assert.False(t, ok)

			v, ok, err = s.Get(ctx, types.KeyRefreshToken)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "refresh-1", v)

			require.NoError(t, s.Remove(ctx, "never-set"))
		})
	}
}

func TestFile_PermissionsAndPersistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cfg", "credentials.json")

	s, err := NewFile(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, types.KeyAccessToken, "abc"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	dirInfo, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), dirInfo.Mode().Perm())

	reopened, err := NewFile(path)
	require.NoError(t, err)
	v, ok, err := reopened.Get(ctx, types.KeyAccessToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", v)
}

func TestFile_CorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	s, err := NewFile(path)
	require.NoError(t, err)

	_, _, err = s.Get(context.Background(), types.KeyAccessToken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal credentials file")
}

func TestNewFile_RequiresPath(t *testing.T) {
	_, err := NewFile("")
	assert.Error(t, err)
}

func TestCookie_SharesJarWithTransport(t *testing.T) {
	ctx := context.Background()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	s, err := NewCookie(CookieConfig{BaseURL: "http://127.0.0.1:8000/api/"}, jar)
	require.NoError(t, err)
	assert.Same(t, jar, s.Jar())

	require.NoError(t, s.Set(ctx, types.KeyAccessToken, "abc"))

	u, _ := url.Parse("http://127.0.0.1:8000/cfg/accounts/profile/")
	cookies := jar.Cookies(u)
	require.Len(t, cookies, 1)
	assert.Equal(t, types.KeyAccessToken, cookies[0].Name)
	assert.Equal(t, "abc", cookies[0].Value)

	other, _ := url.Parse("http://other.example.com/")
	assert.Empty(t, jar.Cookies(other))
}

func TestCookie_RebaseMovesCredentials(t *testing.T) {
	ctx := context.Background()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	s, err := NewCookie(CookieConfig{BaseURL: "http://127.0.0.1:8000/api/"}, jar)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, types.KeyAccessToken, "abc"))
	require.NoError(t, s.Set(ctx, types.KeyRefreshToken, "def"))

	// A cookie set by the server itself stays where it is
	old, _ := url.Parse("http://127.0.0.1:8000/")
	jar.SetCookies(old, []*http.Cookie{{Name: "sessionid", Value: "srv", Path: "/"}})

	require.NoError(t, Rebase(ctx, s, "http://localhost:9000/v2/"))
	assert.Equal(t, "http://localhost:9000/", s.Origin())

	v, ok, err := s.Get(ctx, types.KeyAccessToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", v)

	next, _ := url.Parse("http://localhost:9000/cfg/accounts/profile/")
	names := map[string]string{}
	for _, ck := range jar.Cookies(next) {
		names[ck.Name] = ck.Value
	}
	assert.Equal(t, map[string]string{types.KeyAccessToken: "abc", types.KeyRefreshToken: "def"}, names)

	left := jar.Cookies(old)
	require.Len(t, left, 1)
	assert.Equal(t, "sessionid", left[0].Name)
}

func TestCookie_RebaseRejectsRelativeURL(t *testing.T) {
	s, err := NewCookie(CookieConfig{BaseURL: "http://127.0.0.1:8000/"}, nil)
	require.NoError(t, err)

	assert.Error(t, s.Rebase(context.Background(), "/api"))
	assert.Equal(t, "http://127.0.0.1:8000/", s.Origin())
}

func TestRebase_IgnoresUnscopedStores(t *testing.T) {
	ctx := context.Background()
	s := Observe(NewMemory(), DriverMemory, &recordingLogger{})
	require.NoError(t, s.Set(ctx, types.KeyAccessToken, "abc"))

	require.NoError(t, Rebase(ctx, s, "https://other.example.com"))

	v, ok, err := s.Get(ctx, types.KeyAccessToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", v)
}

func TestNewCookie_RejectsRelativeURL(t *testing.T) {
	_, err := NewCookie(CookieConfig{BaseURL: "/api"}, nil)
	assert.Error(t, err)
}

func TestRedis_PrefixAndTTL(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	s := NewRedisWithClient(client, "tenant-a:", time.Minute)
	require.NoError(t, s.Set(ctx, types.KeyAccessToken, "abc"))

	assert.True(t, mr.Exists("tenant-a:auth_token"))
	assert.Equal(t, time.Minute, mr.TTL("tenant-a:auth_token"))

	mr.FastForward(2 * time.Minute)
	_, ok, err := s.Get(ctx, types.KeyAccessToken)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Close())
	require.NoError(t, client.Ping(ctx).Err(), "borrowed client stays open")
}

func TestRedis_BackendErrorPropagates(t *testing.T) {
	ctx := context.Background()
	mr, s := newTestRedis(t)
	mr.SetError("READONLY replica")

	err := s.Set(ctx, types.KeyAccessToken, "abc")
	require.Error(t, err)
	assert.Contains(t, errors.Cause(err).Error(), "READONLY replica")
}

func TestNewRedis_Unreachable(t *testing.T) {
	_, err := NewRedis(context.Background(), RedisConfig{Addr: "127.0.0.1:1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping failed")
}

func TestSQLite_OpenFromDSN(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "creds.db"))
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, types.KeyRefreshToken, "r1"))
	require.NoError(t, s.Set(ctx, types.KeyRefreshToken, "r2"))
	v, ok, err := s.Get(ctx, types.KeyRefreshToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "r2", v)

	require.NoError(t, s.Close())
}

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
	args  [][]interface{}
}

func (r *recordingLogger) record(msg string, kv []interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, msg)
	r.args = append(r.args, kv)
}

func (r *recordingLogger) Debug(msg string, kv ...interface{}) { r.record(msg, kv) }
func (r *recordingLogger) Info(msg string, kv ...interface{})  { r.record(msg, kv) }
func (r *recordingLogger) Warn(msg string, kv ...interface{})  { r.record(msg, kv) }
func (r *recordingLogger) Error(msg string, kv ...interface{}) { r.record(msg, kv) }

func TestObserve_LogsKeysNotValues(t *testing.T) {
	ctx := context.Background()
	logger := &recordingLogger{}
	s := Observe(NewMemory(), DriverMemory, logger)

	require.NoError(t, s.Set(ctx, types.KeyAccessToken, "super-secret"))
	v, ok, err := s.Get(ctx, types.KeyAccessToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "super-secret", v)
	require.NoError(t, s.Remove(ctx, types.KeyAccessToken))

	assert.Equal(t, []string{"Credential written", "Credential read", "Credential removed"}, logger.lines)
	for _, kv := range logger.args {
		assert.NotContains(t, fmt.Sprint(kv...), "super-secret")
	}
}

func TestObserve_NilLoggerIsIdentity(t *testing.T) {
	m := NewMemory()
	assert.Same(t, m, Observe(m, DriverMemory, nil))
}

func TestNew_Drivers(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	tests := []struct {
		name    string
		cfg     Config
		deps    Dependencies
		wantErr string
		check   func(t *testing.T, s Store)
	}{
		{
			name:  "default is memory",
			cfg:   Config{},
			check: func(t *testing.T, s Store) { assert.IsType(t, &Memory{}, s) },
		},
		{
			name: "file",
			cfg:  Config{Driver: DriverFile, File: &FileConfig{Path: filepath.Join(t.TempDir(), "c.json")}},
			check: func(t *testing.T, s Store) { assert.IsType(t, &File{}, s) },
		},
		{
			name: "cookie uses shared jar",
			cfg:  Config{Driver: DriverCookie, Cookie: &CookieConfig{BaseURL: "http://localhost:8000"}},
			deps: Dependencies{Jar: jar},
			check: func(t *testing.T, s Store) {
				c, ok := s.(*Cookie)
				require.True(t, ok)
				assert.Same(t, http.CookieJar(jar), c.Jar())
			},
		},
		{
			name: "redis",
			cfg:  Config{Driver: DriverRedis, Redis: &RedisConfig{Addr: mr.Addr()}},
			check: func(t *testing.T, s Store) {
				assert.IsType(t, &Redis{}, s)
				assert.NoError(t, Close(s))
			},
		},
		{
			name: "sqlite with handle",
			cfg:  Config{Driver: DriverSQLite},
			deps: Dependencies{SQLiteDB: newTestSQLiteDB(t)},
			check: func(t *testing.T, s Store) { assert.IsType(t, &SQLite{}, s) },
		},
		{
			name: "observed when logger given",
			cfg:  Config{Driver: DriverMemory},
			deps: Dependencies{Logger: &recordingLogger{}},
			check: func(t *testing.T, s Store) {
				o, ok := s.(*Observed)
				require.True(t, ok)
				assert.IsType(t, &Memory{}, o.Unwrap())
			},
		},
		{name: "file without config", cfg: Config{Driver: DriverFile}, wantErr: "file driver requires"},
		{name: "cookie without config", cfg: Config{Driver: DriverCookie}, wantErr: "cookie driver requires"},
		{name: "redis without config", cfg: Config{Driver: DriverRedis}, wantErr: "redis driver requires"},
		{name: "sqlite without handle", cfg: Config{Driver: DriverSQLite}, wantErr: "sqlite driver requires"},
		{name: "unknown", cfg: Config{Driver: "etcd"}, wantErr: "unsupported credential store driver: etcd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(ctx, tt.cfg, tt.deps)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Equal(t, types.KindConfiguration, types.KindOf(err))
				return
			}
			require.NoError(t, err)
			tt.check(t, s)
		})
	}
}
