package storage

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/markolofsen/django-cfg-sub001/internal/types"
)

// Driver identifiers accepted by New
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverCookie = "cookie"
	DriverRedis  = "redis"
	DriverSQLite = "sqlite"
)

// Dependencies carries handles that some drivers reuse instead of opening their own
type Dependencies struct {
	SQLiteDB    *gorm.DB
	RedisClient redis.UniversalClient
	Jar         http.CookieJar
	Logger      types.Logger
}

// New creates a store from cfg. An empty driver selects memory.
func New(ctx context.Context, cfg Config, deps Dependencies) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverMemory
	}

	var (
		s   Store
		err error
	)
	switch driver {
	case DriverMemory:
		s = NewMemory()
	case DriverFile:
		if cfg.File == nil {
			return nil, types.NewConfigurationError("file driver requires file configuration")
		}
		s, err = NewFile(cfg.File.Path)
	case DriverCookie:
		if cfg.Cookie == nil {
			return nil, types.NewConfigurationError("cookie driver requires cookie configuration")
		}
		s, err = NewCookie(*cfg.Cookie, deps.Jar)
	case DriverRedis:
		switch {
		case deps.RedisClient != nil:
			var prefix string
			if cfg.Redis != nil {
				prefix = cfg.Redis.Prefix
			}
			s = NewRedisWithClient(deps.RedisClient, prefix, redisTTL(cfg.Redis))
		case cfg.Redis != nil:
			s, err = NewRedis(ctx, *cfg.Redis)
		default:
			return nil, types.NewConfigurationError("redis driver requires redis configuration")
		}
	case DriverSQLite:
		switch {
		case deps.SQLiteDB != nil:
			s, err = NewSQLite(deps.SQLiteDB)
		case cfg.SQLite != nil:
			s, err = OpenSQLite(cfg.SQLite.DSN)
		default:
			return nil, types.NewConfigurationError("sqlite driver requires database handle or DSN")
		}
	default:
		return nil, types.NewConfigurationError("unsupported credential store driver: %s", driver)
	}
	if err != nil {
		return nil, err
	}

	return Observe(s, driver, deps.Logger), nil
}

func redisTTL(cfg *RedisConfig) time.Duration {
	if cfg == nil {
		return 0
	}
	return cfg.TTL
}
