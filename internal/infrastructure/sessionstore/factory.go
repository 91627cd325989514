package sessionstore

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/erp/console/internal/domain/session"
)

// Backend names accepted in configuration.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQL    = "sql"
)

// Store is a session store that holds resources until closed.
type Store interface {
	session.Store
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Backend   string
	Path      string // file backend; empty means DefaultPath
	KeyPrefix string // redis and sql backends
	Driver    string // sql backend: sqlite or postgres
	DSN       string // sql backend
	Redis     RedisConfig
}

// Open creates the configured store.
func Open(cfg Config, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch strings.ToLower(cfg.Backend) {
	case "", BackendFile:
		path := cfg.Path
		if path == "" {
			p, err := DefaultPath()
			if err != nil {
				return nil, err
			}
			path = p
		}
		logger.Debug("using file session store", zap.String("path", path))
		return NewFileStore(path)
	case BackendMemory:
		logger.Debug("using in-memory session store")
		return memoryStore{session.NewMemoryStore()}, nil
	case BackendRedis:
		store, err := NewRedisStore(cfg.Redis, cfg.KeyPrefix)
		if err != nil {
			return nil, err
		}
		logger.Debug("using Redis session store",
			zap.String("host", cfg.Redis.Host), zap.Int("port", cfg.Redis.Port))
		return store, nil
	case BackendSQL:
		store, err := OpenSQL(cfg.Driver, cfg.DSN, cfg.KeyPrefix)
		if err != nil {
			return nil, err
		}
		logger.Debug("using SQL session store", zap.String("driver", cfg.Driver))
		return store, nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}
}

type memoryStore struct {
	*session.MemoryStore
}

func (memoryStore) Close() error { return nil }
