package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/aretw0/dotmap"
	"github.com/aretw0/dotmap/internal/config"
	"github.com/aretw0/dotmap/pkg/adapters/file"
	"github.com/aretw0/dotmap/pkg/adapters/memory"
	"github.com/aretw0/dotmap/pkg/adapters/redis"
	"github.com/aretw0/dotmap/pkg/adapters/sqlite"
	"github.com/aretw0/dotmap/pkg/domain"
	"github.com/aretw0/dotmap/pkg/persistence/middleware"
	"github.com/aretw0/dotmap/pkg/ports"
	"github.com/aretw0/dotmap/pkg/session"
)

// defaultDataDir holds file and sqlite stores when store.path is empty.
const defaultDataDir = ".dotmap"

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openStore builds the session store selected by the config, sealed when an
// encryption key is configured. Redis also yields a distributed locker
// sharing the same client.
func openStore(c *config.Config) (ports.SessionStore, ports.DistributedLocker, io.Closer, error) {
	store, locker, closer, err := openDriver(c)
	if err != nil {
		return nil, nil, nil, err
	}
	if c.Store.EncryptionKey == "" {
		return store, locker, closer, nil
	}

	enc, err := encryptionConfig(c.Store)
	if err != nil {
		closer.Close()
		return nil, nil, nil, err
	}
	return middleware.Chain(store, middleware.NewEncryptionMiddleware(enc)), locker, closer, nil
}

func encryptionConfig(sc config.StoreConfig) (middleware.EncryptionConfig, error) {
	var enc middleware.EncryptionConfig
	key, err := middleware.ParseKey(sc.EncryptionKey)
	if err != nil {
		return enc, fmt.Errorf("store.encryption_key: %w", err)
	}
	enc.ActiveKey = key
	for i, k := range sc.FallbackKeys {
		old, err := middleware.ParseKey(k)
		if err != nil {
			return enc, fmt.Errorf("store.fallback_keys[%d]: %w", i, err)
		}
		enc.FallbackKeys = append(enc.FallbackKeys, old)
	}
	return enc, nil
}

func openDriver(c *config.Config) (ports.SessionStore, ports.DistributedLocker, io.Closer, error) {
	switch c.Store.Driver {
	case "", "memory":
		return memory.NewStore(), nil, nopCloser{}, nil
	case "file":
		path := c.Store.Path
		if path == "" {
			path = filepath.Join(defaultDataDir, "sessions")
		}
		return file.New(path), nil, nopCloser{}, nil
	case "sqlite":
		path := c.Store.Path
		if path == "" {
			path = filepath.Join(defaultDataDir, sqlite.DefaultFile)
		}
		store, err := sqlite.Open(path)
		if err != nil {
			return nil, nil, nil, err
		}
		return store, nil, store, nil
	case "redis":
		rc := c.Store.Redis
		store := redis.New(rc.Addr, rc.Password, rc.DB, redis.WithPrefix(rc.Prefix), redis.WithTTL(rc.TTL))
		return store, redis.NewLocker(store.Client(), rc.Prefix), store, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown store driver %q", c.Store.Driver)
}

// newManager opens the configured store and wraps it in a session manager
// whose editors follow the config. hooks may be empty.
func newManager(c *config.Config, hooks domain.LifecycleHooks) (*session.Manager, io.Closer, error) {
	store, locker, closer, err := openStore(c)
	if err != nil {
		return nil, nil, err
	}

	opts := []session.Option{
		session.WithLogger(logger),
		session.WithEditorOptions(
			dotmap.WithHistoryLimit(c.HistoryLimit),
			dotmap.WithHitRadius(c.HitRadius),
			dotmap.WithLogger(logger),
			dotmap.WithLifecycleHooks(hooks),
		),
	}
	if locker != nil {
		opts = append(opts, session.WithLocker(locker))
	}
	logger.Debug("session store opened", "driver", c.Store.Driver)
	return session.NewManager(store, opts...), closer, nil
}
