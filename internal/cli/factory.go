package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/jackpatch/internal/config"
	"github.com/aretw0/jackpatch/pkg/adapters/file"
	"github.com/aretw0/jackpatch/pkg/adapters/jackdbus"
	"github.com/aretw0/jackpatch/pkg/adapters/memory"
	"github.com/aretw0/jackpatch/pkg/adapters/redis"
	"github.com/aretw0/jackpatch/pkg/ports"
)

// newBackend connects the configured audio graph backend.
func newBackend(cfg config.Config, logger *slog.Logger) (ports.Backend, error) {
	switch cfg.Backend {
	case config.BackendDBus:
		return jackdbus.Dial(jackdbus.WithLogger(logger))
	case config.BackendSim:
		logger.Warn("Using the simulated backend, no audio server is patched")
		return memory.NewBackend(memory.WithAutoAck()), nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// newStore creates the configured patch store and a function releasing it.
func newStore(ctx context.Context, cfg config.Config) (ports.PatchStore, func() error, error) {
	switch cfg.Store {
	case config.StoreFile:
		return file.New(), func() error { return nil }, nil
	case config.StoreRedis:
		s := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, redis.WithPrefix(cfg.Redis.Prefix))
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return nil, nil, fmt.Errorf("redis %s: %w", cfg.Redis.Addr, err)
		}
		return s, s.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
}
