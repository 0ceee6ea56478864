package redis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/jackpatch/pkg/adapters/file"
	"github.com/aretw0/jackpatch/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces patch keys.
const DefaultPrefix = "jackpatch:patch:"

// Store keeps patch documents in Redis, one string key per patch path.
// Values use the same XML layout as the file store, so a patch can be
// exported with a plain GET.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures the Store.
type Option func(*Store)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithTTL expires patches that have not been saved for ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// New connects to the Redis server at addr.
func New(addr, password string, db int, opts ...Option) *Store {
	client := backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient wraps an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(path string) string {
	return s.prefix + path
}

// Load fetches the patch stored under path.
func (s *Store) Load(ctx context.Context, path string) (domain.ConnectionSet, error) {
	data, err := s.client.Get(ctx, s.key(path)).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, fmt.Errorf("%w: %s", domain.ErrPatchNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", path, err)
	}
	return file.Decode(bytes.NewReader(data))
}

// Save replaces the patch stored under path.
func (s *Store) Save(ctx context.Context, path string, set domain.ConnectionSet) error {
	data, err := file.Encode(set)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(path), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", path, err)
	}
	return nil
}
