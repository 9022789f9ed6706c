package cursor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/liamashdown/whalewatch/internal/trade"
)

// MemoryStore keeps cursors for the lifetime of the process
type MemoryStore struct {
	mu   sync.Mutex
	data map[trade.Source]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[trade.Source]string)}
}

func (m *MemoryStore) Load(_ context.Context, source trade.Source) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.data[source]
	return id, ok, nil
}

func (m *MemoryStore) Save(_ context.Context, source trade.Source, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[source] = id
	return nil
}

// StateStore is the subset of the database used for checkpointing
type StateStore interface {
	GetState(ctx context.Context, key string) (string, error)
	SetState(ctx context.Context, key, value string) error
}

// DBStore keeps cursors in the app_state table
type DBStore struct {
	db StateStore
}

func NewDBStore(db StateStore) *DBStore {
	return &DBStore{db: db}
}

func (s *DBStore) Load(ctx context.Context, source trade.Source) (string, bool, error) {
	v, err := s.db.GetState(ctx, stateKey(source))
	if err != nil {
		return "", false, fmt.Errorf("get cursor state: %w", err)
	}
	return v, v != "", nil
}

func (s *DBStore) Save(ctx context.Context, source trade.Source, id string) error {
	if err := s.db.SetState(ctx, stateKey(source), id); err != nil {
		return fmt.Errorf("set cursor state: %w", err)
	}
	return nil
}

// RedisStore keeps cursors in redis so several short-lived runs share them
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "whalewatch:"}
}

func (s *RedisStore) Load(ctx context.Context, source trade.Source) (string, bool, error) {
	v, err := s.client.Get(ctx, s.prefix+stateKey(source)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get cursor: %w", err)
	}
	return v, v != "", nil
}

func (s *RedisStore) Save(ctx context.Context, source trade.Source, id string) error {
	if err := s.client.Set(ctx, s.prefix+stateKey(source), id, 0).Err(); err != nil {
		return fmt.Errorf("redis set cursor: %w", err)
	}
	return nil
}

func stateKey(source trade.Source) string {
	return "cursor:" + string(source)
}
