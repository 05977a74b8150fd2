package filters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Store holds one user's filter and writes every change through to Redis.
type Store struct {
	mu     sync.RWMutex
	client *redis.Client
	key    string
	filter Filter
}

// NewStore returns a store with the default empty filter. A nil client keeps it in memory.
func NewStore(client *redis.Client, userID int64) *Store {
	return &Store{client: client, key: "opsboard:filters:" + strconv.FormatInt(userID, 10)}
}

// Load restores the persisted filter, if any.
func (s *Store) Load(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("filters: load: %w", err)
	}
	var f Filter
	if err := json.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("filters: decode: %w", err)
	}
	s.mu.Lock()
	s.filter = f
	s.mu.Unlock()
	return nil
}

// Get returns the current filter.
func (s *Store) Get() Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// Update validates and applies one key, then persists the result.
func (s *Store) Update(ctx context.Context, key Key, value string) (Filter, error) {
	s.mu.Lock()
	cur := s.filter
	next, err := cur.Set(key, value)
	if err != nil {
		s.mu.Unlock()
		return cur, err
	}
	s.filter = next
	s.mu.Unlock()
	return next, s.persist(ctx, next)
}

// Reset restores the empty filter and persists it.
func (s *Store) Reset(ctx context.Context) (Filter, error) {
	s.mu.Lock()
	s.filter = Filter{}
	s.mu.Unlock()
	return Filter{}, s.persist(ctx, Filter{})
}

func (s *Store) persist(ctx context.Context, f Filter) error {
	if s.client == nil {
		return nil
	}
	raw, err := json.Marshal(f)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("filters: save: %w", err)
	}
	return nil
}
