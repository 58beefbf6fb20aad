package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/handoff/internal/domain"
)

// Store is the Redis-backed deferred link repository. Records carry their
// own expiry through EXPIREAT, so Redis does the sweeping.
type Store struct {
	client redis.UniversalClient
}

// NewStore creates a new Redis store
func NewStore(client redis.UniversalClient) *Store {
	return &Store{
		client: client,
	}
}

// Put stores a deferred link, replacing any record with the same key
func (s *Store) Put(ctx context.Context, link *domain.StoredLink) error {
	data, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("failed to marshal deferred link: %w", err)
	}

	args := redis.SetArgs{}
	if !link.ExpiresAt.IsZero() {
		args.ExpireAt = link.ExpiresAt
	}

	if err := s.client.SetArgs(ctx, LinkRedisKey(link.Key()), data, args).Err(); err != nil {
		return fmt.Errorf("failed to save deferred link: %w", err)
	}
	return nil
}

// Get retrieves a deferred link. A missing key is not an error.
func (s *Store) Get(ctx context.Context, key domain.LinkKey) (*domain.StoredLink, error) {
	data, err := s.client.Get(ctx, LinkRedisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get deferred link: %w", err)
	}

	var link domain.StoredLink
	if err := json.Unmarshal(data, &link); err != nil {
		return nil, fmt.Errorf("failed to unmarshal deferred link: %w", err)
	}

	// EXPIREAT has second precision
	if link.Expired(time.Now()) {
		return nil, nil
	}
	return &link, nil
}

// Delete removes a deferred link and reports whether it existed
func (s *Store) Delete(ctx context.Context, key domain.LinkKey) (bool, error) {
	n, err := s.client.Del(ctx, LinkRedisKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to delete deferred link: %w", err)
	}
	return n > 0, nil
}

// Ping checks the connection
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
