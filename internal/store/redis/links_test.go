package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/handoff/internal/domain"
)

func TestLinkRedisKey(t *testing.T) {
	key := domain.LinkKey{ProjectID: "shop", PackageName: "com.example.shop", DeviceID: "web_1:2"}
	assert.Equal(t, "handoff:deferred:shop:com.example.shop:web_1:2", LinkRedisKey(key))
}

// newTestStore connects to HANDOFF_TEST_REDIS_ADDR and flushes the selected
// DB; the test is skipped when no server is configured.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	addr := os.Getenv("HANDOFF_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("HANDOFF_TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	require.NoError(t, client.Ping(ctx).Err())
	require.NoError(t, client.FlushDB(ctx).Err())
	return NewStore(client)
}

func TestStore_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	link := &domain.StoredLink{
		ID:        "rec-1",
		ProjectID: "shop",
		DeferredRecord: domain.DeferredRecord{
			LinkID:      "l1",
			PackageName: "com.example.shop",
			DeviceID:    "web_d1",
			Platform:    domain.IOS,
			Timestamp:   now,
			Parameters:  map[string]any{"utm_source": "mail", "vip": true},
		},
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}

	require.NoError(t, s.Put(ctx, link))
	require.NoError(t, s.Ping(ctx))

	got, err := s.Get(ctx, link.Key())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "rec-1", got.ID)
	assert.Equal(t, domain.IOS, got.Platform)
	assert.Equal(t, true, got.Parameters["vip"])
	assert.True(t, got.ExpiresAt.Equal(link.ExpiresAt))

	ttl, err := s.client.TTL(ctx, LinkRedisKey(link.Key())).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)

	existed, err := s.Delete(ctx, link.Key())
	require.NoError(t, err)
	assert.True(t, existed)

	got, err = s.Get(ctx, link.Key())
	require.NoError(t, err)
	assert.Nil(t, got)

	existed, err = s.Delete(ctx, link.Key())
	require.NoError(t, err)
	assert.False(t, existed)
}
