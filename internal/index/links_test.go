package index

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/handoff/internal/domain"
)

var epoch = time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)

func stored(device string, expires time.Time) *domain.StoredLink {
	return &domain.StoredLink{
		ID:        "rec-" + device,
		ProjectID: "shop",
		DeferredRecord: domain.DeferredRecord{
			LinkID:      "l1",
			PackageName: "com.example.shop",
			DeviceID:    device,
			Platform:    domain.Android,
			Parameters:  map[string]any{"utm_source": "mail"},
		},
		CreatedAt: epoch,
		ExpiresAt: expires,
	}
}

func TestLinkIndex_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	now := epoch
	idx := NewLinkIndex(func() time.Time { return now })

	link := stored("d1", epoch.Add(time.Hour))
	require.NoError(t, idx.Put(ctx, link))
	link.Parameters["utm_source"] = "mutated"

	got, err := idx.Get(ctx, link.Key())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "rec-d1", got.ID)
	assert.Equal(t, "mail", got.Parameters["utm_source"], "index keeps its own copy")

	existed, err := idx.Delete(ctx, link.Key())
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = idx.Delete(ctx, link.Key())
	require.NoError(t, err)
	assert.False(t, existed)

	got, err = idx.Get(ctx, link.Key())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLinkIndex_ExpiredInvisible(t *testing.T) {
	ctx := context.Background()
	now := epoch
	idx := NewLinkIndex(func() time.Time { return now })
	link := stored("d1", epoch.Add(time.Hour))
	require.NoError(t, idx.Put(ctx, link))

	now = epoch.Add(time.Hour - time.Nanosecond)
	got, _ := idx.Get(ctx, link.Key())
	assert.NotNil(t, got)

	now = epoch.Add(time.Hour)
	got, _ = idx.Get(ctx, link.Key())
	assert.Nil(t, got, "a record is expired at its expiry instant")
}

func TestLinkIndex_Sweep(t *testing.T) {
	ctx := context.Background()
	idx := NewLinkIndex(nil)
	require.NoError(t, idx.Put(ctx, stored("old", epoch.Add(-time.Minute))))
	require.NoError(t, idx.Put(ctx, stored("fresh", epoch.Add(time.Minute))))

	assert.Equal(t, 1, idx.Sweep(epoch))
	assert.Equal(t, 1, idx.Count())
	assert.Zero(t, idx.Sweep(epoch))
}
