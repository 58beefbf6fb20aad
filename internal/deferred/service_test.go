package deferred

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MrSnakeDoc/handoff/internal/domain"
	"github.com/MrSnakeDoc/handoff/internal/index"
	"github.com/MrSnakeDoc/handoff/internal/logger"
)

var shop = &domain.Project{
	ID:             "shop",
	APIKey:         "k1",
	AndroidPackage: "com.example.shop",
	IOSAppID:       "123456789",
}

type harness struct {
	svc  *Service
	repo *index.LinkIndex
	now  time.Time
	ids  int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{now: time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)}
	clock := func() time.Time { return h.now }
	h.repo = index.NewLinkIndex(clock)
	h.svc = NewService(h.repo, logger.Wrap(zap.NewNop()), Options{
		TTL:          time.Hour,
		DedupeWindow: 10 * time.Minute,
		Now:          clock,
		NewID: func() string {
			h.ids++
			return fmt.Sprintf("rec-%d", h.ids)
		},
	})
	return h
}

func record() domain.DeferredRecord {
	return domain.DeferredRecord{
		LinkID:      "l1",
		PackageName: "com.example.shop",
		DeviceID:    "web_d1",
		Platform:    domain.Android,
		Parameters:  map[string]any{"utm_source": "mail", "n": float64(3)},
		OriginalURL: "https://shop.example.com/p/1",
		Metadata:    domain.ClientMetadata{UserAgent: "Mozilla/5.0 (Linux; Android 14) Chrome/120 Mobile"},
	}
}

func TestCreate_StoresRecord(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	link, err := h.svc.Create(ctx, shop, record(), "203.0.113.7")
	require.NoError(t, err)

	assert.Equal(t, "rec-1", link.ID)
	assert.Equal(t, "shop", link.ProjectID)
	assert.Equal(t, h.now, link.CreatedAt)
	assert.Equal(t, h.now.Add(time.Hour), link.ExpiresAt)
	assert.Equal(t, h.now, link.Timestamp, "missing timestamp defaults to creation time")
	assert.Equal(t, "Android", link.Client.OS)
	assert.Equal(t, "203.0.113.7", link.IPAddress)

	got, err := h.svc.Lookup(ctx, shop, "com.example.shop", "web_d1", domain.Android)
	require.NoError(t, err)
	assert.Equal(t, "rec-1", got.ID)
	assert.Equal(t, "mail", got.Parameters["utm_source"])
}

func TestCreate_Idempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.svc.Create(ctx, shop, record(), "")
	require.NoError(t, err)

	h.now = h.now.Add(5 * time.Minute)
	again, err := h.svc.Create(ctx, shop, record(), "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID, "same link and device inside the window")

	h.now = h.now.Add(6 * time.Minute)
	later, err := h.svc.Create(ctx, shop, record(), "")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, later.ID, "window elapsed")
}

func TestCreate_DedupeIgnoresDeletedRecord(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.svc.Create(ctx, shop, record(), "")
	require.NoError(t, err)
	require.NoError(t, h.svc.Remove(ctx, shop, "com.example.shop", "web_d1"))

	second, err := h.svc.Create(ctx, shop, record(), "")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	got, err := h.repo.Get(ctx, second.Key())
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.DeferredRecord)
		want   error
	}{
		{name: "missing link id", mutate: func(r *domain.DeferredRecord) { r.LinkID = "" }, want: ErrInvalidRecord},
		{name: "missing device id", mutate: func(r *domain.DeferredRecord) { r.DeviceID = " " }, want: ErrInvalidRecord},
		{name: "missing package", mutate: func(r *domain.DeferredRecord) { r.PackageName = "" }, want: ErrInvalidRecord},
		{name: "unknown platform", mutate: func(r *domain.DeferredRecord) { r.Platform = "windows" }, want: ErrInvalidRecord},
		{name: "nested parameter", mutate: func(r *domain.DeferredRecord) {
			r.Parameters = map[string]any{"nested": map[string]any{"a": 1}}
		}, want: ErrInvalidRecord},
		{name: "foreign package", mutate: func(r *domain.DeferredRecord) { r.PackageName = "com.other.app" }, want: ErrUnknownPackage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			rec := record()
			tt.mutate(&rec)

			_, err := h.svc.Create(context.Background(), shop, rec, "")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Zero(t, h.repo.Count())
		})
	}
}

func TestLookup(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Create(ctx, shop, record(), "")
	require.NoError(t, err)

	_, err = h.svc.Lookup(ctx, shop, "com.example.shop", "web_d1", domain.IOS)
	assert.ErrorIs(t, err, ErrNotFound, "platform must match")

	_, err = h.svc.Lookup(ctx, shop, "com.example.shop", "web_other", domain.Android)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = h.svc.Lookup(ctx, shop, "", "web_d1", domain.Android)
	assert.ErrorIs(t, err, ErrInvalidRecord)

	h.now = h.now.Add(time.Hour)
	_, err = h.svc.Lookup(ctx, shop, "com.example.shop", "web_d1", domain.Android)
	assert.ErrorIs(t, err, ErrNotFound, "expired at TTL")
}

func TestRemove_MissingIsNotAnError(t *testing.T) {
	h := newHarness(t)
	assert.NoError(t, h.svc.Remove(context.Background(), shop, "com.example.shop", "nobody"))
	assert.ErrorIs(t, h.svc.Remove(context.Background(), shop, "com.example.shop", ""), ErrInvalidRecord)
}

type brokenRepo struct{ index.LinkIndex }

func (*brokenRepo) Put(context.Context, *domain.StoredLink) error { return errors.New("disk full") }
func (*brokenRepo) Ping(context.Context) error                    { return errors.New("down") }

func TestCreate_RepositoryFailure(t *testing.T) {
	svc := NewService(&brokenRepo{}, logger.Wrap(zap.NewNop()), Options{})

	_, err := svc.Create(context.Background(), shop, record(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Error(t, svc.Ping(context.Background()))
}
