// Package deferred owns the server-side lifecycle of deferred links:
// validated, idempotent creation, one lookup per install and deletion.
package deferred

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/coocood/freecache"
	"github.com/google/uuid"

	"github.com/MrSnakeDoc/handoff/internal/domain"
	"github.com/MrSnakeDoc/handoff/internal/logger"
	"github.com/MrSnakeDoc/handoff/internal/metrics"
)

var (
	ErrNotFound       = errors.New("deferred link not found")
	ErrInvalidRecord  = errors.New("invalid deferred link")
	ErrUnknownPackage = errors.New("package does not belong to project")
)

const (
	DefaultTTL          = 7 * 24 * time.Hour
	DefaultDedupeWindow = 10 * time.Minute
	defaultDedupeBytes  = 16 << 20
)

// Repository persists stored links. Get returns nil, nil when no live
// record exists; Delete reports whether one existed.
type Repository interface {
	Put(ctx context.Context, link *domain.StoredLink) error
	Get(ctx context.Context, key domain.LinkKey) (*domain.StoredLink, error)
	Delete(ctx context.Context, key domain.LinkKey) (bool, error)
	Ping(ctx context.Context) error
}

type Options struct {
	TTL              time.Duration
	DedupeWindow     time.Duration
	DedupeCacheBytes int
	Now              func() time.Time
	NewID            func() string
}

type Service struct {
	repo   Repository
	dedupe *freecache.Cache
	ttl    time.Duration
	window time.Duration
	now    func() time.Time
	newID  func() string
	logger logger.Logger
}

func NewService(repo Repository, log logger.Logger, opts Options) *Service {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.DedupeWindow <= 0 {
		opts.DedupeWindow = DefaultDedupeWindow
	}
	if opts.DedupeCacheBytes <= 0 {
		opts.DedupeCacheBytes = defaultDedupeBytes
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	return &Service{
		repo:   repo,
		dedupe: freecache.NewCacheCustomTimer(opts.DedupeCacheBytes, unixTimer(opts.Now)),
		ttl:    opts.TTL,
		window: opts.DedupeWindow,
		now:    opts.Now,
		newID:  opts.NewID,
		logger: log,
	}
}

// Create stores rec for project. A repeated create for the same link and
// device inside the dedupe window returns the record stored first.
func (s *Service) Create(ctx context.Context, project *domain.Project, rec domain.DeferredRecord, ip string) (*domain.StoredLink, error) {
	if err := s.validate(project, rec); err != nil {
		return nil, err
	}

	key := domain.LinkKey{ProjectID: project.ID, PackageName: rec.PackageName, DeviceID: rec.DeviceID}
	dedupeKey := []byte(project.ID + "\x00" + rec.LinkID + "\x00" + rec.DeviceID)

	if id, err := s.dedupe.Get(dedupeKey); err == nil {
		existing, err := s.repo.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to read deferred link: %w", err)
		}
		if existing != nil && existing.ID == string(id) {
			metrics.DeferredDeduplicated.Inc()
			return existing, nil
		}
	}

	now := s.now().UTC()
	if rec.Timestamp.IsZero() {
		rec.Timestamp = now
	}
	rec.Parameters = domain.CloneParameters(rec.Parameters)

	link := &domain.StoredLink{
		ID:             s.newID(),
		ProjectID:      project.ID,
		DeferredRecord: rec,
		Client:         domain.DescribeClient(rec.Metadata.UserAgent),
		IPAddress:      ip,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.ttl),
	}

	if err := s.repo.Put(ctx, link); err != nil {
		return nil, fmt.Errorf("failed to store deferred link: %w", err)
	}
	if err := s.dedupe.Set(dedupeKey, []byte(link.ID), s.windowSeconds()); err != nil {
		s.logger.Warn("failed to remember deferred link for dedupe", logger.Error(err))
	}

	metrics.DeferredCreated.WithLabelValues(string(rec.Platform)).Inc()
	s.logger.Info("deferred link stored",
		logger.String("project", project.ID),
		logger.String("link_id", rec.LinkID),
		logger.String("platform", string(rec.Platform)),
		logger.String("id", link.ID))
	return link, nil
}

// Lookup returns the live record for the key when its platform matches.
func (s *Service) Lookup(ctx context.Context, project *domain.Project, packageName, deviceID string, platform domain.Platform) (*domain.StoredLink, error) {
	if packageName == "" || deviceID == "" {
		return nil, fmt.Errorf("%w: packageName and deviceId are required", ErrInvalidRecord)
	}
	if !platform.Valid() {
		return nil, fmt.Errorf("%w: unknown platform %q", ErrInvalidRecord, platform)
	}

	link, err := s.repo.Get(ctx, domain.LinkKey{ProjectID: project.ID, PackageName: packageName, DeviceID: deviceID})
	if err != nil {
		return nil, fmt.Errorf("failed to read deferred link: %w", err)
	}
	if link == nil || link.Platform != platform {
		metrics.DeferredClaimed.WithLabelValues("miss").Inc()
		return nil, ErrNotFound
	}

	metrics.DeferredClaimed.WithLabelValues("hit").Inc()
	return link, nil
}

// Remove deletes the record for the key. A missing record is not an error.
func (s *Service) Remove(ctx context.Context, project *domain.Project, packageName, deviceID string) error {
	if packageName == "" || deviceID == "" {
		return fmt.Errorf("%w: packageName and deviceId are required", ErrInvalidRecord)
	}

	existed, err := s.repo.Delete(ctx, domain.LinkKey{ProjectID: project.ID, PackageName: packageName, DeviceID: deviceID})
	if err != nil {
		return fmt.Errorf("failed to delete deferred link: %w", err)
	}
	if existed {
		metrics.DeferredDeleted.Inc()
	}
	return nil
}

// Ping checks the repository.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *Service) validate(project *domain.Project, rec domain.DeferredRecord) error {
	var missing []string
	for name, v := range map[string]string{
		"linkId":      rec.LinkID,
		"packageName": rec.PackageName,
		"deviceId":    rec.DeviceID,
		"platform":    string(rec.Platform),
	} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("%w: missing %s", ErrInvalidRecord, strings.Join(missing, ", "))
	}
	if !rec.Platform.Valid() {
		return fmt.Errorf("%w: unknown platform %q", ErrInvalidRecord, rec.Platform)
	}
	if err := domain.ValidateParameters(rec.Parameters); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if !project.Owns(rec.PackageName) {
		return fmt.Errorf("%w: %s", ErrUnknownPackage, rec.PackageName)
	}
	return nil
}

func (s *Service) windowSeconds() int {
	return max(int(s.window/time.Second), 1)
}

type unixTimer func() time.Time

func (t unixTimer) Now() uint32 { return uint32(t().Unix()) }
