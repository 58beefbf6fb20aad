// Package attribution persists deferred links to the remote API and keeps
// the local markers that let a later page load know a save happened.
package attribution

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"

	"github.com/MrSnakeDoc/handoff/internal/clock"
	"github.com/MrSnakeDoc/handoff/internal/domain"
	"github.com/MrSnakeDoc/handoff/internal/kv"
	"github.com/MrSnakeDoc/handoff/internal/logger"
)

const (
	deferredPath   = "/deferred-links"
	maxBodyBytes   = 1 << 20
	defaultTimeout = 5 * time.Second
)

var (
	ErrUnexpectedStatus  = errors.New("unexpected status")
	ErrMalformedResponse = errors.New("malformed response")
)

// Receipt is the acknowledgement of a remote save.
type Receipt struct {
	ID        string
	ExpiresAt time.Time
}

// Claim is a retrieved deferred record. Local is set when it came from the
// session fallback instead of the remote store.
type Claim struct {
	Record domain.DeferredRecord
	Local  bool
}

type Store struct {
	cfg        domain.Configuration
	persistent kv.Store
	session    kv.Store
	client     *http.Client
	clock      clock.Clock
	rec        logger.Recorder
	metadata   domain.ClientMetadata
}

type Option func(*Store)

func WithHTTPClient(c *http.Client) Option {
	return func(s *Store) {
		if c != nil {
			s.client = c
		}
	}
}

func WithClock(c clock.Clock) Option {
	return func(s *Store) {
		if c != nil {
			s.clock = c
		}
	}
}

func WithRecorder(r logger.Recorder) Option {
	return func(s *Store) {
		if r != nil {
			s.rec = r
		}
	}
}

// WithMetadata sets the client metadata attached to saved records.
func WithMetadata(m domain.ClientMetadata) Option {
	return func(s *Store) { s.metadata = m }
}

func New(cfg domain.Configuration, persistent, session kv.Store, opts ...Option) *Store {
	s := &Store{
		cfg:        cfg.WithDefaults(),
		persistent: persistent,
		session:    session,
		client:     &http.Client{Timeout: defaultTimeout},
		clock:      clock.Real(),
		rec:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DeviceID returns the persistent device identifier.
func (s *Store) DeviceID() string {
	id, err := DeviceID(s.persistent)
	if err != nil {
		s.rec.Record("device_id_not_persisted", logger.Error(err))
	}
	return id
}

// Save posts a deferred record. On success it writes the save marker and
// returns the receipt; otherwise it writes the local fallback record and
// returns nil. Exactly one of the two is written.
func (s *Store) Save(ctx context.Context, link domain.LinkContext, platform domain.Platform, deviceID string) *Receipt {
	now := s.clock.Now()
	record := domain.DeferredRecord{
		LinkID:      link.LinkID,
		PackageName: s.cfg.PackageFor(platform),
		DeviceID:    deviceID,
		Platform:    platform,
		Timestamp:   now.UTC(),
		Parameters:  domain.CloneParameters(link.Parameters),
		OriginalURL: link.OriginalURL,
		Metadata:    s.metadata,
	}

	receipt, err := s.create(ctx, record)
	if err != nil {
		s.rec.Record("deferred_save_failed",
			logger.String("link_id", link.LinkID),
			logger.String("platform", string(platform)),
			logger.Error(err))
		fallback := FallbackRecord{
			LinkContext: link,
			DeviceID:    deviceID,
			PackageName: record.PackageName,
			Platform:    platform,
			Timestamp:   now.UnixMilli(),
			Error:       err.Error(),
		}
		if werr := putJSON(s.session, FallbackKey, fallback); werr != nil {
			s.rec.Record("deferred_fallback_not_written", logger.Error(werr))
		}
		return nil
	}

	marker := SaveMarker{DeviceID: deviceID, LinkID: link.LinkID, Timestamp: now.UnixMilli()}
	if err := putJSON(s.session, SavedMarkerKey, marker); err != nil {
		s.rec.Record("deferred_marker_not_written", logger.Error(err))
	}
	s.rec.Record("deferred_saved",
		logger.String("link_id", link.LinkID),
		logger.String("record_id", receipt.ID))
	return receipt
}

// Retrieve claims the record for (packageName, deviceID, platform). A
// successful remote answer is followed by a Cleanup for the same keys. When
// the remote store cannot answer, the local fallback record is consumed.
func (s *Store) Retrieve(ctx context.Context, packageName, deviceID string, platform domain.Platform) *Claim {
	q := url.Values{
		"packageName": {packageName},
		"deviceId":    {deviceID},
		"platform":    {string(platform)},
	}

	var body lookupResponse
	err := s.do(ctx, http.MethodGet, q, nil, &body)
	var record *domain.DeferredRecord
	if err == nil {
		record, err = body.record()
	}
	if err != nil {
		s.rec.Record("deferred_retrieve_failed",
			logger.String("package", packageName),
			logger.Error(err))
		return s.consumeFallback(packageName, deviceID, platform)
	}

	s.Cleanup(ctx, packageName, deviceID)
	if record == nil {
		return nil
	}
	return &Claim{Record: *record}
}

// Cleanup deletes the remote record and clears the save marker. Failures
// are recorded and swallowed.
func (s *Store) Cleanup(ctx context.Context, packageName, deviceID string) {
	defer s.session.Remove(SavedMarkerKey)

	q := url.Values{
		"packageName": {packageName},
		"deviceId":    {deviceID},
	}
	if err := s.do(ctx, http.MethodDelete, q, nil, nil); err != nil {
		s.rec.Record("deferred_cleanup_failed",
			logger.String("package", packageName),
			logger.Error(err))
	}
}

// GetLocalPending returns the save marker when it is younger than PendingTTL.
// Stale or malformed markers are evicted.
func (s *Store) GetLocalPending() *SaveMarker {
	var m SaveMarker
	ok, err := readJSON(s.session, SavedMarkerKey, &m)
	if err != nil {
		s.rec.Record("deferred_marker_malformed", logger.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	if s.clock.Now().Sub(m.SavedAt()) >= PendingTTL {
		s.session.Remove(SavedMarkerKey)
		return nil
	}
	return &m
}

// consumeFallback returns the local record saved for the same device,
// package and platform. A record for other keys stays in place; a stale one
// is evicted.
func (s *Store) consumeFallback(packageName, deviceID string, platform domain.Platform) *Claim {
	var fb FallbackRecord
	ok, err := readJSON(s.session, FallbackKey, &fb)
	if err != nil {
		s.rec.Record("deferred_fallback_malformed", logger.Error(err))
		return nil
	}
	if !ok {
		return nil
	}

	if s.clock.Now().Sub(fb.SavedAt()) >= PendingTTL {
		s.session.Remove(FallbackKey)
		return nil
	}
	if fb.DeviceID != deviceID || fb.PackageName != packageName || fb.Platform != platform {
		s.rec.Record("deferred_fallback_mismatch",
			logger.String("package", packageName),
			logger.String("platform", string(platform)))
		return nil
	}
	s.session.Remove(FallbackKey)

	return &Claim{
		Local: true,
		Record: domain.DeferredRecord{
			LinkID:      fb.LinkID,
			PackageName: fb.PackageName,
			DeviceID:    fb.DeviceID,
			Platform:    fb.Platform,
			Timestamp:   fb.SavedAt(),
			Parameters:  domain.CloneParameters(fb.Parameters),
			OriginalURL: fb.OriginalURL,
		},
	}
}

// ───────────────────────────── wire ─────────────────────────────

type createResponse struct {
	ID   string `json:"id"`
	Data *struct {
		ID        string    `json:"id"`
		ExpiresAt time.Time `json:"expiresAt"`
	} `json:"data"`
}

type lookupResponse struct {
	Data json.RawMessage `json:"data"`
}

func (r lookupResponse) record() (*domain.DeferredRecord, error) {
	if len(r.Data) == 0 {
		return nil, fmt.Errorf("%w: missing data", ErrMalformedResponse)
	}
	if string(r.Data) == "null" {
		return nil, nil
	}
	var rec domain.DeferredRecord
	if err := json.Unmarshal(r.Data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &rec, nil
}

func (s *Store) create(ctx context.Context, record domain.DeferredRecord) (*Receipt, error) {
	var body createResponse
	if err := s.do(ctx, http.MethodPost, nil, record, &body); err != nil {
		return nil, err
	}

	r := &Receipt{ID: body.ID}
	if body.Data != nil {
		if body.Data.ID != "" {
			r.ID = body.Data.ID
		}
		r.ExpiresAt = body.Data.ExpiresAt
	}
	if r.ID == "" {
		return nil, fmt.Errorf("%w: no record id", ErrMalformedResponse)
	}
	return r, nil
}

func (s *Store) do(ctx context.Context, method string, query url.Values, in, out any) error {
	var payload io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	target := s.cfg.APIBaseURL + deferredPath
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, payload)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("X-Project-ID", s.cfg.ProjectID)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, deferredPath, err)
	}
	defer resp.Body.Close()

	body := io.LimitReader(resp.Body, maxBodyBytes)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, body)
		return fmt.Errorf("%w: %s %s returned %d", ErrUnexpectedStatus, method, deferredPath, resp.StatusCode)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, body)
		return nil
	}
	if err := json.NewDecoder(body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
