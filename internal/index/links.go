package index

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/handoff/internal/domain"
)

// LinkIndex is the in-memory deferred link repository. Expired records are
// invisible to Get and removed by Sweep.
type LinkIndex struct {
	mu    sync.RWMutex
	links map[domain.LinkKey]*domain.StoredLink
	now   func() time.Time
}

// NewLinkIndex creates an empty link index. A nil now defaults to time.Now.
func NewLinkIndex(now func() time.Time) *LinkIndex {
	if now == nil {
		now = time.Now
	}
	return &LinkIndex{
		links: make(map[domain.LinkKey]*domain.StoredLink),
		now:   now,
	}
}

// Put stores a copy of link, replacing any record with the same key
func (idx *LinkIndex) Put(_ context.Context, link *domain.StoredLink) error {
	cp := *link
	cp.Parameters = domain.CloneParameters(link.Parameters)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.links[link.Key()] = &cp
	return nil
}

// Get returns a copy of the record for key, or nil when absent or expired
func (idx *LinkIndex) Get(_ context.Context, key domain.LinkKey) (*domain.StoredLink, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	link, ok := idx.links[key]
	if !ok || link.Expired(idx.now()) {
		return nil, nil
	}
	cp := *link
	cp.Parameters = domain.CloneParameters(link.Parameters)
	return &cp, nil
}

// Delete removes the record for key and reports whether one existed
func (idx *LinkIndex) Delete(_ context.Context, key domain.LinkKey) (bool, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	_, ok := idx.links[key]
	delete(idx.links, key)
	return ok, nil
}

// Ping always succeeds
func (idx *LinkIndex) Ping(context.Context) error { return nil }

// Count returns the number of records held, expired ones included
func (idx *LinkIndex) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.links)
}

// Sweep removes every record expired at now and returns how many were removed
func (idx *LinkIndex) Sweep(now time.Time) int {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	removed := 0
	for key, link := range idx.links {
		if link.Expired(now) {
			delete(idx.links, key)
			removed++
		}
	}
	return removed
}
