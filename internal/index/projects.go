package index

import (
	"sync"
	"time"

	"github.com/MrSnakeDoc/handoff/internal/domain"
)

// ProjectIndex provides in-memory lookup of the configured projects by ID
// and by redirect-page host
type ProjectIndex struct {
	mu         sync.RWMutex
	ordered    []*domain.Project          // file order, first host match wins
	byID       map[string]*domain.Project // ID -> Project
	lastReload time.Time
}

// NewProjectIndex creates a new, empty project index
func NewProjectIndex() *ProjectIndex {
	return &ProjectIndex{byID: make(map[string]*domain.Project)}
}

// UpdateProjects replaces all projects in the index
func (idx *ProjectIndex) UpdateProjects(projects []*domain.Project) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	// Clear and rebuild
	idx.ordered = append([]*domain.Project(nil), projects...)
	idx.byID = make(map[string]*domain.Project, len(projects))
	for _, p := range projects {
		idx.byID[p.ID] = p
	}
	idx.lastReload = time.Now()
}

// GetProject retrieves a project by ID
func (idx *ProjectIndex) GetProject(id string) (*domain.Project, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	p, ok := idx.byID[id]
	return p, ok
}

// ForHost returns the project whose hosts include host
func (idx *ProjectIndex) ForHost(host string) (*domain.Project, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	for _, p := range idx.ordered {
		if p.ServesHost(host) {
			return p, true
		}
	}
	return nil, false
}

// Count returns the number of projects in the index
func (idx *ProjectIndex) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.byID)
}

// GetLastReload returns the timestamp of the last projects reload
func (idx *ProjectIndex) GetLastReload() time.Time {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.lastReload
}
