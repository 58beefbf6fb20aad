package index

import (
	"sync"
	"testing"

	"github.com/MrSnakeDoc/handoff/internal/domain"
)

func TestNewProjectIndex(t *testing.T) {
	idx := NewProjectIndex()
	if idx == nil {
		t.Fatal("NewProjectIndex() returned nil")
	}
	if idx.Count() != 0 {
		t.Errorf("NewProjectIndex() should start empty, got %v", idx.Count())
	}
	if !idx.GetLastReload().IsZero() {
		t.Error("NewProjectIndex() should not report a reload")
	}
}

func TestUpdateProjectsOverwrites(t *testing.T) {
	idx := NewProjectIndex()
	idx.UpdateProjects([]*domain.Project{{ID: "a"}})
	idx.UpdateProjects([]*domain.Project{{ID: "b"}, {ID: "c"}})

	if idx.Count() != 2 {
		t.Errorf("UpdateProjects() should overwrite, got %v projects want 2", idx.Count())
	}
	if _, ok := idx.GetProject("a"); ok {
		t.Error("GetProject() returned a project that was replaced")
	}
	if idx.GetLastReload().IsZero() {
		t.Error("UpdateProjects() should set the reload time")
	}
}

func TestForHost(t *testing.T) {
	idx := NewProjectIndex()
	idx.UpdateProjects([]*domain.Project{
		{ID: "shop", Hosts: []string{"links.shop.example"}},
		{ID: "wild", Hosts: []string{"*.example.com"}},
	})

	tests := []struct {
		host string
		want string
	}{
		{host: "links.shop.example", want: "shop"},
		{host: "LINKS.shop.example:8443", want: "shop"},
		{host: "go.example.com", want: "wild"},
		{host: "example.com", want: ""},
		{host: "other.example", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			p, ok := idx.ForHost(tt.host)
			if tt.want == "" {
				if ok {
					t.Errorf("ForHost(%q) = %v, want no match", tt.host, p.ID)
				}
				return
			}
			if !ok || p.ID != tt.want {
				t.Errorf("ForHost(%q) = %v, want %v", tt.host, p, tt.want)
			}
		})
	}
}

func TestProjectIndexConcurrentAccess(t *testing.T) {
	idx := NewProjectIndex()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			idx.UpdateProjects([]*domain.Project{{ID: "a", Hosts: []string{"a.example"}}})
		}()
		go func() {
			defer wg.Done()
			_, _ = idx.ForHost("a.example")
			_, _ = idx.GetProject("a")
		}()
	}

	wg.Wait()
	if idx.Count() != 1 {
		t.Errorf("Count() = %v, want 1", idx.Count())
	}
}
