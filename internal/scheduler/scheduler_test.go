package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrSnakeDoc/handoff/internal/domain"
	"github.com/MrSnakeDoc/handoff/internal/index"
	"github.com/MrSnakeDoc/handoff/internal/logger"
)

const oneProject = `projects:
  - id: shop
    apiKey: k1
    hosts: [links.example.com]
    android:
      package: com.example.shop
`

const twoProjects = oneProject + `  - id: blog
    apiKey: k2
    ios:
      appId: "42"
`

func writeProjects(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write projects file: %v", err)
	}
}

func TestProjectsReloader_Reload(t *testing.T) {
	log := logger.New("error", false)
	path := filepath.Join(t.TempDir(), "projects.yaml")
	writeProjects(t, path, oneProject)

	idx := index.NewProjectIndex()
	pr := NewProjectsReloader(path, idx, log, time.Hour, nil)

	if err := pr.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if idx.Count() != 1 {
		t.Fatalf("Expected 1 project, got %d", idx.Count())
	}

	writeProjects(t, path, twoProjects)
	if err := pr.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if _, ok := idx.GetProject("blog"); !ok {
		t.Error("Expected blog project after reload")
	}

	// A broken file keeps the previous set
	writeProjects(t, path, "projects: [")
	if err := pr.Reload(); err == nil {
		t.Error("Expected error for invalid YAML")
	}
	if idx.Count() != 2 {
		t.Errorf("Expected previous 2 projects to survive, got %d", idx.Count())
	}
}

func TestProjectsReloader_StartRequiresFile(t *testing.T) {
	log := logger.New("error", false)
	pr := NewProjectsReloader(filepath.Join(t.TempDir(), "missing.yaml"), index.NewProjectIndex(), log, time.Hour, nil)

	if err := pr.Start(context.Background()); err == nil {
		t.Fatal("Expected Start to fail without a projects file")
	}
}

func TestProjectsReloader_ManualTrigger(t *testing.T) {
	log := logger.New("error", false)
	path := filepath.Join(t.TempDir(), "projects.yaml")
	writeProjects(t, path, oneProject)

	idx := index.NewProjectIndex()
	trigger := make(chan struct{}, 1)
	pr := NewProjectsReloader(path, idx, log, time.Hour, trigger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := pr.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer pr.Stop()

	writeProjects(t, path, twoProjects)
	trigger <- struct{}{}

	deadline := time.Now().Add(2 * time.Second)
	for idx.Count() != 2 {
		if time.Now().After(deadline) {
			t.Fatalf("Manual reload not applied, got %d projects", idx.Count())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSweeper_Sweep(t *testing.T) {
	log := logger.New("error", false)
	now := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)
	links := index.NewLinkIndex(func() time.Time { return now })

	put := func(device string, expires time.Time) {
		link := &domain.StoredLink{
			ID:             device,
			ProjectID:      "shop",
			DeferredRecord: domain.DeferredRecord{PackageName: "com.example.shop", DeviceID: device},
			ExpiresAt:      expires,
		}
		if err := links.Put(context.Background(), link); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}
	put("fresh", now.Add(time.Hour))
	put("expired", now.Add(-time.Minute))
	put("at-boundary", now)

	s := NewSweeper(links, log, time.Minute)
	s.now = func() time.Time { return now }

	if removed := s.Sweep(); removed != 2 {
		t.Errorf("Expected 2 records swept, got %d", removed)
	}
	if links.Count() != 1 {
		t.Errorf("Expected 1 record left, got %d", links.Count())
	}
	if removed := s.Sweep(); removed != 0 {
		t.Errorf("Expected nothing left to sweep, got %d", removed)
	}
}
