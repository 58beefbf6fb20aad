package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/handoff/internal/index"
	"github.com/MrSnakeDoc/handoff/internal/logger"
	"github.com/MrSnakeDoc/handoff/internal/metrics"
	"github.com/MrSnakeDoc/handoff/internal/sources/projects"
)

// ProjectsReloader handles periodic reloading of the projects file
type ProjectsReloader struct {
	loader        *projects.Loader
	mapper        *projects.Mapper
	index         *index.ProjectIndex
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	manualTrigger <-chan struct{}
}

// NewProjectsReloader creates a new projects reloader
func NewProjectsReloader(
	projectsFile string,
	idx *index.ProjectIndex,
	log logger.Logger,
	interval time.Duration,
	manualTrigger <-chan struct{},
) *ProjectsReloader {
	return &ProjectsReloader{
		loader:        projects.NewLoader(projectsFile),
		mapper:        projects.NewMapper(),
		index:         idx,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start loads the projects file once and then keeps it fresh. The first
// load must succeed; later failures keep the previous projects.
func (pr *ProjectsReloader) Start(ctx context.Context) error {
	if err := pr.Reload(); err != nil {
		return fmt.Errorf("initial reload failed: %w", err)
	}

	ticker := time.NewTicker(pr.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				pr.reloadLogged()
			case <-pr.manualTrigger:
				pr.logger.Info("manual reload triggered")
				pr.reloadLogged()
			case <-pr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the reloader
func (pr *ProjectsReloader) Stop() {
	close(pr.stopCh)
}

// Reload reads, validates and publishes the projects file
func (pr *ProjectsReloader) Reload() error {
	pr.logger.Info("reloading projects")

	file, err := pr.loader.Load()
	if err != nil {
		metrics.ProjectsReloadFailures.Inc()
		return fmt.Errorf("failed to load projects: %w", err)
	}

	list, err := pr.mapper.MapProjects(file)
	if err != nil {
		metrics.ProjectsReloadFailures.Inc()
		return fmt.Errorf("failed to map projects: %w", err)
	}

	pr.index.UpdateProjects(list)
	metrics.ProjectsLoaded.Set(float64(len(list)))

	pr.logger.Info("loaded projects", logger.Int("count", len(list)))
	return nil
}

func (pr *ProjectsReloader) reloadLogged() {
	if err := pr.Reload(); err != nil {
		pr.logger.Error("failed to reload projects, keeping previous set",
			logger.Error(err))
	}
}
