package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/handoff/internal/config"
	"github.com/MrSnakeDoc/handoff/internal/deferred"
	"github.com/MrSnakeDoc/handoff/internal/httpserver"
	"github.com/MrSnakeDoc/handoff/internal/httpserver/deps"
	"github.com/MrSnakeDoc/handoff/internal/index"
	"github.com/MrSnakeDoc/handoff/internal/logger"
	"github.com/MrSnakeDoc/handoff/internal/metrics"
	"github.com/MrSnakeDoc/handoff/internal/redis"
	"github.com/MrSnakeDoc/handoff/internal/scheduler"
	redisstore "github.com/MrSnakeDoc/handoff/internal/store/redis"
	"github.com/MrSnakeDoc/handoff/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	reloader    *scheduler.ProjectsReloader
	sweeper     *scheduler.Sweeper // nil with the redis store
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	var (
		repo        deferred.Repository
		redisClient *goredis.Client
		sweeper     *scheduler.Sweeper
	)
	switch cfg.Store {
	case config.StoreRedis:
		// Fail fast if Redis is unavailable
		client, err := redis.New(context.Background(), redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, loggerClient)
		if err != nil {
			loggerClient.Errorf("Failed to connect to Redis: %v", err)
			os.Exit(1)
		}
		redisClient = client
		repo = redisstore.NewStore(client)
	default:
		loggerClient.Warn("using the in-memory store, deferred links are lost on restart")
		links := index.NewLinkIndex(nil)
		sweeper = scheduler.NewSweeper(links, loggerClient, cfg.SweepInterval)
		repo = links
	}

	service := deferred.NewService(repo, loggerClient, deferred.Options{
		TTL:              cfg.RecordTTL,
		DedupeWindow:     cfg.DedupeWindow,
		DedupeCacheBytes: cfg.DedupeCacheMB << 20,
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(registry)

	projects := index.NewProjectIndex()

	// Create manual reload trigger channel
	reloadTrigger := make(chan struct{}, 1)
	reloader := scheduler.NewProjectsReloader(
		cfg.ProjectsFile,
		projects,
		loggerClient,
		cfg.ReloadInterval,
		reloadTrigger,
	)

	d := deps.Deps{
		Logger:         loggerClient,
		StartTime:      time.Now(),
		Version:        version.Version,
		Commit:         version.Commit,
		BuildDate:      version.BuildDate,
		GoVersion:      version.GoVersion,
		TimeNow:        time.Now,
		AllowedCIDRS:   cfg.AllowedCIDRS,
		TrustProxy:     cfg.TrustProxy,
		AllowedOrigins: cfg.AllowedOrigins,
		RateBurst:      cfg.RateBurst,
		RatePerMin:     cfg.RatePerMin,
		MaxRecordBytes: cfg.MaxRecordBytes,
		Projects:       projects,
		Deferred:       service,
		Store:          cfg.Store,
		ReloadTrigger:  reloadTrigger,
		Gatherer:       registry,
	}

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      httpserver.New(cfg, loggerClient, d),
		redisClient: redisClient,
		reloader:    reloader,
		sweeper:     sweeper,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting handoff %s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("handoff %s (commit=%s, built=%s, go=%s, store=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion, a.cfg.Store)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Projects must load before the API can authenticate anyone
	if err := a.reloader.Start(ctx); err != nil {
		return fmt.Errorf("failed to start projects reloader: %w", err)
	}
	a.logger.Info("projects reloader started",
		logger.Duration("interval", a.cfg.ReloadInterval))

	if a.sweeper != nil {
		a.sweeper.Start(ctx)
		a.logger.Info("expiry sweeper started",
			logger.Duration("interval", a.cfg.SweepInterval))
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	a.reloader.Stop()
	if a.sweeper != nil {
		a.sweeper.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	a.logger.Info("✅ handoff stopped cleanly")
	_ = a.logger.Sync()
	return nil
}
