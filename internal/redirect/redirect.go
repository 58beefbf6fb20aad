// Package redirect is the entry point of a smart redirect: classify the
// visitor, probe for the app, then hand off to the app, the store or the
// fallback page.
package redirect

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/handoff/internal/attribution"
	"github.com/MrSnakeDoc/handoff/internal/clock"
	"github.com/MrSnakeDoc/handoff/internal/domain"
	"github.com/MrSnakeDoc/handoff/internal/kv"
	"github.com/MrSnakeDoc/handoff/internal/logger"
	"github.com/MrSnakeDoc/handoff/internal/probe"
)

// DefaultStoreRedirectDelay bounds how long an absent outcome waits for the
// deferred save before leaving for the store.
const DefaultStoreRedirectDelay = 500 * time.Millisecond

// Env is everything the host page provides.
type Env struct {
	probe.Env

	HTTPClient *http.Client
	Persistent kv.Store
	Session    kv.Store
	Metadata   domain.ClientMetadata
	Recorder   logger.Recorder
}

type Option func(*Redirector)

func WithStoreRedirectDelay(d time.Duration) Option {
	return func(r *Redirector) {
		if d >= 0 {
			r.storeDelay = d
		}
	}
}

func WithProbeOptions(o probe.Options) Option {
	return func(r *Redirector) { r.probeOpts = o }
}

type Redirector struct {
	cfg        domain.Configuration
	env        Env
	rec        logger.Recorder
	storeDelay time.Duration
	probeOpts  probe.Options

	prober *probe.Prober
	store  *attribution.Store
}

func New(cfg domain.Configuration, env Env, opts ...Option) *Redirector {
	cfg = cfg.WithDefaults()
	if env.Clock == nil {
		env.Clock = clock.Real()
	}
	if env.Persistent == nil {
		env.Persistent = kv.NewMemory()
	}
	if env.Session == nil {
		env.Session = kv.NewMemory()
	}
	if env.Recorder == nil {
		env.Recorder = logger.Nop()
	}

	r := &Redirector{
		cfg:        cfg,
		env:        env,
		rec:        env.Recorder,
		storeDelay: DefaultStoreRedirectDelay,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.prober = probe.New(cfg, env.Env, env.Recorder, r.probeOpts)
	r.store = attribution.New(cfg, env.Persistent, env.Session,
		attribution.WithHTTPClient(env.HTTPClient),
		attribution.WithClock(env.Clock),
		attribution.WithRecorder(env.Recorder),
		attribution.WithMetadata(env.Metadata),
	)
	return r
}

// SmartRedirect runs one redirect flow with default options.
func SmartRedirect(ctx context.Context, cfg domain.Configuration, link domain.LinkContext, env Env) bool {
	return New(cfg, env).Handle(ctx, link)
}

// Handle reports whether the app was found. It never panics: any failure
// ends with a navigation to the fallback URL and false.
func (r *Redirector) Handle(ctx context.Context, link domain.LinkContext) (opened bool) {
	defer func() {
		if p := recover(); p != nil {
			r.rec.Record("redirect_failed", logger.String("panic", fmt.Sprint(p)))
			r.navigate(r.cfg.FallbackURL)
			opened = false
		}
	}()

	platform := domain.Classify(r.env.Metadata.UserAgent)
	r.rec.Record("redirect_started",
		logger.String("link_id", link.LinkID),
		logger.String("platform", string(platform)))

	if !platform.IsMobile() {
		r.navigate(r.cfg.FallbackURL)
		return false
	}

	out := r.prober.Probe(ctx, platform, link.DeepLink)
	if out.Present {
		if !out.HandedOff {
			r.navigate(r.cfg.DeepLinkURI(link.DeepLink))
		}
		return true
	}

	saved := r.saveAsync(ctx, link, platform)
	wait := r.storeDelay
	if out.Strategy == probe.StrategyOpener {
		wait = 0
	}
	if wait > 0 {
		select {
		case <-saved:
		case <-r.env.Clock.After(wait):
			r.rec.Record("deferred_save_pending", logger.Duration("waited", wait))
		case <-ctx.Done():
		}
	}

	r.navigate(r.cfg.StoreURL(platform))
	return false
}

// saveAsync outlives ctx cancellation so a departing caller does not abort
// the save.
func (r *Redirector) saveAsync(ctx context.Context, link domain.LinkContext, platform domain.Platform) <-chan struct{} {
	done := make(chan struct{})
	deviceID := r.store.DeviceID()
	sctx := context.WithoutCancel(ctx)

	go func() {
		defer close(done)
		defer func() {
			if p := recover(); p != nil {
				r.rec.Record("deferred_save_failed", logger.String("panic", fmt.Sprint(p)))
			}
		}()
		r.store.Save(sctx, link, platform, deviceID)
	}()
	return done
}

func (r *Redirector) navigate(uri string) {
	defer func() {
		if p := recover(); p != nil {
			r.rec.Record("navigation_unavailable", logger.String("panic", fmt.Sprint(p)))
		}
	}()

	if uri == "" || r.env.Page == nil {
		r.rec.Record("navigation_unavailable", logger.String("uri", uri))
		return
	}
	r.env.Page.Navigate(uri)
	r.rec.Record("navigated", logger.String("uri", uri))
}
