// Package probe decides, within a bounded time budget, whether the native
// application is installed. Strategies run strictly one after another and
// degrade from the authoritative related-apps query to timing races.
package probe

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/handoff/internal/domain"
	"github.com/MrSnakeDoc/handoff/internal/logger"
)

// Strategy names the detection method that produced an outcome.
type Strategy string

const (
	StrategyRelation Strategy = "relation_query"
	StrategyOpener   Strategy = "native_opener"
	StrategyLink     Strategy = "link_race"
	StrategyFrame    Strategy = "frame_race"
)

// ErrInconclusive marks a strategy that produced no usable signal.
var ErrInconclusive = errors.New("probe inconclusive")

// Outcome is the result of one probe run.
type Outcome struct {
	Present  bool
	Strategy Strategy
	// HandedOff is set when the strategy itself already sent the deep link
	// to the OS, so the scheduler must not navigate to it again.
	HandedOff bool
}

const (
	DefaultClickDelay     = 100 * time.Millisecond
	DefaultSecondaryDelay = 100 * time.Millisecond
	DefaultFrameLifetime  = 100 * time.Millisecond
	maxGraceWindow        = 1500 * time.Millisecond
)

// Options tunes the timing constants of the strategies.
type Options struct {
	// GraceWindow bounds the native opener's silence before presence is
	// presumed. Zero means min(1.5s, Timeout/2); larger values are capped
	// at Timeout.
	GraceWindow time.Duration
	// ClickDelay postpones the hidden-link click after listeners attach.
	ClickDelay time.Duration
	// SecondaryDelay is how long a blur must last to count as a handoff.
	SecondaryDelay time.Duration
	// FrameLifetime is how long the hidden frame stays attached.
	FrameLifetime time.Duration
}

func (o Options) withDefaults(timeout time.Duration) Options {
	if o.GraceWindow <= 0 {
		o.GraceWindow = min(maxGraceWindow, timeout/2)
	}
	o.GraceWindow = min(o.GraceWindow, timeout)
	if o.ClickDelay <= 0 {
		o.ClickDelay = DefaultClickDelay
	}
	if o.SecondaryDelay <= 0 {
		o.SecondaryDelay = DefaultSecondaryDelay
	}
	if o.FrameLifetime <= 0 {
		o.FrameLifetime = DefaultFrameLifetime
	}
	return o
}

// Prober runs the detection strategies for one configuration.
type Prober struct {
	cfg  domain.Configuration
	env  Env
	opts Options
	rec  logger.Recorder
}

func New(cfg domain.Configuration, env Env, rec logger.Recorder, opts Options) *Prober {
	cfg = cfg.WithDefaults()
	if rec == nil {
		rec = logger.Nop()
	}
	return &Prober{
		cfg:  cfg,
		env:  env,
		opts: opts.withDefaults(cfg.Timeout),
		rec:  rec,
	}
}

// Probe decides whether the app is installed on a mobile platform.
// Policy: the related-apps query when it is offered and verification files
// are configured, then the native opener when registered, then the timing
// race for the platform. Inconclusive strategies fall through.
func (p *Prober) Probe(ctx context.Context, platform domain.Platform, deepLink string) Outcome {
	uri := p.cfg.DeepLinkURI(deepLink)

	if p.env.Related != nil && p.cfg.VerificationConfigured(platform) {
		present, err := p.queryRelated(ctx)
		if err == nil {
			p.rec.Record("probe_settled",
				logger.String("strategy", string(StrategyRelation)),
				logger.Bool("present", present))
			return Outcome{Present: present, Strategy: StrategyRelation}
		}
		p.rec.Record("probe_inconclusive",
			logger.String("strategy", string(StrategyRelation)), logger.Error(err))
	}

	if p.env.Opener != nil {
		present, err := p.openNative(ctx, uri)
		if err == nil {
			p.rec.Record("probe_settled",
				logger.String("strategy", string(StrategyOpener)),
				logger.Bool("present", present))
			return Outcome{Present: present, Strategy: StrategyOpener, HandedOff: true}
		}
		p.rec.Record("probe_inconclusive",
			logger.String("strategy", string(StrategyOpener)), logger.Error(err))
	}

	var out Outcome
	if platform == domain.IOS {
		out = Outcome{Present: p.raceFrame(ctx, uri), Strategy: StrategyFrame, HandedOff: true}
	} else {
		out = Outcome{Present: p.raceLink(ctx, uri), Strategy: StrategyLink, HandedOff: true}
	}
	p.rec.Record("probe_settled",
		logger.String("strategy", string(out.Strategy)),
		logger.Bool("present", out.Present),
		logger.Duration("timeout", p.cfg.Timeout))
	return out
}

// queryRelated is authoritative when it answers at all.
func (p *Prober) queryRelated(ctx context.Context) (bool, error) {
	qctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	apps, err := p.env.Related.InstalledRelatedApps(qctx)
	if err != nil {
		return false, fmt.Errorf("%w: related apps query: %v", ErrInconclusive, err)
	}

	installed := false
	for _, app := range apps {
		if app.Platform == "" {
			return false, fmt.Errorf("%w: related app entry without platform", ErrInconclusive)
		}
		if p.matches(app) {
			installed = true
		}
	}
	return installed, nil
}

func (p *Prober) matches(app RelatedApp) bool {
	switch app.Platform {
	case "play":
		return p.cfg.AndroidPackage != "" && app.ID == p.cfg.AndroidPackage
	case "itunes":
		return p.cfg.IOSAppID != "" && app.ID == p.cfg.IOSAppID
	default:
		return false
	}
}

// openNative presumes presence when the opener stays silent for the grace
// window: a successful handoff leaves nobody to report back.
func (p *Prober) openNative(ctx context.Context, uri string) (bool, error) {
	var (
		mu      sync.Mutex
		openErr error
		result  OpenResult
	)

	opener := func(settle func(bool)) func() {
		err := p.env.Opener.Open(uri, func(r OpenResult) {
			mu.Lock()
			if result == 0 {
				result = r
			}
			mu.Unlock()
			settle(true)
		})
		if err != nil {
			mu.Lock()
			openErr = err
			mu.Unlock()
			settle(true)
		}
		return nil
	}

	reported := Race(ctx, p.env.Clock, p.opts.GraceWindow, opener)

	mu.Lock()
	defer mu.Unlock()
	if openErr != nil {
		return false, fmt.Errorf("%w: native opener: %v", ErrInconclusive, openErr)
	}
	if reported {
		p.rec.Record("native_opener_reported", logger.String("result", result.String()))
		return false, nil
	}
	if ctx.Err() != nil {
		return false, nil
	}
	return true, nil
}

// raceLink clicks a hidden link to the deep link and watches for a blur
// that outlasts the secondary delay. A failing click settles false.
func (p *Prober) raceLink(ctx context.Context, uri string) bool {
	click := func() error {
		return p.call("click_hidden_link", func() { p.env.Page.ClickHiddenLink(uri) })
	}
	return Race(ctx, p.env.Clock, p.cfg.Timeout,
		BounceAware(p.env.Page, p.env.Clock, p.opts.SecondaryDelay),
		After(p.env.Clock, p.opts.ClickDelay, click),
	)
}

// raceFrame loads the deep link in a hidden frame and watches for any
// departure signal. A frame that cannot be removed settles false.
func (p *Prober) raceFrame(ctx context.Context, uri string) bool {
	frame := func(settle func(bool)) func() {
		var (
			once sync.Once
			err  error
		)
		remove := p.env.Page.OpenHiddenFrame(uri)
		detach := func() error {
			once.Do(func() { err = p.call("remove_hidden_frame", remove) })
			return err
		}
		t := p.env.Clock.AfterFunc(p.opts.FrameLifetime, func() {
			if detach() != nil {
				settle(false)
			}
		})
		return func() {
			t.Stop()
			_ = detach()
		}
	}
	return Race(ctx, p.env.Clock, p.cfg.Timeout, Departure(p.env.Page), frame)
}

// call runs a page capability, recording it when it panics.
func (p *Prober) call(name string, fn func()) error {
	err := Protect(func() error { fn(); return nil })
	if err != nil {
		p.rec.Record("probe_capability_failed", logger.String("call", name), logger.Error(err))
	}
	return err
}
