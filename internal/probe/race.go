package probe

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/handoff/internal/clock"
)

// Source is one signal source in a race. It registers whatever listeners it
// needs, calls settle when it has an answer, and returns the func that
// deregisters it. A nil stop func is allowed.
type Source func(settle func(bool)) (stop func())

// ErrCapabilityPanic wraps a panic raised by a page capability.
var ErrCapabilityPanic = errors.New("page capability panicked")

// Race waits for the first of: a source settling, the timeout elapsing
// (false), or ctx ending (false). Exactly one outcome is reported; every
// source is stopped as soon as the race settles and later signals are
// ignored. A stop func that panics does not keep the race from settling.
func Race(ctx context.Context, clk clock.Clock, timeout time.Duration, sources ...Source) bool {
	r := &race{result: make(chan bool, 1)}

	timer := clk.AfterFunc(timeout, func() { r.settle(false) })
	r.add(func() { timer.Stop() })

	for _, src := range sources {
		r.add(src(r.settle))
	}

	select {
	case v := <-r.result:
		return v
	case <-ctx.Done():
		r.settle(false)
		return <-r.result
	}
}

type race struct {
	mu      sync.Mutex
	settled bool
	stops   []func()
	result  chan bool
}

func (r *race) settle(v bool) {
	r.mu.Lock()
	if r.settled {
		r.mu.Unlock()
		return
	}
	r.settled = true
	stops := r.stops
	r.stops = nil
	r.mu.Unlock()

	for _, stop := range stops {
		_ = Protect(func() error { stop(); return nil })
	}
	r.result <- v
}

// add keeps stop for settlement, or runs it right away when a source
// already settled the race during registration.
func (r *race) add(stop func()) {
	if stop == nil {
		return
	}
	r.mu.Lock()
	if r.settled {
		r.mu.Unlock()
		_ = Protect(func() error { stop(); return nil })
		return
	}
	r.stops = append(r.stops, stop)
	r.mu.Unlock()
}

// Departure settles true on any signal that control left the page:
// visibility change, loss of focus or page hide.
func Departure(page Page) Source {
	return func(settle func(bool)) func() {
		fire := func() { settle(true) }
		return stopAll(
			page.Listen(EventVisibilityChange, fire),
			page.Listen(EventBlur, fire),
			page.Listen(EventPageHide, fire),
		)
	}
}

// BounceAware settles true when the page stays blurred for secondary, and
// false when focus comes back first: a quick return means no app switch
// happened even though the page lost focus.
func BounceAware(page Page, clk clock.Clock, secondary time.Duration) Source {
	return func(settle func(bool)) func() {
		var (
			mu      sync.Mutex
			blurred bool
			pending clock.Timer
		)

		onLeave := func() {
			mu.Lock()
			defer mu.Unlock()
			blurred = true
			if pending == nil {
				pending = clk.AfterFunc(secondary, func() { settle(true) })
			}
		}
		onFocus := func() {
			mu.Lock()
			b := blurred
			mu.Unlock()
			if b {
				settle(false)
			}
		}

		unlisten := stopAll(
			page.Listen(EventBlur, onLeave),
			page.Listen(EventVisibilityChange, onLeave),
			page.Listen(EventFocus, onFocus),
		)
		return func() {
			unlisten()
			mu.Lock()
			if pending != nil {
				pending.Stop()
			}
			mu.Unlock()
		}
	}
}

// After runs fn after d unless the race settles first. It settles false
// when fn fails or panics and never settles otherwise. fn runs on the
// timer's goroutine, out of reach of the caller's recover.
func After(clk clock.Clock, d time.Duration, fn func() error) Source {
	return func(settle func(bool)) func() {
		t := clk.AfterFunc(d, func() {
			if err := Protect(fn); err != nil {
				settle(false)
			}
		})
		return func() { t.Stop() }
	}
}

// Protect runs fn and turns a panic into an error wrapping
// ErrCapabilityPanic.
func Protect(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrCapabilityPanic, p)
		}
	}()
	return fn()
}

func stopAll(stops ...func()) func() {
	return func() {
		for _, stop := range stops {
			if stop != nil {
				stop()
			}
		}
	}
}
