// Package clocktest provides a manually advanced clock.
package clocktest

import (
	"sort"
	"sync"
	"time"

	"github.com/MrSnakeDoc/handoff/internal/clock"
)

// Fake is a clock.Clock whose time only moves on Advance. Callbacks run
// synchronously on the goroutine calling Advance, in deadline order.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	seq     int
	pending []*timer
	changed chan struct{}
}

var _ clock.Clock = (*Fake)(nil)

// New returns a fake clock set to start.
func New(start time.Time) *Fake {
	return &Fake{now: start, changed: make(chan struct{})}
}

type timer struct {
	f     *Fake
	at    time.Time
	seq   int
	fn    func()
	fired bool
	done  bool
}

func (t *timer) Stop() bool {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	if t.fired || t.done {
		return false
	}
	t.done = true
	t.f.removeLocked(t)
	return true
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) AfterFunc(d time.Duration, fn func()) clock.Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	t := &timer{f: f, at: f.now.Add(d), seq: f.seq, fn: fn}
	f.pending = append(f.pending, t)
	f.notifyLocked()
	return t
}

func (f *Fake) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	f.AfterFunc(d, func() { ch <- f.Now() })
	return ch
}

// Advance moves time forward by d, firing every timer that falls due,
// including timers scheduled by callbacks within the window.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	end := f.now.Add(d)
	f.mu.Unlock()

	for {
		f.mu.Lock()
		t := f.nextDueLocked(end)
		if t == nil {
			f.now = end
			f.mu.Unlock()
			return
		}
		f.now = t.at
		t.fired = true
		f.removeLocked(t)
		f.mu.Unlock()

		t.fn()
	}
}

// Pending reports the number of timers not yet fired or stopped.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

// BlockUntil waits until at least n timers are pending.
func (f *Fake) BlockUntil(n int) {
	for {
		f.mu.Lock()
		if len(f.pending) >= n {
			f.mu.Unlock()
			return
		}
		ch := f.changed
		f.mu.Unlock()
		<-ch
	}
}

func (f *Fake) nextDueLocked(end time.Time) *timer {
	if len(f.pending) == 0 {
		return nil
	}
	sort.Slice(f.pending, func(i, j int) bool {
		if f.pending[i].at.Equal(f.pending[j].at) {
			return f.pending[i].seq < f.pending[j].seq
		}
		return f.pending[i].at.Before(f.pending[j].at)
	})
	if t := f.pending[0]; !t.at.After(end) {
		return t
	}
	return nil
}

func (f *Fake) removeLocked(t *timer) {
	for i, p := range f.pending {
		if p == t {
			f.pending = append(f.pending[:i], f.pending[i+1:]...)
			break
		}
	}
	f.notifyLocked()
}

func (f *Fake) notifyLocked() {
	close(f.changed)
	f.changed = make(chan struct{})
}
