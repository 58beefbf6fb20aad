package probe_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/handoff/internal/clock/clocktest"
	"github.com/MrSnakeDoc/handoff/internal/probe"
	"github.com/MrSnakeDoc/handoff/internal/probe/probetest"
)

var epoch = time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)

func startRace(ctx context.Context, clk *clocktest.Fake, timeout time.Duration, sources ...probe.Source) <-chan bool {
	done := make(chan bool, 1)
	go func() { done <- probe.Race(ctx, clk, timeout, sources...) }()
	return done
}

func waitListeners(t *testing.T, page *probetest.Page, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return page.Listeners() == n }, time.Second, time.Millisecond)
}

func result(t *testing.T, done <-chan bool) bool {
	t.Helper()
	select {
	case v := <-done:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("race did not settle")
		return false
	}
}

func TestRace_DepartureAgainstTimeout(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		at      time.Duration
		signal  bool
		want    bool
	}{
		{name: "immediate signal", timeout: 3 * time.Second, at: 0, signal: true, want: true},
		{name: "early signal", timeout: 3 * time.Second, at: 10 * time.Millisecond, signal: true, want: true},
		{name: "signal just before timeout", timeout: 3 * time.Second, at: 2999 * time.Millisecond, signal: true, want: true},
		{name: "signal at timeout", timeout: 3 * time.Second, at: 3 * time.Second, signal: true, want: false},
		{name: "signal after timeout", timeout: 3 * time.Second, at: 5 * time.Second, signal: true, want: false},
		{name: "short timeout", timeout: 150 * time.Millisecond, at: 149 * time.Millisecond, signal: true, want: true},
		{name: "no signal", timeout: 3 * time.Second, at: 3 * time.Second, signal: false, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clk := clocktest.New(epoch)
			page := probetest.NewPage()

			done := startRace(context.Background(), clk, tt.timeout, probe.Departure(page))
			waitListeners(t, page, 3)

			clk.Advance(tt.at)
			if tt.signal {
				page.Fire(probe.EventBlur)
			}

			assert.Equal(t, tt.want, result(t, done))
			assert.Zero(t, page.Listeners(), "listeners must be detached on settle")
			assert.Zero(t, clk.Pending(), "timeout timer must be stopped on settle")
		})
	}
}

func TestRace_EachDepartureSignalCounts(t *testing.T) {
	for _, ev := range []probe.Event{probe.EventVisibilityChange, probe.EventBlur, probe.EventPageHide} {
		t.Run(ev.String(), func(t *testing.T) {
			clk := clocktest.New(epoch)
			page := probetest.NewPage()

			done := startRace(context.Background(), clk, time.Second, probe.Departure(page))
			waitListeners(t, page, 3)
			page.Fire(ev)

			assert.True(t, result(t, done))
		})
	}
}

func TestRace_SettlesOnce(t *testing.T) {
	clk := clocktest.New(epoch)
	var stops int
	counting := func(settle func(bool)) func() {
		return func() { stops++ }
	}
	settler := make(chan func(bool), 1)
	capture := func(settle func(bool)) func() {
		settler <- settle
		return nil
	}

	done := startRace(context.Background(), clk, time.Second, counting, capture)
	settle := <-settler

	settle(true)
	settle(false)
	clk.Advance(2 * time.Second)

	assert.True(t, result(t, done))
	assert.Equal(t, 1, stops)
}

func TestRace_SettleDuringRegistration(t *testing.T) {
	clk := clocktest.New(epoch)
	var stopped []string

	eager := func(settle func(bool)) func() {
		settle(true)
		return func() { stopped = append(stopped, "eager") }
	}
	late := func(settle func(bool)) func() {
		return func() { stopped = append(stopped, "late") }
	}

	got := probe.Race(context.Background(), clk, time.Second, eager, late)

	assert.True(t, got)
	assert.ElementsMatch(t, []string{"eager", "late"}, stopped)
	assert.Zero(t, clk.Pending())
}

func TestRace_ContextCancelled(t *testing.T) {
	clk := clocktest.New(epoch)
	page := probetest.NewPage()
	ctx, cancel := context.WithCancel(context.Background())

	done := startRace(ctx, clk, time.Minute, probe.Departure(page))
	waitListeners(t, page, 3)
	cancel()

	assert.False(t, result(t, done))
	assert.Zero(t, page.Listeners())
}

func TestBounceAware(t *testing.T) {
	const secondary = 100 * time.Millisecond

	tests := []struct {
		name  string
		drive func(clk *clocktest.Fake, page *probetest.Page)
		want  bool
	}{
		{
			name: "blur held past secondary delay",
			drive: func(clk *clocktest.Fake, page *probetest.Page) {
				page.Fire(probe.EventBlur)
				clk.Advance(secondary)
			},
			want: true,
		},
		{
			name: "visibility change held past secondary delay",
			drive: func(clk *clocktest.Fake, page *probetest.Page) {
				page.Fire(probe.EventVisibilityChange)
				clk.Advance(secondary)
			},
			want: true,
		},
		{
			name: "focus returns before secondary delay",
			drive: func(clk *clocktest.Fake, page *probetest.Page) {
				page.Fire(probe.EventBlur)
				clk.Advance(50 * time.Millisecond)
				page.Fire(probe.EventFocus)
				clk.Advance(time.Second)
			},
			want: false,
		},
		{
			name: "focus returns a moment before secondary delay",
			drive: func(clk *clocktest.Fake, page *probetest.Page) {
				clk.Advance(time.Second)
				page.Fire(probe.EventBlur)
				clk.Advance(secondary - time.Millisecond)
				page.Fire(probe.EventFocus)
			},
			want: false,
		},
		{
			name: "focus without blur is ignored",
			drive: func(clk *clocktest.Fake, page *probetest.Page) {
				page.Fire(probe.EventFocus)
				clk.Advance(3 * time.Second)
			},
			want: false,
		},
		{
			name: "blur too close to the timeout",
			drive: func(clk *clocktest.Fake, page *probetest.Page) {
				clk.Advance(2950 * time.Millisecond)
				page.Fire(probe.EventBlur)
				clk.Advance(secondary)
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clk := clocktest.New(epoch)
			page := probetest.NewPage()

			done := startRace(context.Background(), clk, 3*time.Second, probe.BounceAware(page, clk, secondary))
			waitListeners(t, page, 3)
			tt.drive(clk, page)

			assert.Equal(t, tt.want, result(t, done))
			assert.Zero(t, page.Listeners())
			assert.Zero(t, clk.Pending())
		})
	}
}

func TestAfter_StoppedWhenRaceSettles(t *testing.T) {
	clk := clocktest.New(epoch)
	page := probetest.NewPage()
	ran := false

	done := startRace(context.Background(), clk, time.Second,
		probe.Departure(page),
		probe.After(clk, 500*time.Millisecond, func() error { ran = true; return nil }),
	)
	waitListeners(t, page, 3)
	clk.BlockUntil(2)
	page.Fire(probe.EventPageHide)

	assert.True(t, result(t, done))
	clk.Advance(time.Second)
	assert.False(t, ran)
}

func TestAfter_FailureSettlesFalse(t *testing.T) {
	tests := []struct {
		name string
		fn   func() error
	}{
		{name: "error", fn: func() error { return errors.New("no body") }},
		{name: "panic", fn: func() error { panic("TypeError: Cannot read properties of null") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clk := clocktest.New(epoch)
			page := probetest.NewPage()

			done := startRace(context.Background(), clk, 3*time.Second,
				probe.Departure(page),
				probe.After(clk, 100*time.Millisecond, tt.fn),
			)
			waitListeners(t, page, 3)
			clk.BlockUntil(2)
			clk.Advance(100 * time.Millisecond)

			assert.False(t, result(t, done))
			assert.Zero(t, page.Listeners())
			assert.Zero(t, clk.Pending())
		})
	}
}

func TestRace_PanickingStopStillSettles(t *testing.T) {
	clk := clocktest.New(epoch)
	page := probetest.NewPage()
	bad := func(func(bool)) func() {
		return func() { panic("removeEventListener failed") }
	}

	done := startRace(context.Background(), clk, time.Second, bad, probe.Departure(page))
	waitListeners(t, page, 3)
	page.Fire(probe.EventBlur)

	assert.True(t, result(t, done))
	assert.Zero(t, page.Listeners(), "later stops still run")
}

func TestProtect(t *testing.T) {
	assert.NoError(t, probe.Protect(func() error { return nil }))

	err := probe.Protect(func() error { panic("boom") })
	assert.ErrorIs(t, err, probe.ErrCapabilityPanic)
	assert.Contains(t, err.Error(), "boom")
}
