// Package probetest provides scriptable page capabilities for tests.
package probetest

import (
	"context"
	"sync"

	"github.com/MrSnakeDoc/handoff/internal/probe"
)

// Page records every interaction and lets tests fire events.
type Page struct {
	mu         sync.Mutex
	nextID     int
	listeners  map[probe.Event]map[int]func()
	navigated  []string
	clicked    []string
	frames     []string
	openFrames int
}

var _ probe.Page = (*Page)(nil)

func NewPage() *Page {
	return &Page{listeners: make(map[probe.Event]map[int]func())}
}

func (p *Page) Navigate(uri string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigated = append(p.navigated, uri)
}

func (p *Page) ClickHiddenLink(uri string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clicked = append(p.clicked, uri)
}

func (p *Page) OpenHiddenFrame(uri string) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = append(p.frames, uri)
	p.openFrames++
	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			p.openFrames--
			p.mu.Unlock()
		})
	}
}

func (p *Page) Listen(e probe.Event, fn func()) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	id := p.nextID
	if p.listeners[e] == nil {
		p.listeners[e] = make(map[int]func())
	}
	p.listeners[e][id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners[e], id)
	}
}

// Fire invokes every listener currently registered for e.
func (p *Page) Fire(e probe.Event) {
	p.mu.Lock()
	fns := make([]func(), 0, len(p.listeners[e]))
	for _, fn := range p.listeners[e] {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Listeners reports how many listeners are attached across all events.
func (p *Page) Listeners() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, m := range p.listeners {
		n += len(m)
	}
	return n
}

func (p *Page) Navigations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.navigated...)
}

func (p *Page) Clicks() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.clicked...)
}

func (p *Page) Frames() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.frames...)
}

// OpenFrames reports frames appended but not yet removed.
func (p *Page) OpenFrames() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.openFrames
}

// Related is a canned RelationQuerier.
type Related struct {
	Apps  []probe.RelatedApp
	Err   error
	Calls int
}

func (r *Related) InstalledRelatedApps(context.Context) ([]probe.RelatedApp, error) {
	r.Calls++
	return r.Apps, r.Err
}

// Opener is a NativeOpener whose report is triggered by the test.
type Opener struct {
	mu     sync.Mutex
	Err    error
	opened []string
	report func(probe.OpenResult)
	ready  chan struct{}
}

func NewOpener() *Opener {
	return &Opener{ready: make(chan struct{})}
}

func (o *Opener) Open(uri string, report func(probe.OpenResult)) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opened = append(o.opened, uri)
	if o.Err != nil {
		return o.Err
	}
	o.report = report
	close(o.ready)
	return nil
}

// Report waits for Open and then delivers r.
func (o *Opener) Report(r probe.OpenResult) {
	<-o.ready
	o.mu.Lock()
	report := o.report
	o.mu.Unlock()
	report(r)
}

func (o *Opener) Opened() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.opened...)
}
