//go:build js && wasm

package browser

import (
	"fmt"
	"sync"
	"syscall/js"

	"github.com/MrSnakeDoc/handoff/internal/domain"
	"github.com/MrSnakeDoc/handoff/internal/logger"
	"github.com/MrSnakeDoc/handoff/internal/probe"
)

// Page drives the current document. JS exceptions raised by DOM calls are
// recorded and never escape.
type Page struct {
	window   js.Value
	document js.Value
	rec      logger.Recorder
}

var _ probe.Page = (*Page)(nil)

func NewPage(rec logger.Recorder) *Page {
	if rec == nil {
		rec = logger.Nop()
	}
	w := js.Global()
	return &Page{window: w, document: w.Get("document"), rec: rec}
}

func (p *Page) Navigate(uri string) {
	defer p.guard("navigate")
	p.window.Get("location").Set("href", uri)
}

func (p *Page) ClickHiddenLink(uri string) {
	defer p.guard("click_hidden_link")
	a := p.hidden("a")
	a.Set("href", uri)
	root := p.root()
	root.Call("appendChild", a)
	a.Call("click")
	root.Call("removeChild", a)
}

func (p *Page) OpenHiddenFrame(uri string) (remove func()) {
	remove = func() {}
	defer p.guard("open_hidden_frame")

	frame := p.hidden("iframe")
	frame.Set("src", uri)
	p.root().Call("appendChild", frame)

	var once sync.Once
	return func() {
		once.Do(func() {
			defer p.guard("remove_hidden_frame")
			if parent := frame.Get("parentNode"); parent.Truthy() {
				parent.Call("removeChild", frame)
			}
		})
	}
}

// Listen attaches fn to the DOM event behind e. A visibility change only
// counts when the document became hidden.
func (p *Page) Listen(e probe.Event, fn func()) (unlisten func()) {
	target, name := p.window, ""
	switch e {
	case probe.EventVisibilityChange:
		target, name = p.document, "visibilitychange"
	case probe.EventBlur:
		name = "blur"
	case probe.EventFocus:
		name = "focus"
	case probe.EventPageHide:
		name = "pagehide"
	default:
		return func() {}
	}

	cb := js.FuncOf(func(js.Value, []js.Value) any {
		defer p.guard(name)
		if e == probe.EventVisibilityChange && !p.document.Get("hidden").Bool() {
			return nil
		}
		fn()
		return nil
	})

	unlisten = func() { cb.Release() }
	defer p.guard("add_listener")
	target.Call("addEventListener", name, cb)

	var once sync.Once
	return func() {
		once.Do(func() {
			defer p.guard("remove_listener")
			defer cb.Release()
			target.Call("removeEventListener", name, cb)
		})
	}
}

// root is where hidden elements go: the body, or the document element
// while the body does not exist yet.
func (p *Page) root() js.Value {
	if body := p.document.Get("body"); body.Truthy() {
		return body
	}
	return p.document.Get("documentElement")
}

func (p *Page) hidden(tag string) js.Value {
	el := p.document.Call("createElement", tag)
	el.Get("style").Set("display", "none")
	return el
}

func (p *Page) guard(call string) {
	if r := recover(); r != nil {
		p.rec.Record("page_call_failed",
			logger.String("call", call),
			logger.String("panic", fmt.Sprint(r)))
	}
}

// Metadata reads the visitor description from the page.
func Metadata() domain.ClientMetadata {
	w := js.Global()
	return domain.ClientMetadata{
		UserAgent:  str(w.Get("navigator").Get("userAgent")),
		Referrer:   str(w.Get("document").Get("referrer")),
		CurrentURL: str(w.Get("location").Get("href")),
	}
}

func str(v js.Value) string {
	if v.Type() != js.TypeString {
		return ""
	}
	return v.String()
}
