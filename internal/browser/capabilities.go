//go:build js && wasm

package browser

import (
	"context"
	"errors"
	"fmt"
	"syscall/js"

	"github.com/MrSnakeDoc/handoff/internal/probe"
)

// Related queries navigator.getInstalledRelatedApps.
type Related struct {
	navigator js.Value
}

// NewRelated reports false when the browser does not offer the query.
func NewRelated() (*Related, bool) {
	nav := js.Global().Get("navigator")
	if !nav.Truthy() || nav.Get("getInstalledRelatedApps").Type() != js.TypeFunction {
		return nil, false
	}
	return &Related{navigator: nav}, true
}

func (r *Related) InstalledRelatedApps(ctx context.Context) (apps []probe.RelatedApp, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("getInstalledRelatedApps: %v", p)
		}
	}()

	list, err := await(ctx, r.navigator.Call("getInstalledRelatedApps"))
	if err != nil {
		return nil, err
	}
	if list.Type() != js.TypeObject {
		return nil, errors.New("getInstalledRelatedApps: result is not a list")
	}

	n := list.Length()
	apps = make([]probe.RelatedApp, 0, n)
	for i := 0; i < n; i++ {
		app := list.Index(i)
		apps = append(apps, probe.RelatedApp{
			Platform: str(app.Get("platform")),
			ID:       str(app.Get("id")),
			URL:      str(app.Get("url")),
		})
	}
	return apps, nil
}

// Opener wraps a host-registered object exposing
// open(uri, onFailure, onError).
type Opener struct {
	obj js.Value
}

// NewOpener reports false when no opener is registered under global.
func NewOpener(global string) (*Opener, bool) {
	obj := js.Global().Get(global)
	if !obj.Truthy() || obj.Get("open").Type() != js.TypeFunction {
		return nil, false
	}
	return &Opener{obj: obj}, true
}

// Open keeps both callbacks alive for the page lifetime; the host may call
// them after the grace window.
func (o *Opener) Open(uri string, report func(probe.OpenResult)) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("native opener: %v", p)
		}
	}()

	onFailure := js.FuncOf(func(js.Value, []js.Value) any {
		report(probe.OpenFailed)
		return nil
	})
	onError := js.FuncOf(func(js.Value, []js.Value) any {
		report(probe.OpenErrored)
		return nil
	})
	o.obj.Call("open", uri, onFailure, onError)
	return nil
}

// await blocks until promise settles or ctx ends. It must not be called
// from inside a js.Func callback.
func await(ctx context.Context, promise js.Value) (js.Value, error) {
	type outcome struct {
		v   js.Value
		err error
	}
	ch := make(chan outcome, 1)

	onResolve := js.FuncOf(func(_ js.Value, args []js.Value) any {
		v := js.Undefined()
		if len(args) > 0 {
			v = args[0]
		}
		ch <- outcome{v: v}
		return nil
	})
	onReject := js.FuncOf(func(_ js.Value, args []js.Value) any {
		msg := "promise rejected"
		if len(args) > 0 {
			msg = args[0].Call("toString").String()
		}
		ch <- outcome{err: errors.New(msg)}
		return nil
	})
	promise.Call("then", onResolve, onReject)

	select {
	case o := <-ch:
		onResolve.Release()
		onReject.Release()
		return o.v, o.err
	case <-ctx.Done():
		// The promise may still settle; the callbacks stay registered so it
		// does not call a released func.
		return js.Undefined(), ctx.Err()
	}
}
