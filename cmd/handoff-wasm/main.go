//go:build js && wasm

package main

import (
	"context"
	"fmt"
	"syscall/js"

	"github.com/MrSnakeDoc/handoff/internal/browser"
	"github.com/MrSnakeDoc/handoff/internal/logger"
	"github.com/MrSnakeDoc/handoff/internal/redirect"
	"github.com/MrSnakeDoc/handoff/internal/version"
)

func main() {
	log := logger.New("info", false)
	rec := logger.AsRecorder(log)

	js.Global().Set("createSmartRedirect", js.FuncOf(func(_ js.Value, args []js.Value) any {
		cfgJSON, linkJSON := stringify(args, 0), stringify(args, 1)
		return newPromise(func() any { return run(rec, cfgJSON, linkJSON) })
	}))
	registerClaims(rec)

	log.Infof("handoff %s ready", version.Version)
	select {}
}

func run(rec logger.Recorder, cfgJSON, linkJSON string) (opened bool) {
	defer func() {
		if p := recover(); p != nil {
			rec.Record("redirect_failed", logger.String("panic", fmt.Sprint(p)))
			opened = false
		}
	}()

	opts, err := browser.ParseOptions([]byte(cfgJSON))
	if err != nil {
		rec.Record("redirect_rejected", logger.Error(err))
		if opts.FallbackURL != "" {
			browser.NewPage(rec).Navigate(opts.FallbackURL)
		}
		return false
	}
	cfg := opts.Configuration()

	link, err := browser.ParseLink([]byte(linkJSON))
	if err != nil {
		rec.Record("redirect_rejected", logger.Error(err))
		if cfg.FallbackURL != "" {
			browser.NewPage(rec).Navigate(cfg.FallbackURL)
		}
		return false
	}

	env := browser.NewEnv(rec, opts.OpenerGlobal)
	return redirect.SmartRedirect(context.Background(), cfg, link, env)
}

// newPromise returns a Promise resolved with fn's result. fn runs on its own
// goroutine so it may block on network calls.
func newPromise(fn func() any) js.Value {
	executor := js.FuncOf(func(_ js.Value, p []js.Value) any {
		resolve := p[0]
		go func() { resolve.Invoke(fn()) }()
		return nil
	})
	// The executor runs synchronously inside the constructor.
	promise := js.Global().Get("Promise").New(executor)
	executor.Release()
	return promise
}

// stringify serialises args[i] with JSON.stringify, or "{}" when absent.
func stringify(args []js.Value, i int) string {
	if i >= len(args) || args[i].IsUndefined() || args[i].IsNull() {
		return "{}"
	}
	return js.Global().Get("JSON").Call("stringify", args[i]).String()
}
