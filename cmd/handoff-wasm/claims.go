//go:build js && wasm

package main

import (
	"context"
	"fmt"
	"syscall/js"

	"github.com/MrSnakeDoc/handoff/internal/browser"
	"github.com/MrSnakeDoc/handoff/internal/logger"
)

// registerClaims exposes the claim side of deferred links:
//
//	handoffRetrieveDeferred(config, keys?) Promise<record|null>
//	handoffCleanupDeferred(config, keys?)  Promise<boolean>
//	handoffLocalPending(config?)           marker|null
//
// Keys left out are derived from the visitor, like a save derives them.
func registerClaims(rec logger.Recorder) {
	js.Global().Set("handoffRetrieveDeferred", js.FuncOf(func(_ js.Value, args []js.Value) any {
		cfgJSON, keysJSON := stringify(args, 0), stringify(args, 1)
		return newPromise(func() any { return retrieve(rec, cfgJSON, keysJSON) })
	}))
	js.Global().Set("handoffCleanupDeferred", js.FuncOf(func(_ js.Value, args []js.Value) any {
		cfgJSON, keysJSON := stringify(args, 0), stringify(args, 1)
		return newPromise(func() any { return cleanup(rec, cfgJSON, keysJSON) })
	}))
	js.Global().Set("handoffLocalPending", js.FuncOf(func(_ js.Value, args []js.Value) any {
		return localPending(rec, stringify(args, 0))
	}))
}

func retrieve(rec logger.Recorder, cfgJSON, keysJSON string) (out any) {
	defer recoverTo(rec, "deferred_retrieve_failed", &out, js.Null())

	opts, keys, err := parseClaim(cfgJSON, keysJSON)
	if err != nil {
		rec.Record("deferred_retrieve_rejected", logger.Error(err))
		return js.Null()
	}
	cfg := opts.Configuration()
	store, meta := browser.NewAttribution(cfg, rec)
	keys = keys.Resolve(cfg, meta.UserAgent, store.DeviceID)

	raw, err := browser.EncodeClaim(store.Retrieve(context.Background(), keys.PackageName, keys.DeviceID, keys.Platform))
	if err != nil {
		rec.Record("deferred_retrieve_failed", logger.Error(err))
		return js.Null()
	}
	return parseJSON(raw)
}

func cleanup(rec logger.Recorder, cfgJSON, keysJSON string) (out any) {
	defer recoverTo(rec, "deferred_cleanup_failed", &out, false)

	opts, keys, err := parseClaim(cfgJSON, keysJSON)
	if err != nil {
		rec.Record("deferred_cleanup_rejected", logger.Error(err))
		return false
	}
	cfg := opts.Configuration()
	store, meta := browser.NewAttribution(cfg, rec)
	keys = keys.Resolve(cfg, meta.UserAgent, store.DeviceID)

	store.Cleanup(context.Background(), keys.PackageName, keys.DeviceID)
	return true
}

func localPending(rec logger.Recorder, cfgJSON string) (out any) {
	defer recoverTo(rec, "deferred_marker_failed", &out, js.Null())

	// The marker lives in session storage; the configuration only matters
	// for the store's defaults, so a malformed one is tolerated.
	opts, _ := browser.ParseClientOptions([]byte(cfgJSON))
	store, _ := browser.NewAttribution(opts.Configuration(), rec)

	raw, err := browser.EncodeMarker(store.GetLocalPending())
	if err != nil {
		rec.Record("deferred_marker_failed", logger.Error(err))
		return js.Null()
	}
	return parseJSON(raw)
}

func parseClaim(cfgJSON, keysJSON string) (browser.Options, browser.ClaimKeys, error) {
	opts, err := browser.ParseClientOptions([]byte(cfgJSON))
	if err != nil {
		return browser.Options{}, browser.ClaimKeys{}, err
	}
	keys, err := browser.ParseClaimKeys([]byte(keysJSON))
	if err != nil {
		return browser.Options{}, browser.ClaimKeys{}, err
	}
	return opts, keys, nil
}

func parseJSON(raw string) js.Value {
	return js.Global().Get("JSON").Call("parse", raw)
}

// recoverTo records a panic as event and replaces *out with fallback.
func recoverTo(rec logger.Recorder, event string, out *any, fallback any) {
	if p := recover(); p != nil {
		rec.Record(event, logger.String("panic", fmt.Sprint(p)))
		*out = fallback
	}
}
