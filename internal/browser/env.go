//go:build js && wasm

package browser

import (
	"net/http"
	"time"

	"github.com/MrSnakeDoc/handoff/internal/attribution"
	"github.com/MrSnakeDoc/handoff/internal/clock"
	"github.com/MrSnakeDoc/handoff/internal/domain"
	"github.com/MrSnakeDoc/handoff/internal/logger"
	"github.com/MrSnakeDoc/handoff/internal/probe"
	"github.com/MrSnakeDoc/handoff/internal/redirect"
)

const requestTimeout = 5 * time.Second

// NewEnv collects every capability the current page offers. Optional
// capabilities that are missing stay nil.
func NewEnv(rec logger.Recorder, openerGlobal string) redirect.Env {
	env := redirect.Env{
		Env: probe.Env{
			Page:  NewPage(rec),
			Clock: clock.Real(),
		},
		HTTPClient: &http.Client{Timeout: requestTimeout},
		Persistent: LocalStorage(),
		Session:    SessionStorage(),
		Metadata:   Metadata(),
		Recorder:   rec,
	}
	if r, ok := NewRelated(); ok {
		env.Related = r
	}
	if o, ok := NewOpener(openerGlobal); ok {
		env.Opener = o
	}
	return env
}

// NewAttribution builds the claim-side store over the page's storage and
// network.
func NewAttribution(cfg domain.Configuration, rec logger.Recorder) (*attribution.Store, domain.ClientMetadata) {
	meta := Metadata()
	store := attribution.New(cfg, LocalStorage(), SessionStorage(),
		attribution.WithHTTPClient(&http.Client{Timeout: requestTimeout}),
		attribution.WithRecorder(rec),
		attribution.WithMetadata(meta),
	)
	return store, meta
}
