package probe

import (
	"context"

	"github.com/MrSnakeDoc/handoff/internal/clock"
)

// Event is a page signal a probe can listen to.
type Event int

const (
	EventVisibilityChange Event = iota
	EventBlur
	EventFocus
	EventPageHide
)

func (e Event) String() string {
	switch e {
	case EventVisibilityChange:
		return "visibilitychange"
	case EventBlur:
		return "blur"
	case EventFocus:
		return "focus"
	case EventPageHide:
		return "pagehide"
	default:
		return "unknown"
	}
}

// Page is the hosting redirect page.
type Page interface {
	// Navigate hands the page over to uri. It cannot fail observably.
	Navigate(uri string)
	// ClickHiddenLink appends an invisible anchor to uri, clicks it and
	// removes it again.
	ClickHiddenLink(uri string)
	// OpenHiddenFrame appends an invisible frame loading uri. The returned
	// func removes it and is safe to call more than once.
	OpenHiddenFrame(uri string) (remove func())
	// Listen registers fn for e until the returned func is called.
	Listen(e Event, fn func()) (unlisten func())
}

// RelatedApp is one entry reported by the related-apps query.
type RelatedApp struct {
	Platform string // store tag: "play", "itunes", "webapp", ...
	ID       string
	URL      string
}

// RelationQuerier lists installed native apps related to the page's origin.
type RelationQuerier interface {
	InstalledRelatedApps(ctx context.Context) ([]RelatedApp, error)
}

// OpenResult is what a native opener reports back. Silence is not a result.
type OpenResult int

const (
	// OpenFailed means the app is absent or the user declined.
	OpenFailed OpenResult = iota + 1
	// OpenErrored means the opener itself failed.
	OpenErrored
)

func (r OpenResult) String() string {
	switch r {
	case OpenFailed:
		return "failed"
	case OpenErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// NativeOpener is a registered "open by URI with callback" capability.
// Open returns an error when the attempt could not be started at all;
// report may be called at most once, from any goroutine.
type NativeOpener interface {
	Open(uri string, report func(OpenResult)) error
}

// Env bundles the capabilities a probe runs against. Related and Opener are
// nil when the runtime does not offer them.
type Env struct {
	Page    Page
	Related RelationQuerier
	Opener  NativeOpener
	Clock   clock.Clock
}
