package domain

import (
	"net/url"
	"strings"
	"time"
)

// DefaultProbeTimeout bounds the timing-race probe when no timeout is set.
const DefaultProbeTimeout = 3 * time.Second

// Configuration is supplied once per redirect flow and never mutated.
type Configuration struct {
	// CustomScheme is the deep-link prefix, e.g. "myapp://".
	CustomScheme string
	// AndroidPackage is the Play Store package name.
	AndroidPackage string
	// IOSAppID is the numeric App Store identifier.
	IOSAppID string
	// FallbackURL is the web destination for desktop visitors and for
	// mobile visitors without a configured store identifier.
	FallbackURL string
	// Timeout bounds the timing-race probe.
	Timeout time.Duration

	APIKey     string
	ProjectID  string
	APIBaseURL string

	// AssetLinksConfigured is set when the project serves a valid
	// assetlinks.json, which Android needs to report related apps.
	AssetLinksConfigured bool
	// AppleAssociationConfigured is set when the project serves a valid
	// apple-app-site-association file.
	AppleAssociationConfigured bool
}

// WithDefaults returns a copy with zero values replaced by defaults.
func (c Configuration) WithDefaults() Configuration {
	if c.Timeout <= 0 {
		c.Timeout = DefaultProbeTimeout
	}
	c.APIBaseURL = strings.TrimRight(c.APIBaseURL, "/")
	return c
}

// DeepLinkURI joins the custom scheme and a deep-link path.
func (c Configuration) DeepLinkURI(deepLink string) string {
	return c.CustomScheme + deepLink
}

// PackageFor returns the application identifier for p, falling back to the
// other family's identifier so a record always names the app.
func (c Configuration) PackageFor(p Platform) string {
	switch p {
	case IOS:
		if c.IOSAppID != "" {
			return c.IOSAppID
		}
		return c.AndroidPackage
	default:
		if c.AndroidPackage != "" {
			return c.AndroidPackage
		}
		return c.IOSAppID
	}
}

// VerificationConfigured reports whether the platform verification file for
// p is known to be served for this project.
func (c Configuration) VerificationConfigured(p Platform) bool {
	switch p {
	case Android:
		return c.AssetLinksConfigured
	case IOS:
		return c.AppleAssociationConfigured
	default:
		return false
	}
}

// StoreURL returns the store listing for p, or the fallback URL when the
// family has no identifier configured.
func (c Configuration) StoreURL(p Platform) string {
	switch {
	case p == Android && c.AndroidPackage != "":
		return "https://play.google.com/store/apps/details?id=" + url.QueryEscape(c.AndroidPackage)
	case p == IOS && c.IOSAppID != "":
		return "https://apps.apple.com/app/id" + url.PathEscape(c.IOSAppID)
	default:
		return c.FallbackURL
	}
}
