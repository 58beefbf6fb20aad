// Package browser binds the redirect core to a real page when compiled to
// WebAssembly. The JSON decoding of the caller's options is platform
// independent.
package browser

import (
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/MrSnakeDoc/handoff/internal/domain"
)

// DefaultOpenerGlobal is the window property probed for a native opener.
const DefaultOpenerGlobal = "HandoffNativeOpener"

// Options mirrors the configuration object passed to createSmartRedirect.
type Options struct {
	CustomScheme               string `json:"customScheme"`
	AndroidPackage             string `json:"androidPackage"`
	IOSAppID                   string `json:"iosAppId"`
	FallbackURL                string `json:"fallbackUrl"`
	TimeoutMillis              int64  `json:"timeout"`
	APIKey                     string `json:"apiKey"`
	ProjectID                  string `json:"projectId"`
	APIBaseURL                 string `json:"apiBaseUrl"`
	AssetLinksConfigured       bool   `json:"assetLinksConfigured"`
	AppleAssociationConfigured bool   `json:"appleAssociationConfigured"`
	// OpenerGlobal overrides DefaultOpenerGlobal.
	OpenerGlobal string `json:"nativeOpener"`
}

func (o Options) Configuration() domain.Configuration {
	return domain.Configuration{
		CustomScheme:               o.CustomScheme,
		AndroidPackage:             o.AndroidPackage,
		IOSAppID:                   o.IOSAppID,
		FallbackURL:                o.FallbackURL,
		Timeout:                    time.Duration(o.TimeoutMillis) * time.Millisecond,
		APIKey:                     o.APIKey,
		ProjectID:                  o.ProjectID,
		APIBaseURL:                 o.APIBaseURL,
		AssetLinksConfigured:       o.AssetLinksConfigured,
		AppleAssociationConfigured: o.AppleAssociationConfigured,
	}.WithDefaults()
}

// ParseOptions decodes the configuration object. Only the custom scheme is
// mandatory; everything else degrades to the fallback path.
func ParseOptions(data []byte) (Options, error) {
	var o Options
	if err := json.Unmarshal(data, &o); err != nil {
		return Options{}, fmt.Errorf("invalid configuration: %w", err)
	}
	if strings.TrimSpace(o.CustomScheme) == "" {
		return o, fmt.Errorf("invalid configuration: customScheme is required")
	}
	if o.TimeoutMillis < 0 {
		return o, fmt.Errorf("invalid configuration: timeout must not be negative")
	}
	if o.OpenerGlobal == "" {
		o.OpenerGlobal = DefaultOpenerGlobal
	}
	return o, nil
}

// ParseLink decodes the link data object.
func ParseLink(data []byte) (domain.LinkContext, error) {
	var link domain.LinkContext
	if err := json.Unmarshal(data, &link); err != nil {
		return domain.LinkContext{}, fmt.Errorf("invalid link data: %w", err)
	}
	if err := domain.ValidateParameters(link.Parameters); err != nil {
		return domain.LinkContext{}, fmt.Errorf("invalid link data: %w", err)
	}
	return link, nil
}
