package browser

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/MrSnakeDoc/handoff/internal/attribution"
	"github.com/MrSnakeDoc/handoff/internal/domain"
)

// ClaimKeys address a deferred record from the claim side. Empty fields are
// filled by Resolve.
type ClaimKeys struct {
	PackageName string          `json:"packageName"`
	DeviceID    string          `json:"deviceId"`
	Platform    domain.Platform `json:"platform"`
}

// ParseClientOptions decodes the configuration object of the claim-side
// calls. Unlike ParseOptions it does not need a custom scheme, but the API
// must be reachable.
func ParseClientOptions(data []byte) (Options, error) {
	var o Options
	if err := json.Unmarshal(data, &o); err != nil {
		return Options{}, fmt.Errorf("invalid configuration: %w", err)
	}
	if strings.TrimSpace(o.APIBaseURL) == "" {
		return o, fmt.Errorf("invalid configuration: apiBaseUrl is required")
	}
	return o, nil
}

// ParseClaimKeys decodes the optional keys object. An empty object is valid.
func ParseClaimKeys(data []byte) (ClaimKeys, error) {
	var k ClaimKeys
	if err := json.Unmarshal(data, &k); err != nil {
		return ClaimKeys{}, fmt.Errorf("invalid claim keys: %w", err)
	}
	if k.Platform != "" && !k.Platform.Valid() {
		return ClaimKeys{}, fmt.Errorf("invalid claim keys: unknown platform %q", k.Platform)
	}
	return k, nil
}

// Resolve fills missing keys the way a save names them: the platform from
// the visitor, the package for that platform, and this device's id.
func (k ClaimKeys) Resolve(cfg domain.Configuration, userAgent string, deviceID func() string) ClaimKeys {
	if k.Platform == "" {
		k.Platform = domain.Classify(userAgent)
	}
	if k.PackageName == "" {
		k.PackageName = cfg.PackageFor(k.Platform)
	}
	if k.DeviceID == "" {
		k.DeviceID = deviceID()
	}
	return k
}

type claimJSON struct {
	domain.DeferredRecord
	Local bool `json:"local"`
}

// EncodeClaim renders a claim for the page, null when there is none.
func EncodeClaim(c *attribution.Claim) (string, error) {
	if c == nil {
		return "null", nil
	}
	data, err := json.Marshal(claimJSON{DeferredRecord: c.Record, Local: c.Local})
	if err != nil {
		return "", fmt.Errorf("failed to encode claim: %w", err)
	}
	return string(data), nil
}

// EncodeMarker renders a save marker for the page, null when there is none.
func EncodeMarker(m *attribution.SaveMarker) (string, error) {
	if m == nil {
		return "null", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to encode marker: %w", err)
	}
	return string(data), nil
}
