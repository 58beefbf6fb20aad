package domain

import (
	"errors"
	"fmt"
	"time"
)

// LinkContext describes one redirect attempt. It is read-only once built.
type LinkContext struct {
	LinkID      string         `json:"linkId"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	OriginalURL string         `json:"originalUrl"`
	DeepLink    string         `json:"deeplink"`
}

// ClientMetadata is what the page knows about the visitor.
type ClientMetadata struct {
	UserAgent  string `json:"userAgent"`
	Referrer   string `json:"referrer"`
	CurrentURL string `json:"currentUrl"`
}

// DeferredRecord is the unit persisted remotely and claimed once by the
// native app after install.
type DeferredRecord struct {
	LinkID      string         `json:"linkId"`
	PackageName string         `json:"packageName"`
	DeviceID    string         `json:"deviceId"`
	Platform    Platform       `json:"platform"`
	Timestamp   time.Time      `json:"timestamp"`
	Parameters  map[string]any `json:"parameters"`
	OriginalURL string         `json:"originalUrl"`
	Metadata    ClientMetadata `json:"metadata"`
}

// ErrInvalidParameter is returned when a parameter value is not a string,
// number or bool.
var ErrInvalidParameter = errors.New("parameter values must be string, number or bool")

// ValidateParameters checks that every value is a string, number or bool.
func ValidateParameters(params map[string]any) error {
	for k, v := range params {
		switch v.(type) {
		case string, bool,
			float64, float32,
			int, int8, int16, int32, int64,
			uint, uint8, uint16, uint32, uint64:
		default:
			return fmt.Errorf("%w: %q has type %T", ErrInvalidParameter, k, v)
		}
	}
	return nil
}

// CloneParameters returns a shallow copy so records never alias caller maps.
func CloneParameters(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}
