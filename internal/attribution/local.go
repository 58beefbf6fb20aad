package attribution

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/MrSnakeDoc/handoff/internal/domain"
	"github.com/MrSnakeDoc/handoff/internal/kv"
)

const (
	// DeviceIDKey holds the device identifier in the persistent store.
	DeviceIDKey = "handoff_device_id"
	// SavedMarkerKey holds the "save acknowledged" marker in the session store.
	SavedMarkerKey = "handoff_deferred_saved"
	// FallbackKey holds the local fallback record in the session store.
	FallbackKey = "handoff_deferred_fallback"

	// PendingTTL is how long local markers stay valid.
	PendingTTL = 24 * time.Hour

	deviceIDPrefix = "web_"
)

// SaveMarker is written after the remote store acknowledged a save.
type SaveMarker struct {
	DeviceID  string `json:"deviceId"`
	LinkID    string `json:"linkId"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
}

// SavedAt returns the marker timestamp.
func (m SaveMarker) SavedAt() time.Time { return time.UnixMilli(m.Timestamp).UTC() }

// FallbackRecord is the local copy of a deferred link kept when the remote
// store could not be reached.
type FallbackRecord struct {
	domain.LinkContext
	DeviceID    string          `json:"deviceId"`
	PackageName string          `json:"packageName,omitempty"`
	Platform    domain.Platform `json:"platform,omitempty"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
	Error     string `json:"error"`
}

// SavedAt returns the fallback timestamp.
func (f FallbackRecord) SavedAt() time.Time { return time.UnixMilli(f.Timestamp).UTC() }

// DeviceID returns the identifier kept in store, creating it on first use.
// A non-nil error means the new identifier could not be persisted; the
// returned identifier is still usable for this page load.
func DeviceID(store kv.Store) (string, error) {
	if id, ok := store.Get(DeviceIDKey); ok && id != "" {
		return id, nil
	}
	id := deviceIDPrefix + uuid.NewString()
	if err := store.Set(DeviceIDKey, id); err != nil {
		return id, fmt.Errorf("failed to persist device id: %w", err)
	}
	return id, nil
}

func putJSON(store kv.Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := store.Set(key, string(data)); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

// readJSON reads key into v. Malformed values are removed.
func readJSON(store kv.Store, key string, v any) (bool, error) {
	raw, ok := store.Get(key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		store.Remove(key)
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return true, nil
}
