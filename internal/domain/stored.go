package domain

import "time"

// LinkKey identifies a stored deferred link. Platform is not part of the
// key because deletes address (package, device) only.
type LinkKey struct {
	ProjectID   string
	PackageName string
	DeviceID    string
}

// StoredLink is the server-side form of a DeferredRecord.
//
// It is keyed by LinkKey: at most one pending record exists per key and a
// newer create replaces the older one.
type StoredLink struct {
	// ─────────────────────────────
	// Identity
	// ─────────────────────────────

	ID        string `json:"id"`
	ProjectID string `json:"projectId"`

	// ─────────────────────────────
	// Payload sent by the redirect page
	// ─────────────────────────────

	DeferredRecord

	// ─────────────────────────────
	// Observation
	// ─────────────────────────────

	// Client is derived from Metadata.UserAgent when the record is created.
	Client    ClientInfo `json:"client"`
	IPAddress string     `json:"ipAddress,omitempty"`

	// ─────────────────────────────
	// Lifecycle
	// ─────────────────────────────

	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Key returns the storage key of the record.
func (s *StoredLink) Key() LinkKey {
	return LinkKey{ProjectID: s.ProjectID, PackageName: s.PackageName, DeviceID: s.DeviceID}
}

// Expired reports whether the record is past its expiry at now.
func (s *StoredLink) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
