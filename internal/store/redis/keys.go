package redis

import "github.com/MrSnakeDoc/handoff/internal/domain"

const (
	// KeyPrefixDeferred is the prefix for deferred link keys
	KeyPrefixDeferred = "handoff:deferred:"
)

// LinkRedisKey returns the Redis key for a deferred link:
// handoff:deferred:{project}:{package}:{device}
func LinkRedisKey(key domain.LinkKey) string {
	return KeyPrefixDeferred + key.ProjectID + ":" + key.PackageName + ":" + key.DeviceID
}
