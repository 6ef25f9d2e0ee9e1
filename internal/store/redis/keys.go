package redis

import (
	"fmt"

	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/domain"
)

const (
	// KeyPrefixStatus is the prefix for mirrored formatted statuses
	KeyPrefixStatus = "ddc:status:"
	// KeyAllStatuses is the set of resource ids with a mirrored status
	KeyAllStatuses = "ddc:statuses:all"
	// KeyInactive is the hash of deactivated resource ids
	KeyInactive = "ddc:inactive"
	// KeyPrefixPublish is the pub/sub channel prefix for rendered content
	KeyPrefixPublish = "ddc:publish:"
)

// StatusKey returns the Redis key for a resource status
func StatusKey(id domain.ResourceID) string {
	return KeyPrefixStatus + string(id)
}

// AllStatusesKey returns the key for the set of mirrored resource ids
func AllStatusesKey() string {
	return KeyAllStatuses
}

// InactiveKey returns the key of the inactive resource hash
func InactiveKey() string {
	return KeyInactive
}

// PublishChannel returns the pub/sub channel for a chat channel id
func PublishChannel(channelID string) string {
	return KeyPrefixPublish + channelID
}

// ExtractResourceID extracts the resource id from a status key
func ExtractResourceID(key string) (domain.ResourceID, error) {
	if len(key) <= len(KeyPrefixStatus) || key[:len(KeyPrefixStatus)] != KeyPrefixStatus {
		return "", fmt.Errorf("invalid status key: %s", key)
	}
	return domain.ResourceID(key[len(KeyPrefixStatus):]), nil
}
