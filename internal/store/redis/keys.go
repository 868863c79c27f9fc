package redis

const (
	// KeyPrefix namespaces every key written by dropwatch.
	KeyPrefix = "dropwatch:"
	// DefaultStateKey holds the last announced bookmark id.
	DefaultStateKey = KeyPrefix + "state:last_id"
)

// StateKey returns key, or DefaultStateKey when key is empty.
func StateKey(key string) string {
	if key == "" {
		return DefaultStateKey
	}
	return key
}
