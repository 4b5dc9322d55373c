// Package redisstate holds the Redis-backed shared state of the realtime layer:
// per-connection presence, cross-process room fan-out, and rate-limit counters.
package redisstate

import "fmt"

const defaultKeyPrefix = "xhire:"

type keys struct {
	prefix string
}

func newKeys(prefix string) keys {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return keys{prefix: prefix}
}

func (k keys) presence(roomID, userID uint) string {
	return fmt.Sprintf("%sroom:%d:presence:%d", k.prefix, roomID, userID)
}

func (k keys) roomChannel(roomID uint) string {
	return fmt.Sprintf("%sroom:%d:pubsub", k.prefix, roomID)
}

func (k keys) roomChannelPattern() string {
	return k.prefix + "room:*:pubsub"
}

func (k keys) rateLimit(scope string) string {
	return k.prefix + "ratelimit:" + scope
}
