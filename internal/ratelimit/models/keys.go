package models

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"
)

const keyPrefix = "ratelimit"

// Key identifies one counter: an opaque caller handle, a window length, and
// optionally a hashed endpoint when the limit is endpoint-scoped. The
// identifier is never interpreted here; callers choose its shape
// ("tenant_42", "ip_203.0.113.5", "login_...").
type Key struct {
	Identifier   string
	Window       time.Duration
	EndpointHash string
}

// NewKey builds a Key, hashing the endpoint when one is given.
func NewKey(identifier string, window time.Duration, endpoint string) Key {
	k := Key{Identifier: identifier, Window: window}
	if endpoint != "" {
		k.EndpointHash = HashEndpoint(endpoint)
	}
	return k
}

// String serializes the key into the single store key shared by every
// backend. Windows are encoded in seconds so the same identifier gets
// distinct counters per tier.
func (k Key) String() string {
	s := fmt.Sprintf("%s:%s:%d", keyPrefix, SanitizeKeySegment(k.Identifier), int(k.Window.Seconds()))
	if k.EndpointHash != "" {
		s += ":" + k.EndpointHash
	}
	return s
}

// HashEndpoint returns a short stable hash of a route string so endpoint
// scoped keys stay bounded regardless of path length.
func HashEndpoint(endpoint string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(endpoint))
	return fmt.Sprintf("%08x", h.Sum32())
}

// SanitizeKeySegment escapes delimiter characters in rate limit key segments
// to prevent key collision attacks where user-controlled identifiers containing
// ':' could manipulate adjacent rate limit buckets.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}
