// Package notifications pushes run lifecycle events to ntfy. When no topic
// is configured every notification is a no-op, so callers never need to
// guard their calls.
package notifications
