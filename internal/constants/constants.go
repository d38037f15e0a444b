// Package constants holds the default sizes and timings shared across the
// tracker implementations.
package constants

import "time"

const (
	// MaxBookmarkPayloadBytes is the fixed maximum size of a Bookmark's
	// opaque payload, 64-bit aligned (spec.md §3).
	MaxBookmarkPayloadBytes = 128

	// DefaultBatchSize is used by the demo CLI when a scenario omits one.
	DefaultBatchSize = 32

	// DefaultConsecutiveWindow is the static container capacity used when
	// neither the config nor the source reports a window size.
	DefaultConsecutiveWindow = 64
)

// DefaultBatchTimeout is the latency bound the demo CLI gives the Batched
// variant when a scenario does not specify one.
const DefaultBatchTimeout = 200 * time.Millisecond
