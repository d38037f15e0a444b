package acktracker

import "github.com/ehrlich-b/acktracker/internal/constants"

// Re-exported defaults for the public API.
const (
	MaxBookmarkPayloadBytes  = constants.MaxBookmarkPayloadBytes
	DefaultBatchSize         = constants.DefaultBatchSize
	DefaultConsecutiveWindow = constants.DefaultConsecutiveWindow
)

// DefaultBatchTimeout is the latency bound the demo CLI applies when a
// scenario omits one; NewBatched itself applies no default (a zero
// Timeout disables the batch timer).
var DefaultBatchTimeout = constants.DefaultBatchTimeout
