// Package acktracker implements the acknowledgement-tracking core of a
// high-throughput log pipeline: four interchangeable strategies that sit
// between a log source and arbitrary downstream consumers, guaranteeing
// bookmark persistence happens only after downstream processing
// confirms receipt (spec.md §1).
package acktracker

import (
	"sync/atomic"

	"github.com/ehrlich-b/acktracker/internal/interfaces"
)

// Source, Logger and Observer are re-exported from internal/interfaces
// so callers outside this module never need to import the internal
// package directly (spec.md §6).
type (
	Source   = interfaces.Source
	Logger   = interfaces.Logger
	Observer = interfaces.Observer
)

// AckType is the downstream disposition of a tracked message (spec.md §4.4).
type AckType int

const (
	// AckProcessed is normal success: the bookmark will eventually be
	// saved (timing/ordering is variant-specific) and one flow-control
	// credit is returned.
	AckProcessed AckType = iota
	// AckSuspended is like AckProcessed but additionally tells the
	// source to enter a suspended state until explicitly resumed.
	AckSuspended
	// AckAborted discards the message without persisting its bookmark;
	// its slot is released and one flow-control credit is still returned.
	AckAborted
)

func (a AckType) String() string {
	switch a {
	case AckProcessed:
		return "processed"
	case AckSuspended:
		return "suspended"
	case AckAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// AckHandle is stamped onto a Message by Track and consumed by Ack. It
// is the Go rendering of the AckRecord "back-pointer to the owning
// tracker" (spec.md §3): rather than a tracker looking a message up by
// identity, the message itself carries the handle that knows how to
// acknowledge it, dispatching straight to the record that produced it.
type AckHandle interface {
	ack(ackType AckType)
}

// Message is the minimal contract a pipeline message must satisfy to
// participate in ack tracking. A source implementation's message type
// embeds or otherwise implements this so Track can stamp an AckHandle
// and Ack can retrieve it. Message content, parsing and rewriting are
// explicitly out of scope of this core (spec.md §1).
type Message interface {
	SetAckHandle(AckHandle)
	AckHandle() (AckHandle, bool)
}

// Tracker is the source-facing contract common to all four variants
// (spec.md §6). Consecutive additionally exposes SetOnAllAcked,
// DisableBookmarkSaving and IsEmpty on its concrete type — those are
// deliberately not part of this interface, matching spec.md §6's
// "plus Consecutive-only" carve-out.
type Tracker interface {
	// RequestBookmark hands out a slot to populate with the transport
	// position. Returns (nil, false) when a static Consecutive
	// container's window is full — the back-pressure signal (spec.md §5)
	// — the source must then stop reading.
	RequestBookmark() (*Bookmark, bool)
	// Track commits the most recently requested bookmark slot and binds
	// it to msg, making it the tracker's responsibility until Ack.
	Track(msg Message)
	// Ack reports a message's downstream disposition.
	Ack(msg Message, ackType AckType)
	// Init runs post-construction wiring. Returns false on failure.
	Init() bool
	// Deinit flushes or discards in-flight records before the source
	// is torn down (spec.md §3, TeardownWithInflight).
	Deinit()
	// Free releases the tracker itself. Safe to call after Deinit.
	Free()
}

// sourceHold is the Go rendering of DESIGN NOTES §9's "owned handle":
// one hold taken by Track, released exactly once by Ack, replacing the
// C code's manual incref/decref pair with an atomic guard against
// double release.
type sourceHold struct {
	source   Source
	released atomic.Bool
}

func newSourceHold(source Source) *sourceHold {
	source.Incref()
	return &sourceHold{source: source}
}

// release decrements the source's reference count exactly once, even
// under a misbehaving caller that invokes it twice, and reports
// whether this was the source's last outstanding reference — the flag
// the Batched variant uses to skip a timer-restart request on a dying
// source (spec.md §9, DESIGN.md Open Question 3).
func (h *sourceHold) release() bool {
	if h.released.Swap(true) {
		return false
	}
	return h.source.Decref()
}
