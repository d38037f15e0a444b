package acktracker

import (
	"sync"

	"github.com/google/uuid"
	"github.com/ehrlich-b/acktracker/internal/recordpool"
)

// instantRecord is the Instant variant's per-message slot: one message,
// one independent bookmark, persisted immediately on ack (spec.md §4.4.1).
type instantRecord struct {
	id       uuid.UUID
	bookmark Bookmark
	tracker  *InstantTracker // non-owning back-pointer
	hold     *sourceHold
}

func (r *instantRecord) ack(ackType AckType) {
	r.tracker.ack(r, ackType)
}

// InstantTracker persists each message's bookmark the moment it is
// acked, independently of every other message (spec.md §4.4.1).
type InstantTracker struct {
	source   Source
	logger   Logger
	observer Observer

	pool *recordpool.Pool[instantRecord]

	mu      sync.Mutex
	pending *instantRecord
}

// NewInstant creates the Instant variant for source.
func NewInstant(source Source, logger Logger, observer Observer) *InstantTracker {
	if observer == nil {
		observer = NoOpObserver{}
	}
	return &InstantTracker{
		source:   source,
		logger:   logger,
		observer: observer,
		pool: recordpool.New(func(r *instantRecord) {
			r.bookmark.reset()
			r.tracker = nil
			r.hold = nil
		}),
	}
}

// RequestBookmark lazily allocates a fresh record and returns its
// bookmark slot (spec.md §4.4.1: "lazily allocate a fresh AckRecord").
func (t *InstantTracker) RequestBookmark() (*Bookmark, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pending == nil {
		rec := t.pool.Get()
		rec.id = uuid.New()
		rec.tracker = t
		t.pending = rec
		if t.logger != nil {
			t.logger.Debug("instant: allocated record", "record_id", rec.id)
		}
	}
	return &t.pending.bookmark, true
}

// Track stamps the source's persist-state handle into the pending
// bookmark, attaches the record to msg, clears the pending pointer and
// takes a hold on the source (spec.md §4.4.1, §4.4 common contract).
func (t *InstantTracker) Track(msg Message) {
	t.mu.Lock()
	rec := t.pending
	if rec == nil {
		t.mu.Unlock()
		panic(newMisuse("Track", "instant", "track called without a preceding RequestBookmark"))
	}
	t.pending = nil
	t.mu.Unlock()

	rec.bookmark.PersistState = t.source.PersistState()
	rec.hold = newSourceHold(t.source)
	msg.SetAckHandle(rec)
	t.observer.ObserveTrack()
}

// Ack implements Tracker.Ack by dispatching through the handle msg
// carries, matching every other variant's public shape.
func (t *InstantTracker) Ack(msg Message, ackType AckType) {
	handle, ok := msg.AckHandle()
	if !ok {
		panic(newMisuse("Ack", "instant", "ack called for a message with no ack handle"))
	}
	handle.ack(ackType)
}

func (t *InstantTracker) ack(rec *instantRecord, ackType AckType) {
	t.observer.ObserveAck(ackType.String())
	if t.logger != nil {
		t.logger.Debug("instant: ack", "record_id", rec.id, "ack_type", ackType.String())
	}

	switch ackType {
	case AckAborted:
		rec.bookmark.Destroy()
	default:
		rec.bookmark.Save()
		t.observer.ObserveSave()
		rec.bookmark.Destroy()
		if ackType == AckSuspended {
			t.source.FlowControlSuspend()
		}
	}

	t.source.FlowControlAdjust(1)
	t.observer.ObserveCreditsReturned(1)
	rec.hold.release()
	t.pool.Put(rec)
}

// Init performs no additional wiring for Instant; always succeeds.
func (t *InstantTracker) Init() bool { return true }

// Deinit frees the pending record, if any, destroying its bookmark
// (spec.md §7, TeardownWithInflight for the Instant variant).
func (t *InstantTracker) Deinit() {
	t.mu.Lock()
	rec := t.pending
	t.pending = nil
	t.mu.Unlock()

	if rec == nil {
		return
	}
	rec.bookmark.Destroy()
	t.pool.Put(rec)
}

// Free is a no-op beyond Deinit; the tracker holds no other resources.
func (t *InstantTracker) Free() {}

var _ Tracker = (*InstantTracker)(nil)
