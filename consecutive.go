package acktracker

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/ehrlich-b/acktracker/internal/container"
)

// consecutiveRecord is a Consecutive-tracked message's slot: a bookmark
// plus the acked flag the container's continual-ack-prefix query reads
// (spec.md §3, §4.4.3).
type consecutiveRecord struct {
	id       uuid.UUID
	bookmark Bookmark
	acked    bool
	hold     *sourceHold
}

// consecutiveHandle binds a consecutiveRecord to its owning tracker —
// the record itself is also stored inside internal/container, so the
// handle is a thin adapter rather than growing the record with a
// tracker back-pointer the container's generic type doesn't need.
type consecutiveHandle struct {
	tracker *ConsecutiveTracker
	rec     *consecutiveRecord
}

func (h *consecutiveHandle) ack(ackType AckType) {
	h.tracker.ack(h.rec, ackType)
}

// ConsecutiveConfig configures the Consecutive variant's container.
type ConsecutiveConfig struct {
	// WindowSize is the static container's fixed capacity; zero falls
	// back to the source's WindowSize(). Ignored when Dynamic is true.
	WindowSize uint32
	// Dynamic selects a growable, non-back-pressuring container for
	// sources whose flow-control window can grow at runtime.
	Dynamic bool
}

// ConsecutiveTracker persists bookmarks strictly in source order: a
// message whose position precedes an unacked one may not have its
// bookmark saved until its predecessor is acked (spec.md §4.4.3).
type ConsecutiveTracker struct {
	source   Source
	logger   Logger
	observer Observer

	mu        sync.Mutex
	container *container.Container[consecutiveRecord]
	pending   *consecutiveRecord

	disableSaving atomic.Bool
	onAllAcked    atomic.Pointer[func()]
}

// NewConsecutive creates the Consecutive variant, choosing a static
// (fixed-window) or dynamic (growable-window) container per cfg.
func NewConsecutive(source Source, cfg ConsecutiveConfig, logger Logger, observer Observer) *ConsecutiveTracker {
	if observer == nil {
		observer = NoOpObserver{}
	}
	t := &ConsecutiveTracker{source: source, logger: logger, observer: observer}

	destroy := func(r *consecutiveRecord) { r.bookmark.Destroy() }
	acked := func(r *consecutiveRecord) bool { return r.acked }
	clearAcked := func(r *consecutiveRecord) { r.acked = false; r.bookmark.reset() }

	if cfg.Dynamic {
		t.container = container.NewDynamic(destroy, acked)
	} else {
		window := int(cfg.WindowSize)
		if window <= 0 {
			window = int(source.WindowSize())
		}
		if window <= 0 {
			window = DefaultConsecutiveWindow
		}
		t.container = container.NewStatic(window, destroy, acked, clearAcked)
	}
	return t
}

// RequestBookmark returns the container's pending slot, or (nil,
// false) if a static container's window is full — the back-pressure
// signal the source must obey by pausing fetches (spec.md §5, §7
// WindowExhausted).
func (t *ConsecutiveTracker) RequestBookmark() (*Bookmark, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.container.RequestPending()
	if !ok {
		t.observer.ObserveWindowExhausted()
		return nil, false
	}
	rec.bookmark.PersistState = t.source.PersistState()
	t.pending = rec
	return &rec.bookmark, true
}

// Track commits the pending slot, attaches it to msg, and takes a hold
// on the source.
func (t *ConsecutiveTracker) Track(msg Message) {
	t.mu.Lock()
	rec := t.pending
	if rec == nil {
		t.mu.Unlock()
		panic(newMisuse("Track", "consecutive", "track called without a preceding RequestBookmark"))
	}
	rec.id = uuid.New()
	t.container.StorePending()
	t.pending = nil
	t.mu.Unlock()

	rec.hold = newSourceHold(t.source)
	msg.SetAckHandle(&consecutiveHandle{tracker: t, rec: rec})
	t.observer.ObserveTrack()
	if t.logger != nil {
		t.logger.Debug("consecutive: tracked record", "record_id", rec.id)
	}
}

// Ack dispatches through the handle msg carries.
func (t *ConsecutiveTracker) Ack(msg Message, ackType AckType) {
	handle, ok := msg.AckHandle()
	if !ok {
		panic(newMisuse("Ack", "consecutive", "ack called for a message with no ack handle"))
	}
	handle.ack(ackType)
}

func (t *ConsecutiveTracker) ack(rec *consecutiveRecord, ackType AckType) {
	t.observer.ObserveAck(ackType.String())
	if t.logger != nil {
		t.logger.Debug("consecutive: ack", "record_id", rec.id, "ack_type", ackType.String())
	}

	rec.acked = true
	if ackType == AckSuspended {
		t.source.FlowControlSuspend()
	}

	t.mu.Lock()
	k := t.container.ContinualRangeLength()
	var credits int
	var becameEmpty bool
	if k > 0 {
		if ackType != AckAborted && !t.disableSaving.Load() {
			last, _ := t.container.At(k - 1)
			last.bookmark.Save()
			t.observer.ObserveSave()
		}
		t.container.Drop(k)
		credits = k
		becameEmpty = t.container.IsEmpty()
	}
	t.mu.Unlock()

	if credits > 0 {
		if ackType == AckSuspended {
			t.source.FlowControlAdjustWhenSuspended(uint32(credits))
		} else {
			t.source.FlowControlAdjust(uint32(credits))
		}
		t.observer.ObserveCreditsReturned(uint32(credits))
	}

	if becameEmpty {
		if fn := t.onAllAcked.Load(); fn != nil && *fn != nil {
			(*fn)()
		}
	}

	rec.hold.release()
}

// DisableBookmarkSaving latches off all future saves. Once set it
// cannot be unset (spec.md §4.4, "Optional: disable_bookmark_saving").
func (t *ConsecutiveTracker) DisableBookmarkSaving() {
	t.disableSaving.Store(true)
}

// SetOnAllAcked latches a callback fired whenever the container becomes
// empty immediately following an ack. Go closures replace the C API's
// user_data/free_fn pair (DESIGN.md Open Question 2).
func (t *ConsecutiveTracker) SetOnAllAcked(fn func()) {
	t.onAllAcked.Store(&fn)
}

// IsEmpty reports whether the container currently holds no stored
// records.
func (t *ConsecutiveTracker) IsEmpty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.container.IsEmpty()
}

// Init performs no additional wiring; always succeeds.
func (t *ConsecutiveTracker) Init() bool { return true }

// Deinit discards every remaining record, destroying its bookmark
// without saving (spec.md §7, TeardownWithInflight: "records are
// discarded with their bookmarks destroyed").
func (t *ConsecutiveTracker) Deinit() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.container.Free()
	t.pending = nil
}

// Free is a no-op beyond Deinit; the tracker holds no other resources.
func (t *ConsecutiveTracker) Free() {}

var _ Tracker = (*ConsecutiveTracker)(nil)
