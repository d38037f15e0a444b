package acktracker

// bookmarklessRecord is the single AckRecord embedded in a
// BookmarklessInstantTracker and reused for every message that passes
// through it — no allocation, no save, no destroy (spec.md §4.4.2).
type bookmarklessRecord struct {
	bookmark Bookmark // never saved or destroyed; callers simply never populate save/destroy
	tracker  *BookmarklessInstantTracker
}

func (r *bookmarklessRecord) ack(ackType AckType) {
	r.tracker.ack(ackType)
}

// BookmarklessInstantTracker is an optimization for sources that never
// need bookmarks at all: every message shares one embedded record, and
// no persistence is ever performed (spec.md §4.4.2).
type BookmarklessInstantTracker struct {
	source   Source
	observer Observer

	embedded bookmarklessRecord
}

// NewBookmarklessInstant creates the Bookmarkless-Instant variant.
func NewBookmarklessInstant(source Source, observer Observer) *BookmarklessInstantTracker {
	if observer == nil {
		observer = NoOpObserver{}
	}
	t := &BookmarklessInstantTracker{source: source, observer: observer}
	t.embedded.tracker = t
	return t
}

// RequestBookmark always returns the same embedded bookmark slot — the
// caller is expected to not rely on its payload surviving across
// messages, since no source using this variant reads one back.
func (t *BookmarklessInstantTracker) RequestBookmark() (*Bookmark, bool) {
	return &t.embedded.bookmark, true
}

// Track attaches the shared embedded record to msg and increments the
// source's reference count directly — there is no per-record hold to
// stash, since every message shares the one embedded record and a
// stashed hold would be overwritten (and its predecessor orphaned) the
// moment a second message is tracked before the first is acked. The
// source's own refcount is the accumulator, matching
// `instant_ack_tracker_bookmarkless.c`'s `log_pipe_ref`/`log_pipe_unref`
// pair, which never stores a hold either.
func (t *BookmarklessInstantTracker) Track(msg Message) {
	t.source.Incref()
	msg.SetAckHandle(&t.embedded)
	t.observer.ObserveTrack()
}

// Ack dispatches through the handle msg carries.
func (t *BookmarklessInstantTracker) Ack(msg Message, ackType AckType) {
	handle, ok := msg.AckHandle()
	if !ok {
		panic(newMisuse("Ack", "bookmarkless-instant", "ack called for a message with no ack handle"))
	}
	handle.ack(ackType)
}

func (t *BookmarklessInstantTracker) ack(ackType AckType) {
	t.observer.ObserveAck(ackType.String())

	if ackType == AckSuspended {
		t.source.FlowControlSuspend()
	}

	t.source.FlowControlAdjust(1)
	t.observer.ObserveCreditsReturned(1)

	t.source.Decref()
}

// Init performs no additional wiring; always succeeds.
func (t *BookmarklessInstantTracker) Init() bool { return true }

// Deinit is a no-op: there is no per-message state to discard beyond
// the shared embedded record, which carries no owned resources.
func (t *BookmarklessInstantTracker) Deinit() {}

// Free is a no-op; the tracker holds no other resources.
func (t *BookmarklessInstantTracker) Free() {}

var _ Tracker = (*BookmarklessInstantTracker)(nil)
