package acktracker

// MaxBookmarkPayloadBytes-sized opaque payload identifying a position
// in the source's upstream transport (spec.md §3, §4.1).
type bookmarkPayload [MaxBookmarkPayloadBytes / 8]uint64

// Bookmark is an opaque, source-populated position in the upstream
// transport plus two best-effort, at-most-once callbacks. The payload
// format is defined by whichever source fills it; the tracker never
// interprets it.
type Bookmark struct {
	Payload bookmarkPayload

	// PersistState is the opaque handle the owning source stamps into
	// every bookmark it populates (spec.md §6: source.cfg.persist_state).
	PersistState any

	save    func(*Bookmark)
	destroy func(*Bookmark)
}

// SetSave installs the save callback. A nil save makes Save a no-op.
func (b *Bookmark) SetSave(fn func(*Bookmark)) { b.save = fn }

// SetDestroy installs the destroy callback. A nil destroy makes
// Destroy a no-op.
func (b *Bookmark) SetDestroy(fn func(*Bookmark)) { b.destroy = fn }

// Save durably commits the bookmark's position if a save callback is
// set; otherwise it is a no-op. Best-effort: a failing callback is the
// callback's own concern (spec.md §7, SaveCallbackFailure) — the
// tracker always advances its own state regardless of the outcome.
func (b *Bookmark) Save() {
	if b.save != nil {
		b.save(b)
	}
}

// Destroy releases payload-owned resources if a destroy callback is
// set. Called at most once per record by the tracker or container.
func (b *Bookmark) Destroy() {
	if b.destroy != nil {
		b.destroy(b)
	}
}

// reset clears a bookmark's callbacks and persist handle so a reused
// slot (e.g. a dropped static-container ring entry) cannot
// double-invoke a stale save/destroy (spec.md §4.3, §9).
func (b *Bookmark) reset() {
	b.save = nil
	b.destroy = nil
	b.PersistState = nil
	b.Payload = bookmarkPayload{}
}
