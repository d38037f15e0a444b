// Package container implements RecordContainer (spec.md §4.3): a flight
// of outstanding records plus at most one pending slot being filled.
//
// Both declared record flavors in the original source — "consecutive"
// and "late-ack" — turn out to be structurally identical containers
// (same ring/list algorithms, only the embedded record's field name
// differs). This package collapses them into one generic Container[T]
// parameterized by caller-supplied destroy/acked callbacks, used by
// both the Consecutive tracker and (were it ever needed) a late-ack
// equivalent. See DESIGN.md Open Question 1.
package container

import (
	"container/list"
	"fmt"

	"github.com/ehrlich-b/acktracker/internal/ring"
)

// DestroyFunc releases any resources owned by a record (its bookmark's
// destroy callback, typically) before the slot is dropped or reused.
type DestroyFunc[T any] func(*T)

// AckedFunc reports whether a record has been acknowledged. Required
// only if ContinualRangeLength is called.
type AckedFunc[T any] func(*T) bool

// ClearAckedFunc clears a record's acked flag so a reused ring slot
// does not start pre-acknowledged.
type ClearAckedFunc[T any] func(*T)

// Container is the unified static/dynamic RecordContainer contract.
// Not safe for concurrent use; the owning tracker serializes access
// under its own mutex (spec.md §5).
type Container[T any] struct {
	static bool

	// static backing
	ring          *ring.Buffer[T]
	pendingStatic bool

	// dynamic backing
	storedList     *list.List // of *T
	pendingDynamic *T

	destroy    DestroyFunc[T]
	acked      AckedFunc[T]
	clearAcked ClearAckedFunc[T]
}

// NewStatic creates a ring-backed container of fixed capacity — used
// when the source's flow-control window is fixed (spec.md §3).
func NewStatic[T any](capacity int, destroy DestroyFunc[T], acked AckedFunc[T], clearAcked ClearAckedFunc[T]) *Container[T] {
	return &Container[T]{
		static:     true,
		ring:       ring.NewBuffer[T](capacity),
		destroy:    destroy,
		acked:      acked,
		clearAcked: clearAcked,
	}
}

// NewDynamic creates a list-backed container with no capacity limit —
// used when the source's window can grow (spec.md §3).
func NewDynamic[T any](destroy DestroyFunc[T], acked AckedFunc[T]) *Container[T] {
	return &Container[T]{
		static:     false,
		storedList: list.New(),
		destroy:    destroy,
		acked:      acked,
	}
}

// IsStatic reports whether this container is ring-backed.
func (c *Container[T]) IsStatic() bool { return c.static }

// IsEmpty reports whether the container holds no stored records.
func (c *Container[T]) IsEmpty() bool { return c.Size() == 0 }

// Size returns the number of stored (non-pending) records.
func (c *Container[T]) Size() int {
	if c.static {
		return c.ring.Count()
	}
	return c.storedList.Len()
}

// RequestPending returns the pending slot, allocating one if none
// exists. For static containers, returns (nil, false) when full — the
// back-pressure signal (spec.md §4.3, §5). For dynamic containers,
// always succeeds.
func (c *Container[T]) RequestPending() (*T, bool) {
	if c.static {
		// Idempotent: as long as nothing else has pushed, Tail() keeps
		// returning the same address.
		slot, ok := c.ring.Tail()
		if !ok {
			return nil, false
		}
		c.pendingStatic = true
		return slot, true
	}

	if c.pendingDynamic != nil {
		return c.pendingDynamic, true
	}
	c.pendingDynamic = new(T)
	return c.pendingDynamic, true
}

// StorePending commits the pending slot as the new tail of the stored
// sequence and clears the pending marker. A no-op if nothing is
// pending (static-full case, or called without a prior RequestPending).
func (c *Container[T]) StorePending() {
	if c.static {
		if !c.pendingStatic {
			return
		}
		c.pendingStatic = false
		c.ring.Push() // commits the same slot Tail() returned
		return
	}

	if c.pendingDynamic == nil {
		return
	}
	c.storedList.PushBack(c.pendingDynamic)
	c.pendingDynamic = nil
}

// At returns the i-th stored record (0 is the oldest).
func (c *Container[T]) At(i int) (*T, bool) {
	if c.static {
		return c.ring.At(i)
	}
	if i < 0 || i >= c.storedList.Len() {
		return nil, false
	}
	e := c.storedList.Front()
	for n := 0; n < i; n++ {
		e = e.Next()
	}
	return e.Value.(*T), true
}

// Drop removes the oldest n stored records, invoking destroy on each.
// Panics if n exceeds Size() (spec.md §4.2: a programming error).
func (c *Container[T]) Drop(n int) {
	if n < 0 || n > c.Size() {
		panic(fmt.Sprintf("container: drop(%d) exceeds size %d", n, c.Size()))
	}
	if n == 0 {
		return
	}

	if c.static {
		for i := 0; i < n; i++ {
			slot, _ := c.ring.At(i)
			c.destroyOne(slot)
		}
		c.ring.Drop(n)
		return
	}

	for i := 0; i < n; i++ {
		e := c.storedList.Front()
		rec := e.Value.(*T)
		c.destroyOne(rec)
		c.storedList.Remove(e)
	}
}

func (c *Container[T]) destroyOne(rec *T) {
	if c.destroy != nil {
		c.destroy(rec)
	}
	if c.clearAcked != nil {
		c.clearAcked(rec)
	}
}

// ContinualRangeLength returns the length of the maximal acked prefix
// (spec.md §3). Requires the container to have been constructed with
// a non-nil AckedFunc.
func (c *Container[T]) ContinualRangeLength() int {
	if c.acked == nil {
		panic("container: ContinualRangeLength requires an AckedFunc")
	}
	if c.static {
		return c.ring.ContinualRangeLength(func(rec *T) bool { return c.acked(rec) })
	}

	n := 0
	for e := c.storedList.Front(); e != nil; e = e.Next() {
		if !c.acked(e.Value.(*T)) {
			break
		}
		n++
	}
	return n
}

// Free destroys every remaining stored and pending record.
func (c *Container[T]) Free() {
	c.Drop(c.Size())
	if c.static {
		if c.pendingStatic {
			if slot, ok := c.ring.Tail(); ok {
				c.destroyOne(slot)
			}
			c.pendingStatic = false
		}
		return
	}
	if c.pendingDynamic != nil {
		c.destroyOne(c.pendingDynamic)
		c.pendingDynamic = nil
	}
}
