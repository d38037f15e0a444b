package container

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type rec struct {
	val       int
	acked     bool
	destroyed bool
}

func destroyRec(r *rec) { r.destroyed = true }
func ackedRec(r *rec) bool { return r.acked }
func clearAckedRec(r *rec) { r.acked = false }

func TestStaticRequestPendingIdempotent(t *testing.T) {
	c := NewStatic[rec](4, destroyRec, ackedRec, clearAckedRec)

	s1, ok := c.RequestPending()
	require.True(t, ok)
	s2, ok := c.RequestPending()
	require.True(t, ok)
	require.Same(t, s1, s2, "repeated RequestPending must return the same slot until StorePending")

	s1.val = 42
	c.StorePending()
	require.Equal(t, 1, c.Size())

	stored, _ := c.At(0)
	require.Equal(t, 42, stored.val)
}

func TestStaticFullRequestPendingNull(t *testing.T) {
	c := NewStatic[rec](2, destroyRec, ackedRec, clearAckedRec)
	for i := 0; i < 2; i++ {
		s, ok := c.RequestPending()
		require.True(t, ok)
		s.val = i
		c.StorePending()
	}
	require.Equal(t, 2, c.Size())

	_, ok := c.RequestPending()
	require.False(t, ok, "full static container must refuse RequestPending")

	sizeBefore := c.Size()
	c.StorePending() // no-op per spec
	require.Equal(t, sizeBefore, c.Size())
}

func TestStaticDropSizeDelta(t *testing.T) {
	c := NewStatic[rec](4, destroyRec, ackedRec, clearAckedRec)
	for i := 0; i < 4; i++ {
		s, _ := c.RequestPending()
		s.val = i
		c.StorePending()
	}
	c.Drop(3)
	require.Equal(t, 1, c.Size())
	last, _ := c.At(0)
	require.Equal(t, 3, last.val)
}

func TestStaticDropInvokesDestroyAndClearsAcked(t *testing.T) {
	c := NewStatic[rec](2, destroyRec, ackedRec, clearAckedRec)
	s, _ := c.RequestPending()
	s.acked = true
	c.StorePending()

	c.Drop(1)
	require.True(t, s.destroyed)
	require.False(t, s.acked)
}

func TestDynamicAlwaysAcceptsPending(t *testing.T) {
	c := NewDynamic[rec](destroyRec, ackedRec)
	for i := 0; i < 100; i++ {
		s, ok := c.RequestPending()
		require.True(t, ok, "dynamic container never refuses RequestPending")
		s.val = i
		c.StorePending()
	}
	require.Equal(t, 100, c.Size())
}

func TestDynamicPendingSurvivesFullDrop(t *testing.T) {
	c := NewDynamic[rec](destroyRec, ackedRec)
	s1, _ := c.RequestPending()
	s1.val = 1
	c.StorePending()
	s2, _ := c.RequestPending()
	s2.val = 2
	c.StorePending()

	// seed a pending slot that is NOT yet stored
	pending, _ := c.RequestPending()
	pending.val = 999

	c.Drop(c.Size()) // drop everything stored; pending must survive
	require.Equal(t, 0, c.Size())

	c.StorePending() // the surviving pending slot becomes the sole element
	require.Equal(t, 1, c.Size())
	sole, _ := c.At(0)
	require.Equal(t, 999, sole.val)
}

func TestContinualRangeLength(t *testing.T) {
	c := NewStatic[rec](5, destroyRec, ackedRec, clearAckedRec)
	flags := []bool{true, true, false, true}
	for i, f := range flags {
		s, _ := c.RequestPending()
		s.val = i
		s.acked = f
		c.StorePending()
	}
	require.Equal(t, 2, c.ContinualRangeLength())
}

func TestDropOutOfRangePanics(t *testing.T) {
	c := NewStatic[rec](2, destroyRec, ackedRec, clearAckedRec)
	s, _ := c.RequestPending()
	s.val = 1
	c.StorePending()
	require.Panics(t, func() { c.Drop(5) })
}
