package acktracker

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBookmarklessNeverSaves(t *testing.T) {
	src := NewMockSource(4)
	tr := NewBookmarklessInstant(src, nil)
	require.True(t, tr.Init())

	bm, ok := tr.RequestBookmark()
	require.True(t, ok)
	saveCalls := 0
	bm.SetSave(func(*Bookmark) { saveCalls++ }) // source is free to ignore this; tracker never calls it

	msg := newMockMessage()
	tr.Track(msg)
	tr.Ack(msg, AckProcessed)

	require.Zero(t, saveCalls, "Bookmarkless-Instant never performs persistence")
	require.Equal(t, uint32(1), src.Credits())
	require.Zero(t, src.Refs())
}

func TestBookmarklessSharesOneRecordAcrossMessages(t *testing.T) {
	src := NewMockSource(4)
	tr := NewBookmarklessInstant(src, nil)

	bm1, _ := tr.RequestBookmark()
	bm2, _ := tr.RequestBookmark()
	require.Same(t, bm1, bm2, "the embedded record is reused for every message")
}

func TestBookmarklessMultipleMessagesSequentially(t *testing.T) {
	src := NewMockSource(4)
	tr := NewBookmarklessInstant(src, nil)

	for i := 0; i < 5; i++ {
		_, _ = tr.RequestBookmark()
		msg := newMockMessage()
		tr.Track(msg)
		tr.Ack(msg, AckProcessed)
	}

	require.Equal(t, uint32(5), src.Credits())
	require.Zero(t, src.Refs())
}

// TestBookmarklessMultipleMessagesInFlight tracks several messages
// before acking any of them, exercising the window>1 path where the
// shared embedded record must not leak or double-release the source's
// reference count (spec.md §8 universal invariant: "the source's
// reference count returns to its initial value after all acks
// complete").
func TestBookmarklessMultipleMessagesInFlight(t *testing.T) {
	src := NewMockSource(4)
	tr := NewBookmarklessInstant(src, nil)

	msgs := make([]*mockMessage, 4)
	for i := range msgs {
		_, _ = tr.RequestBookmark()
		msgs[i] = newMockMessage()
		tr.Track(msgs[i])
	}
	require.Equal(t, 4, src.Refs(), "all four tracked messages hold a reference before any ack")

	for _, msg := range msgs {
		tr.Ack(msg, AckProcessed)
	}

	require.Equal(t, uint32(4), src.Credits())
	require.Zero(t, src.Refs())
}

func TestBookmarklessSuspended(t *testing.T) {
	src := NewMockSource(4)
	tr := NewBookmarklessInstant(src, nil)

	_, _ = tr.RequestBookmark()
	msg := newMockMessage()
	tr.Track(msg)
	tr.Ack(msg, AckSuspended)

	require.True(t, src.IsSuspended())
	require.Equal(t, uint32(1), src.Credits())
}
