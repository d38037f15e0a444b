package acktracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestBatched(t *testing.T, src *MockSource, batchSize int, timeout time.Duration, onBatch func([]*Bookmark)) *BatchedTracker {
	t.Helper()
	tr := NewBatched(src, BatchedConfig{BatchSize: batchSize, Timeout: timeout, OnBatch: onBatch}, nil, nil)
	require.True(t, tr.Init())
	t.Cleanup(tr.Free)
	return tr
}

func trackBatched(t *testing.T, tr *BatchedTracker) *mockMessage {
	t.Helper()
	_, ok := tr.RequestBookmark()
	require.True(t, ok)
	msg := newMockMessage()
	tr.Track(msg)
	return msg
}

// TestBatchedFlushesOnBatchSizeScenarioS4 implements spec.md §8 scenario S4.
func TestBatchedFlushesOnBatchSizeScenarioS4(t *testing.T) {
	src := NewMockSource(8)
	var batches [][]int
	tr := newTestBatched(t, src, 2, 0, func(records []*Bookmark) {
		sizes := make([]int, len(records))
		for i := range records {
			sizes[i] = i
		}
		batches = append(batches, sizes)
	})

	msgs := make([]*mockMessage, 4)
	for i := range msgs {
		msgs[i] = trackBatched(t, tr)
	}
	for _, msg := range msgs {
		tr.Ack(msg, AckProcessed)
	}

	require.Len(t, batches, 2, "four acks with batch_size 2 flush exactly twice")
	require.Len(t, batches[0], 2)
	require.Len(t, batches[1], 2)
	require.Equal(t, uint32(4), src.Credits())
	require.Zero(t, src.Refs())
}

// TestBatchedFlushesPartialOnDeinitScenarioS5 implements spec.md §8
// scenario S5: batch_size 5, three acks, then Deinit flushes the
// partial batch through a single OnBatch call.
func TestBatchedFlushesPartialOnDeinitScenarioS5(t *testing.T) {
	src := NewMockSource(8)
	var flushedSizes []int
	flushCalls := 0
	tr := NewBatched(src, BatchedConfig{BatchSize: 5, OnBatch: func(records []*Bookmark) {
		flushCalls++
		flushedSizes = append(flushedSizes, len(records))
	}}, nil, nil)
	require.True(t, tr.Init())

	for i := 0; i < 3; i++ {
		msg := trackBatched(t, tr)
		tr.Ack(msg, AckProcessed)
	}

	tr.Deinit()
	tr.Free()

	require.Equal(t, 1, flushCalls)
	require.Equal(t, []int{3}, flushedSizes)
	require.Equal(t, uint32(3), src.Credits())
	require.Zero(t, src.Refs())
}

// TestBatchedFlushesOnTimeoutScenarioS6 implements spec.md §8 scenario
// S6: batch_size 100 (never reached), a short timeout flushes the
// partial batch once the timer fires.
func TestBatchedFlushesOnTimeoutScenarioS6(t *testing.T) {
	src := NewMockSource(8)
	flushed := make(chan []*Bookmark, 1)
	tr := NewBatched(src, BatchedConfig{
		BatchSize: 100,
		Timeout:   20 * time.Millisecond,
		OnBatch:   func(records []*Bookmark) { flushed <- records },
	}, nil, nil)
	require.True(t, tr.Init())
	t.Cleanup(tr.Free)

	for i := 0; i < 3; i++ {
		msg := trackBatched(t, tr)
		tr.Ack(msg, AckProcessed)
	}

	select {
	case records := <-flushed:
		require.Len(t, records, 3)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the batch timer to flush the partial batch")
	}

	require.Equal(t, uint32(3), src.Credits())
	require.Zero(t, src.Refs())
}

func TestBatchedAbortedNeverEntersABatch(t *testing.T) {
	src := NewMockSource(8)
	var flushes int
	tr := newTestBatched(t, src, 2, 0, func(records []*Bookmark) { flushes++ })

	msg1 := trackBatched(t, tr)
	tr.Ack(msg1, AckAborted)
	msg2 := trackBatched(t, tr)
	tr.Ack(msg2, AckAborted)

	require.Zero(t, flushes, "aborted records must never contribute to a batch")
	require.Equal(t, uint32(2), src.Credits(), "aborted acks still return flow-control credit")
	require.Zero(t, src.Refs())
}

func TestBatchedConstructionPanicsOnInvalidBatchSize(t *testing.T) {
	require.Panics(t, func() {
		NewBatched(NewMockSource(4), BatchedConfig{BatchSize: 0, OnBatch: func([]*Bookmark) {}}, nil, nil)
	})
}

func TestBatchedConstructionPanicsOnNilOnBatch(t *testing.T) {
	require.Panics(t, func() {
		NewBatched(NewMockSource(4), BatchedConfig{BatchSize: 1}, nil, nil)
	})
}

func TestBatchedSuspendedStillContributesToBatch(t *testing.T) {
	src := NewMockSource(8)
	var batches int
	tr := newTestBatched(t, src, 1, 0, func(records []*Bookmark) { batches++ })

	msg := trackBatched(t, tr)
	tr.Ack(msg, AckSuspended)

	require.True(t, src.IsSuspended())
	require.Equal(t, 1, batches)
	require.Equal(t, uint32(1), src.Credits())
}
