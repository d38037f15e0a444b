package acktracker

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBookmarkSaveNoOpWithoutCallback(t *testing.T) {
	var b Bookmark
	require.NotPanics(t, func() { b.Save() })
}

func TestBookmarkDestroyNoOpWithoutCallback(t *testing.T) {
	var b Bookmark
	require.NotPanics(t, func() { b.Destroy() })
}

func TestBookmarkSaveInvokesCallbackOnEveryCall(t *testing.T) {
	var b Bookmark
	calls := 0
	b.SetSave(func(*Bookmark) { calls++ })
	b.Save()
	b.Save()
	require.Equal(t, 2, calls, "Save has no at-most-once guard of its own; callers call it at most once per spec.md contract")
}

func TestBookmarkResetClearsCallbacksAndState(t *testing.T) {
	var b Bookmark
	saved, destroyed := false, false
	b.SetSave(func(*Bookmark) { saved = true })
	b.SetDestroy(func(*Bookmark) { destroyed = true })
	b.PersistState = "handle"
	b.Payload[0] = 42

	b.reset()
	b.Save()
	b.Destroy()

	require.False(t, saved, "reset must clear the save callback so a reused slot can't re-invoke it")
	require.False(t, destroyed, "reset must clear the destroy callback so a reused slot can't re-invoke it")
	require.Nil(t, b.PersistState)
	require.Equal(t, uint64(0), b.Payload[0])
}
