package acktracker

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStructuredErrorMessage(t *testing.T) {
	err := NewError("RequestBookmark", ErrCodeWindowExhausted, "static container full")
	require.Equal(t, "acktracker: static container full (op=RequestBookmark)", err.Error())
}

func TestErrorIsComparesByCode(t *testing.T) {
	err := &Error{Op: "Ack", Code: ErrCodeTeardownWithInflight, Msg: "flushed partial batch"}
	require.True(t, errors.Is(err, &Error{Code: ErrCodeTeardownWithInflight}))
	require.False(t, errors.Is(err, &Error{Code: ErrCodeWindowExhausted}))
}

func TestErrorUnwrap(t *testing.T) {
	inner := fmt.Errorf("boom")
	err := &Error{Op: "Ack", Code: ErrCodeMisuseInvariant, Inner: inner}
	require.ErrorIs(t, err, inner)
}

func TestIsCode(t *testing.T) {
	err := NewError("Drop", ErrCodeMisuseInvariant, "n exceeds size")
	require.True(t, IsCode(err, ErrCodeMisuseInvariant))
	require.False(t, IsCode(err, ErrCodeWindowExhausted))
	require.False(t, IsCode(nil, ErrCodeMisuseInvariant))
}

func TestMisuseInvariantPanicsWithStructuredError(t *testing.T) {
	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(*Error)
		require.True(t, ok, "panic value must be *Error")
		require.Equal(t, ErrCodeMisuseInvariant, err.Code)
	}()
	panic(newMisuse("Drop", "consecutive", "drop(5) exceeds size 2"))
}
