package driver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollSucceedsAfterRetries(t *testing.T) {
	calls := 0
	err := Poll(context.Background(), time.Millisecond, func(context.Context) (bool, error) {
		calls++
		return calls == 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestPollDeadlineIsTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := Poll(ctx, 5*time.Millisecond, func(context.Context) (bool, error) {
		return false, nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPollCancelIsNotTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Poll(ctx, time.Millisecond, func(context.Context) (bool, error) {
		return false, nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestPollStopsOnConditionError(t *testing.T) {
	boom := errors.New("boom")
	err := Poll(context.Background(), time.Millisecond, func(context.Context) (bool, error) {
		return false, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestWithTimeoutZeroKeepsParentDeadline(t *testing.T) {
	ctx, cancel := WithTimeout(context.Background(), 0)
	defer cancel()
	_, ok := ctx.Deadline()
	assert.False(t, ok)

	ctx2, cancel2 := WithTimeout(context.Background(), time.Second)
	defer cancel2()
	_, ok = ctx2.Deadline()
	assert.True(t, ok)
}

func TestReturnsElement(t *testing.T) {
	assert.True(t, StateAttached.ReturnsElement())
	assert.True(t, StateVisible.ReturnsElement())
	assert.True(t, ElementState("").ReturnsElement())
	assert.False(t, StateHidden.ReturnsElement())
	assert.False(t, StateDetached.ReturnsElement())
}

type stubFrame struct {
	Frame
}

func TestIsNil(t *testing.T) {
	var typed *stubFrame
	assert.True(t, IsNil(nil))
	assert.True(t, IsNil(typed))
	assert.False(t, IsNil(&stubFrame{}))
	assert.False(t, IsNil(stubFrame{}))
}
