package effect

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSuccess(t *testing.T) {
	out := Run(context.Background(), func(context.Context) (int, error) {
		return 42, nil
	})
	assert.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, 42, out.Value)
	assert.NoError(t, out.Err)
}

func TestRunError(t *testing.T) {
	boom := errors.New("boom")
	out := Run(context.Background(), func(context.Context) (int, error) {
		return 0, boom
	})
	assert.Equal(t, StatusError, out.Status)
	assert.ErrorIs(t, out.Err, boom)
}

func TestRunCanceledBeforeSettle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	defer close(release)

	result := make(chan Outcome[string], 1)
	go func() {
		result <- Run(ctx, func(context.Context) (string, error) {
			<-release // ignores ctx on purpose: the race must still resolve
			return "late", nil
		})
	}()

	cancel()
	select {
	case out := <-result:
		assert.Equal(t, StatusCanceled, out.Status)
		assert.Empty(t, out.Value)
	case <-time.After(time.Second):
		t.Fatal("Run did not resolve after cancellation")
	}
}

func TestRunAlreadyCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	out := Run(ctx, func(context.Context) (int, error) {
		called = true
		return 1, nil
	})
	assert.Equal(t, StatusCanceled, out.Status)
	assert.False(t, called)
}

func TestRunContextErrorIsCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	result := make(chan Outcome[int], 1)
	go func() {
		result <- Run(ctx, func(ctx context.Context) (int, error) {
			close(started)
			<-ctx.Done()
			return 0, fmt.Errorf("query aborted: %w", ctx.Err())
		})
	}()
	<-started
	cancel()
	out := <-result
	assert.Equal(t, StatusCanceled, out.Status)
}

func TestRunSettledWinsOverLaterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	out := Run(ctx, func(context.Context) (int, error) { return 7, nil })
	cancel()
	assert.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, 7, out.Value)
}

func TestRunRecoversPanic(t *testing.T) {
	out := Run(context.Background(), func(context.Context) (int, error) {
		panic("kaboom")
	})
	require.Equal(t, StatusError, out.Status)
	var pe *PanicError
	require.ErrorAs(t, out.Err, &pe)
	assert.Equal(t, "kaboom", pe.Value)
}

func TestGoDeliversExactlyOnce(t *testing.T) {
	delivered := make(chan Outcome[int], 2)
	Go(context.Background(), func(context.Context) (int, error) { return 3, nil }, func(o Outcome[int]) {
		delivered <- o
	})
	out := <-delivered
	assert.Equal(t, 3, out.Value)
	select {
	case <-delivered:
		t.Fatal("outcome delivered twice")
	case <-time.After(20 * time.Millisecond):
	}
}
