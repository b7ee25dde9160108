package host

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielsmyers/evolution-bridge/internal/entity"
)

type stubUpdater struct {
	calls atomic.Int32
	err   error
}

func (s *stubUpdater) Update(ctx context.Context) error {
	s.calls.Add(1)
	return s.err
}

func TestRunUpdatesBeforeFirstTick(t *testing.T) {
	upd := &stubUpdater{}
	h := New(time.Hour)
	h.Register(entity.Info{UniqueID: "u1", Name: "one"}, upd)
	h.Register(entity.Info{UniqueID: "u2", Name: "passive"}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	// The initial pass happens before the first tick, which is an hour out.
	assert.Eventually(t, func() bool { return upd.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	<-done
	assert.Equal(t, int32(1), upd.calls.Load())
}

func TestRunPollsOnInterval(t *testing.T) {
	upd := &stubUpdater{}
	h := New(10 * time.Millisecond)
	h.Register(entity.Info{UniqueID: "u1", Name: "one"}, upd)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return upd.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestDoRunsCommandOnLoop(t *testing.T) {
	h := New(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	ran := false
	err := h.Do(context.Background(), func(ctx context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)

	wantErr := errors.New("device said no")
	err = h.Do(context.Background(), func(ctx context.Context) error { return wantErr })
	assert.Equal(t, wantErr, err)
}

func TestDoHonorsCallerCancellation(t *testing.T) {
	h := New(time.Hour) // loop never started, so Do can only bail via ctx

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := h.Do(ctx, func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPollPassSignalsStateWriter(t *testing.T) {
	upd := &stubUpdater{}
	h := New(10 * time.Millisecond)
	h.Register(entity.Info{UniqueID: "u1", Name: "one"}, upd)

	writes := make(chan struct{}, 16)
	h.BindStateWriter(entity.StateWriterFunc(func() {
		select {
		case writes <- struct{}{}:
		default:
		}
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	select {
	case <-writes:
	case <-time.After(time.Second):
		t.Fatal("no state write after poll pass")
	}
	cancel()
	<-done
}
