package keylock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunExecutesFn(t *testing.T) {
	s := New()
	ran := false
	err := s.Run(context.Background(), "k", func(ctx context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestRunSerialisesSameKey(t *testing.T) {
	s := New()
	var inCriticalSection int32
	var maxObserved int32
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Run(context.Background(), "shared", func(ctx context.Context) error {
				n := atomic.AddInt32(&inCriticalSection, 1)
				for {
					old := atomic.LoadInt32(&maxObserved)
					if n <= old || atomic.CompareAndSwapInt32(&maxObserved, old, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inCriticalSection, -1)
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxObserved)
}

func TestRunAllowsConcurrentDifferentKeys(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	start := make(chan struct{})
	var concurrent int32
	var maxObserved int32

	for i := 0; i < 2; i++ {
		key := string(rune('a' + i))
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			<-start
			_ = s.Run(context.Background(), key, func(ctx context.Context) error {
				n := atomic.AddInt32(&concurrent, 1)
				for {
					old := atomic.LoadInt32(&maxObserved)
					if n <= old || atomic.CompareAndSwapInt32(&maxObserved, old, n) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				atomic.AddInt32(&concurrent, -1)
				return nil
			})
		}(key)
	}
	close(start)
	wg.Wait()
	assert.Equal(t, int32(2), maxObserved)
}

func TestRunPropagatesFnError(t *testing.T) {
	s := New()
	sentinel := assert.AnError
	err := s.Run(context.Background(), "k", func(ctx context.Context) error {
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
}

func TestRunReleasesKeyOnError(t *testing.T) {
	s := New()
	_ = s.Run(context.Background(), "k", func(ctx context.Context) error {
		return assert.AnError
	})

	ran := false
	err := s.Run(context.Background(), "k", func(ctx context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestRunCancelledBeforeAcquisitionNeverCallsFn(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.Run(ctx, "k", func(ctx context.Context) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
}
