package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHashPoolBoundsConcurrency(t *testing.T) {
	p := NewHashPool(2)

	var running, peak atomic.Int32
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Do(context.Background(), func() {
				n := running.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				running.Add(-1)
			})
		}()
	}
	wg.Wait()
	require.LessOrEqual(t, peak.Load(), int32(2))
}

func TestHashPoolHonoursContext(t *testing.T) {
	p := NewHashPool(1)
	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = p.Do(context.Background(), func() {
			close(started)
			<-release
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	ran := false
	err := p.Do(ctx, func() { ran = true })
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.False(t, ran)
	close(release)
}

func TestNilHashPoolRunsInline(t *testing.T) {
	var p *HashPool
	ran := false
	require.NoError(t, p.Do(context.Background(), func() { ran = true }))
	require.True(t, ran)
}

func TestKeyedMutex(t *testing.T) {
	var k keyedMutex

	unlockA := k.Lock("a")
	unlockB := k.Lock("b") // different key does not block

	acquired := make(chan struct{})
	done := make(chan struct{})
	go func() {
		unlock := k.Lock("a")
		close(acquired)
		unlock()
		close(done)
	}()

	select {
	case <-acquired:
		t.Fatal("lock on a acquired while held")
	case <-time.After(20 * time.Millisecond):
	}

	unlockA()
	<-acquired
	<-done
	unlockB()

	k.mu.Lock()
	defer k.mu.Unlock()
	require.Empty(t, k.locks)
}
