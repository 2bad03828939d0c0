package service

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"
)

// HashPool caps how many password hashes run at once. Each hash is memory
// and CPU heavy; unbounded fan-out under load would exhaust both.
type HashPool struct {
	sem *semaphore.Weighted
}

// NewHashPool allows size concurrent hashes, GOMAXPROCS when size <= 0.
func NewHashPool(size int) *HashPool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	return &HashPool{sem: semaphore.NewWeighted(int64(size))}
}

// Do runs fn once a slot is free. It returns ctx.Err() if the context ends
// first, in which case fn never runs. A nil pool runs fn directly.
func (p *HashPool) Do(ctx context.Context, fn func()) error {
	if p == nil {
		fn()
		return nil
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	fn()
	return nil
}

// keyedMutex serializes read-modify-write cycles per user id.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

// Lock blocks until key is free and returns its unlock func.
func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
