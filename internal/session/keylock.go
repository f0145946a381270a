package session

import (
	"context"
	"sync"
)

// keyLock hands out one lock per key and frees it when the last holder or waiter leaves.
type keyLock struct {
	mu    sync.Mutex
	locks map[string]*refSem
}

// refSem is a one-slot semaphore, so waiters can give up on ctx.
type refSem struct {
	ch   chan struct{}
	refs int
}

func newKeyLock() *keyLock {
	return &keyLock{locks: make(map[string]*refSem)}
}

// Lock blocks until key is held or ctx is done. On success it returns the matching unlock.
func (k *keyLock) Lock(ctx context.Context, key string) (unlock func(), err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refSem{ch: make(chan struct{}, 1)}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	select {
	case m.ch <- struct{}{}:
		return func() {
			<-m.ch
			k.release(key, m)
		}, nil
	case <-ctx.Done():
		k.release(key, m)
		return nil, ctx.Err()
	}
}

func (k *keyLock) release(key string, m *refSem) {
	k.mu.Lock()
	m.refs--
	if m.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()
}

func (k *keyLock) len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
