package roster

import (
	"context"
	"sync"
)

// keyedMutex serializes work per key. Locks are released from the map once unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyLock)}
}

// Lock blocks until `key` is free or ctx is done. The returned func releases the key.
func (km *keyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	km.mu.Lock()
	l, ok := km.locks[key]
	if !ok {
		l = &keyLock{ch: make(chan struct{}, 1)}
		km.locks[key] = l
	}
	l.refs++
	km.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
		return func() {
			<-l.ch
			km.release(key, l)
		}, nil
	case <-ctx.Done():
		km.release(key, l)
		return nil, ctx.Err()
	}
}

func (km *keyedMutex) release(key string, l *keyLock) {
	km.mu.Lock()
	defer km.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(km.locks, key)
	}
}
