package app

import (
	"context"
	"sync"
)

// SweepLock provides single-flight protection across overlapping sweep invocations.
// acquired is false when another sweep holds the lock.
type SweepLock interface {
	TryAcquire(ctx context.Context) (release func(), acquired bool, err error)
}

// LocalSweepLock guards sweeps within one process.
type LocalSweepLock struct {
	mu sync.Mutex
}

func (l *LocalSweepLock) TryAcquire(context.Context) (func(), bool, error) {
	if !l.mu.TryLock() {
		return nil, false, nil
	}
	return l.mu.Unlock, true, nil
}
