package application

import (
	"context"
	"path/filepath"
	"sync"
)

// dirLocks hands out one exclusive slot per output directory. Slots are
// dropped once nobody holds or waits for them.
type dirLocks struct {
	mu    sync.Mutex
	slots map[string]*dirSlot
}

type dirSlot struct {
	ch   chan struct{}
	refs int
}

// acquire blocks until dir is free or ctx ends. The returned func releases it.
func (l *dirLocks) acquire(ctx context.Context, dir string) (func(), error) {
	key := dir
	if abs, err := filepath.Abs(dir); err == nil {
		key = abs
	}

	l.mu.Lock()
	if l.slots == nil {
		l.slots = make(map[string]*dirSlot)
	}
	slot := l.slots[key]
	if slot == nil {
		slot = &dirSlot{ch: make(chan struct{}, 1)}
		l.slots[key] = slot
	}
	slot.refs++
	l.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
	default:
		select {
		case slot.ch <- struct{}{}:
		case <-ctx.Done():
			l.release(key, slot, false)
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(key, slot, true) })
	}, nil
}

func (l *dirLocks) release(key string, slot *dirSlot, held bool) {
	if held {
		<-slot.ch
	}
	l.mu.Lock()
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, key)
	}
	l.mu.Unlock()
}

func (l *dirLocks) active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
