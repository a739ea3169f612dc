package feed

import (
	"context"
	"sync"

	"github.com/vncsmyrnk/poker/internal/core/ports"
)

// Feed is a single-subscriber snapshot mailbox. Publish never blocks; a slow reader
// skips intermediate snapshots but always receives the latest one, and never receives
// an older snapshot after a newer one.
type Feed struct {
	out  chan ports.Snapshot
	wake chan struct{}
	done <-chan struct{}

	mu     sync.Mutex
	latest ports.Snapshot
	dirty  bool
}

// New starts a feed that closes its channel once ctx is done.
func New(ctx context.Context) *Feed {
	f := &Feed{
		out:  make(chan ports.Snapshot),
		wake: make(chan struct{}, 1),
		done: ctx.Done(),
	}
	go f.run(ctx)
	return f
}

func (f *Feed) Snapshots() <-chan ports.Snapshot {
	return f.out
}

// Done is closed when the subscriber has gone away.
func (f *Feed) Done() <-chan struct{} {
	return f.done
}

func (f *Feed) Publish(snap ports.Snapshot) {
	f.mu.Lock()
	f.latest = snap
	f.dirty = true
	f.mu.Unlock()

	select {
	case f.wake <- struct{}{}:
	default:
	}
}

func (f *Feed) run(ctx context.Context) {
	defer close(f.out)
	for {
		select {
		case <-ctx.Done():
			return
		case <-f.wake:
		}

		f.mu.Lock()
		snap, ok := f.latest, f.dirty
		f.dirty = false
		f.mu.Unlock()
		if !ok {
			continue
		}

		select {
		case f.out <- snap:
		case <-ctx.Done():
			return
		}
	}
}
