// Package queue provides a registry of per-key FIFO locks that reclaim
// themselves after a period of inactivity.
//
// A caller takes its place in a key's queue with Enqueue, which never
// blocks, and later waits for its turn on the returned Ticket. Positions
// follow Enqueue call order, so an event loop can enqueue synchronously and
// hand the work to a goroutine without losing arrival order. Each key owns
// one idle timer; when it fires and nobody holds or waits on the key, the
// entry is removed and the next Enqueue starts from a fresh entry.
//
// Usage:
//
//	reg := queue.NewRegistry(10 * time.Minute)
//	t := reg.Enqueue(userID) // in arrival order
//	go t.Run(ctx, func(ctx context.Context) error {
//	    // check-then-act for userID, linearized
//	    return nil
//	})
package queue

import (
	"context"
	"sync"
	"time"
)

// DefaultIdleTimeout is used when NewRegistry is given a non-positive window.
const DefaultIdleTimeout = 10 * time.Minute

// Registry maps keys to idle-evicting FIFO locks. The zero value is not
// usable; construct with NewRegistry.
type Registry struct {
	idle time.Duration

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	tail  chan struct{} // done channel of the newest ticket
	timer *time.Timer
	refs  int // holders plus queued waiters
}

// NewRegistry returns a registry whose entries are evicted after idle
// without use.
func NewRegistry(idle time.Duration) *Registry {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	return &Registry{idle: idle, entries: make(map[string]*entry)}
}

// Ticket is a place in a key's queue. Release must be called exactly once;
// extra calls are ignored.
type Ticket struct {
	r    *Registry
	e    *entry
	prev <-chan struct{} // closed when the ticket ahead is released
	done chan struct{}
	once sync.Once
}

// Enqueue takes the next place in key's queue without blocking.
func (r *Registry) Enqueue(key string) *Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		e = &entry{}
		e.timer = time.AfterFunc(r.idle, func() { r.evict(key, e) })
		r.entries[key] = e
	} else {
		e.timer.Reset(r.idle)
	}
	e.refs++
	t := &Ticket{r: r, e: e, prev: e.tail, done: make(chan struct{})}
	e.tail = t.done
	return t
}

// Wait blocks until every earlier ticket for the key is released, or ctx
// is done. On error the ticket is released.
func (t *Ticket) Wait(ctx context.Context) error {
	if t.prev == nil {
		return nil
	}
	select {
	case <-t.prev:
		return nil
	default:
	}
	select {
	case <-t.prev:
		return nil
	case <-ctx.Done():
		t.Release()
		return ctx.Err()
	}
}

// Release lets the next ticket proceed. A ticket released before its turn
// passes the turn on once the ticket ahead of it is released.
func (t *Ticket) Release() {
	if t == nil {
		return
	}
	t.once.Do(func() {
		if t.prev == nil {
			close(t.done)
		} else {
			select {
			case <-t.prev:
				close(t.done)
			default:
				go func() {
					<-t.prev
					close(t.done)
				}()
			}
		}
		t.r.unref(t.e)
	})
}

// Run waits for the ticket's turn, runs fn and releases the ticket on every
// exit path, including a panic in fn.
func (t *Ticket) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := t.Wait(ctx); err != nil {
		return err
	}
	defer t.Release()
	return fn(ctx)
}

// Acquire blocks until the lock for key is granted in arrival order, or ctx
// is done.
func (r *Registry) Acquire(ctx context.Context, key string) (*Ticket, error) {
	t := r.Enqueue(key)
	if err := t.Wait(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

// WithLock runs fn while holding key's lock.
func (r *Registry) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	return r.Enqueue(key).Run(ctx, fn)
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) unref(e *entry) {
	r.mu.Lock()
	e.refs--
	e.timer.Reset(r.idle)
	r.mu.Unlock()
}

// evict drops e if it is still the live entry for key and nobody holds or
// waits on it. A busy entry is left alone; its next release re-arms the timer.
func (r *Registry) evict(key string, e *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.entries[key]; ok && cur == e && e.refs == 0 {
		delete(r.entries, key)
	}
}
