package registry

import (
	"sync"
	"time"

	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/sketcherr"
	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/sketches"
)

// LockWaitFunc observes how long a caller waited for an entry's lock.
type LockWaitFunc func(family sketches.Family, wait time.Duration)

type options struct {
	lockWait LockWaitFunc
}

// Option configures New.
type Option func(*options)

// WithLockWait reports every lock acquisition's wait time to fn.
func WithLockWait(fn LockWaitFunc) Option {
	return func(o *options) { o.lockWait = fn }
}

// Entry is one named sketch. Its identity is immutable; its handle is only
// reachable inside Do.
type Entry struct {
	name      string
	family    sketches.Family
	valueType sketches.ValueType
	configK   int
	observe   LockWaitFunc

	mu      sync.Mutex
	sketch  sketches.Sketch
	version uint64
}

func (e *Entry) Name() string                  { return e.name }
func (e *Entry) Family() sketches.Family       { return e.family }
func (e *Entry) ValueType() sketches.ValueType { return e.valueType }
func (e *Entry) ConfigK() int                  { return e.configK }

// Info returns the entry's identity.
func (e *Entry) Info() Info {
	return Info{Name: e.name, Family: e.family, ValueType: e.valueType, K: e.configK}
}

// Do runs fn with the entry's lock held. The lock is not reentrant: fn must
// not call Do on the same entry.
func (e *Entry) Do(fn func(h *Handle) error) error {
	start := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.observe != nil {
		e.observe(e.family, time.Since(start))
	}
	h := &Handle{e: e}
	defer h.close()
	return fn(h)
}

// Handle is the access token passed to Do callbacks. It is invalid once the
// callback returns.
type Handle struct {
	e      *Entry
	closed bool
}

func (h *Handle) close() { h.closed = true }

func (h *Handle) entry() *Entry {
	if h.closed {
		panic("registry: handle used outside its critical section")
	}
	return h.e
}

// Sketch returns the entry's current sketch.
func (h *Handle) Sketch() sketches.Sketch { return h.entry().sketch }

// Version returns the entry's mutation counter.
func (h *Handle) Version() uint64 { return h.entry().version }

// MarkMutated records an in-place change of the sketch.
func (h *Handle) MarkMutated() { h.entry().version++ }

// Replace swaps in a new sketch of the entry's family.
func (h *Handle) Replace(sk sketches.Sketch) error {
	e := h.entry()
	if sk == nil || sk.Family() != e.family {
		return sketcherr.FamilyMismatchf("cannot replace %s sketch %q with another family", e.family, e.name)
	}
	e.sketch = sk
	e.version++
	return nil
}
