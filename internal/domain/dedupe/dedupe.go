// Package dedupe tracks frame keys already accepted so client retries are
// processed at most once.
package dedupe

import (
	"container/list"
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/okian/repcoach/pkg/metrics"
)

const defaultMaxSize = 50000

// Deduper records seen frame keys.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord forgets key so a rejected frame can be retried.
	Unrecord(ctx context.Context, key string)

	// Forget drops every key with the given session prefix.
	Forget(ctx context.Context, sessionID string)

	Size() int64
}

// Key builds the dedupe key of a session frame.
func Key(sessionID string, seq uint64) string {
	return sessionID + "/" + strconv.FormatUint(seq, 10)
}

type entry struct {
	key     string
	session string
}

// inMemoryDeduper keeps keys in insertion order and evicts the oldest once
// maxSize is reached. maxSize <= 0 means unbounded.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		return true
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		d.removeLocked(d.order.Front())
	}
	d.seen[key] = d.order.PushBack(entry{key: key, session: sessionOf(key)})
	d.publishLocked()
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if el, ok := d.seen[key]; ok {
		d.removeLocked(el)
		d.publishLocked()
	}
}

func (d *inMemoryDeduper) Forget(_ context.Context, sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for el := d.order.Front(); el != nil; {
		next := el.Next()
		if el.Value.(entry).session == sessionID {
			d.removeLocked(el)
		}
		el = next
	}
	d.publishLocked()
}

func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}

// removeLocked must be called with d.mu held.
func (d *inMemoryDeduper) removeLocked(el *list.Element) {
	if el == nil {
		return
	}
	delete(d.seen, el.Value.(entry).key)
	d.order.Remove(el)
}

func (d *inMemoryDeduper) publishLocked() {
	n := int64(d.order.Len())
	d.size.Store(n)
	metrics.UpdateDedupeEntries(n)
}

func sessionOf(key string) string {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '/' {
			return key[:i]
		}
	}
	return key
}
