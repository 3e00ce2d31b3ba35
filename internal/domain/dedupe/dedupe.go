// Package dedupe tracks ingestion signal ids so a signal replayed by an
// upstream webhook or CRM sync is scored at most once.
package dedupe

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultMaxSize = 50_000

// Deduper records seen signal ids.
type Deduper interface {
	// SeenAndRecord atomically checks whether id was seen and records it if not.
	// It returns true when id was already seen.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so a signal that could not be enqueued can be retried.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// inMemoryDeduper keeps the most recent ids in an expiring LRU keyed by id,
// valued by the time the id was first seen. The LRU evicts the oldest id once
// maxSize is reached and drops ids older than ttl on the wall clock; the stored
// time is also checked against the injected clock so expiry is testable.
type inMemoryDeduper struct {
	mu      sync.Mutex // makes check-then-record atomic
	seen    *expirable.LRU[string, time.Time]
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

// NewInMemoryDeduper creates a bounded in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	// expirable treats a size of 0 as unbounded and a ttl <= 0 as no expiry.
	d.seen = expirable.NewLRU[string, time.Time](max(d.maxSize, 0), nil, d.ttl)
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	// Peek leaves recency alone: eviction order is first-seen order.
	if at, ok := d.seen.Peek(id); ok {
		if d.ttl <= 0 || now.Sub(at) < d.ttl {
			return true
		}
		d.seen.Remove(id)
	}
	d.seen.Add(id, now)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen.Remove(id)
}

func (d *inMemoryDeduper) Size() int64 {
	return int64(d.seen.Len())
}
