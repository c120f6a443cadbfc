// Package dedupe remembers successful CRM attachments so a retried attach
// for the same lead and file does not create a second attachment.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Ledger records the attachment created for each lead_id + file_id pair.
type Ledger interface {
	// Lookup returns the attachment recorded for the pair, if any.
	Lookup(ctx context.Context, leadID, fileID string) (attachmentID string, ok bool)

	// Record stores the attachment created for the pair, replacing any
	// previous entry.
	Record(ctx context.Context, leadID, fileID, attachmentID string)

	Size() int64
}

// entry is one node of the recency list; head is the newest.
type entry struct {
	key          string
	attachmentID string
	prev, next   *entry
}

func (e *entry) reset() {
	e.key = ""
	e.attachmentID = ""
	e.prev = nil
	e.next = nil
}

// inMemoryLedger keeps entries in a map plus a doubly linked list ordered by
// insertion. When bounded, the oldest entry is evicted first.
type inMemoryLedger struct {
	mu      sync.Mutex
	entries map[string]*entry
	head    *entry
	tail    *entry
	maxSize int // 0 or negative = unbounded
	size    atomic.Int64
	pool    sync.Pool
}

// NewInMemoryLedger creates an in-memory ledger with configuration options.
func NewInMemoryLedger(opts ...Option) Ledger {
	l := &inMemoryLedger{
		maxSize: 10000,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.entries = make(map[string]*entry)
	l.pool = sync.Pool{
		New: func() interface{} {
			return &entry{}
		},
	}
	return l
}

func key(leadID, fileID string) string {
	return leadID + "\x00" + fileID
}

func (l *inMemoryLedger) Lookup(_ context.Context, leadID, fileID string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key(leadID, fileID)]
	if !ok {
		return "", false
	}
	return e.attachmentID, true
}

func (l *inMemoryLedger) Record(_ context.Context, leadID, fileID, attachmentID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	k := key(leadID, fileID)
	if e, ok := l.entries[k]; ok {
		e.attachmentID = attachmentID
		l.unlink(e)
		l.pushFront(e)
		return
	}

	if l.maxSize > 0 && len(l.entries) >= l.maxSize {
		l.evictOldest()
	}

	e := l.pool.Get().(*entry)
	e.key = k
	e.attachmentID = attachmentID
	l.pushFront(e)
	l.entries[k] = e
	l.size.Add(1)
}

// Size returns the current number of entries.
func (l *inMemoryLedger) Size() int64 {
	return l.size.Load()
}

// pushFront and unlink must be called with l.mu held.
func (l *inMemoryLedger) pushFront(e *entry) {
	e.prev = nil
	e.next = l.head
	if l.head != nil {
		l.head.prev = e
	}
	l.head = e
	if l.tail == nil {
		l.tail = e
	}
}

func (l *inMemoryLedger) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		l.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		l.tail = e.prev
	}
	e.prev = nil
	e.next = nil
}

// evictOldest must be called with l.mu held.
func (l *inMemoryLedger) evictOldest() {
	e := l.tail
	if e == nil {
		return
	}
	delete(l.entries, e.key)
	l.unlink(e)
	e.reset()
	l.pool.Put(e)
	l.size.Add(-1)
}
