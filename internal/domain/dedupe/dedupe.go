// Package dedupe guarantees that a confirmed action is performed at most once.
//
// A confirmation page asks the Ledger for a nonce bound to a subject such as
// "<session>:activate:42". Submitting the form consumes the nonce; a second
// submit of the same form finds it gone and is ignored.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Ledger issues and consumes single-use nonces.
type Ledger interface {
	// Issue returns a fresh nonce bound to subject.
	Issue(ctx context.Context, subject string) string

	// Consume reports true exactly once for a live nonce issued for subject.
	// Unknown, expired, already consumed or mismatched nonces report false.
	// A mismatched subject does not burn the nonce.
	Consume(ctx context.Context, nonce, subject string) bool

	Size() int64
}

type entry struct {
	nonce    string
	subject  string
	issuedAt time.Time
}

// inMemoryLedger keeps outstanding nonces in a map plus an issue-order list.
// When full, the oldest outstanding nonce is evicted first.
type inMemoryLedger struct {
	mu      sync.Mutex
	byNonce map[string]*list.Element
	order   *list.List
	maxSize int
	ttl     time.Duration
	now     func() time.Time
	size    atomic.Int64
}

// NewInMemoryLedger creates a ledger with configuration options.
func NewInMemoryLedger(opts ...Option) Ledger {
	l := &inMemoryLedger{
		maxSize: 10000,
		ttl:     15 * time.Minute,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.byNonce = make(map[string]*list.Element)
	l.order = list.New()
	return l
}

func (l *inMemoryLedger) Issue(_ context.Context, subject string) string {
	nonce := uuid.NewString()
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.expireLocked(now)
	if l.maxSize > 0 {
		for l.order.Len() >= l.maxSize {
			l.removeLocked(l.order.Front())
		}
	}
	el := l.order.PushBack(&entry{nonce: nonce, subject: subject, issuedAt: now})
	l.byNonce[nonce] = el
	l.size.Add(1)
	return nonce
}

func (l *inMemoryLedger) Consume(_ context.Context, nonce, subject string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	el, ok := l.byNonce[nonce]
	if !ok {
		return false
	}
	e := el.Value.(*entry)
	if l.ttl > 0 && now.Sub(e.issuedAt) >= l.ttl {
		l.removeLocked(el)
		return false
	}
	if e.subject != subject {
		return false
	}
	l.removeLocked(el)
	return true
}

// expireLocked drops expired entries from the front of the list. Entries are
// in issue order, so the first live one ends the scan.
func (l *inMemoryLedger) expireLocked(now time.Time) {
	if l.ttl <= 0 {
		return
	}
	for el := l.order.Front(); el != nil; el = l.order.Front() {
		if now.Sub(el.Value.(*entry).issuedAt) < l.ttl {
			return
		}
		l.removeLocked(el)
	}
}

func (l *inMemoryLedger) removeLocked(el *list.Element) {
	e := l.order.Remove(el).(*entry)
	delete(l.byNonce, e.nonce)
	l.size.Add(-1)
}

// Size returns the number of outstanding nonces.
func (l *inMemoryLedger) Size() int64 {
	return l.size.Load()
}
