// Package ledger remembers the last measured usage of each observed node
// so that re-rendered or shrinking content is never counted twice.
package ledger

import (
	"runtime"
	"sync"
	"weak"
)

// Ledger maps node identity to its last recorded usage count.
// Keys are weak pointers: the ledger never extends a node's lifetime, and an
// entry disappears once its node has been garbage collected.
type Ledger[T any] struct {
	mu     sync.Mutex // cleanups run on the runtime's cleanup goroutine
	counts map[weak.Pointer[T]]int
}

// New creates an empty Ledger.
func New[T any]() *Ledger[T] {
	return &Ledger[T]{counts: make(map[weak.Pointer[T]]int)}
}

// Delta records count as the node's new baseline and returns how much it grew
// since the previous measurement. A first sighting has an implicit baseline of 0.
// Shrinking content resets the baseline but reports 0.
func (l *Ledger[T]) Delta(node *T, count int) int {
	if node == nil {
		return 0
	}
	key := weak.Make(node)

	l.mu.Lock()
	defer l.mu.Unlock()

	prev, seen := l.counts[key]
	if seen && prev == count {
		return 0
	}
	if !seen {
		runtime.AddCleanup(node, l.forget, key)
	}
	l.counts[key] = count
	if d := count - prev; d > 0 {
		return d
	}
	return 0
}

// Baseline returns the last recorded count for node, or 0 if it was never seen.
func (l *Ledger[T]) Baseline(node *T) int {
	if node == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[weak.Make(node)]
}

// Len returns the number of live entries.
func (l *Ledger[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.counts)
}

func (l *Ledger[T]) forget(key weak.Pointer[T]) {
	l.mu.Lock()
	delete(l.counts, key)
	l.mu.Unlock()
}
