// Package offlinequeue implements the client's outbound message FIFO,
// grounded line-for-line on original_source's
// src-tauri/src/sync/offline_queue.rs (a Mutex<VecDeque<WsMessage>>)
// reshaped into a Go mutex-protected slice.
package offlinequeue

import (
	"sync"

	"github.com/splenwilz/clipslot/internal/protocol"
)

// Queue holds outbound relay messages awaiting a live connection. The
// only de-duplication rule is slot-update collapsing; history pushes are
// never collapsed.
type Queue struct {
	mu    sync.Mutex
	items []any
}

func New() *Queue {
	return &Queue{}
}

// Enqueue appends msg, first removing any previously queued SlotUpdate for
// the same slot number.
func (q *Queue) Enqueue(msg any) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if su, ok := msg.(protocol.SlotUpdate); ok {
		filtered := q.items[:0:0]
		for _, existing := range q.items {
			if existingSU, ok := existing.(protocol.SlotUpdate); ok && existingSU.SlotNumber == su.SlotNumber {
				continue
			}
			filtered = append(filtered, existing)
		}
		q.items = filtered
	}

	q.items = append(q.items, msg)
}

// Drain atomically removes and returns every queued message in order.
func (q *Queue) Drain() []any {
	q.mu.Lock()
	defer q.mu.Unlock()

	drained := q.items
	q.items = nil
	return drained
}

// Requeue puts messages back at the front of the queue, in their original
// order, for when a send fails partway through a flush.
func (q *Queue) Requeue(messages []any) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(messages, q.items...)
}

func (q *Queue) IsEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0
}
