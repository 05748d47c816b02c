package delivery

import (
	"context"
	"sync"
)

// Queue is an ordered buffer of outbound messages. Implementations must
// preserve FIFO order. A queue belongs to one broadcaster instance.
type Queue interface {
	Enqueue(ctx context.Context, m Message) error
	// Dequeue pops the head. ok is false when the queue is empty.
	Dequeue(ctx context.Context) (m Message, ok bool, err error)
	Len(ctx context.Context) (int, error)
}

// MemoryQueue is an unbounded in-process Queue.
type MemoryQueue struct {
	mu    sync.Mutex
	items []Message
}

// NewMemoryQueue returns an empty MemoryQueue.
func NewMemoryQueue() *MemoryQueue { return &MemoryQueue{} }

// Enqueue appends m at the tail. It never fails.
func (q *MemoryQueue) Enqueue(_ context.Context, m Message) error {
	q.mu.Lock()
	q.items = append(q.items, m)
	q.mu.Unlock()
	queueDepth.Inc()
	return nil
}

// Dequeue pops the head; ok is false on an empty queue.
func (q *MemoryQueue) Dequeue(_ context.Context) (Message, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Message{}, false, nil
	}
	m := q.items[0]
	q.items[0] = Message{}
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	queueDepth.Dec()
	return m, true, nil
}

// Len reports the number of queued messages.
func (q *MemoryQueue) Len(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items), nil
}
