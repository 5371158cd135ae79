package status

import (
	"sync"
)

const defaultQueueSize = 64

// Queue marshals reports from any goroutine onto a single goroutine that
// delivers them to a sink which need not be thread-safe.
//
// Reports after Close are dropped.
type Queue struct {
	target Sink
	ch     chan string
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewQueue starts the delivery goroutine for target
func NewQueue(target Sink) *Queue {
	q := &Queue{
		target: target,
		ch:     make(chan string, defaultQueueSize),
		done:   make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *Queue) run() {
	defer close(q.done)
	for msg := range q.ch {
		q.target.Report(msg)
	}
}

// Report enqueues msg for delivery. It blocks only while the buffer is full.
func (q *Queue) Report(msg string) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return
	}
	q.ch <- msg
}

// Close stops accepting reports and waits until every queued message has been
// delivered.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	<-q.done
}
