package utils

import (
	"fmt"
	"sync"

	"github.com/gethiox/keystation/internal/pkg/logger"
)

// Queue is an unbounded multi-producer single-consumer queue. Push never blocks,
// values of one producer come out in the order they went in.
type Queue[T any] struct {
	name string
	warn int

	mu     sync.Mutex
	items  []T
	closed bool
	warned bool
	high   int

	notify chan struct{}
	out    chan T
}

// NewQueue starts the delivery goroutine. A warning is logged when the backlog
// reaches warn values, 0 disables it.
func NewQueue[T any](name string, warn int) *Queue[T] {
	q := &Queue[T]{
		name:   name,
		warn:   warn,
		notify: make(chan struct{}, 1),
		out:    make(chan T),
	}
	go q.run()
	return q
}

func (q *Queue[T]) run() {
	var zero T
	for {
		q.mu.Lock()
		for len(q.items) == 0 {
			if q.closed {
				q.mu.Unlock()
				close(q.out)
				return
			}
			q.mu.Unlock()
			<-q.notify
			q.mu.Lock()
		}
		v := q.items[0]
		q.items[0] = zero
		q.items = q.items[1:]
		if q.warned && len(q.items) <= q.warn/2 {
			q.warned = false
		}
		q.mu.Unlock()

		q.out <- v
	}
}

func (q *Queue[T]) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Push returns false once the queue is closed.
func (q *Queue[T]) Push(v T) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, v)
	n := len(q.items)
	if n > q.high {
		q.high = n
	}
	warn := q.warn > 0 && n >= q.warn && !q.warned
	if warn {
		q.warned = true
	}
	q.mu.Unlock()

	if warn {
		log.Info(fmt.Sprintf("[%s] queue backlog reached %d, consumer is falling behind", q.name, n), logger.Warning)
	}
	q.wake()
	return true
}

// Out delivers queued values, it is closed after Close once everything was delivered.
func (q *Queue[T]) Out() <-chan T {
	return q.out
}

// Len returns the number of values waiting for the consumer.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// HighWatermark returns the largest backlog seen so far.
func (q *Queue[T]) HighWatermark() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.high
}

func (q *Queue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wake()
}
