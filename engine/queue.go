package engine

import (
	"errors"
	"sync/atomic"
)

var (
	ErrQueueFull   = errors.New("command queue full")
	ErrQueueClosed = errors.New("command queue closed")
)

// CommandQueue is the bounded, single-consumer queue both surfaces enqueue
// into. The control loop drains it at the start of every tick and applies
// commands strictly one at a time; last applied wins on conflicts.
type CommandQueue struct {
	ch     chan Command
	closed atomic.Bool
}

func NewCommandQueue(capacity int) *CommandQueue {
	if capacity <= 0 {
		capacity = 64
	}
	return &CommandQueue{ch: make(chan Command, capacity)}
}

// Enqueue adds a command without blocking. Callers report ErrQueueFull to
// the issuer rather than stalling their render loop.
func (q *CommandQueue) Enqueue(cmd Command) error {
	if q.closed.Load() {
		return ErrQueueClosed
	}
	select {
	case q.ch <- cmd:
		return nil
	default:
		return ErrQueueFull
	}
}

// Drain removes and returns every queued command, in arrival order.
func (q *CommandQueue) Drain() []Command {
	var out []Command
	for {
		select {
		case cmd := <-q.ch:
			out = append(out, cmd)
		default:
			return out
		}
	}
}

// Close stops the queue from accepting new commands. The channel itself is
// never closed: an enqueue racing Close must fail with ErrQueueClosed, not
// panic on a closed channel.
func (q *CommandQueue) Close() {
	q.closed.Store(true)
}
