package async

import (
	"sync"

	"github.com/spiral-lang/spiral/pkg/types"
)

// boundedChannel is a bounded FIFO queue with send/recv/close semantics
// (spec.md §4.7). Every kind (mpsc/spsc/mpmc/broadcast) uses this same
// single queue: the kind is recorded but not acted on, so a broadcast
// channel hands each value to one receiver and does not fan it out to
// every receiver. The scheduler runs at most
// one goroutine at a time (serialized by its token), so the internal
// mutex here only guards against the brief overlap between a task
// goroutine's own operations and the bookkeeping the scheduler does while
// handing the token around — it is not load-bearing concurrency control.
type boundedChannel struct {
	mu       sync.Mutex
	kind     string
	capacity int
	buf      []types.Value
	closed   bool
}

func newBoundedChannel(kind string, capacity int) *boundedChannel {
	return &boundedChannel{kind: kind, capacity: capacity}
}

// trySend appends v if there is room, reporting false (not an error) if
// the channel is full, and an Error if the channel is closed.
func (c *boundedChannel) trySend(v types.Value) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false, types.NewDomainError("send on closed channel")
	}
	if len(c.buf) >= c.capacity {
		return false, nil
	}
	c.buf = append(c.buf, v)
	return true, nil
}

// tryRecv pops the head if present. drained reports true once a closed,
// empty channel has been fully consumed, distinguishing it from a merely
// empty-but-open channel (ok=false, drained=false in that case).
func (c *boundedChannel) tryRecv() (v types.Value, ok bool, drained bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.buf) > 0 {
		v = c.buf[0]
		c.buf = c.buf[1:]
		return v, true, false
	}
	if c.closed {
		return types.Value{}, false, true
	}
	return types.Value{}, false, false
}

func (c *boundedChannel) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *boundedChannel) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buf)
}
