package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"levelbook/domain"
	"levelbook/orderbook"
)

// ErrStopped signals a submit to an engine that has been stopped.
var ErrStopped = errors.New("engine stopped")

const batchSize = 128

// command is one unit of work for the book goroutine: either an update or a read.
type command struct {
	ev    *domain.Event
	query *query
}

const (
	queryPending int32 = iota
	queryRunning
	queryAbandoned
)

// query is a read queued behind updates. Whoever moves state off pending
// first decides whether fn runs.
type query struct {
	fn    func(*orderbook.OrderBook)
	done  chan struct{}
	state atomic.Int32
}

func (q *query) run(book *orderbook.OrderBook) {
	if !q.state.CompareAndSwap(queryPending, queryRunning) {
		return
	}
	q.fn(book)
	close(q.done)
}

// abandon reports whether fn was prevented from running
func (q *query) abandon() bool {
	return q.state.CompareAndSwap(queryPending, queryAbandoned)
}

// commandQueue is a bounded multi-producer, single-consumer queue.
// close waits for in-flight publishes, so no publish ever races the close.
type commandQueue struct {
	ch     chan command
	mu     sync.RWMutex
	closed bool
}

func newCommandQueue(size int) *commandQueue {
	return &commandQueue{
		ch: make(chan command, size),
	}
}

// publish blocks while the queue is full
func (q *commandQueue) publish(ctx context.Context, cmd command) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrStopped
	}
	select {
	case q.ch <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *commandQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}

// batchConsumer holds a local cache so the consumer touches the channel in
// bursts instead of once per command.
type batchConsumer struct {
	q          *commandQueue
	localCache [batchSize]command
	cacheStart int
	cacheEnd   int
}

func (q *commandQueue) newConsumer() *batchConsumer {
	return &batchConsumer{q: q}
}

// consume blocks until a command is available. It returns false once the
// queue is closed and drained.
func (c *batchConsumer) consume() (command, bool) {
	if c.cacheStart < c.cacheEnd {
		cmd := c.localCache[c.cacheStart]
		c.localCache[c.cacheStart] = command{}
		c.cacheStart++
		return cmd, true
	}
	if !c.fillCache() {
		return command{}, false
	}
	cmd := c.localCache[0]
	c.localCache[0] = command{}
	c.cacheStart = 1
	return cmd, true
}

// fillCache blocks for the first command, then takes whatever else is
// already queued without blocking, up to batchSize.
func (c *batchConsumer) fillCache() bool {
	first, ok := <-c.q.ch
	if !ok {
		return false
	}
	c.localCache[0] = first
	acquired := 1

fill:
	for acquired < batchSize {
		select {
		case cmd, ok := <-c.q.ch:
			if !ok {
				break fill
			}
			c.localCache[acquired] = cmd
			acquired++
		default:
			break fill
		}
	}

	c.cacheStart = 0
	c.cacheEnd = acquired
	return true
}
