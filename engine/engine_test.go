package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"levelbook/domain"
	"levelbook/logging"
	"levelbook/orderbook"
)

func metricValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			match := true
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					match = false
				}
			}
			if !match {
				continue
			}
			if c := m.GetCounter(); c != nil {
				return c.GetValue()
			}
			return m.GetGauge().GetValue()
		}
	}
	return 0
}

func TestBookEngineAppliesInOrder(t *testing.T) {
	engine := NewBookEngine("BTCUSDT", NewDefaultConfig(), WithLogger(logging.NewTestLogger()))
	engine.Start()
	defer engine.Stop()

	ctx := context.Background()
	require.NoError(t, engine.Submit(ctx, domain.NewAddEvent("o1", domain.SideBid, 100, 50)))
	require.NoError(t, engine.Submit(ctx, domain.NewAddEvent("o2", domain.SideBid, 100, 30)))
	require.NoError(t, engine.Submit(ctx, domain.NewCancelEvent("o1")))
	require.NoError(t, engine.Submit(ctx, domain.NewAddEvent("o3", domain.SideAsk, 101, 20)))
	require.NoError(t, engine.Submit(ctx, domain.NewFillEvent("o3", 25)))

	var (
		bidStats orderbook.SideStats
		askStats orderbook.SideStats
		level    orderbook.Level
		found    bool
	)
	require.NoError(t, engine.Query(ctx, func(book *orderbook.OrderBook) {
		bidStats = book.BidStats()
		askStats = book.AskStats()
		level, found = book.Level(domain.SideBid, 100)
		assert.NoError(t, book.CheckInvariants())
	}))

	assert.Equal(t, orderbook.SideStats{TotalSize: 30, TotalCount: 1}, bidStats)
	assert.Equal(t, orderbook.SideStats{}, askStats)
	require.True(t, found)
	assert.Equal(t, 1, level.OrderCount)
	assert.Equal(t, "BTCUSDT", engine.Symbol())
}

func TestBookEngineReportsRejections(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	require.NoError(t, err)

	var (
		mu       sync.Mutex
		rejected []error
		events   []domain.Event
	)
	engine := NewBookEngine("ETHUSDT", NewDefaultConfig(),
		WithMetrics(metrics),
		WithErrorHandler(func(symbol string, ev domain.Event, err error) {
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, "ETHUSDT", symbol)
			rejected = append(rejected, err)
			events = append(events, ev)
		}))
	engine.Start()
	defer engine.Stop()

	ctx := context.Background()
	require.NoError(t, engine.Submit(ctx, domain.NewAddEvent("o1", domain.SideAsk, 2000, 5)))
	require.NoError(t, engine.Submit(ctx, domain.NewAddEvent("o1", domain.SideAsk, 2001, 5)))
	require.NoError(t, engine.Submit(ctx, domain.NewFillEvent("o1", 0)))
	require.NoError(t, engine.Submit(ctx, domain.NewCancelEvent("ghost")))
	require.NoError(t, engine.Query(ctx, func(*orderbook.OrderBook) {}))

	mu.Lock()
	require.Len(t, rejected, 2)
	assert.True(t, errors.Is(rejected[0], orderbook.ErrDuplicateOrderID))
	assert.True(t, errors.Is(rejected[1], orderbook.ErrInvalidArgument))
	assert.Equal(t, domain.Price(2001), events[0].Price)
	mu.Unlock()

	assert.Equal(t, 1.0, metricValue(t, reg, "levelbook_events_applied_total",
		map[string]string{"symbol": "ETHUSDT", "kind": "add"}))
	assert.Equal(t, 1.0, metricValue(t, reg, "levelbook_events_applied_total",
		map[string]string{"symbol": "ETHUSDT", "kind": "cancel"}))
	assert.Equal(t, 1.0, metricValue(t, reg, "levelbook_events_rejected_total",
		map[string]string{"symbol": "ETHUSDT", "reason": "duplicate_order_id"}))
	assert.Equal(t, 1.0, metricValue(t, reg, "levelbook_events_rejected_total",
		map[string]string{"symbol": "ETHUSDT", "reason": "invalid_argument"}))
	assert.Equal(t, 5.0, metricValue(t, reg, "levelbook_resting_size",
		map[string]string{"symbol": "ETHUSDT", "side": "ask"}))
	assert.Equal(t, 1.0, metricValue(t, reg, "levelbook_resting_orders",
		map[string]string{"symbol": "ETHUSDT", "side": "ask"}))
}

func TestNewMetricsRejectsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)
	_, err = NewMetrics(reg)
	assert.Error(t, err)
}

func TestStopDrainsQueue(t *testing.T) {
	engine := NewBookEngine("BTCUSDT", Config{QueueSize: 1024})

	ctx := context.Background()
	ids := NewIDGenerator("o")
	for i := 0; i < 500; i++ {
		require.NoError(t, engine.Submit(ctx, domain.NewAddEvent(ids.Next(), domain.SideBid, domain.Price(100+i%7), 1)))
	}

	// never started: Stop must still apply everything queued
	engine.Stop()

	assert.Equal(t, 500, engine.book.Len())
	assert.NoError(t, engine.book.CheckInvariants())

	err := engine.Submit(ctx, domain.NewCancelEvent("x"))
	assert.True(t, errors.Is(err, ErrStopped))
	err = engine.Query(ctx, func(*orderbook.OrderBook) {})
	assert.True(t, errors.Is(err, ErrStopped))

	engine.Stop() // idempotent
}

func TestSubmitHonoursContext(t *testing.T) {
	engine := NewBookEngine("BTCUSDT", Config{QueueSize: 1})
	defer engine.Stop()

	require.NoError(t, engine.Submit(context.Background(), domain.NewAddEvent("o1", domain.SideBid, 1, 1)))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := engine.Submit(ctx, domain.NewAddEvent("o2", domain.SideBid, 1, 1))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestStopWithBlockedProducer(t *testing.T) {
	engine := NewBookEngine("BTCUSDT", Config{QueueSize: 1})
	ctx := context.Background()
	require.NoError(t, engine.Submit(ctx, domain.NewAddEvent("o1", domain.SideBid, 100, 1)))

	submitted := make(chan error, 1)
	go func() {
		// queue is full and nobody consumes: blocks until Stop drains
		submitted <- engine.Submit(ctx, domain.NewAddEvent("o2", domain.SideBid, 100, 1))
	}()
	time.Sleep(20 * time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		engine.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return with a producer blocked on a full queue")
	}

	err := <-submitted
	want := 1
	if err == nil {
		want = 2
	} else {
		assert.True(t, errors.Is(err, ErrStopped))
	}
	assert.Equal(t, want, engine.book.Len())
	assert.NoError(t, engine.book.CheckInvariants())
}

func TestQueryNotRunAfterContextExpires(t *testing.T) {
	engine := NewBookEngine("BTCUSDT", Config{QueueSize: 4})

	var ran atomic.Bool
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	// engine not started: the query stays queued past the deadline
	err := engine.Query(ctx, func(*orderbook.OrderBook) { ran.Store(true) })
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	engine.Stop()
	assert.False(t, ran.Load(), "an abandoned query must not run")
}

func TestConcurrentProducers(t *testing.T) {
	engine := NewBookEngine("BTCUSDT", Config{QueueSize: 256})
	engine.Start()

	const (
		numWorkers = 8
		perWorker  = 1000
	)
	ids := NewIDGenerator("w")
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id := ids.Next()
				side := domain.Side(i % 2)
				price := domain.Price(50000 + (i % 50))
				if err := engine.Submit(ctx, domain.NewAddEvent(id, side, price, 10)); err != nil {
					t.Errorf("worker %d: %v", workerID, err)
					return
				}
				// every other order gets a partial fill, every fourth is cancelled
				if i%2 == 0 {
					_ = engine.Submit(ctx, domain.NewFillEvent(id, 3))
				}
				if i%4 == 0 {
					_ = engine.Submit(ctx, domain.NewCancelEvent(id))
				}
			}
		}(w)
	}
	wg.Wait()

	var (
		resting int
		total   domain.Size
	)
	require.NoError(t, engine.Query(ctx, func(book *orderbook.OrderBook) {
		assert.NoError(t, book.CheckInvariants())
		resting = book.Len()
		total = book.BidStats().TotalSize + book.AskStats().TotalSize
	}))
	engine.Stop()

	// per worker: 1000 added, 250 cancelled, 250 more resting at size 7, 500 at size 10
	assert.Equal(t, numWorkers*750, resting)
	assert.Equal(t, domain.Size(numWorkers*(250*7+500*10)), total)
}

func TestExchangeShardsBySymbol(t *testing.T) {
	exchange := NewExchange(NewDefaultConfig(),
		WithBookOptions(orderbook.WithPriceIndex(orderbook.BTreeType)))
	defer exchange.Stop()

	ctx := context.Background()
	// same order id on two instruments: independent books
	require.NoError(t, exchange.Submit(ctx, "BTCUSDT", domain.NewAddEvent("o1", domain.SideBid, 100, 5)))
	require.NoError(t, exchange.Submit(ctx, "ETHUSDT", domain.NewAddEvent("o1", domain.SideAsk, 200, 7)))

	var btc, eth orderbook.SideStats
	require.NoError(t, exchange.Query(ctx, "BTCUSDT", func(book *orderbook.OrderBook) { btc = book.BidStats() }))
	require.NoError(t, exchange.Query(ctx, "ETHUSDT", func(book *orderbook.OrderBook) { eth = book.AskStats() }))

	assert.Equal(t, orderbook.SideStats{TotalSize: 5, TotalCount: 1}, btc)
	assert.Equal(t, orderbook.SideStats{TotalSize: 7, TotalCount: 1}, eth)
	assert.ElementsMatch(t, []string{"BTCUSDT", "ETHUSDT"}, exchange.Symbols())
	assert.Same(t, exchange.GetEngine("BTCUSDT"), exchange.GetEngine("BTCUSDT"))
}

func TestExchangeStop(t *testing.T) {
	exchange := NewExchange(NewDefaultConfig())
	ctx := context.Background()
	require.NoError(t, exchange.Submit(ctx, "BTCUSDT", domain.NewAddEvent("o1", domain.SideBid, 100, 5)))
	exchange.Stop()

	assert.Nil(t, exchange.GetEngine("SOLUSDT"))
	err := exchange.Submit(ctx, "SOLUSDT", domain.NewAddEvent("o1", domain.SideBid, 100, 5))
	assert.True(t, errors.Is(err, ErrStopped))
	err = exchange.Submit(ctx, "BTCUSDT", domain.NewCancelEvent("o1"))
	assert.True(t, errors.Is(err, ErrStopped))
}

func TestIDGenerator(t *testing.T) {
	gen := NewIDGenerator("L")
	assert.Equal(t, domain.OrderID("L1"), gen.Next())
	assert.Equal(t, domain.OrderID("L2"), gen.Next())

	seen := sync.Map{}
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				_, dup := seen.LoadOrStore(gen.Next(), struct{}{})
				assert.False(t, dup)
			}
		}()
	}
	wg.Wait()
}

func TestBatchConsumer(t *testing.T) {
	q := newCommandQueue(512)
	ctx := context.Background()
	for i := 0; i < 300; i++ {
		require.NoError(t, q.publish(ctx, command{ev: domain.NewAddEvent("o", domain.SideBid, domain.Price(i), 1)}))
	}
	q.close()

	consumer := q.newConsumer()
	for i := 0; i < 300; i++ {
		cmd, ok := consumer.consume()
		require.True(t, ok)
		assert.Equal(t, domain.Price(i), cmd.ev.Price, "FIFO order")
	}
	_, ok := consumer.consume()
	assert.False(t, ok)
	assert.True(t, errors.Is(q.publish(ctx, command{}), ErrStopped))
}
