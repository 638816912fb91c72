package engine

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"levelbook/domain"
	"levelbook/logging"
	"levelbook/orderbook"
)

// ErrorHandler is told about every update the book rejected.
// It runs on the book goroutine and must not block.
type ErrorHandler func(symbol string, ev domain.Event, err error)

// Option configures a BookEngine
type Option func(*options)

type options struct {
	log      *logging.Logger
	metrics  *Metrics
	onError  ErrorHandler
	bookOpts []orderbook.Option
}

func WithLogger(log *logging.Logger) Option {
	return func(o *options) { o.log = log }
}

func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func WithErrorHandler(h ErrorHandler) Option {
	return func(o *options) { o.onError = h }
}

// WithBookOptions forwards options to every order book the engine creates
func WithBookOptions(opts ...orderbook.Option) Option {
	return func(o *options) { o.bookOpts = append(o.bookOpts, opts...) }
}

// BookEngine applies updates to the order book of ONE symbol.
// Architecture:
//   - Producers hand updates to a bounded queue from any goroutine
//   - One goroutine, locked to an OS thread, owns the book and applies updates in arrival order
//   - Reads go through the same queue, so they never see a half-applied update
type BookEngine struct {
	symbol  string
	book    *orderbook.OrderBook
	queue   *commandQueue
	log     *logging.Logger
	metrics *Metrics
	onError ErrorHandler

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
}

// NewBookEngine creates an engine for a symbol. Call Start before submitting.
func NewBookEngine(symbol string, cfg Config, opts ...Option) *BookEngine {
	o := options{log: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = NewDefaultConfig().QueueSize
	}

	bookOpts := append([]orderbook.Option{orderbook.WithLogger(o.log)}, o.bookOpts...)
	return &BookEngine{
		symbol:  symbol,
		book:    orderbook.NewOrderBook(symbol, bookOpts...),
		queue:   newCommandQueue(queueSize),
		log:     o.log.Named("engine").With(zap.String("symbol", symbol)),
		metrics: o.metrics,
		onError: o.onError,
		done:    make(chan struct{}),
	}
}

func (me *BookEngine) Symbol() string {
	return me.symbol
}

// Start starts the book goroutine
func (me *BookEngine) Start() {
	me.startOnce.Do(func() {
		go me.run()
	})
}

func (me *BookEngine) run() {
	// Lock this goroutine to an OS thread to reduce context switches
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(me.done)

	consumer := me.queue.newConsumer()
	for {
		cmd, ok := consumer.consume()
		if !ok {
			return
		}
		if cmd.query != nil {
			cmd.query.run(me.book)
			continue
		}
		me.apply(cmd.ev)
	}
}

func (me *BookEngine) apply(ev *domain.Event) {
	defer ev.Destroy()

	if err := me.book.Apply(ev); err != nil {
		me.metrics.observeRejected(me.symbol, err)
		me.log.Warn("book update rejected",
			zap.Stringer("kind", ev.Kind),
			zap.String("order_id", string(ev.OrderID)),
			zap.Error(err))
		if me.onError != nil {
			me.onError(me.symbol, *ev, err)
		}
		return
	}
	me.metrics.observeApplied(me.symbol, ev.Kind)
	me.metrics.observeBook(me.book)
}

// Submit queues an update, blocking while the queue is full.
// The engine takes ownership of ev and returns it to the pool once applied,
// or immediately if it could not be queued.
func (me *BookEngine) Submit(ctx context.Context, ev *domain.Event) error {
	if err := me.queue.publish(ctx, command{ev: ev}); err != nil {
		ev.Destroy()
		return err
	}
	return nil
}

// Query runs fn against the book on the book goroutine, after every update
// queued before it, and waits for it to return. fn must not retain the book.
// When Query returns an error fn has not run and never will.
func (me *BookEngine) Query(ctx context.Context, fn func(*orderbook.OrderBook)) error {
	q := &query{fn: fn, done: make(chan struct{})}
	if err := me.queue.publish(ctx, command{query: q}); err != nil {
		return err
	}
	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		if q.abandon() {
			return ctx.Err()
		}
		// fn already started, wait for it
		<-q.done
		return nil
	}
}

// Stop stops accepting updates, applies everything already queued and waits
// for the book goroutine to exit
func (me *BookEngine) Stop() {
	me.stopOnce.Do(func() {
		// the consumer must run before close: close waits for blocked publishers
		me.Start()
		me.queue.close()
		<-me.done
	})
}

// Exchange manages BookEngines (one per symbol)
// Performance optimization: Uses atomic.Value for lock-free reads
//   - atomic.Value stores an immutable map[string]*BookEngine
//   - Write path uses copy-on-write (rare, only when adding new symbols)
type Exchange struct {
	engines atomic.Value // map[string]*BookEngine, copy-on-write
	mu      sync.Mutex   // only taken when creating engines
	stopped bool
	cfg     Config
	opts    []Option
}

// NewExchange creates an exchange; every engine it creates shares cfg and opts
func NewExchange(cfg Config, opts ...Option) *Exchange {
	e := &Exchange{cfg: cfg, opts: opts}
	e.engines.Store(make(map[string]*BookEngine))
	return e
}

// GetEngine returns the running engine for a symbol, creating it if needed.
// Returns nil after Stop.
func (e *Exchange) GetEngine(symbol string) *BookEngine {
	// Fast path: lock-free read
	engines := e.engines.Load().(map[string]*BookEngine)
	if engine, ok := engines[symbol]; ok {
		return engine
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return nil
	}

	// Double-check: another goroutine might have created it
	engines = e.engines.Load().(map[string]*BookEngine)
	if engine, ok := engines[symbol]; ok {
		return engine
	}

	engine := NewBookEngine(symbol, e.cfg, e.opts...)
	engine.Start()

	newEngines := make(map[string]*BookEngine, len(engines)+1)
	for k, v := range engines {
		newEngines[k] = v
	}
	newEngines[symbol] = engine
	e.engines.Store(newEngines)

	return engine
}

// Submit routes an update to the engine of its symbol
func (e *Exchange) Submit(ctx context.Context, symbol string, ev *domain.Event) error {
	engine := e.GetEngine(symbol)
	if engine == nil {
		ev.Destroy()
		return ErrStopped
	}
	return engine.Submit(ctx, ev)
}

// Query runs fn against the book of symbol, see BookEngine.Query
func (e *Exchange) Query(ctx context.Context, symbol string, fn func(*orderbook.OrderBook)) error {
	engine := e.GetEngine(symbol)
	if engine == nil {
		return ErrStopped
	}
	return engine.Query(ctx, fn)
}

// Symbols returns the symbols with an engine, in no particular order
func (e *Exchange) Symbols() []string {
	engines := e.engines.Load().(map[string]*BookEngine)
	symbols := make([]string, 0, len(engines))
	for symbol := range engines {
		symbols = append(symbols, symbol)
	}
	return symbols
}

// Stop drains and stops every engine
func (e *Exchange) Stop() {
	e.mu.Lock()
	e.stopped = true
	e.mu.Unlock()

	var wg sync.WaitGroup
	for _, engine := range e.engines.Load().(map[string]*BookEngine) {
		wg.Add(1)
		go func(engine *BookEngine) {
			defer wg.Done()
			engine.Stop()
		}(engine)
	}
	wg.Wait()
}
