package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"runtime/pprof"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"levelbook/config"
	"levelbook/domain"
	"levelbook/engine"
	"levelbook/logging"
	"levelbook/orderbook"
)

type flags struct {
	configPath string
	duration   time.Duration
	symbols    []string
	workers    int
	levels     int
	cpuProfile string
}

func main() {
	var f flags
	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Drive random add/cancel/modify/fill updates through the book engines",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), f)
		},
		SilenceUsage: true,
	}
	cmd.Flags().StringVar(&f.configPath, "config", "", "path to a YAML config file")
	cmd.Flags().DurationVar(&f.duration, "duration", 5*time.Second, "how long to generate load")
	cmd.Flags().StringSliceVar(&f.symbols, "symbols", []string{"BTCUSDT"}, "instruments, one book each")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "producers per symbol (default NumCPU-2)")
	cmd.Flags().IntVar(&f.levels, "levels", 200, "distinct prices per side")
	cmd.Flags().StringVar(&f.cpuProfile, "cpuprofile", "", "write a CPU profile to this file")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, f flags) error {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer log.AtExit()

	if f.cpuProfile != "" {
		out, err := os.Create(f.cpuProfile)
		if err != nil {
			return errors.Wrap(err, "creating cpu profile")
		}
		defer out.Close()
		if err := pprof.StartCPUProfile(out); err != nil {
			return errors.Wrap(err, "starting cpu profile")
		}
		defer pprof.StopCPUProfile()
	}

	bookOpts, err := cfg.BookOptions()
	if err != nil {
		return err
	}
	reg := prometheus.NewRegistry()
	metrics, err := engine.NewMetrics(reg)
	if err != nil {
		return err
	}

	var rejected atomic.Int64
	exchange := engine.NewExchange(cfg.Engine,
		engine.WithLogger(log),
		engine.WithMetrics(metrics),
		engine.WithBookOptions(bookOpts...),
		engine.WithErrorHandler(func(string, domain.Event, error) {
			rejected.Add(1)
		}))
	defer exchange.Stop()

	workers := f.workers
	if workers <= 0 {
		workers = max(runtime.NumCPU()-2, 1)
	}

	log.Info("starting load",
		zap.Strings("symbols", f.symbols),
		zap.Int("workers_per_symbol", workers),
		zap.Duration("duration", f.duration),
		zap.String("price_index", cfg.Book.PriceIndex))

	var (
		submitted atomic.Int64
		wg        sync.WaitGroup
		ids       = engine.NewIDGenerator("L")
	)
	loadCtx, cancel := context.WithTimeout(ctx, f.duration)
	defer cancel()

	startTime := time.Now()
	for _, symbol := range f.symbols {
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func(symbol string, seed int64) {
				defer wg.Done()
				produce(loadCtx, exchange, symbol, ids, rand.New(rand.NewSource(seed)), f.levels, &submitted)
			}(symbol, int64(w+1))
		}
	}
	wg.Wait()

	// let the engines catch up
	for _, symbol := range f.symbols {
		if err := exchange.Query(ctx, symbol, func(*orderbook.OrderBook) {}); err != nil {
			return err
		}
	}
	elapsed := time.Since(startTime)

	fmt.Println("\n=== Results ===")
	fmt.Printf("Duration:     %v\n", elapsed)
	fmt.Printf("Updates:      %d\n", submitted.Load())
	fmt.Printf("Throughput:   %.0f updates/sec\n", float64(submitted.Load())/elapsed.Seconds())
	fmt.Printf("Rejected:     %d\n", rejected.Load())

	for _, symbol := range f.symbols {
		if err := printBook(ctx, exchange, symbol, cfg.Book.PriceDecimals); err != nil {
			return err
		}
	}
	return nil
}

// produce submits a random mix of updates until ctx expires:
// 50% add, 20% cancel, 15% modify, 15% fill of orders this producer added
func produce(ctx context.Context, exchange *engine.Exchange, symbol string, ids *engine.IDGenerator,
	rng *rand.Rand, levels int, submitted *atomic.Int64,
) {
	live := make([]domain.OrderID, 0, 1024)
	for ctx.Err() == nil {
		var ev *domain.Event
		roll := rng.Intn(100)
		if roll < 50 || len(live) == 0 {
			id := ids.Next()
			side := domain.Side(rng.Intn(2))
			// bids below 50000, asks from 50000 up
			price := domain.Price(50000 + rng.Intn(levels))
			if side == domain.SideBid {
				price = domain.Price(50000 - 1 - rng.Intn(levels))
			}
			ev = domain.NewAddEvent(id, side, price, domain.Size(1+rng.Intn(100)))
			if len(live) < cap(live) {
				live = append(live, id)
			} else {
				live[rng.Intn(len(live))] = id
			}
		} else {
			i := rng.Intn(len(live))
			id := live[i]
			switch {
			case roll < 70:
				ev = domain.NewCancelEvent(id)
				live[i] = live[len(live)-1]
				live = live[:len(live)-1]
			case roll < 85:
				ev = domain.NewModifyEvent(id, domain.Size(rng.Intn(100)))
			default:
				ev = domain.NewFillEvent(id, domain.Size(1+rng.Intn(50)))
			}
		}
		if err := exchange.Submit(ctx, symbol, ev); err != nil {
			return
		}
		submitted.Add(1)
	}
}

func printBook(ctx context.Context, exchange *engine.Exchange, symbol string, decimals int32) error {
	var (
		bids, asks []orderbook.Level
		bidStats   orderbook.SideStats
		askStats   orderbook.SideStats
		resting    int
		checkErr   error
	)
	err := exchange.Query(ctx, symbol, func(book *orderbook.OrderBook) {
		bids = book.Depth(domain.SideBid, 5)
		asks = book.Depth(domain.SideAsk, 5)
		bidStats = book.BidStats()
		askStats = book.AskStats()
		resting = book.Len()
		checkErr = book.CheckInvariants()
	})
	if err != nil {
		return err
	}

	fmt.Printf("\n=== %s ===\n", symbol)
	fmt.Printf("Resting orders: %d\n", resting)
	fmt.Printf("Bid side:       size %d, orders %d\n", bidStats.TotalSize, bidStats.TotalCount)
	fmt.Printf("Ask side:       size %d, orders %d\n", askStats.TotalSize, askStats.TotalCount)
	if checkErr != nil {
		fmt.Printf("Invariants:     FAILED: %v\n", checkErr)
	} else {
		fmt.Println("Invariants:     ok")
	}

	fmt.Println("Bids (top 5):")
	for i, level := range bids {
		fmt.Printf("  %d. price: %s, size: %d, orders: %d\n",
			i+1, level.Price.Decimal(decimals), level.TotalSize, level.OrderCount)
	}
	fmt.Println("Asks (top 5):")
	for i, level := range asks {
		fmt.Printf("  %d. price: %s, size: %d, orders: %d\n",
			i+1, level.Price.Decimal(decimals), level.TotalSize, level.OrderCount)
	}
	return checkErr
}
