package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"levelbook/config"
	"levelbook/domain"
	"levelbook/engine"
	"levelbook/logging"
	"levelbook/orderbook"
)

func main() {
	cfg := config.NewDefaultConfig()
	if len(os.Args) > 1 {
		var err error
		if cfg, err = config.Load(os.Args[1]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	log, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.AtExit()

	bookOpts, err := cfg.BookOptions()
	if err != nil {
		log.Fatal("invalid book config", zap.Error(err))
	}
	exchange := engine.NewExchange(cfg.Engine,
		engine.WithLogger(log),
		engine.WithBookOptions(bookOpts...))
	defer exchange.Stop()

	log.Info("exchange started", zap.String("price_index", cfg.Book.PriceIndex))

	// Prices arrive as decimals from the feed decoder and rest as ticks
	price := func(s string) domain.Price {
		p, err := domain.ParsePrice(s, cfg.Book.PriceDecimals)
		if err != nil {
			log.Fatal("bad price", zap.String("price", s), zap.Error(err))
		}
		return p
	}

	const symbol = "BTCUSDT"
	ctx := context.Background()
	events := []*domain.Event{
		domain.NewAddEvent("o1", domain.SideBid, price("100.00"), 50),
		domain.NewAddEvent("o2", domain.SideBid, price("100.00"), 30),
		domain.NewCancelEvent("o1"),
		domain.NewAddEvent("o3", domain.SideAsk, price("101.00"), 20),
		domain.NewFillEvent("o3", 25), // over-fill: removes exactly 20
		domain.NewAddEvent("o4", domain.SideBid, price("99.00"), 5),
		domain.NewModifyEvent("o4", 0), // stays resting with nothing left
		domain.NewAddEvent("o5", domain.SideAsk, price("101.50"), 12),
		domain.NewAddEvent("o2", domain.SideAsk, price("102.00"), 1), // duplicate id, rejected
	}
	for _, ev := range events {
		if err := exchange.Submit(ctx, symbol, ev); err != nil {
			log.Fatal("submit failed", zap.Error(err))
		}
	}

	err = exchange.Query(ctx, symbol, func(book *orderbook.OrderBook) {
		for _, side := range []domain.Side{domain.SideBid, domain.SideAsk} {
			stats := book.Stats(side)
			fmt.Printf("%s side: size %d, orders %d\n", side, stats.TotalSize, stats.TotalCount)
			for _, level := range book.Depth(side, 5) {
				fmt.Printf("  %s  size %d  orders %d  %v\n",
					level.Price.Decimal(cfg.Book.PriceDecimals), level.TotalSize, level.OrderCount, level.OrderIDs)
			}
		}
		if err := book.CheckInvariants(); err != nil {
			log.Error("book inconsistent", zap.Error(err))
		}
	})
	if err != nil {
		log.Fatal("query failed", zap.Error(err))
	}
}
