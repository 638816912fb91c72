// Package orderbook maintains an aggregated limit order book.
//
// The book indexes individual resting orders by id and keeps running
// per-price-level and per-side totals (resting size and order count) as
// orders are added, cancelled, resized and filled. It does no matching.
//
// An OrderBook is single-writer: it has no internal locking and expects
// all calls for one instrument to be serialized by the owner (see the
// engine package).
package orderbook
