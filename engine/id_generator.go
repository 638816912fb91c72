package engine

import (
	"strconv"
	"sync/atomic"

	"levelbook/domain"
)

// IDGenerator hands out order ids of the form prefix + counter ("L1", "L2"...).
// Uniqueness is guaranteed by the atomic counter; safe for concurrent use.
type IDGenerator struct {
	prefix  string
	counter atomic.Uint64
}

// NewIDGenerator creates a new ID generator
func NewIDGenerator(prefix string) *IDGenerator {
	return &IDGenerator{prefix: prefix}
}

// Next generates the next unique ID
func (g *IDGenerator) Next() domain.OrderID {
	count := g.counter.Add(1)
	buf := make([]byte, 0, len(g.prefix)+20)
	buf = append(buf, g.prefix...)
	buf = strconv.AppendUint(buf, count, 10)
	return domain.OrderID(buf)
}
