package engine

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"levelbook/domain"
	"levelbook/orderbook"
)

const namespace = "levelbook"

// Metrics exposes per-book update counters and resting totals.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	applied       *prometheus.CounterVec
	rejected      *prometheus.CounterVec
	restingOrders *prometheus.GaugeVec
	restingSize   *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		applied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_applied_total",
			Help:      "Book updates applied, by kind.",
		}, []string{"symbol", "kind"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_rejected_total",
			Help:      "Book updates rejected, by reason.",
		}, []string{"symbol", "reason"}),
		restingOrders: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "resting_orders",
			Help:      "Orders resting on the book.",
		}, []string{"symbol", "side"}),
		restingSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "resting_size",
			Help:      "Total size resting on the book.",
		}, []string{"symbol", "side"}),
	}
	for _, c := range []prometheus.Collector{m.applied, m.rejected, m.restingOrders, m.restingSize} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "registering engine metrics")
		}
	}
	return m, nil
}

func (m *Metrics) observeApplied(symbol string, kind domain.EventKind) {
	if m == nil {
		return
	}
	m.applied.WithLabelValues(symbol, kind.String()).Inc()
}

func (m *Metrics) observeRejected(symbol string, err error) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(symbol, rejectReason(err)).Inc()
}

func (m *Metrics) observeBook(book *orderbook.OrderBook) {
	if m == nil {
		return
	}
	for _, side := range []domain.Side{domain.SideBid, domain.SideAsk} {
		stats := book.Stats(side)
		m.restingOrders.WithLabelValues(book.Symbol(), side.String()).Set(float64(stats.TotalCount))
		m.restingSize.WithLabelValues(book.Symbol(), side.String()).Set(float64(stats.TotalSize))
	}
}

func rejectReason(err error) string {
	switch errors.Cause(err) {
	case orderbook.ErrDuplicateOrderID:
		return "duplicate_order_id"
	case orderbook.ErrInvalidArgument:
		return "invalid_argument"
	case orderbook.ErrInconsistentState:
		return "inconsistent_state"
	default:
		return "unknown"
	}
}
