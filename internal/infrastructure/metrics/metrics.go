package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	eventv1 "github.com/muhammadchandra19/matcher/internal/domain/event/v1"
)

const namespace = "matcher"

// Metrics holds the engine collectors. A nil *Metrics records nothing.
type Metrics struct {
	events          *prometheus.CounterVec
	rejections      *prometheus.CounterVec
	tradedQuantity  *prometheus.CounterVec
	publishFailures *prometheus.CounterVec
	halted          *prometheus.GaugeVec
	pendingStops    *prometheus.GaugeVec
	restingOrders   *prometheus.GaugeVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Events emitted by the engine, by instrument and type.",
		}, []string{"instrument", "type"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejections_total",
			Help:      "Rejected requests, by instrument and reason.",
		}, []string{"instrument", "reason"}),
		tradedQuantity: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "traded_quantity_total",
			Help:      "Quantity executed, by instrument.",
		}, []string{"instrument"}),
		publishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_failures_total",
			Help:      "Event batches that could not be published, by instrument.",
		}, []string{"instrument"}),
		halted: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "instrument_halted",
			Help:      "1 when the instrument stopped accepting requests after an invariant violation.",
		}, []string{"instrument"}),
		pendingStops: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_stop_orders",
			Help:      "Stop orders waiting for their trigger.",
		}, []string{"instrument"}),
		restingOrders: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "resting_orders",
			Help:      "Orders resting on the book.",
		}, []string{"instrument"}),
	}

	reg.MustRegister(m.events, m.rejections, m.tradedQuantity, m.publishFailures, m.halted, m.pendingStops, m.restingOrders)

	return m
}

// ObserveEvents counts a batch of emitted events.
func (m *Metrics) ObserveEvents(events []eventv1.Event) {
	if m == nil {
		return
	}

	for _, e := range events {
		m.events.WithLabelValues(e.Instrument, string(e.Type)).Inc()

		switch e.Type {
		case eventv1.TypeRejected:
			m.rejections.WithLabelValues(e.Instrument, e.Reason).Inc()
		case eventv1.TypeTrade:
			m.tradedQuantity.WithLabelValues(e.Instrument).Add(float64(e.Quantity))
		}
	}
}

// PublishFailed counts a batch that could not be published.
func (m *Metrics) PublishFailed(instrument string) {
	if m == nil {
		return
	}
	m.publishFailures.WithLabelValues(instrument).Inc()
}

// SetHalted records whether the instrument is halted.
func (m *Metrics) SetHalted(instrument string, halted bool) {
	if m == nil {
		return
	}
	value := 0.0
	if halted {
		value = 1
	}
	m.halted.WithLabelValues(instrument).Set(value)
}

// SetBookSize records the resting and pending stop order counts.
func (m *Metrics) SetBookSize(instrument string, resting, pendingStops int) {
	if m == nil {
		return
	}
	m.restingOrders.WithLabelValues(instrument).Set(float64(resting))
	m.pendingStops.WithLabelValues(instrument).Set(float64(pendingStops))
}
