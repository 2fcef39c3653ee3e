package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/clearbid/auction-engine/internal/domain/values"
)

var (
	bidsPlacedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "abe",
			Subsystem: "bid",
			Name:      "placed_total",
			Help:      "Total number of accepted bids",
		},
	)

	bidsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "abe",
			Subsystem: "bid",
			Name:      "rejected_total",
			Help:      "Total number of rejected bids",
		},
		[]string{"code"},
	)

	bidAmount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "abe",
			Subsystem: "bid",
			Name:      "amount_credits",
			Help:      "Accepted bid amounts in credits",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 10),
		},
	)

	deadlineExtensionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "abe",
			Subsystem: "auction",
			Name:      "deadline_extensions_total",
			Help:      "Total number of anti-snipe deadline extensions",
		},
	)

	settlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "abe",
			Subsystem: "auction",
			Name:      "settlements_total",
			Help:      "Total number of settled auctions",
		},
		[]string{"status"},
	)
)

// promCollector adapts the prometheus metrics to the services' collector
// contracts.
type promCollector struct{}

func (promCollector) RecordBidPlaced(amount values.Credits) {
	bidsPlacedTotal.Inc()
	f, _ := amount.Amount().Float64()
	bidAmount.Observe(f)
}

func (promCollector) RecordBidRejected(code string) {
	bidsRejectedTotal.WithLabelValues(code).Inc()
}

func (promCollector) RecordDeadlineExtended() {
	deadlineExtensionsTotal.Inc()
}

func (promCollector) RecordSettlement(status string) {
	settlementsTotal.WithLabelValues(status).Inc()
}
