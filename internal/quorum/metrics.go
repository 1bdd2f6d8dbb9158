package quorum

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	configureCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "camerasrc",
		Subsystem: "quorum",
		Name:      "configure_calls_total",
		Help:      "Device configuration calls by result",
	}, []string{"result"})

	waitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "camerasrc",
		Subsystem: "quorum",
		Name:      "arrive_seconds",
		Help:      "Time a branch spends in Arrive",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
	})
)
