package source

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "camerasrc",
		Subsystem: "source",
		Name:      "session_open",
		Help:      "1 while a camera session is open",
	})

	framesStamped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "camerasrc",
		Subsystem: "source",
		Name:      "frames_stamped_total",
		Help:      "Frames delivered with timing metadata",
	})

	framesPassthrough = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "camerasrc",
		Subsystem: "source",
		Name:      "frames_passthrough_total",
		Help:      "Frames delivered untouched because they carried no timestamp",
	})

	configureSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "camerasrc",
		Subsystem: "source",
		Name:      "configure_seconds",
		Help:      "Duration of successful device configuration calls",
		Buckets:   prometheus.DefBuckets,
	})
)
