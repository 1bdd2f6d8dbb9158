package branch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	activeBranches = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "camerasrc",
		Subsystem: "branch",
		Name:      "active",
		Help:      "Registered output branches, main branch included",
	})

	negotiations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "camerasrc",
		Subsystem: "branch",
		Name:      "negotiations_total",
		Help:      "Branch format resolutions by result",
	}, []string{"result"})
)
