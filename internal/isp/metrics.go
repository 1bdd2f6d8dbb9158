package isp

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ispApplies = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "camerasrc",
		Subsystem: "isp",
		Name:      "applies_total",
		Help:      "ISP control apply requests by result",
	}, []string{"result"})

	ispTags = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "camerasrc",
		Subsystem: "isp",
		Name:      "enabled_tags",
		Help:      "ISP control tags enabled by the last apply",
	})
)

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
