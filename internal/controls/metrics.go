package controls

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	controlSets = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "camerasrc",
		Subsystem: "controls",
		Name:      "sets_total",
		Help:      "Control set requests by control and result",
	}, []string{"control", "result"})

	controlClamps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "camerasrc",
		Subsystem: "controls",
		Name:      "clamps_total",
		Help:      "Values clamped into the camera's per-scene range",
	}, []string{"control"})

	parameterPushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "camerasrc",
		Subsystem: "controls",
		Name:      "parameter_pushes_total",
		Help:      "Full parameter set pushes to the camera by result",
	}, []string{"result"})
)

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
