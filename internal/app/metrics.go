package app

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "fontcompare"

type Metrics struct {
	Renders             prometheus.Counter
	RenderDuration      prometheus.Histogram
	MeasurementFailures prometheus.Counter
	FontLoads           *prometheus.CounterVec
	InertialFrames      prometheus.Counter
	ScrollPosition      prometheus.Gauge
}

// NewMetrics creates the app metrics and registers them with reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Renders: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "renders_total",
			Help:      "Number of comparison render passes.",
		}),
		RenderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "render_duration_seconds",
			Help:      "Duration of comparison render passes.",
			Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
		MeasurementFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "measurement_failures_total",
			Help:      "Render passes that fell back to the minimum strip width.",
		}),
		FontLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "font_loads_total",
			Help:      "Font uploads by result.",
		}, []string{"result"}),
		InertialFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "inertial_frames_total",
			Help:      "Momentum ticks run by the render loop.",
		}),
		ScrollPosition: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "scroll_position_pixels",
			Help:      "Current horizontal scroll position in logical pixels.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Renders, m.RenderDuration, m.MeasurementFailures, m.FontLoads, m.InertialFrames, m.ScrollPosition)
	}
	return m
}
