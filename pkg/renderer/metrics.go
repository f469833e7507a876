package renderer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds render counters on a private registry.
// Nothing is served over the network; use WriteToTextfile to export.
type Metrics struct {
	Registry *prometheus.Registry

	pixels   prometheus.Counter
	samples  prometheus.Counter
	rows     prometheus.Counter
	duration prometheus.Gauge
}

// NewMetrics creates and registers the render metrics
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		pixels: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "raytracer",
			Name:      "pixels_rendered_total",
			Help:      "Number of pixels fully rendered.",
		}),
		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "raytracer",
			Name:      "samples_total",
			Help:      "Number of camera rays traced.",
		}),
		rows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "raytracer",
			Name:      "rows_rendered_total",
			Help:      "Number of image rows fully rendered.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "raytracer",
			Name:      "render_duration_seconds",
			Help:      "Wall-clock duration of the last render.",
		}),
	}
	m.Registry.MustRegister(m.pixels, m.samples, m.rows, m.duration)
	return m
}

func (m *Metrics) observePixel(samples int) {
	m.pixels.Inc()
	m.samples.Add(float64(samples))
}

func (m *Metrics) observeRow() {
	m.rows.Inc()
}

func (m *Metrics) observeDuration(d time.Duration) {
	m.duration.Set(d.Seconds())
}

// WriteToTextfile writes the metrics in the Prometheus text format, for the node exporter textfile collector
func (m *Metrics) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
