package tzraster

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var buildInfo struct {
	version, revision string
	built             float64
}

// SetBuildInfo records the version, git hash and build time reported with
// every run's metrics.
func SetBuildInfo(version, commit, date string) {
	buildInfo.version = version
	buildInfo.revision = commit
	buildInfo.built = 0
	if t, err := time.Parse(time.RFC3339, date); err == nil {
		buildInfo.built = float64(t.Unix())
	}
}

// runMetrics describes one compile run, for a node exporter textfile collector.
type runMetrics struct {
	registry       *prometheus.Registry
	buildInfo      *prometheus.GaugeVec
	buildTime      prometheus.Gauge
	features       prometheus.Gauge
	timezones      prometheus.Gauge
	skipped        prometheus.Gauge
	pixels         *prometheus.GaugeVec
	paintedPixels  prometheus.Gauge
	stepDuration   *prometheus.GaugeVec
	lastSuccessful prometheus.Gauge
}

func newRunMetrics() *runMetrics {
	m := &runMetrics{
		registry: prometheus.NewRegistry(),
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "tzraster",
			Name:      "buildinfo",
		}, []string{"version", "revision"}),
		buildTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tzraster",
			Name:      "buildtime",
		}),
		features: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tzraster",
			Name:      "dataset_features",
			Help:      "Polygon features read from the dataset",
		}),
		timezones: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tzraster",
			Name:      "dataset_timezones",
			Help:      "Distinct timezone identifiers in the dataset",
		}),
		skipped: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tzraster",
			Name:      "dataset_skipped_features",
			Help:      "Features without polygon geometry",
		}),
		pixels: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "tzraster",
			Name:      "image_pixels",
			Help:      "Pixels per timezone in the rendered image",
		}, []string{"tzid"}),
		paintedPixels: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tzraster",
			Name:      "render_painted_pixels",
			Help:      "Pixel writes made while rendering, overdraw included",
		}),
		stepDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "tzraster",
			Name:      "step_duration_seconds",
			Help:      "Duration of each pipeline step",
		}, []string{"step"}),
		lastSuccessful: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tzraster",
			Name:      "last_success_timestamp_seconds",
		}),
	}
	m.registry.MustRegister(m.buildInfo, m.buildTime, m.features, m.timezones, m.skipped,
		m.pixels, m.paintedPixels, m.stepDuration, m.lastSuccessful)

	m.buildInfo.WithLabelValues(buildInfo.version, buildInfo.revision).Set(1)
	m.buildTime.Set(buildInfo.built)
	return m
}

// step times one pipeline step: defer m.step("render")()
func (m *runMetrics) step(name string) func() {
	start := time.Now()
	return func() {
		m.stepDuration.WithLabelValues(name).Set(time.Since(start).Seconds())
	}
}

func (m *runMetrics) observeLayer(layer *Layer, timezones int) {
	m.features.Set(float64(len(layer.Features)))
	m.skipped.Set(float64(layer.Skipped))
	m.timezones.Set(float64(timezones))
}

func (m *runMetrics) observePixels(counts map[string]int) {
	for tzid, n := range counts {
		m.pixels.WithLabelValues(tzid).Set(float64(n))
	}
}

func (m *runMetrics) writeTextfile(path string) error {
	m.lastSuccessful.SetToCurrentTime()
	return prometheus.WriteToTextfile(path, m.registry)
}
