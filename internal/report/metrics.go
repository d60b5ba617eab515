package report

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/afero"
	"github.com/wizzomafizzo/gauntlet/internal/constants"
	"github.com/wizzomafizzo/gauntlet/internal/core/engine/unit"
)

// Metrics writes run figures as a Prometheus textfile on close, suitable for
// the node_exporter textfile collector.
type Metrics struct {
	registry     *prometheus.Registry
	examples     *prometheus.CounterVec
	controlGauge *prometheus.GaugeVec
	runDuration  prometheus.Gauge
	fs           afero.Fs
	path         string
	collector
}

// NewMetrics creates a metrics formatter writing to path on fs.
func NewMetrics(fs afero.Fs, path string) *Metrics {
	m := &Metrics{
		fs:       fs,
		path:     path,
		registry: prometheus.NewRegistry(),
		examples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: constants.AppName,
			Name:      "examples_total",
			Help:      "Examples run, by outcome.",
		}, []string{"profile", "status"}),
		controlGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: constants.AppName,
			Name:      "controls",
			Help:      "Controls in the last run, by outcome.",
		}, []string{"profile", "status"}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: constants.AppName,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
	}
	m.registry.MustRegister(m.examples, m.controlGauge, m.runDuration)
	return m
}

// ExampleFinished counts the example outcome.
func (m *Metrics) ExampleFinished(e *unit.Example) {
	m.collector.ExampleFinished(e)
	m.examples.WithLabelValues(e.Metadata.ProfileID, statusName(e.Result().Status)).Inc()
}

// Gatherer exposes the underlying registry.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Close writes the textfile.
func (m *Metrics) Close() error {
	m.finish()
	m.runDuration.Set(m.duration.Seconds())
	m.controlGauge.Reset()
	for _, cs := range m.controls() {
		m.controlGauge.WithLabelValues(cs.Metadata.ProfileID, statusName(cs.Status)).Inc()
	}

	return m.writeTextfile()
}

// writeTextfile renames a temporary file into place so the collector never
// reads a partial file.
func (m *Metrics) writeTextfile() error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("failed to encode metrics: %w", err)
		}
	}

	if err := m.fs.MkdirAll(filepath.Dir(m.path), 0o750); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	tmp := m.path + ".tmp"
	if err := afero.WriteFile(m.fs, tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", m.path, err)
	}
	if err := m.fs.Rename(tmp, m.path); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", m.path, err)
	}
	return nil
}
