//
// Copyright (c) 2024 Markku Rossi
//
// All rights reserved.
//

// Package metrics exports mapping pass results as Prometheus metrics.
package metrics

import (
	"io"

	"github.com/markkurossi/techmap/mapper"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Metric labels.
const (
	ModeLabel  = "mode"
	StageLabel = "stage"
)

// Recorder implements mapper.Observer and records the pass results
// into its registry.
type Recorder struct {
	registry  *prometheus.Registry
	passes    *prometheus.CounterVec
	restored  *prometheus.CounterVec
	failures  *prometheus.CounterVec
	area      *prometheus.GaugeVec
	delay     *prometheus.GaugeVec
	switching *prometheus.GaugeVec
	duration  *prometheus.HistogramVec
}

var _ mapper.Observer = &Recorder{}

// NewRecorder creates a new recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		passes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "techmap_passes_total",
				Help: "Number of completed mapping passes",
			},
			[]string{ModeLabel},
		),
		restored: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "techmap_passes_restored_total",
				Help: "Number of passes whose result was rolled back",
			},
			[]string{ModeLabel},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "techmap_failures_total",
				Help: "Number of failed mapping stages",
			},
			[]string{StageLabel},
		),
		area: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "techmap_area",
				Help: "Mapped area after the pass",
			},
			[]string{ModeLabel},
		),
		delay: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "techmap_delay",
				Help: "Mapped delay after the pass",
			},
			[]string{ModeLabel},
		),
		switching: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "techmap_switching",
				Help: "Estimated switching activity after the pass",
			},
			[]string{ModeLabel},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "techmap_pass_duration_seconds",
				Help:    "Mapping pass duration",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{ModeLabel},
		),
	}
	r.registry.MustRegister(r.passes, r.restored, r.failures, r.area,
		r.delay, r.switching, r.duration)
	return r
}

// Registry returns the recorder's registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObservePass implements mapper.Observer.ObservePass.
func (r *Recorder) ObservePass(p mapper.PassResult) {
	mode := p.Mode.String()

	r.passes.WithLabelValues(mode).Inc()
	if p.Restored {
		r.restored.WithLabelValues(mode).Inc()
	}
	r.area.WithLabelValues(mode).Set(p.Area)
	r.delay.WithLabelValues(mode).Set(p.Delay)
	r.switching.WithLabelValues(mode).Set(p.Switching)
	r.duration.WithLabelValues(mode).Observe(p.Duration.Seconds())
}

// ObserveFailure implements mapper.Observer.ObserveFailure.
func (r *Recorder) ObserveFailure(stage string, err error) {
	r.failures.WithLabelValues(stage).Inc()
}

// Gather returns the recorded metric families.
func (r *Recorder) Gather() ([]*dto.MetricFamily, error) {
	return r.registry.Gather()
}

// Write writes the recorded metrics to out in the Prometheus text
// exposition format.
func (r *Recorder) Write(out io.Writer) error {
	families, err := r.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(out, expfmt.FmtText)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
