// Package metrics instruments gate decisions and funnel stages with Prometheus.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gridfunnel/gridfunnel/funnel"
	"github.com/gridfunnel/gridfunnel/funnel/gate"
)

// Recorder holds the gridfunnel collectors. It satisfies funnel.Observer.
type Recorder struct {
	registry *prometheus.Registry

	GateDecisions *prometheus.CounterVec
	GateEstimated prometheus.Gauge
	GateSubsample prometheus.Gauge
	StageDuration *prometheus.HistogramVec
	StageItems    *prometheus.CounterVec
}

var _ funnel.Observer = (*Recorder)(nil)

// NewRecorder creates the collectors and registers them on reg.
// A nil reg gets a fresh private registry.
func NewRecorder(reg *prometheus.Registry) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	r := &Recorder{
		registry: reg,
		GateDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridfunnel_gate_decisions_total",
				Help: "Admission decisions by action",
			},
			[]string{"action"},
		),
		GateEstimated: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gridfunnel_gate_estimated_bytes",
				Help: "Estimated bytes of the last admitted or blocked workload",
			},
		),
		GateSubsample: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gridfunnel_gate_final_subsample",
				Help: "Subsample rate chosen by the last gate decision",
			},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gridfunnel_stage_duration_seconds",
				Help:    "Wall-clock duration of each funnel stage",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
			},
			[]string{"stage"},
		),
		StageItems: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridfunnel_stage_items_total",
				Help: "Rows processed by each funnel stage",
			},
			[]string{"stage"},
		),
	}
	for _, c := range []prometheus.Collector{r.GateDecisions, r.GateEstimated, r.GateSubsample, r.StageDuration, r.StageItems} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("metrics: register: %w", err)
		}
	}
	return r, nil
}

// Registry returns the registry the collectors live on.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// ObserveStage records one completed funnel stage.
func (r *Recorder) ObserveStage(stage string, items int, elapsed time.Duration) {
	r.StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
	if items > 0 {
		r.StageItems.WithLabelValues(stage).Add(float64(items))
	}
}

// ObserveGate records an admission decision.
func (r *Recorder) ObserveGate(d gate.ActionDecision) {
	r.GateDecisions.WithLabelValues(d.Action.String()).Inc()
	r.GateEstimated.Set(float64(d.Estimates.EstimatedBytes))
	r.GateSubsample.Set(d.FinalSubsample)
}

// WriteTextfile writes every metric on the registry in the text exposition format,
// for pickup by a node_exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("metrics: write %s: %w", path, err)
	}
	return nil
}
