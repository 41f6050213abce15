// Package telemetry collects run counters in a private Prometheus registry
// and writes them as a node-exporter style text file at the end of a run.
package telemetry

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "linker"

// Recorder holds the metrics of one run. A nil *Recorder discards
// everything.
type Recorder struct {
	registry *prometheus.Registry

	recordsLoaded  *prometheus.CounterVec
	candidatePairs *prometheus.CounterVec
	comparisons    prometheus.Counter
	dataIssues     *prometheus.CounterVec
	stageDuration  *prometheus.GaugeVec
	fMeasure       *prometheus.GaugeVec
}

// NewRecorder creates a recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		recordsLoaded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_loaded_total",
				Help:      "Records loaded per source",
			},
			[]string{"source"},
		),
		candidatePairs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "candidate_pairs_total",
				Help:      "Candidate pairs produced by the indexer",
			},
			[]string{"indexer"},
		),
		comparisons: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "comparisons_total",
				Help:      "Field comparisons computed",
			},
		),
		dataIssues: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "data_issues_total",
				Help:      "Skipped or defaulted data by kind",
			},
			[]string{"kind"},
		),
		stageDuration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Wall time of each pipeline stage",
			},
			[]string{"stage"},
		),
		fMeasure: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "classifier_f_measure",
				Help:      "F-measure of each classifier against ground truth",
			},
			[]string{"classifier"},
		),
	}
	r.registry.MustRegister(
		r.recordsLoaded,
		r.candidatePairs,
		r.comparisons,
		r.dataIssues,
		r.stageDuration,
		r.fMeasure,
	)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) RecordsLoaded(source string, n int) {
	if r == nil {
		return
	}
	r.recordsLoaded.WithLabelValues(source).Add(float64(n))
}

func (r *Recorder) CandidatePairs(indexer string, n int) {
	if r == nil {
		return
	}
	r.candidatePairs.WithLabelValues(indexer).Add(float64(n))
}

func (r *Recorder) Comparisons(n int) {
	if r == nil {
		return
	}
	r.comparisons.Add(float64(n))
}

// DataIssues adds every count of issues.
func (r *Recorder) DataIssues(issues map[string]int) {
	if r == nil {
		return
	}
	for kind, n := range issues {
		r.dataIssues.WithLabelValues(kind).Add(float64(n))
	}
}

func (r *Recorder) StageDuration(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(stage).Set(d.Seconds())
}

func (r *Recorder) FMeasure(classifier string, f float64) {
	if r == nil {
		return
	}
	r.fMeasure.WithLabelValues(classifier).Set(f)
}

// WriteTextfile writes all metrics in Prometheus text format to path.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}
