package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/EmnaWalha99/Job-Portal/internal/progress"
)

// PrometheusSink exports pipeline progress via Prometheus collectors it owns.
type PrometheusSink struct {
	runsStarted   prometheus.Counter
	runsCompleted *prometheus.CounterVec
	runsRunning   prometheus.Gauge
	runDuration   *prometheus.HistogramVec

	tasksCompleted *prometheus.CounterVec
	taskDuration   *prometheus.HistogramVec
	stageSucceeded *prometheus.GaugeVec
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobportal_progress_runs_started_total",
			Help: "Pipeline runs that have started.",
		}),
		runsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobportal_progress_runs_completed_total",
			Help: "Pipeline runs completed, partitioned by final state.",
		}, []string{"state"}),
		runsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "jobportal_progress_runs_running",
			Help: "Pipeline runs currently in progress.",
		}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "jobportal_progress_run_duration_seconds",
			Help:    "Wall time per completed pipeline run.",
			Buckets: []float64{10, 30, 60, 120, 300, 600, 1200, 1800},
		}, []string{"state"}),
		tasksCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobportal_progress_tasks_completed_total",
			Help: "Stage tasks completed, partitioned by stage, source and status.",
		}, []string{"stage", "source", "status"}),
		taskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "jobportal_progress_task_duration_seconds",
			Help:    "Stage task wall time, partitioned by stage.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"stage"}),
		stageSucceeded: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "jobportal_progress_stage_succeeded_ratio",
			Help: "Fraction of tasks that succeeded in the last run of each stage.",
		}, []string{"stage"}),
	}
	for _, collector := range []prometheus.Collector{
		s.runsStarted,
		s.runsCompleted,
		s.runsRunning,
		s.runDuration,
		s.tasksCompleted,
		s.taskDuration,
		s.stageSucceeded,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from the batch.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		switch evt.Kind {
		case progress.KindRunStart:
			s.runsStarted.Inc()
			s.runsRunning.Inc()
		case progress.KindRunDone:
			s.runsCompleted.WithLabelValues(evt.State).Inc()
			s.runsRunning.Dec()
			if evt.Dur > 0 {
				s.runDuration.WithLabelValues(evt.State).Observe(evt.Dur.Seconds())
			}
		case progress.KindTaskDone:
			source := evt.Source
			if source == "" {
				source = "all"
			}
			s.tasksCompleted.WithLabelValues(evt.Stage, source, evt.Status).Inc()
			if evt.Dur > 0 {
				s.taskDuration.WithLabelValues(evt.Stage).Observe(evt.Dur.Seconds())
			}
		case progress.KindStageDone:
			if evt.Total > 0 {
				s.stageSucceeded.WithLabelValues(evt.Stage).Set(float64(evt.Succeeded) / float64(evt.Total))
			}
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
