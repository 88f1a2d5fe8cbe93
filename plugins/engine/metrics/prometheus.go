package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rom8726/clinicflow"
)

var _ MetricsCollector = (*PrometheusCollector)(nil)

// PrometheusCollector labels by workflow and task name only. Instance IDs
// are left out to keep series cardinality bounded.
type PrometheusCollector struct {
	workflowStarted  *prometheus.CounterVec
	workflowFinished *prometheus.CounterVec
	workflowDuration *prometheus.HistogramVec
	workflowsRunning *prometheus.GaugeVec

	taskStarted  *prometheus.CounterVec
	taskFinished *prometheus.CounterVec
	taskDuration *prometheus.HistogramVec
}

func NewPrometheusCollector(registry prometheus.Registerer) *PrometheusCollector {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &PrometheusCollector{
		workflowStarted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clinicflow_workflow_started_total",
				Help: "Total number of workflow runs started",
			},
			[]string{"workflow"},
		),
		workflowFinished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clinicflow_workflow_finished_total",
				Help: "Total number of finished workflow runs by status",
			},
			[]string{"workflow", "status"},
		),
		workflowDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "clinicflow_workflow_duration_seconds",
				Help:    "Duration of workflow runs in seconds",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
			},
			[]string{"workflow", "status"},
		),
		workflowsRunning: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "clinicflow_workflows_running",
				Help: "Number of workflow runs in progress",
			},
			[]string{"workflow"},
		),
		taskStarted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clinicflow_task_started_total",
				Help: "Total number of task runs started",
			},
			[]string{"workflow", "task"},
		),
		taskFinished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clinicflow_task_finished_total",
				Help: "Total number of finished task runs by status",
			},
			[]string{"workflow", "task", "status"},
		),
		taskDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "clinicflow_task_duration_seconds",
				Help:    "Duration of task runs in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"workflow", "task"},
		),
	}
}

func (c *PrometheusCollector) RecordWorkflowStarted(workflow string) {
	c.workflowStarted.WithLabelValues(workflow).Inc()
	c.workflowsRunning.WithLabelValues(workflow).Inc()
}

func (c *PrometheusCollector) RecordWorkflowFinished(
	workflow string,
	status clinicflow.WorkflowStatus,
	duration time.Duration,
) {
	c.workflowsRunning.WithLabelValues(workflow).Dec()
	c.workflowFinished.WithLabelValues(workflow, string(status)).Inc()
	c.workflowDuration.WithLabelValues(workflow, string(status)).Observe(duration.Seconds())
}

func (c *PrometheusCollector) RecordTaskStarted(workflow string, task string) {
	c.taskStarted.WithLabelValues(workflow, task).Inc()
}

func (c *PrometheusCollector) RecordTaskFinished(
	workflow string,
	task string,
	status clinicflow.TaskStatus,
	duration time.Duration,
) {
	c.taskFinished.WithLabelValues(workflow, task, string(status)).Inc()
	c.taskDuration.WithLabelValues(workflow, task).Observe(duration.Seconds())
}
