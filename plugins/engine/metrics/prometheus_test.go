package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/rom8726/clinicflow"
)

func TestPrometheusCollector_WorkflowMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewPrometheusCollector(reg)

	c.RecordWorkflowStarted("check-out")
	c.RecordWorkflowStarted("check-out")
	assert.Equal(t, float64(2), testutil.ToFloat64(c.workflowsRunning.WithLabelValues("check-out")))

	c.RecordWorkflowFinished("check-out", clinicflow.StatusCompleted, 90*time.Second)
	c.RecordWorkflowFinished("check-out", clinicflow.StatusCancelled, 5*time.Second)

	assert.Equal(t, float64(2), testutil.ToFloat64(c.workflowStarted.WithLabelValues("check-out")))
	assert.Equal(t, float64(0), testutil.ToFloat64(c.workflowsRunning.WithLabelValues("check-out")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(c.workflowFinished.WithLabelValues("check-out", string(clinicflow.StatusCompleted))))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(c.workflowFinished.WithLabelValues("check-out", string(clinicflow.StatusCancelled))))
	assert.Equal(t, 2, testutil.CollectAndCount(c.workflowDuration))
}

func TestPrometheusCollector_TaskMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewPrometheusCollector(reg)

	c.RecordTaskStarted("check-in", "record weight")
	c.RecordTaskFinished("check-in", "record weight", clinicflow.TaskStatusSkipped, 20*time.Millisecond)
	c.RecordTaskStarted("check-in", "record weight")
	c.RecordTaskFinished("check-in", "record weight", clinicflow.TaskStatusFailed, 30*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(c.taskStarted.WithLabelValues("check-in", "record weight")))
	assert.Equal(t, float64(1), testutil.ToFloat64(
		c.taskFinished.WithLabelValues("check-in", "record weight", string(clinicflow.TaskStatusSkipped))))
	assert.Equal(t, float64(1), testutil.ToFloat64(
		c.taskFinished.WithLabelValues("check-in", "record weight", string(clinicflow.TaskStatusFailed))))
	assert.Equal(t, 1, testutil.CollectAndCount(c.taskDuration))
}

func TestPrometheusCollector_Registration(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewPrometheusCollector(reg)
	c.RecordWorkflowStarted("payment")
	c.RecordTaskStarted("payment", "confirm Pay account")

	count, err := testutil.GatherAndCount(reg,
		"clinicflow_workflow_started_total",
		"clinicflow_workflows_running",
		"clinicflow_task_started_total",
	)
	assert.NoError(t, err)
	assert.Equal(t, 3, count)

	assert.Panics(t, func() { NewPrometheusCollector(reg) })
}
