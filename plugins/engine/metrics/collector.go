package metrics

import (
	"time"

	"github.com/rom8726/clinicflow"
)

type MetricsCollector interface {
	RecordWorkflowStarted(workflow string)
	RecordWorkflowFinished(workflow string, status clinicflow.WorkflowStatus, duration time.Duration)
	RecordTaskStarted(workflow string, task string)
	RecordTaskFinished(workflow string, task string, status clinicflow.TaskStatus, duration time.Duration)
}
