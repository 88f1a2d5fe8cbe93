package clinicflow

const (
	// Log messages
	EventWorkflowStarted  = "workflow started"
	EventWorkflowFinished = "workflow finished"
	EventTaskStarted      = "task started"
	EventTaskFinished     = "task finished"
	EventTaskAbsorbed     = "task outcome absorbed"
	EventTaskIgnored      = "duplicate task outcome ignored"

	// Log attribute keys
	KeyWorkflowID   = "workflow_id"
	KeyWorkflowName = "workflow_name"
	KeyTaskName     = "task_name"
	KeyTaskPath     = "task_path"
	KeyRequired     = "required"
	KeyOutcome      = "outcome"
	KeyStatus       = "status"
	KeyPolicy       = "policy"
	KeyIndex        = "index"
	KeyError        = "error"
	KeyDuration     = "duration"
)
