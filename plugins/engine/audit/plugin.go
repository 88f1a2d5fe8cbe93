package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/rom8726/clinicflow"
)

var _ clinicflow.Plugin = (*AuditPlugin)(nil)

const (
	EventWorkflowStart    = "workflow_start"
	EventWorkflowComplete = "workflow_complete"
	EventWorkflowFailed   = "workflow_failed"
	EventTaskStart        = "task_start"
	EventTaskComplete     = "task_complete"
	EventTaskFailed       = "task_failed"
)

type AuditLogEntry struct {
	Timestamp  time.Time      `json:"timestamp"`
	EventType  string         `json:"event_type"`
	InstanceID string         `json:"instance_id"`
	Workflow   string         `json:"workflow"`
	TaskPath   string         `json:"task_path,omitempty"`
	Required   *bool          `json:"required,omitempty"`
	Status     string         `json:"status"`
	Error      string         `json:"error,omitempty"`
	Duration   *time.Duration `json:"duration,omitempty"`
}

type Writer interface {
	Write(ctx context.Context, entry *AuditLogEntry) error
}

// JSONWriter writes one JSON document per line.
type JSONWriter struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{encoder: json.NewEncoder(w)}
}

func (w *JSONWriter) Write(_ context.Context, entry *AuditLogEntry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.encoder.Encode(entry)
}

type AuditPlugin struct {
	clinicflow.BasePlugin

	writer Writer
	clock  clock.Clock
}

type Option func(p *AuditPlugin)

func WithClock(clk clock.Clock) Option {
	return func(p *AuditPlugin) {
		p.clock = clk
	}
}

func New(writer Writer, opts ...Option) *AuditPlugin {
	p := &AuditPlugin{
		BasePlugin: clinicflow.NewBasePlugin("audit", clinicflow.PriorityNormal),
		writer:     writer,
		clock:      clock.New(),
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

func (p *AuditPlugin) OnWorkflowStart(ctx context.Context, instance *clinicflow.WorkflowInstance) error {
	return p.logEvent(ctx, p.workflowEntry(EventWorkflowStart, instance))
}

func (p *AuditPlugin) OnWorkflowComplete(ctx context.Context, instance *clinicflow.WorkflowInstance) error {
	return p.logEvent(ctx, p.workflowEntry(EventWorkflowComplete, instance))
}

func (p *AuditPlugin) OnWorkflowFailed(ctx context.Context, instance *clinicflow.WorkflowInstance) error {
	return p.logEvent(ctx, p.workflowEntry(EventWorkflowFailed, instance))
}

func (p *AuditPlugin) OnTaskStart(
	ctx context.Context,
	instance *clinicflow.WorkflowInstance,
	task *clinicflow.TaskRecord,
) error {
	return p.logEvent(ctx, p.taskEntry(EventTaskStart, instance, task))
}

func (p *AuditPlugin) OnTaskComplete(
	ctx context.Context,
	instance *clinicflow.WorkflowInstance,
	task *clinicflow.TaskRecord,
) error {
	return p.logEvent(ctx, p.taskEntry(EventTaskComplete, instance, task))
}

func (p *AuditPlugin) OnTaskFailed(
	ctx context.Context,
	instance *clinicflow.WorkflowInstance,
	task *clinicflow.TaskRecord,
	err error,
) error {
	entry := p.taskEntry(EventTaskFailed, instance, task)
	if entry.Error == "" && err != nil {
		entry.Error = err.Error()
	}

	return p.logEvent(ctx, entry)
}

func (p *AuditPlugin) workflowEntry(event string, instance *clinicflow.WorkflowInstance) *AuditLogEntry {
	entry := &AuditLogEntry{
		Timestamp:  p.clock.Now(),
		EventType:  event,
		InstanceID: instance.ID,
		Workflow:   instance.Name,
		Status:     string(instance.Status),
		Error:      instance.Error,
	}
	if instance.FinishedAt != nil {
		duration := instance.FinishedAt.Sub(instance.StartedAt)
		entry.Duration = &duration
	}

	return entry
}

func (p *AuditPlugin) taskEntry(
	event string,
	instance *clinicflow.WorkflowInstance,
	task *clinicflow.TaskRecord,
) *AuditLogEntry {
	required := task.Required
	entry := &AuditLogEntry{
		Timestamp:  p.clock.Now(),
		EventType:  event,
		InstanceID: instance.ID,
		Workflow:   instance.Name,
		TaskPath:   task.Path,
		Required:   &required,
		Status:     string(task.Status),
		Error:      task.Error,
	}
	if task.FinishedAt != nil {
		duration := task.Duration()
		entry.Duration = &duration
	}

	return entry
}

func (p *AuditPlugin) logEvent(ctx context.Context, entry *AuditLogEntry) error {
	if p.writer == nil {
		return nil
	}

	return p.writer.Write(ctx, entry)
}
