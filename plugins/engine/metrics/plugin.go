package metrics

import (
	"context"
	"time"

	"github.com/rom8726/clinicflow"
)

var _ clinicflow.Plugin = (*MetricsPlugin)(nil)

// MetricsPlugin forwards lifecycle events to a MetricsCollector. Durations
// come from the instance and task records, so they follow the workflow clock.
type MetricsPlugin struct {
	clinicflow.BasePlugin

	collector MetricsCollector
}

func New(collector MetricsCollector) *MetricsPlugin {
	return &MetricsPlugin{
		BasePlugin: clinicflow.NewBasePlugin("metrics", clinicflow.PriorityHigh),
		collector:  collector,
	}
}

func (p *MetricsPlugin) OnWorkflowStart(_ context.Context, instance *clinicflow.WorkflowInstance) error {
	if p.collector != nil {
		p.collector.RecordWorkflowStarted(instance.Name)
	}

	return nil
}

func (p *MetricsPlugin) OnWorkflowComplete(_ context.Context, instance *clinicflow.WorkflowInstance) error {
	p.workflowFinished(instance)

	return nil
}

func (p *MetricsPlugin) OnWorkflowFailed(_ context.Context, instance *clinicflow.WorkflowInstance) error {
	p.workflowFinished(instance)

	return nil
}

func (p *MetricsPlugin) OnTaskStart(
	_ context.Context,
	instance *clinicflow.WorkflowInstance,
	task *clinicflow.TaskRecord,
) error {
	if p.collector != nil {
		p.collector.RecordTaskStarted(instance.Name, task.Name)
	}

	return nil
}

func (p *MetricsPlugin) OnTaskComplete(
	_ context.Context,
	instance *clinicflow.WorkflowInstance,
	task *clinicflow.TaskRecord,
) error {
	p.taskFinished(instance, task)

	return nil
}

func (p *MetricsPlugin) OnTaskFailed(
	_ context.Context,
	instance *clinicflow.WorkflowInstance,
	task *clinicflow.TaskRecord,
	_ error,
) error {
	p.taskFinished(instance, task)

	return nil
}

func (p *MetricsPlugin) workflowFinished(instance *clinicflow.WorkflowInstance) {
	if p.collector == nil {
		return
	}

	var duration time.Duration
	if instance.FinishedAt != nil {
		duration = instance.FinishedAt.Sub(instance.StartedAt)
	}

	p.collector.RecordWorkflowFinished(instance.Name, instance.Status, duration)
}

func (p *MetricsPlugin) taskFinished(instance *clinicflow.WorkflowInstance, task *clinicflow.TaskRecord) {
	if p.collector == nil {
		return
	}

	p.collector.RecordTaskFinished(instance.Name, task.Name, task.Status, task.Duration())
}
