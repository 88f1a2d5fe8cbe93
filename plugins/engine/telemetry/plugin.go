package telemetry

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rom8726/clinicflow"
)

var _ clinicflow.Plugin = (*TelemetryPlugin)(nil)

type spanEntry struct {
	ctx  context.Context
	span trace.Span
}

// TelemetryPlugin traces workflow instances and their tasks. Task spans nest
// under the span of their enclosing composite. Spans of runs left waiting on
// the user longer than the TTL are ended with an error status.
type TelemetryPlugin struct {
	clinicflow.BasePlugin

	tracer trace.Tracer
	spans  *ttlcache.Cache[string, *spanEntry]
	ttl    time.Duration
}

type TelemetryOption func(*TelemetryPlugin)

func WithSpanTTL(ttl time.Duration) TelemetryOption {
	return func(p *TelemetryPlugin) {
		p.ttl = ttl
	}
}

func New(tracer trace.Tracer, opts ...TelemetryOption) *TelemetryPlugin {
	if tracer == nil {
		tracer = otel.Tracer("clinicflow")
	}

	plugin := &TelemetryPlugin{
		BasePlugin: clinicflow.NewBasePlugin("telemetry", clinicflow.PriorityHigh),
		tracer:     tracer,
		ttl:        24 * time.Hour,
	}

	for _, opt := range opts {
		opt(plugin)
	}

	plugin.spans = ttlcache.New(
		ttlcache.WithTTL[string, *spanEntry](plugin.ttl),
		ttlcache.WithDisableTouchOnHit[string, *spanEntry](),
	)
	plugin.spans.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, *spanEntry]) {
		switch reason {
		case ttlcache.EvictionReasonExpired, ttlcache.EvictionReasonCapacityReached:
			span := item.Value().span
			span.SetStatus(codes.Error, "span expired due to TTL")
			span.End()
		}
	})

	return plugin
}

func workflowKey(instanceID string) string {
	return "workflow:" + instanceID
}

func taskKey(instanceID, taskPath string) string {
	return "task:" + instanceID + ":" + taskPath
}

// Len returns the number of open spans.
func (p *TelemetryPlugin) Len() int {
	return p.spans.Len()
}

func (p *TelemetryPlugin) take(key string) (*spanEntry, bool) {
	item := p.spans.Get(key)
	if item == nil {
		return nil, false
	}
	entry := item.Value()
	p.spans.Delete(key)

	return entry, true
}

func (p *TelemetryPlugin) OnWorkflowStart(ctx context.Context, instance *clinicflow.WorkflowInstance) error {
	p.spans.DeleteExpired()

	parentCtx, kind := ctx, trace.SpanKindServer
	if instance.ParentID != "" {
		kind = trace.SpanKindInternal
		if item := p.spans.Get(taskKey(instance.ParentID, instance.ParentTaskPath)); item != nil {
			parentCtx = item.Value().ctx
		}
	}

	spanName := fmt.Sprintf("workflow.%s", instance.Name)
	workflowCtx, span := p.tracer.Start(parentCtx, spanName, trace.WithSpanKind(kind))

	span.SetAttributes(
		attribute.String("instance.id", instance.ID),
		attribute.String("instance.name", instance.Name),
		attribute.String("instance.status", string(instance.Status)),
	)
	if instance.ParentID != "" {
		span.SetAttributes(attribute.String("instance.parent_id", instance.ParentID))
	}

	p.spans.Set(workflowKey(instance.ID), &spanEntry{ctx: workflowCtx, span: span}, ttlcache.DefaultTTL)

	return nil
}

func (p *TelemetryPlugin) OnWorkflowComplete(_ context.Context, instance *clinicflow.WorkflowInstance) error {
	if entry, ok := p.take(workflowKey(instance.ID)); ok {
		entry.span.SetAttributes(attribute.String("instance.status", string(instance.Status)))
		entry.span.SetStatus(codes.Ok, "workflow completed")
		entry.span.End()
	}

	return nil
}

// OnWorkflowFailed ends the span of a workflow that did not complete. A
// cancelled or skipped run is not an error.
func (p *TelemetryPlugin) OnWorkflowFailed(_ context.Context, instance *clinicflow.WorkflowInstance) error {
	if entry, ok := p.take(workflowKey(instance.ID)); ok {
		entry.span.SetAttributes(attribute.String("instance.status", string(instance.Status)))
		if instance.Status == clinicflow.StatusFailed {
			entry.span.SetAttributes(attribute.String("instance.error", instance.Error))
			entry.span.SetStatus(codes.Error, "workflow failed")
		} else {
			entry.span.SetStatus(codes.Unset, "workflow "+string(instance.Status))
		}
		entry.span.End()
	}

	return nil
}

func (p *TelemetryPlugin) OnTaskStart(
	ctx context.Context,
	instance *clinicflow.WorkflowInstance,
	task *clinicflow.TaskRecord,
) error {
	p.spans.DeleteExpired()

	parentCtx := ctx
	if item := p.spans.Get(taskKey(instance.ID, path.Dir(task.Path))); item != nil {
		parentCtx = item.Value().ctx
	} else if item := p.spans.Get(workflowKey(instance.ID)); item != nil {
		parentCtx = item.Value().ctx
	}

	spanName := fmt.Sprintf("task.%s", task.Name)
	taskCtx, span := p.tracer.Start(parentCtx, spanName, trace.WithSpanKind(trace.SpanKindInternal))

	span.SetAttributes(
		attribute.String("task.name", task.Name),
		attribute.String("task.path", task.Path),
		attribute.Int("task.depth", task.Depth),
		attribute.Bool("task.required", task.Required),
		attribute.String("instance.id", instance.ID),
		attribute.String("instance.name", instance.Name),
	)

	p.spans.Set(taskKey(instance.ID, task.Path), &spanEntry{ctx: taskCtx, span: span}, ttlcache.DefaultTTL)

	return nil
}

func (p *TelemetryPlugin) OnTaskComplete(
	_ context.Context,
	instance *clinicflow.WorkflowInstance,
	task *clinicflow.TaskRecord,
) error {
	if entry, ok := p.take(taskKey(instance.ID, task.Path)); ok {
		entry.span.SetAttributes(attribute.String("task.status", string(task.Status)))
		entry.span.SetStatus(codes.Ok, "task "+string(task.Status))
		entry.span.End()
	}

	return nil
}

func (p *TelemetryPlugin) OnTaskFailed(
	_ context.Context,
	instance *clinicflow.WorkflowInstance,
	task *clinicflow.TaskRecord,
	err error,
) error {
	if entry, ok := p.take(taskKey(instance.ID, task.Path)); ok {
		entry.span.SetAttributes(attribute.String("task.status", string(task.Status)))
		if task.Status == clinicflow.TaskStatusFailed {
			if err != nil {
				entry.span.RecordError(err)
			}
			entry.span.SetStatus(codes.Error, "task failed")
		} else {
			entry.span.SetStatus(codes.Unset, "task "+string(task.Status))
		}
		entry.span.End()
	}

	return nil
}
