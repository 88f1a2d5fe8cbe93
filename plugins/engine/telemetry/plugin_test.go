package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/rom8726/clinicflow"
)

func newTracer() (*tracetest.InMemoryExporter, *sdktrace.TracerProvider) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	return exporter, tp
}

func spansByName(exporter *tracetest.InMemoryExporter) map[string]tracetest.SpanStub {
	spans := make(map[string]tracetest.SpanStub)
	for _, span := range exporter.GetSpans() {
		spans[span.Name] = span
	}

	return spans
}

func task(name string, err error) *clinicflow.SyncTask {
	return clinicflow.NewSyncTask(name, func(context.Context, *clinicflow.TaskContext) error { return err })
}

func TestTelemetryPlugin_New(t *testing.T) {
	plugin := New(otel.Tracer("test"))

	assert.Equal(t, "telemetry", plugin.Name())
	assert.Equal(t, clinicflow.PriorityHigh, plugin.Priority())
	assert.Equal(t, 24*time.Hour, plugin.ttl)

	assert.Equal(t, time.Hour, New(nil, WithSpanTTL(time.Hour)).ttl)
	assert.NotNil(t, New(nil).tracer)
}

func TestTelemetryPlugin_WorkflowSpans(t *testing.T) {
	exporter, tp := newTracer()
	plugin := New(tp.Tracer("test"))

	pm := clinicflow.NewPluginManager()
	pm.Register(plugin)

	wf, err := clinicflow.NewBuilder("check-out",
		clinicflow.WithBuilderWorkflowOptions(
			clinicflow.WithWorkflowPluginManager(pm),
			clinicflow.WithWorkflowLogger(slog.New(slog.DiscardHandler)),
		)).
		Then(task("load", nil)).
		OptionalGroup("print", func(group *clinicflow.Builder) {
			group.Then(task("print-invoice", errors.New("printer offline")))
		}).
		Optional(task("skip-me", clinicflow.ErrSkipTask)).
		Build()
	require.NoError(t, err)

	require.NoError(t, wf.Run(context.Background()))
	require.True(t, wf.Outcome().IsCompleted())

	spans := spansByName(exporter)
	require.Len(t, spans, 5)
	assert.Equal(t, 0, plugin.Len())

	workflow := spans["workflow.check-out"]
	assert.Equal(t, codes.Ok, workflow.Status.Code)

	load := spans["task.load"]
	assert.Equal(t, workflow.SpanContext.SpanID(), load.Parent.SpanID())
	assert.Equal(t, codes.Ok, load.Status.Code)

	group := spans["task.print"]
	printInvoice := spans["task.print-invoice"]
	assert.Equal(t, group.SpanContext.SpanID(), printInvoice.Parent.SpanID())
	assert.Equal(t, codes.Error, printInvoice.Status.Code)
	require.Len(t, printInvoice.Events, 1)
	assert.Equal(t, "exception", printInvoice.Events[0].Name)
	assert.Equal(t, codes.Ok, group.Status.Code)

	assert.Equal(t, codes.Ok, spans["task.skip-me"].Status.Code)
}

func TestTelemetryPlugin_NestedWorkflowJoinsParentTrace(t *testing.T) {
	exporter, tp := newTracer()
	pm := clinicflow.NewPluginManager()
	pm.Register(New(tp.Tracer("test")))

	payment := clinicflow.NewWorkflow("payment", []clinicflow.Task{task("pay", nil)})
	wf := clinicflow.NewWorkflow("check-out", []clinicflow.Task{task("load", nil), payment},
		clinicflow.WithWorkflowPluginManager(pm),
		clinicflow.WithWorkflowLogger(slog.New(slog.DiscardHandler)))
	require.NoError(t, wf.Run(context.Background()))
	require.True(t, wf.Outcome().IsCompleted())

	spans := spansByName(exporter)
	require.Len(t, spans, 5)

	outer := spans["workflow.check-out"]
	step := spans["task.payment"]
	nested := spans["workflow.payment"]
	pay := spans["task.pay"]

	assert.Equal(t, outer.SpanContext.SpanID(), step.Parent.SpanID())
	assert.Equal(t, step.SpanContext.SpanID(), nested.Parent.SpanID())
	assert.Equal(t, nested.SpanContext.SpanID(), pay.Parent.SpanID())
	assert.Equal(t, outer.SpanContext.TraceID(), pay.SpanContext.TraceID())
}

func TestTelemetryPlugin_FailedAndCancelledWorkflows(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected codes.Code
	}{
		{"failed", errors.New("boom"), codes.Error},
		{"cancelled", clinicflow.ErrCancelTask, codes.Unset},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exporter, tp := newTracer()
			pm := clinicflow.NewPluginManager()
			pm.Register(New(tp.Tracer("test")))

			wf := clinicflow.NewWorkflow("wf", []clinicflow.Task{task("a", tt.err)},
				clinicflow.WithWorkflowPluginManager(pm),
				clinicflow.WithWorkflowLogger(slog.New(slog.DiscardHandler)))
			require.NoError(t, wf.Run(context.Background()))

			spans := spansByName(exporter)
			assert.Equal(t, tt.expected, spans["workflow.wf"].Status.Code)
			assert.Equal(t, tt.expected, spans["task.a"].Status.Code)
		})
	}
}

func TestTelemetryPlugin_ExpiredSpans(t *testing.T) {
	exporter, tp := newTracer()
	plugin := New(tp.Tracer("test"), WithSpanTTL(time.Millisecond))

	waiting := &clinicflow.WorkflowInstance{ID: "i1", Name: "waiting", Status: clinicflow.StatusRunning}
	require.NoError(t, plugin.OnWorkflowStart(context.Background(), waiting))
	require.NoError(t, plugin.OnTaskStart(context.Background(), waiting, &clinicflow.TaskRecord{
		InstanceID: "i1", Name: "confirm", Path: "waiting/confirm",
	}))
	assert.Empty(t, exporter.GetSpans())

	time.Sleep(5 * time.Millisecond)

	next := &clinicflow.WorkflowInstance{ID: "i2", Name: "next", Status: clinicflow.StatusRunning}
	require.NoError(t, plugin.OnWorkflowStart(context.Background(), next))

	spans := spansByName(exporter)
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Error, spans["workflow.waiting"].Status.Code)
	assert.Equal(t, "span expired due to TTL", spans["task.confirm"].Status.Description)
	assert.Equal(t, 1, plugin.Len())
}
