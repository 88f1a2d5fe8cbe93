package audit

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rom8726/clinicflow"
)

type memoryWriter struct {
	entries []*AuditLogEntry
	err     error
}

func (w *memoryWriter) Write(_ context.Context, entry *AuditLogEntry) error {
	w.entries = append(w.entries, entry)

	return w.err
}

func run(t *testing.T, plugin *AuditPlugin, clk clock.Clock, tasks ...clinicflow.Task) *clinicflow.Workflow {
	t.Helper()

	pm := clinicflow.NewPluginManager()
	pm.Register(plugin)

	wf := clinicflow.NewWorkflow("check-in", tasks,
		clinicflow.WithWorkflowPluginManager(pm),
		clinicflow.WithWorkflowClock(clk),
		clinicflow.WithWorkflowLogger(slog.New(slog.DiscardHandler)))
	require.NoError(t, wf.Run(context.Background()))

	return wf
}

func task(name string, err error) *clinicflow.SyncTask {
	return clinicflow.NewSyncTask(name, func(context.Context, *clinicflow.TaskContext) error { return err })
}

func TestAuditPlugin_Entries(t *testing.T) {
	writer := &memoryWriter{}
	clk := clock.NewMock()
	clk.Set(time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC))

	wf := run(t, New(writer, WithClock(clk)), clk,
		task("load appointment", nil),
		clinicflow.NewTasks("weight", []clinicflow.Task{task("record weight", clinicflow.ErrSkipTask)},
			clinicflow.WithTasksRequired(false)),
		task("check in", errors.New("appointment locked")),
	)
	require.True(t, wf.Outcome().IsFailed())

	events := make([]string, 0, len(writer.entries))
	for _, entry := range writer.entries {
		events = append(events, entry.EventType+" "+entry.TaskPath)
		assert.Equal(t, "check-in", entry.Workflow)
		assert.Equal(t, clk.Now(), entry.Timestamp)
	}
	assert.Equal(t, []string{
		"workflow_start ",
		"task_start check-in/load appointment",
		"task_complete check-in/load appointment",
		"task_start check-in/weight",
		"task_start check-in/weight/record weight",
		"task_complete check-in/weight/record weight",
		"task_complete check-in/weight",
		"task_start check-in/check in",
		"task_failed check-in/check in",
		"workflow_failed ",
	}, events)

	failed := writer.entries[len(writer.entries)-2]
	assert.Equal(t, "appointment locked", failed.Error)
	assert.Equal(t, string(clinicflow.TaskStatusFailed), failed.Status)
	require.NotNil(t, failed.Required)
	assert.True(t, *failed.Required)
	require.NotNil(t, failed.Duration)

	last := writer.entries[len(writer.entries)-1]
	assert.Equal(t, string(clinicflow.StatusFailed), last.Status)
	assert.Equal(t, "appointment locked", last.Error)
	assert.Nil(t, last.Required)
}

func TestAuditPlugin_TaskFailedFallsBackToHookError(t *testing.T) {
	writer := &memoryWriter{}
	plugin := New(writer)

	err := plugin.OnTaskFailed(context.Background(),
		&clinicflow.WorkflowInstance{ID: "i1", Name: "check-out"},
		&clinicflow.TaskRecord{Path: "check-out/pay", Status: clinicflow.TaskStatusFailed},
		errors.New("declined"))
	require.NoError(t, err)
	require.Len(t, writer.entries, 1)
	assert.Equal(t, "declined", writer.entries[0].Error)
}

func TestAuditPlugin_WriterErrorVetoesStart(t *testing.T) {
	writer := &memoryWriter{err: errors.New("disk full")}

	wf := run(t, New(writer), clock.NewMock(), task("a", nil))

	assert.True(t, wf.Outcome().IsFailed())
	assert.ErrorContains(t, wf.Outcome().Err, "disk full")
}

func TestAuditPlugin_NilWriter(t *testing.T) {
	wf := run(t, New(nil), clock.NewMock(), task("a", nil))

	assert.True(t, wf.Outcome().IsCompleted())
}

func TestJSONWriter(t *testing.T) {
	var buf bytes.Buffer
	clk := clock.NewMock()

	run(t, New(NewJSONWriter(&buf), WithClock(clk)), clk, task("a", nil))

	var entries []AuditLogEntry
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		var entry AuditLogEntry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		entries = append(entries, entry)
	}
	require.Len(t, entries, 4)
	assert.Equal(t, EventWorkflowStart, entries[0].EventType)
	assert.Equal(t, "check-in/a", entries[1].TaskPath)
	assert.Equal(t, EventWorkflowComplete, entries[3].EventType)
	assert.NotEmpty(t, entries[3].InstanceID)
}
