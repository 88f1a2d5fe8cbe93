package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rom8726/clinicflow/archetype"
	"github.com/rom8726/clinicflow/internal/config"
)

func demoConfig(driver string) config.Config {
	return config.Config{
		Log:      config.LogConfig{Level: "info"},
		Store:    config.StoreConfig{Driver: driver},
		Workflow: config.WorkflowConfig{AbsorbPolicy: "stop"},
		Checkout: config.CheckoutConfig{PrintInvoice: true},
		Checkin:  config.CheckinConfig{CreateTask: true},
	}
}

func TestRun_Memory(t *testing.T) {
	cfg := demoConfig(config.DriverMemory)
	cfg.Metrics.Enabled = true

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, &stdout, &stderr))

	out := stdout.String()
	assert.Contains(t, out, "Workflow: check-in")
	assert.Contains(t, out, "Workflow: check-out")
	assert.Contains(t, out, "printed "+archetype.Invoice)
	assert.Contains(t, out, archetype.StatusCompleted+"\n")
	assert.Contains(t, out, "clinicflow_workflow_started_total")
	assert.Contains(t, stderr.String(), "notification")
}

func TestRun_Diskv(t *testing.T) {
	cfg := demoConfig(config.DriverDiskv)
	cfg.Store.Path = t.TempDir()
	cfg.Tracing.Enabled = true

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, &stdout, &stderr))

	assert.Contains(t, stdout.String(), "workflow.check-out")
}

func TestRun_SQLite(t *testing.T) {
	cfg := demoConfig(config.DriverSQLite)
	cfg.Store.DSN = "file:" + t.TempDir() + "/clinic.db"
	cfg.Log.Level = "debug"

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, &stdout, &stderr))

	assert.Contains(t, stderr.String(), `"event_type":"workflow_complete"`)
}

func TestRun_RateLimited(t *testing.T) {
	cfg := demoConfig(config.DriverMemory)
	cfg.Limits.MaxStarts = 1

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), cfg, &stdout, &stderr)

	require.NoError(t, err)
}

func TestOpenService_UnknownDriver(t *testing.T) {
	_, _, err := openService(context.Background(), config.StoreConfig{Driver: "oracle"})

	assert.ErrorContains(t, err, `unknown store driver "oracle"`)
}
