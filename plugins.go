package clinicflow

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

type PluginPriority int

const (
	PriorityLow    PluginPriority = 0
	PriorityNormal PluginPriority = 50
	PriorityHigh   PluginPriority = 100
)

// Plugin represents a lifecycle hook system for workflows
type Plugin interface {
	// Name returns unique plugin identifier
	Name() string

	// Priority determines execution order (higher = earlier)
	Priority() PluginPriority

	// Lifecycle hooks
	OnWorkflowStart(ctx context.Context, instance *WorkflowInstance) error
	OnWorkflowComplete(ctx context.Context, instance *WorkflowInstance) error
	OnWorkflowFailed(ctx context.Context, instance *WorkflowInstance) error
	OnTaskStart(ctx context.Context, instance *WorkflowInstance, task *TaskRecord) error
	OnTaskComplete(ctx context.Context, instance *WorkflowInstance, task *TaskRecord) error
	OnTaskFailed(ctx context.Context, instance *WorkflowInstance, task *TaskRecord, err error) error
}

// BasePlugin provides default no-op implementations
type BasePlugin struct {
	name     string
	priority PluginPriority
}

func NewBasePlugin(name string, priority PluginPriority) BasePlugin {
	return BasePlugin{name: name, priority: priority}
}

func (p BasePlugin) Name() string             { return p.name }
func (p BasePlugin) Priority() PluginPriority { return p.priority }
func (p BasePlugin) OnWorkflowStart(context.Context, *WorkflowInstance) error {
	return nil
}
func (p BasePlugin) OnWorkflowComplete(context.Context, *WorkflowInstance) error {
	return nil
}
func (p BasePlugin) OnWorkflowFailed(context.Context, *WorkflowInstance) error {
	return nil
}
func (p BasePlugin) OnTaskStart(context.Context, *WorkflowInstance, *TaskRecord) error { return nil }
func (p BasePlugin) OnTaskComplete(context.Context, *WorkflowInstance, *TaskRecord) error {
	return nil
}
func (p BasePlugin) OnTaskFailed(context.Context, *WorkflowInstance, *TaskRecord, error) error {
	return nil
}

// PluginManager manages plugin lifecycle. Start hooks may veto by returning
// an error; errors from the other hooks are logged and dropped.
type PluginManager struct {
	plugins []Plugin
	mu      sync.RWMutex
}

func NewPluginManager() *PluginManager {
	return &PluginManager{
		plugins: make([]Plugin, 0),
	}
}

func (pm *PluginManager) Register(plugin Plugin) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.plugins = append(pm.plugins, plugin)

	sort.SliceStable(pm.plugins, func(i, j int) bool {
		return pm.plugins[i].Priority() > pm.plugins[j].Priority()
	})
}

func (pm *PluginManager) Plugins() []Plugin {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	return append([]Plugin(nil), pm.plugins...)
}

func (pm *PluginManager) ExecuteWorkflowStart(ctx context.Context, instance *WorkflowInstance) error {
	if pm == nil {
		return nil
	}

	pm.mu.RLock()
	defer pm.mu.RUnlock()

	for _, plugin := range pm.plugins {
		if err := plugin.OnWorkflowStart(ctx, instance); err != nil {
			return fmt.Errorf("plugin %s failed: %w", plugin.Name(), err)
		}
	}

	return nil
}

func (pm *PluginManager) ExecuteWorkflowComplete(ctx context.Context, instance *WorkflowInstance) {
	if pm == nil {
		return
	}

	pm.mu.RLock()
	defer pm.mu.RUnlock()

	for _, plugin := range pm.plugins {
		if err := plugin.OnWorkflowComplete(ctx, instance); err != nil {
			slog.Error("[clinicflow] plugin error on workflow complete", "plugin", plugin.Name(), "error", err)
		}
	}
}

func (pm *PluginManager) ExecuteWorkflowFailed(ctx context.Context, instance *WorkflowInstance) {
	if pm == nil {
		return
	}

	pm.mu.RLock()
	defer pm.mu.RUnlock()

	for _, plugin := range pm.plugins {
		if err := plugin.OnWorkflowFailed(ctx, instance); err != nil {
			slog.Error("[clinicflow] plugin error on workflow failed", "plugin", plugin.Name(), "error", err)
		}
	}
}

func (pm *PluginManager) ExecuteTaskStart(ctx context.Context, instance *WorkflowInstance, task *TaskRecord) error {
	if pm == nil {
		return nil
	}

	pm.mu.RLock()
	defer pm.mu.RUnlock()

	for _, plugin := range pm.plugins {
		if err := plugin.OnTaskStart(ctx, instance, task); err != nil {
			return fmt.Errorf("plugin %s failed: %w", plugin.Name(), err)
		}
	}

	return nil
}

func (pm *PluginManager) ExecuteTaskComplete(ctx context.Context, instance *WorkflowInstance, task *TaskRecord) {
	if pm == nil {
		return
	}

	pm.mu.RLock()
	defer pm.mu.RUnlock()

	for _, plugin := range pm.plugins {
		if err := plugin.OnTaskComplete(ctx, instance, task); err != nil {
			slog.Error("[clinicflow] plugin error on task complete", "plugin", plugin.Name(), "error", err)
		}
	}
}

func (pm *PluginManager) ExecuteTaskFailed(ctx context.Context, instance *WorkflowInstance, task *TaskRecord, err error) {
	if pm == nil {
		return
	}

	pm.mu.RLock()
	defer pm.mu.RUnlock()

	for _, plugin := range pm.plugins {
		if pluginErr := plugin.OnTaskFailed(ctx, instance, task, err); pluginErr != nil {
			slog.Error("[clinicflow] plugin error on task failed", "plugin", plugin.Name(), "error", pluginErr)
		}
	}
}
