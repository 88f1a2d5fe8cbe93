package notifications

import (
	"context"

	"github.com/rom8726/clinicflow"
)

var _ clinicflow.Plugin = (*NotificationsPlugin)(nil)

type NotificationType string

const (
	NotificationTypeWorkflowStarted   NotificationType = "workflow_started"
	NotificationTypeWorkflowCompleted NotificationType = "workflow_completed"
	NotificationTypeWorkflowFailed    NotificationType = "workflow_failed"
	NotificationTypeTaskStarted       NotificationType = "task_started"
	NotificationTypeTaskCompleted     NotificationType = "task_completed"
	NotificationTypeTaskFailed        NotificationType = "task_failed"
)

type Notification struct {
	Type       NotificationType
	InstanceID string
	Workflow   string
	TaskPath   string
	Status     string
	Error      string
}

type NotificationChannel interface {
	Send(ctx context.Context, notification Notification) error
}

type ChannelFunc func(ctx context.Context, notification Notification) error

func (f ChannelFunc) Send(ctx context.Context, notification Notification) error {
	return f(ctx, notification)
}

// ChanChannel delivers notifications on a Go channel. Send blocks until
// the notification is received or ctx is done.
type ChanChannel struct {
	ch chan Notification
}

func NewChanChannel(buffer int) *ChanChannel {
	return &ChanChannel{ch: make(chan Notification, buffer)}
}

func (c *ChanChannel) C() <-chan Notification { return c.ch }

func (c *ChanChannel) Send(ctx context.Context, notification Notification) error {
	select {
	case c.ch <- notification:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type NotificationsPlugin struct {
	clinicflow.BasePlugin

	channel NotificationChannel
	types   map[NotificationType]bool
}

// New sends every notification type unless types narrows the set.
func New(channel NotificationChannel, types ...NotificationType) *NotificationsPlugin {
	p := &NotificationsPlugin{
		BasePlugin: clinicflow.NewBasePlugin("notifications", clinicflow.PriorityNormal),
		channel:    channel,
	}
	if len(types) > 0 {
		p.types = make(map[NotificationType]bool, len(types))
		for _, typ := range types {
			p.types[typ] = true
		}
	}

	return p
}

func (p *NotificationsPlugin) OnWorkflowStart(ctx context.Context, instance *clinicflow.WorkflowInstance) error {
	return p.send(ctx, workflowNotification(NotificationTypeWorkflowStarted, instance))
}

func (p *NotificationsPlugin) OnWorkflowComplete(ctx context.Context, instance *clinicflow.WorkflowInstance) error {
	return p.send(ctx, workflowNotification(NotificationTypeWorkflowCompleted, instance))
}

func (p *NotificationsPlugin) OnWorkflowFailed(ctx context.Context, instance *clinicflow.WorkflowInstance) error {
	return p.send(ctx, workflowNotification(NotificationTypeWorkflowFailed, instance))
}

func (p *NotificationsPlugin) OnTaskStart(
	ctx context.Context,
	instance *clinicflow.WorkflowInstance,
	task *clinicflow.TaskRecord,
) error {
	return p.send(ctx, taskNotification(NotificationTypeTaskStarted, instance, task))
}

func (p *NotificationsPlugin) OnTaskComplete(
	ctx context.Context,
	instance *clinicflow.WorkflowInstance,
	task *clinicflow.TaskRecord,
) error {
	return p.send(ctx, taskNotification(NotificationTypeTaskCompleted, instance, task))
}

func (p *NotificationsPlugin) OnTaskFailed(
	ctx context.Context,
	instance *clinicflow.WorkflowInstance,
	task *clinicflow.TaskRecord,
	err error,
) error {
	notification := taskNotification(NotificationTypeTaskFailed, instance, task)
	if notification.Error == "" && err != nil {
		notification.Error = err.Error()
	}

	return p.send(ctx, notification)
}

func (p *NotificationsPlugin) send(ctx context.Context, notification Notification) error {
	if p.channel == nil {
		return nil
	}
	if p.types != nil && !p.types[notification.Type] {
		return nil
	}

	return p.channel.Send(ctx, notification)
}

func workflowNotification(typ NotificationType, instance *clinicflow.WorkflowInstance) Notification {
	return Notification{
		Type:       typ,
		InstanceID: instance.ID,
		Workflow:   instance.Name,
		Status:     string(instance.Status),
		Error:      instance.Error,
	}
}

func taskNotification(
	typ NotificationType,
	instance *clinicflow.WorkflowInstance,
	task *clinicflow.TaskRecord,
) Notification {
	return Notification{
		Type:       typ,
		InstanceID: instance.ID,
		Workflow:   instance.Name,
		TaskPath:   task.Path,
		Status:     string(task.Status),
		Error:      task.Error,
	}
}
