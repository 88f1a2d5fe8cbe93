package imtasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/rom8726/clinicflow"
	"github.com/rom8726/clinicflow/archetype"
	"github.com/rom8726/clinicflow/dialog"
)

var _ clinicflow.Task = (*LoadActTask)(nil)

// participants maps act nodes to the context roles they fill.
var participants = []struct {
	node string
	role string
}{
	{archetype.NodeCustomer, clinicflow.RoleCustomer},
	{archetype.NodePatient, clinicflow.RolePatient},
	{archetype.NodeClinician, clinicflow.RoleClinician},
	{archetype.NodeTill, clinicflow.RoleTill},
}

// LoadActTask puts the act a workflow was launched from into the context
// and sets each role to the act's participant, loading it unless the role
// already holds that object. Participants that no longer exist are left
// out. The act is reloaded so the workflow works on the stored version.
type LoadActTask struct {
	clinicflow.BaseTask
	service archetype.Service
	dialogs dialog.Dialogs
	act     archetype.Reference
}

func NewLoadActTask(service archetype.Service, dialogs dialog.Dialogs, act archetype.Reference) *LoadActTask {
	return &LoadActTask{
		BaseTask: clinicflow.NewBaseTask("load " + act.ShortName),
		service:  service,
		dialogs:  dialogs,
		act:      act,
	}
}

func (task *LoadActTask) Start(ctx context.Context, tc *clinicflow.TaskContext) error {
	if err := task.Begin(); err != nil {
		return err
	}

	act, err := task.service.Get(ctx, task.act)
	if err != nil {
		fail(&task.BaseTask, task.dialogs, "Load failed", fmt.Errorf("load %s: %w", task.act, err))

		return nil
	}
	tc.AddObject(act)

	for _, p := range participants {
		ref := act.GetReference(p.node)
		if ref.IsZero() {
			continue
		}
		if current := tc.Role(p.role); current != nil && current.Ref() == ref {
			continue
		}

		obj, err := task.service.Get(ctx, ref)
		switch {
		case errors.Is(err, archetype.ErrNotFound):
			continue
		case err != nil:
			fail(&task.BaseTask, task.dialogs, "Load failed", fmt.Errorf("load %s: %w", ref, err))

			return nil
		}
		tc.SetRole(p.role, obj)
	}

	task.NotifyCompleted()

	return nil
}
