package imtasks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rom8726/clinicflow"
	"github.com/rom8726/clinicflow/archetype"
)

var errBackend = errors.New("backend unavailable")

type outcomes struct {
	got []clinicflow.Outcome
}

func (o *outcomes) last() clinicflow.Outcome {
	if len(o.got) == 0 {
		return clinicflow.Outcome{}
	}

	return o.got[len(o.got)-1]
}

func start(t *testing.T, task clinicflow.Task, tc *clinicflow.TaskContext) *outcomes {
	t.Helper()

	recorded := &outcomes{}
	task.AddTaskListener(clinicflow.ListenerFunc(func(event clinicflow.TaskEvent) {
		recorded.got = append(recorded.got, event.Outcome)
	}))
	require.NoError(t, task.Start(context.Background(), tc))

	return recorded
}

// failingService fails the operations named in failOn.
type failingService struct {
	*archetype.MemoryService
	failOn map[string]bool
}

func newFailingService(ops ...string) *failingService {
	failOn := make(map[string]bool, len(ops))
	for _, op := range ops {
		failOn[op] = true
	}

	return &failingService{MemoryService: archetype.NewMemoryService(), failOn: failOn}
}

func (s *failingService) Create(ctx context.Context, shortName string) (*archetype.IMObject, error) {
	if s.failOn["create"] {
		return nil, errBackend
	}

	return s.MemoryService.Create(ctx, shortName)
}

func (s *failingService) Query(ctx context.Context, q *archetype.Query) ([]*archetype.IMObject, error) {
	if s.failOn["query"] {
		return nil, errBackend
	}

	return s.MemoryService.Query(ctx, q)
}

func (s *failingService) Save(ctx context.Context, objects ...*archetype.IMObject) error {
	if s.failOn["save"] {
		return errBackend
	}

	return s.MemoryService.Save(ctx, objects...)
}

func saved(t *testing.T, service archetype.Service, objects ...*archetype.IMObject) {
	t.Helper()
	require.NoError(t, service.Save(context.Background(), objects...))
}

func load(t *testing.T, service archetype.Service, ref archetype.Reference) *archetype.IMObject {
	t.Helper()

	obj, err := service.Get(context.Background(), ref)
	require.NoError(t, err)

	return obj
}
