package clinicflow

import (
	"context"
	"sync"

	"github.com/rom8726/clinicflow/archetype"
)

// ExternalContext is the long-lived context a workflow is seeded from and
// synchronized back to, typically one per user session.
type ExternalContext interface {
	Customer() *archetype.IMObject
	SetCustomer(obj *archetype.IMObject)
	Patient() *archetype.IMObject
	SetPatient(obj *archetype.IMObject)
	Clinician() *archetype.IMObject
	SetClinician(obj *archetype.IMObject)
	Till() *archetype.IMObject
	SetTill(obj *archetype.IMObject)
	User() *archetype.IMObject
	Practice() *archetype.IMObject
	Location() *archetype.IMObject
}

var _ ExternalContext = (*LocalContext)(nil)

// LocalContext is an in-memory ExternalContext safe for concurrent use.
type LocalContext struct {
	mu    sync.RWMutex
	roles map[string]*archetype.IMObject
}

func NewLocalContext() *LocalContext {
	return &LocalContext{roles: make(map[string]*archetype.IMObject)}
}

func (lc *LocalContext) get(role string) *archetype.IMObject {
	lc.mu.RLock()
	defer lc.mu.RUnlock()

	return lc.roles[role]
}

func (lc *LocalContext) set(role string, obj *archetype.IMObject) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if obj == nil {
		delete(lc.roles, role)

		return
	}
	lc.roles[role] = obj
}

func (lc *LocalContext) Customer() *archetype.IMObject  { return lc.get(RoleCustomer) }
func (lc *LocalContext) Patient() *archetype.IMObject   { return lc.get(RolePatient) }
func (lc *LocalContext) Clinician() *archetype.IMObject { return lc.get(RoleClinician) }
func (lc *LocalContext) Till() *archetype.IMObject      { return lc.get(RoleTill) }
func (lc *LocalContext) User() *archetype.IMObject      { return lc.get(RoleUser) }
func (lc *LocalContext) Practice() *archetype.IMObject  { return lc.get(RolePractice) }
func (lc *LocalContext) Location() *archetype.IMObject  { return lc.get(RoleLocation) }

func (lc *LocalContext) SetCustomer(obj *archetype.IMObject)  { lc.set(RoleCustomer, obj) }
func (lc *LocalContext) SetPatient(obj *archetype.IMObject)   { lc.set(RolePatient, obj) }
func (lc *LocalContext) SetClinician(obj *archetype.IMObject) { lc.set(RoleClinician, obj) }
func (lc *LocalContext) SetTill(obj *archetype.IMObject)      { lc.set(RoleTill, obj) }
func (lc *LocalContext) SetUser(obj *archetype.IMObject)      { lc.set(RoleUser, obj) }
func (lc *LocalContext) SetPractice(obj *archetype.IMObject)  { lc.set(RolePractice, obj) }
func (lc *LocalContext) SetLocation(obj *archetype.IMObject)  { lc.set(RoleLocation, obj) }

// SeedTaskContext copies every role of ext into a new TaskContext. Objects
// are cloned so the run never writes through to ext.
func SeedTaskContext(ext ExternalContext) *TaskContext {
	tc := NewTaskContext()
	if ext == nil {
		return tc
	}

	tc.SetCustomer(ext.Customer().Clone())
	tc.SetPatient(ext.Patient().Clone())
	tc.SetClinician(ext.Clinician().Clone())
	tc.SetTill(ext.Till().Clone())
	tc.SetUser(ext.User().Clone())
	tc.SetPractice(ext.Practice().Clone())
	tc.SetLocation(ext.Location().Clone())

	return tc
}

// NewSynchronizeContextTask copies customer, patient, clinician and till
// from the task context back to ext. Absent roles leave ext untouched.
func NewSynchronizeContextTask(ext ExternalContext) *SyncTask {
	return NewSyncTask("synchronize-context", func(_ context.Context, tc *TaskContext) error {
		if obj := tc.Customer(); obj != nil {
			ext.SetCustomer(obj.Clone())
		}
		if obj := tc.Patient(); obj != nil {
			ext.SetPatient(obj.Clone())
		}
		if obj := tc.Clinician(); obj != nil {
			ext.SetClinician(obj.Clone())
		}
		if obj := tc.Till(); obj != nil {
			ext.SetTill(obj.Clone())
		}

		return nil
	})
}
