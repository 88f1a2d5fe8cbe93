package clinicflow

import (
	"sort"

	"github.com/rom8726/clinicflow/archetype"
)

// Role keys used by Data and by template expressions.
const (
	RoleCustomer  = "customer"
	RolePatient   = "patient"
	RoleClinician = "clinician"
	RoleUser      = "user"
	RolePractice  = "practice"
	RoleLocation  = "location"
	RoleTill      = "till"
)

var roleOrder = []string{RoleCustomer, RolePatient, RoleClinician, RoleUser, RolePractice, RoleLocation, RoleTill}

// TaskContext is the state shared by every task of one workflow run. It is
// not safe for concurrent use; the engine runs one task at a time. Missing
// values are returned as nil.
type TaskContext struct {
	roles   map[string]*archetype.IMObject
	objects map[string]*archetype.IMObject
	values  map[string]any
}

func NewTaskContext() *TaskContext {
	return &TaskContext{
		roles:   make(map[string]*archetype.IMObject),
		objects: make(map[string]*archetype.IMObject),
		values:  make(map[string]any),
	}
}

func (tc *TaskContext) Customer() *archetype.IMObject  { return tc.roles[RoleCustomer] }
func (tc *TaskContext) Patient() *archetype.IMObject   { return tc.roles[RolePatient] }
func (tc *TaskContext) Clinician() *archetype.IMObject { return tc.roles[RoleClinician] }
func (tc *TaskContext) User() *archetype.IMObject      { return tc.roles[RoleUser] }
func (tc *TaskContext) Practice() *archetype.IMObject  { return tc.roles[RolePractice] }
func (tc *TaskContext) Location() *archetype.IMObject  { return tc.roles[RoleLocation] }
func (tc *TaskContext) Till() *archetype.IMObject      { return tc.roles[RoleTill] }

func (tc *TaskContext) SetCustomer(obj *archetype.IMObject)  { tc.SetRole(RoleCustomer, obj) }
func (tc *TaskContext) SetPatient(obj *archetype.IMObject)   { tc.SetRole(RolePatient, obj) }
func (tc *TaskContext) SetClinician(obj *archetype.IMObject) { tc.SetRole(RoleClinician, obj) }
func (tc *TaskContext) SetUser(obj *archetype.IMObject)      { tc.SetRole(RoleUser, obj) }
func (tc *TaskContext) SetPractice(obj *archetype.IMObject)  { tc.SetRole(RolePractice, obj) }
func (tc *TaskContext) SetLocation(obj *archetype.IMObject)  { tc.SetRole(RoleLocation, obj) }
func (tc *TaskContext) SetTill(obj *archetype.IMObject)      { tc.SetRole(RoleTill, obj) }

// Role returns the object held in role, one of the Role* constants.
func (tc *TaskContext) Role(role string) *archetype.IMObject {
	return tc.roles[role]
}

// SetRole stores obj in role. A nil obj clears the role.
func (tc *TaskContext) SetRole(role string, obj *archetype.IMObject) {
	if obj == nil {
		delete(tc.roles, role)

		return
	}
	tc.roles[role] = obj
}

// AddObject stores obj under its short name, replacing any previous object
// of the same archetype.
func (tc *TaskContext) AddObject(obj *archetype.IMObject) {
	if obj == nil {
		return
	}
	tc.objects[obj.ShortName] = obj
}

func (tc *TaskContext) RemoveObject(shortName string) {
	delete(tc.objects, shortName)
}

// Object returns the object whose short name matches pattern. Objects added
// with AddObject take precedence over role objects. Wildcard patterns such as
// "act.*" pick the lexically first matching short name.
func (tc *TaskContext) Object(pattern string) *archetype.IMObject {
	if obj, ok := tc.objects[pattern]; ok {
		return obj
	}

	for _, shortName := range sortedKeys(tc.objects) {
		if archetype.MatchShortName(pattern, shortName) {
			return tc.objects[shortName]
		}
	}

	for _, role := range roleOrder {
		if obj := tc.roles[role]; obj != nil && archetype.MatchShortName(pattern, obj.ShortName) {
			return obj
		}
	}

	return nil
}

func (tc *TaskContext) Value(key string) any {
	return tc.values[key]
}

func (tc *TaskContext) SetValue(key string, value any) {
	if value == nil {
		delete(tc.values, key)

		return
	}
	tc.values[key] = value
}

// Data renders the context as nested maps for template expressions:
// role names and "objects" map to node maps, "values" holds named values.
func (tc *TaskContext) Data() map[string]any {
	data := make(map[string]any, len(tc.roles)+2)
	for role, obj := range tc.roles {
		data[role] = objectData(obj)
	}

	objects := make(map[string]any, len(tc.objects))
	for shortName, obj := range tc.objects {
		objects[shortName] = objectData(obj)
	}
	data["objects"] = objects

	values := make(map[string]any, len(tc.values))
	for key, value := range tc.values {
		values[key] = value
	}
	data["values"] = values

	return data
}

func objectData(obj *archetype.IMObject) map[string]any {
	nodes := obj.NodeNames()
	data := make(map[string]any, len(nodes)+3)
	for _, node := range nodes {
		data[node] = obj.Get(node)
	}
	data["id"] = obj.ID
	data["shortName"] = obj.ShortName
	data["name"] = obj.Name

	return data
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return keys
}
