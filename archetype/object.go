package archetype

import (
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"time"
)

// Reference identifies a persistent domain object.
type Reference struct {
	ShortName string `json:"short_name"`
	ID        string `json:"id"`
}

func (r Reference) IsZero() bool {
	return r.ShortName == "" && r.ID == ""
}

func (r Reference) String() string {
	return r.ShortName + ":" + r.ID
}

// IMObject is a domain object: an archetyped bag of named nodes.
//
// Node values are normalized on Set to one of string, bool, int64, float64,
// time.Time or Reference so that every backend round-trips them unchanged.
type IMObject struct {
	ShortName string
	ID        string
	Name      string
	// Version is bumped by the service on every save. Zero means never saved.
	Version int64

	nodes map[string]any
}

func NewIMObject(shortName, id string) *IMObject {
	return &IMObject{
		ShortName: shortName,
		ID:        id,
		nodes:     make(map[string]any),
	}
}

func (o *IMObject) Ref() Reference {
	return Reference{ShortName: o.ShortName, ID: o.ID}
}

func (o *IMObject) IsNew() bool {
	return o.Version == 0
}

// IsA reports whether the object's short name matches any of the patterns.
// Patterns may contain '*' wildcards, e.g. "act.customer*".
func (o *IMObject) IsA(patterns ...string) bool {
	for _, pattern := range patterns {
		if MatchShortName(pattern, o.ShortName) {
			return true
		}
	}

	return false
}

func (o *IMObject) Get(node string) any {
	if node == NodeName {
		return o.Name
	}

	return o.nodes[node]
}

func (o *IMObject) Has(node string) bool {
	if node == NodeName {
		return o.Name != ""
	}
	_, ok := o.nodes[node]

	return ok
}

// Set assigns a node value. A nil value removes the node.
func (o *IMObject) Set(node string, value any) error {
	if o.nodes == nil {
		o.nodes = make(map[string]any)
	}

	normalized, err := Normalize(value)
	if err != nil {
		return fmt.Errorf("node %q: %w", node, err)
	}

	if node == NodeName {
		s, _ := normalized.(string)
		o.Name = s

		return nil
	}

	if normalized == nil {
		delete(o.nodes, node)

		return nil
	}
	o.nodes[node] = normalized

	return nil
}

// MustSet is Set for values known to be valid; it panics otherwise.
func (o *IMObject) MustSet(node string, value any) *IMObject {
	if err := o.Set(node, value); err != nil {
		panic(err)
	}

	return o
}

func (o *IMObject) GetString(node string) string {
	s, _ := o.Get(node).(string)

	return s
}

func (o *IMObject) GetBool(node string) bool {
	b, _ := o.Get(node).(bool)

	return b
}

func (o *IMObject) GetInt64(node string) int64 {
	i, _ := o.Get(node).(int64)

	return i
}

func (o *IMObject) GetFloat(node string) float64 {
	switch v := o.Get(node).(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}

	return 0
}

func (o *IMObject) GetTime(node string) time.Time {
	t, _ := o.Get(node).(time.Time)

	return t
}

func (o *IMObject) GetReference(node string) Reference {
	r, _ := o.Get(node).(Reference)

	return r
}

// NodeNames returns the names of the set nodes in lexical order.
func (o *IMObject) NodeNames() []string {
	names := make([]string, 0, len(o.nodes))
	for name := range o.nodes {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Clone returns a copy that shares no mutable state with o.
func (o *IMObject) Clone() *IMObject {
	if o == nil {
		return nil
	}

	clone := *o
	clone.nodes = make(map[string]any, len(o.nodes))
	for k, v := range o.nodes {
		clone.nodes[k] = v
	}

	return &clone
}

// Normalize converts a node value to its canonical representation.
func Normalize(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string, bool, int64, float64, Reference:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case float32:
		return float64(v), nil
	case time.Time:
		return v.UTC(), nil
	case *time.Time:
		if v == nil {
			return nil, nil
		}
		return v.UTC(), nil
	case *Reference:
		if v == nil {
			return nil, nil
		}
		return *v, nil
	case *IMObject:
		if v == nil {
			return nil, nil
		}
		return v.Ref(), nil
	default:
		return nil, fmt.Errorf("unsupported node value type %T", value)
	}
}

// MatchShortName reports whether shortName matches pattern.
func MatchShortName(pattern, shortName string) bool {
	if pattern == shortName {
		return true
	}
	ok, err := path.Match(pattern, shortName)

	return err == nil && ok
}

const (
	typeString    = "s"
	typeBool      = "b"
	typeInt       = "i"
	typeFloat     = "f"
	typeTime      = "t"
	typeReference = "r"
)

type encodedNode struct {
	Type  string          `json:"t"`
	Value json.RawMessage `json:"v"`
}

type encodedObject struct {
	ShortName string                 `json:"short_name"`
	ID        string                 `json:"id"`
	Name      string                 `json:"name,omitempty"`
	Version   int64                  `json:"version"`
	Nodes     map[string]encodedNode `json:"nodes"`
}

func (o *IMObject) MarshalJSON() ([]byte, error) {
	nodes, err := encodeNodes(o.nodes)
	if err != nil {
		return nil, err
	}

	return json.Marshal(encodedObject{
		ShortName: o.ShortName,
		ID:        o.ID,
		Name:      o.Name,
		Version:   o.Version,
		Nodes:     nodes,
	})
}

func (o *IMObject) UnmarshalJSON(data []byte) error {
	var enc encodedObject
	if err := json.Unmarshal(data, &enc); err != nil {
		return err
	}

	nodes, err := decodeNodes(enc.Nodes)
	if err != nil {
		return err
	}

	o.ShortName = enc.ShortName
	o.ID = enc.ID
	o.Name = enc.Name
	o.Version = enc.Version
	o.nodes = nodes

	return nil
}

// encodeNodes converts node values into their typed wire form.
func encodeNodes(nodes map[string]any) (map[string]encodedNode, error) {
	out := make(map[string]encodedNode, len(nodes))
	for name, value := range nodes {
		var typ string
		switch value.(type) {
		case string:
			typ = typeString
		case bool:
			typ = typeBool
		case int64:
			typ = typeInt
		case float64:
			typ = typeFloat
		case time.Time:
			typ = typeTime
		case Reference:
			typ = typeReference
		default:
			return nil, fmt.Errorf("node %q: unsupported type %T", name, value)
		}

		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("marshal node %q: %w", name, err)
		}
		out[name] = encodedNode{Type: typ, Value: raw}
	}

	return out, nil
}

// decodeNodes is the inverse of encodeNodes.
func decodeNodes(nodes map[string]encodedNode) (map[string]any, error) {
	out := make(map[string]any, len(nodes))
	for name, node := range nodes {
		var (
			value any
			err   error
		)

		switch node.Type {
		case typeString:
			var s string
			err = json.Unmarshal(node.Value, &s)
			value = s
		case typeBool:
			var b bool
			err = json.Unmarshal(node.Value, &b)
			value = b
		case typeInt:
			var i int64
			err = json.Unmarshal(node.Value, &i)
			value = i
		case typeFloat:
			var f float64
			err = json.Unmarshal(node.Value, &f)
			value = f
		case typeTime:
			var t time.Time
			err = json.Unmarshal(node.Value, &t)
			value = t.UTC()
		case typeReference:
			var r Reference
			err = json.Unmarshal(node.Value, &r)
			value = r
		default:
			err = fmt.Errorf("unknown node type %q", node.Type)
		}
		if err != nil {
			return nil, fmt.Errorf("decode node %q: %w", name, err)
		}

		out[name] = value
	}

	return out, nil
}
