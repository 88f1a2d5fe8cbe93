// Package diskvstore implements archetype.Service on the diskv on-disk
// key-value store. Saves of several objects are not atomic.
package diskvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/peterbourgon/diskv/v3"

	"github.com/rom8726/clinicflow/archetype"
)

var _ archetype.Service = (*Diskv)(nil)

const keySep = "~"

// Diskv is a diskv-backed domain service.
type Diskv struct {
	mu sync.Mutex
	dv *diskv.Diskv
}

func New(path string) *Diskv {
	flatTransform := func(s string) []string { return []string{} }

	return &Diskv{dv: diskv.New(diskv.Options{
		BasePath:     filepath.Join(path, "archetype", "objects"),
		Transform:    flatTransform,
		CacheSizeMax: 1024 * 1024,
	})}
}

func key(ref archetype.Reference) string {
	return ref.ShortName + keySep + ref.ID
}

func (s *Diskv) Create(_ context.Context, shortName string) (*archetype.IMObject, error) {
	return archetype.NewIMObject(shortName, uuid.NewString()), nil
}

func (s *Diskv) Get(_ context.Context, ref archetype.Reference) (*archetype.IMObject, error) {
	return s.read(key(ref))
}

func (s *Diskv) read(k string) (*archetype.IMObject, error) {
	if !s.dv.Has(k) {
		return nil, fmt.Errorf("%w: %s", archetype.ErrNotFound, strings.Replace(k, keySep, ":", 1))
	}

	data, err := s.dv.Read(k)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", k, err)
	}

	var obj archetype.IMObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", k, err)
	}

	return &obj, nil
}

func (s *Diskv) Query(ctx context.Context, q *archetype.Query) ([]*archetype.IMObject, error) {
	cancel := make(chan struct{})
	defer close(cancel)

	var candidates []*archetype.IMObject
	for k := range s.dv.Keys(cancel) {
		shortName, _, ok := strings.Cut(k, keySep)
		if !ok || !q.MatchesShortName(shortName) {
			continue
		}

		obj, err := s.read(k)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, obj)

		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	return q.Apply(candidates), nil
}

func (s *Diskv) Save(_ context.Context, objects ...*archetype.IMObject) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, obj := range objects {
		if obj.ID == "" || obj.ShortName == "" {
			return fmt.Errorf("save %s: missing identity", obj.Ref())
		}

		k := key(obj.Ref())
		exists := s.dv.Has(k)
		switch {
		case !exists && obj.Version != 0:
			return fmt.Errorf("%w: %s", archetype.ErrNotFound, obj.Ref())
		case exists:
			stored, err := s.read(k)
			if err != nil {
				return err
			}
			if stored.Version != obj.Version {
				return fmt.Errorf("%w: %s", archetype.ErrStale, obj.Ref())
			}
		}

		next := obj.Clone()
		next.Version++
		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", obj.Ref(), err)
		}
		if err := s.dv.Write(k, data); err != nil {
			return fmt.Errorf("write %s: %w", obj.Ref(), err)
		}
		obj.Version = next.Version
	}

	return nil
}

func (s *Diskv) Remove(_ context.Context, ref archetype.Reference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(ref)
	if !s.dv.Has(k) {
		return fmt.Errorf("%w: %s", archetype.ErrNotFound, ref)
	}

	return s.dv.Erase(k)
}
