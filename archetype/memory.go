package archetype

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

var _ Service = (*MemoryService)(nil)

// MemoryService keeps objects in process memory. Callers always receive
// copies, so unsaved edits never leak into the store.
type MemoryService struct {
	mu      sync.RWMutex
	objects map[Reference]*IMObject
	known   map[string]bool
}

// NewMemoryService creates an empty store. When shortNames are given, Create
// rejects any other archetype.
func NewMemoryService(shortNames ...string) *MemoryService {
	s := &MemoryService{
		objects: make(map[Reference]*IMObject),
		known:   make(map[string]bool, len(shortNames)),
	}
	for _, name := range shortNames {
		s.known[name] = true
	}

	return s
}

func (s *MemoryService) Create(_ context.Context, shortName string) (*IMObject, error) {
	if len(s.known) > 0 && !s.known[shortName] {
		return nil, fmt.Errorf("%w: %s", ErrUnknownArchetype, shortName)
	}

	return NewIMObject(shortName, uuid.NewString()), nil
}

func (s *MemoryService) Get(_ context.Context, ref Reference) (*IMObject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, exists := s.objects[ref]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}

	return obj.Clone(), nil
}

func (s *MemoryService) Query(_ context.Context, q *Query) ([]*IMObject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates := make([]*IMObject, 0, len(s.objects))
	for _, obj := range s.objects {
		if q.MatchesShortName(obj.ShortName) {
			candidates = append(candidates, obj)
		}
	}

	matched := q.Apply(candidates)
	result := make([]*IMObject, len(matched))
	for i, obj := range matched {
		result[i] = obj.Clone()
	}

	return result, nil
}

func (s *MemoryService) Save(_ context.Context, objects ...*IMObject) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, obj := range objects {
		if err := s.checkVersion(obj); err != nil {
			return err
		}
	}

	for _, obj := range objects {
		obj.Version++
		s.objects[obj.Ref()] = obj.Clone()
	}

	return nil
}

func (s *MemoryService) checkVersion(obj *IMObject) error {
	if obj.ID == "" || obj.ShortName == "" {
		return fmt.Errorf("save %s: missing identity", obj.Ref())
	}

	stored, exists := s.objects[obj.Ref()]
	switch {
	case !exists && obj.Version != 0:
		return fmt.Errorf("%w: %s", ErrNotFound, obj.Ref())
	case exists && stored.Version != obj.Version:
		return fmt.Errorf("%w: %s", ErrStale, obj.Ref())
	}

	return nil
}

func (s *MemoryService) Remove(_ context.Context, ref Reference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.objects[ref]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	delete(s.objects, ref)

	return nil
}

// Len returns the number of stored objects.
func (s *MemoryService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.objects)
}
