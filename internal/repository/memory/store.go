package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/modelplane/modelplane/internal/domain"
	"github.com/modelplane/modelplane/internal/repository"
)

// Store is the authoritative in-memory service repository. Each aggregate is
// guarded by its own lock, so mutations on one service never block another.
type Store struct {
	mu       sync.RWMutex
	services map[string]*entry
	byName   map[string]string
}

type entry struct {
	mu      sync.Mutex
	deleted bool
	svc     *domain.Service
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		services: make(map[string]*entry),
		byName:   make(map[string]string),
	}
}

// CreateService registers a new aggregate, enforcing id and name uniqueness.
func (s *Store) CreateService(_ context.Context, service *domain.Service) error {
	if service == nil || strings.TrimSpace(service.ID) == "" {
		return repository.ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.services[service.ID]; ok {
		return repository.ErrConflict
	}
	if _, ok := s.byName[service.Name]; ok {
		return repository.ErrConflict
	}
	s.services[service.ID] = &entry{svc: service.Clone()}
	s.byName[service.Name] = service.ID
	return nil
}

// GetService returns a copy of the aggregate.
func (s *Store) GetService(_ context.Context, serviceID string) (*domain.Service, error) {
	ent, err := s.entryByID(serviceID)
	if err != nil {
		return nil, err
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()
	if ent.deleted {
		return nil, repository.ErrNotFound
	}
	return ent.svc.Clone(), nil
}

// GetServiceByName resolves a service by its unique name.
func (s *Store) GetServiceByName(ctx context.Context, name string) (*domain.Service, error) {
	s.mu.RLock()
	serviceID, ok := s.byName[name]
	s.mu.RUnlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s.GetService(ctx, serviceID)
}

// ListServices returns copies of all aggregates ordered by creation time,
// newest first.
func (s *Store) ListServices(_ context.Context) ([]domain.Service, error) {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.services))
	for _, ent := range s.services {
		entries = append(entries, ent)
	}
	s.mu.RUnlock()

	services := make([]domain.Service, 0, len(entries))
	for _, ent := range entries {
		ent.mu.Lock()
		if !ent.deleted {
			services = append(services, *ent.svc.Clone())
		}
		ent.mu.Unlock()
	}
	sort.Slice(services, func(i, j int) bool {
		if services[i].CreatedAt.Equal(services[j].CreatedAt) {
			return services[i].ID < services[j].ID
		}
		return services[i].CreatedAt.After(services[j].CreatedAt)
	})
	return services, nil
}

// UpdateService runs mutate against a copy of the aggregate under the
// aggregate lock. The copy replaces the stored aggregate only when mutate
// returns nil; on error the stored state is untouched.
func (s *Store) UpdateService(_ context.Context, serviceID string, mutate func(*domain.Service) error) (*domain.Service, error) {
	ent, err := s.entryByID(serviceID)
	if err != nil {
		return nil, err
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()
	if ent.deleted {
		return nil, repository.ErrNotFound
	}

	draft := ent.svc.Clone()
	if err := mutate(draft); err != nil {
		return nil, err
	}
	if draft.Name != ent.svc.Name {
		if err := s.rename(ent.svc.Name, draft.Name, serviceID); err != nil {
			return nil, err
		}
	}
	ent.svc = draft
	return draft.Clone(), nil
}

// DeleteService removes the aggregate permanently. check, when non-nil, runs
// against the current state under the aggregate lock and vetoes the delete by
// returning an error. The tombstone keeps an update that already fetched the
// entry from committing after the maps are cleared.
func (s *Store) DeleteService(_ context.Context, serviceID string, check func(*domain.Service) error) error {
	ent, err := s.entryByID(serviceID)
	if err != nil {
		return err
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()
	if ent.deleted {
		return repository.ErrNotFound
	}
	if check != nil {
		if err := check(ent.svc.Clone()); err != nil {
			return err
		}
	}
	ent.deleted = true
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.services, serviceID)
	delete(s.byName, ent.svc.Name)
	return nil
}

func (s *Store) entryByID(serviceID string) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ent, ok := s.services[serviceID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return ent, nil
}

func (s *Store) rename(oldName, newName, serviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if owner, ok := s.byName[newName]; ok && owner != serviceID {
		return repository.ErrConflict
	}
	delete(s.byName, oldName)
	s.byName[newName] = serviceID
	return nil
}
