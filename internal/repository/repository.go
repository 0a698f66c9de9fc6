package repository

import (
	"context"

	"github.com/modelplane/modelplane/internal/domain"
)

// ServiceRepository owns service aggregates. Implementations must serialize
// mutations per aggregate: UpdateService applies mutate to a private copy and
// commits it only when mutate returns nil, so a failed mutation leaves the
// stored aggregate untouched. DeleteService runs check (when non-nil) against
// the current aggregate under the same serialization and removes it only when
// check returns nil.
type ServiceRepository interface {
	CreateService(ctx context.Context, service *domain.Service) error
	GetService(ctx context.Context, serviceID string) (*domain.Service, error)
	GetServiceByName(ctx context.Context, name string) (*domain.Service, error)
	ListServices(ctx context.Context) ([]domain.Service, error)
	UpdateService(ctx context.Context, serviceID string, mutate func(*domain.Service) error) (*domain.Service, error)
	DeleteService(ctx context.Context, serviceID string, check func(*domain.Service) error) error
}
