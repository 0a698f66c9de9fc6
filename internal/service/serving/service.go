package serving

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
	"time"

	"log/slog"

	"github.com/modelplane/modelplane/internal/domain"
	"github.com/modelplane/modelplane/internal/repository"
	"github.com/modelplane/modelplane/internal/ws"
	"github.com/modelplane/modelplane/pkg/id"
)

var nameExpr = regexp.MustCompile(`^[a-z]([a-z0-9-]*[a-z0-9])?$`)

const maxNameLength = 63

// Service is the revision and traffic control plane. All mutations run
// through the repository's copy-on-write update, finish with the summary
// projection, and broadcast their timeline event to websocket subscribers.
type Service struct {
	store  repository.ServiceRepository
	ids    id.Generator
	hub    *ws.Hub
	logger *slog.Logger
	now    func() time.Time
}

// New constructs the control-plane service.
func New(store repository.ServiceRepository, ids id.Generator, hub *ws.Hub, logger *slog.Logger) Service {
	return Service{store: store, ids: ids, hub: hub, logger: logger, now: time.Now}
}

// RevisionSpec carries the deployable configuration of a revision request.
type RevisionSpec struct {
	ModelVersionID string
	Runtime        domain.RuntimeKind
	Resources      domain.ResourceSpec
	Autoscaling    domain.AutoscalingSpec
}

// CreateInput captures attributes for a new service and its initial revision.
type CreateInput struct {
	Name            string
	Description     string
	Env             domain.Env
	NetworkExposure domain.NetworkExposure
	IPAllowlist     []string
	Revision        RevisionSpec
	Actor           string
}

// UpdateSettingsInput holds the mutable settings of a service. Nil fields are
// left unchanged; IPAllowlist applies whenever NetworkExposure is set.
type UpdateSettingsInput struct {
	ServiceID       string
	Name            *string
	Description     *string
	NetworkExposure *domain.NetworkExposure
	IPAllowlist     []string
	Actor           string
}

// CreateService registers a new service with one initial revision carrying
// all traffic.
func (s Service) CreateService(ctx context.Context, input CreateInput) (*domain.Service, error) {
	if err := validateName(input.Name); err != nil {
		return nil, err
	}
	if err := validateEnv(input.Env); err != nil {
		return nil, err
	}
	if err := validateExposure(input.NetworkExposure, input.IPAllowlist); err != nil {
		return nil, err
	}
	if err := validateRevisionSpec(input.Revision); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	svc := &domain.Service{
		ID:              s.ids.ServiceID(),
		Name:            input.Name,
		Description:     strings.TrimSpace(input.Description),
		Env:             input.Env,
		DesiredState:    domain.DesiredActive,
		CurrentState:    domain.StatePending,
		NetworkExposure: input.NetworkExposure,
		IPAllowlist:     append([]string(nil), input.IPAllowlist...),
		CreatedBy:       input.Actor,
		CreatedAt:       now,
	}
	initial := s.buildRevision(svc.ID, input.Revision, input.Actor, domain.RevisionReady)
	initial.TrafficWeight = 100
	svc.Revisions = []domain.Revision{initial}

	s.finish(svc, &timelineEntry{
		eventType:   domain.EventDeploy,
		title:       "Service created",
		description: fmt.Sprintf("Initial revision %s deployed at 100%% traffic", initial.ID),
		action:      "service_created",
		actor:       input.Actor,
	})

	if err := s.store.CreateService(ctx, svc); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrNameConflict
		}
		return nil, err
	}
	s.publishTimeline(svc)
	s.logger.Info("service created", "service_id", svc.ID, "name", svc.Name, "env", svc.Env)
	return svc, nil
}

// Get returns a copy of the service aggregate.
func (s Service) Get(ctx context.Context, serviceID string) (*domain.Service, error) {
	serviceID = strings.TrimSpace(serviceID)
	if serviceID == "" {
		return nil, errServiceIDRequired
	}
	return s.store.GetService(ctx, serviceID)
}

// GetByName resolves a service by its unique name.
func (s Service) GetByName(ctx context.Context, name string) (*domain.Service, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errNameInvalid
	}
	return s.store.GetServiceByName(ctx, name)
}

// List returns all services, newest first.
func (s Service) List(ctx context.Context) ([]domain.Service, error) {
	return s.store.ListServices(ctx)
}

// UpdateSettings mutates service metadata and network exposure.
func (s Service) UpdateSettings(ctx context.Context, input UpdateSettingsInput) (*domain.Service, error) {
	updated, err := s.mutate(ctx, input.ServiceID, func(svc *domain.Service) (*timelineEntry, error) {
		if input.Name != nil {
			if err := validateName(*input.Name); err != nil {
				return nil, err
			}
			svc.Name = *input.Name
		}
		if input.Description != nil {
			svc.Description = strings.TrimSpace(*input.Description)
		}
		if input.NetworkExposure != nil {
			if err := validateExposure(*input.NetworkExposure, input.IPAllowlist); err != nil {
				return nil, err
			}
			svc.NetworkExposure = *input.NetworkExposure
			svc.IPAllowlist = append([]string(nil), input.IPAllowlist...)
		}
		return &timelineEntry{
			eventType:   domain.EventSettings,
			title:       "Settings updated",
			description: fmt.Sprintf("Service settings changed for %s", svc.Name),
			action:      "settings_updated",
			actor:       input.Actor,
		}, nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrNameConflict
		}
		return nil, err
	}
	return updated, nil
}

// DeleteService removes a service permanently. The confirmation must equal
// the service name exactly; the repository evaluates it against the current
// aggregate so a concurrent rename cannot let a stale name through.
func (s Service) DeleteService(ctx context.Context, serviceID, confirmName, actor string) error {
	serviceID = strings.TrimSpace(serviceID)
	if serviceID == "" {
		return errServiceIDRequired
	}
	err := s.store.DeleteService(ctx, serviceID, func(svc *domain.Service) error {
		if confirmName != svc.Name {
			return ErrConfirmationMismatch
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("service deleted", "service_id", serviceID, "name", confirmName, "actor", actor)
	return nil
}

// mutate applies a mutation atomically: apply runs against a private copy of
// the aggregate, the timeline entry (when returned) is appended, and the
// summary is reprojected before the copy is committed. On error the stored
// aggregate is untouched.
func (s Service) mutate(ctx context.Context, serviceID string, apply func(*domain.Service) (*timelineEntry, error)) (*domain.Service, error) {
	serviceID = strings.TrimSpace(serviceID)
	if serviceID == "" {
		return nil, errServiceIDRequired
	}
	var recorded bool
	updated, err := s.store.UpdateService(ctx, serviceID, func(svc *domain.Service) error {
		entry, err := apply(svc)
		if err != nil {
			return err
		}
		recorded = entry != nil
		s.finish(svc, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if recorded {
		s.publishTimeline(updated)
	}
	return updated, nil
}

func validateName(name string) error {
	if len(name) == 0 || len(name) > maxNameLength || !nameExpr.MatchString(name) {
		return errNameInvalid
	}
	return nil
}

func validateEnv(env domain.Env) error {
	switch env {
	case domain.EnvDev, domain.EnvTest, domain.EnvProd:
		return nil
	}
	return errEnvInvalid
}

func validateExposure(exposure domain.NetworkExposure, allowlist []string) error {
	switch exposure {
	case domain.ExposurePrivate:
		return nil
	case domain.ExposurePublic:
		if len(allowlist) == 0 {
			return errAllowlistRequired
		}
		for _, cidr := range allowlist {
			if _, _, err := net.ParseCIDR(cidr); err != nil {
				return errAllowlistInvalid
			}
		}
		return nil
	}
	return errExposureInvalid
}

func validateRevisionSpec(spec RevisionSpec) error {
	if strings.TrimSpace(spec.ModelVersionID) == "" {
		return errModelRequired
	}
	switch spec.Runtime {
	case domain.RuntimeVLLM, domain.RuntimeTGI, domain.RuntimeTriton, domain.RuntimeHF:
	default:
		return errRuntimeInvalid
	}
	if spec.Resources.GPUCount < 1 {
		return errGPUCountInvalid
	}
	a := spec.Autoscaling
	switch a.Metric {
	case domain.MetricConcurrency, domain.MetricQPS:
	default:
		return errAutoscaleInvalid
	}
	if a.MinReplicas < 0 || a.MaxReplicas < 1 || a.MaxReplicas < a.MinReplicas || a.ScaleDownDelaySeconds < 0 {
		return errAutoscaleInvalid
	}
	return nil
}
