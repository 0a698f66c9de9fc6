package serving

import (
	"context"
	"fmt"

	"github.com/modelplane/modelplane/internal/domain"
)

// SetDesiredState records operator intent. Deactivation forces the observed
// state and replica count down immediately; activation re-enters the
// readiness pipeline, whose progression is driven externally.
func (s Service) SetDesiredState(ctx context.Context, serviceID string, desired domain.DesiredState, actor string) (*domain.Service, error) {
	if desired != domain.DesiredActive && desired != domain.DesiredInactive {
		return nil, errDesiredInvalid
	}
	return s.mutate(ctx, serviceID, func(svc *domain.Service) (*timelineEntry, error) {
		switch desired {
		case domain.DesiredInactive:
			svc.DesiredState = domain.DesiredInactive
			svc.CurrentState = domain.StateInactive
			svc.Replicas.Current = 0
		case domain.DesiredActive:
			svc.DesiredState = domain.DesiredActive
			if svc.CurrentState == domain.StateInactive {
				svc.CurrentState = domain.StatePending
			}
		}
		return &timelineEntry{
			eventType:   domain.EventLifecycle,
			title:       fmt.Sprintf("Desired state set to %s", desired),
			description: fmt.Sprintf("Service is now %s", svc.CurrentState),
			action:      "desired_state_changed",
			actor:       actor,
		}, nil
	})
}
