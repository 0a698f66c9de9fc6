package serving

import (
	"context"
	"fmt"

	"github.com/modelplane/modelplane/internal/domain"
)

// metricHistoryLimit bounds the retained metric series. Projection only reads
// the trailing metricsWindow points; the rest feeds the console sparkline.
const metricHistoryLimit = 60

// MarkRevisionStatus records the externally probed health of a revision. The
// control plane never transitions revision status on its own.
func (s Service) MarkRevisionStatus(ctx context.Context, serviceID, revisionID string, status domain.RevisionStatus) (*domain.Service, error) {
	switch status {
	case domain.RevisionPending, domain.RevisionReady, domain.RevisionFailed:
	default:
		return nil, errStatusInvalid
	}
	return s.mutate(ctx, serviceID, func(svc *domain.Service) (*timelineEntry, error) {
		rev := svc.Revision(revisionID)
		if rev == nil {
			return nil, fmt.Errorf("%w %s", ErrRevisionNotFound, revisionID)
		}
		rev.Status = status
		return &timelineEntry{
			eventType:   domain.EventHealth,
			title:       fmt.Sprintf("Revision %s reported %s", revisionID, status),
			description: fmt.Sprintf("Health signal marked revision %s as %s", revisionID, status),
			action:      "revision_status_reported",
			actor:       "agent",
		}, nil
	})
}

// AdvanceStage records the externally observed readiness stage. Reaching
// Ready closes out a cold start.
func (s Service) AdvanceStage(ctx context.Context, serviceID string, stage domain.CurrentState) (*domain.Service, error) {
	switch stage {
	case domain.StatePending, domain.StateDownloading, domain.StateStarting, domain.StateReady, domain.StateFailed:
	default:
		return nil, errStageInvalid
	}
	return s.mutate(ctx, serviceID, func(svc *domain.Service) (*timelineEntry, error) {
		svc.CurrentState = stage
		entry := &timelineEntry{
			eventType:   domain.EventLifecycle,
			title:       fmt.Sprintf("Stage advanced to %s", stage),
			description: fmt.Sprintf("Readiness pipeline reported stage %s", stage),
			action:      "stage_reported",
			actor:       "agent",
		}
		if stage == domain.StateReady {
			entry.eventType = domain.EventColdStart
			entry.title = "Cold start complete"
			entry.description = "Service reached Ready"
		}
		return entry, nil
	})
}

// AppendMetricPoints appends externally sampled metric points to the series,
// keeping it bounded. No timeline entry is emitted: metric samples arrive
// continuously and would crowd out operator actions.
func (s Service) AppendMetricPoints(ctx context.Context, serviceID string, points []domain.MetricPoint) (*domain.Service, error) {
	if len(points) == 0 {
		return s.Get(ctx, serviceID)
	}
	return s.mutate(ctx, serviceID, func(svc *domain.Service) (*timelineEntry, error) {
		svc.MetricHistory = append(svc.MetricHistory, points...)
		if overflow := len(svc.MetricHistory) - metricHistoryLimit; overflow > 0 {
			svc.MetricHistory = append([]domain.MetricPoint(nil), svc.MetricHistory[overflow:]...)
		}
		return nil, nil
	})
}
