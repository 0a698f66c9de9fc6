package serving

import (
	"context"
	"fmt"
	"math"

	"github.com/modelplane/modelplane/internal/domain"
)

// sumEpsilon bounds the accepted deviation of a submitted weight set from 100.
const sumEpsilon = 0.01

// CommitTraffic validates and applies an operator-supplied weight map. This is
// the only entry point accepting arbitrary weights; deploy and rollback always
// compute them. Revisions absent from the map are set to zero.
func (s Service) CommitTraffic(ctx context.Context, serviceID string, weights []domain.TrafficWeight, actor string) (*domain.Service, error) {
	return s.mutate(ctx, serviceID, func(svc *domain.Service) (*timelineEntry, error) {
		sum := 0.0
		for _, w := range weights {
			sum += w.Weight
		}
		if math.Abs(sum-100) > sumEpsilon {
			return nil, ErrInvalidTrafficSum
		}

		positive, failedPositive := 0, 0
		for _, w := range weights {
			rev := svc.Revision(w.RevisionID)
			if rev == nil {
				return nil, fmt.Errorf("%w %s", ErrRevisionNotFound, w.RevisionID)
			}
			if w.Weight > 0 {
				positive++
				if rev.Status == domain.RevisionFailed {
					failedPositive++
				}
			}
		}
		if positive > 0 && positive == failedPositive {
			return nil, ErrAllTrafficToFailed
		}

		byID := make(map[string]float64, len(weights))
		for _, w := range weights {
			byID[w.RevisionID] = round2(w.Weight)
		}
		for i := range svc.Revisions {
			svc.Revisions[i].TrafficWeight = byID[svc.Revisions[i].ID]
		}
		return &timelineEntry{
			eventType:   domain.EventTraffic,
			title:       "Traffic updated",
			description: fmt.Sprintf("Traffic split committed across %d revision(s)", positive),
			action:      "traffic_updated",
			actor:       actor,
		}, nil
	})
}

// Rollback forces 100% of traffic onto the target revision. Revision status is
// deliberately not consulted: rollback is the recovery path and must work even
// when the target was last reported unhealthy.
func (s Service) Rollback(ctx context.Context, serviceID, targetRevisionID, actor string) (*domain.Service, error) {
	return s.mutate(ctx, serviceID, func(svc *domain.Service) (*timelineEntry, error) {
		target := svc.Revision(targetRevisionID)
		if target == nil {
			return nil, fmt.Errorf("%w %s", ErrRevisionNotFound, targetRevisionID)
		}
		for i := range svc.Revisions {
			svc.Revisions[i].TrafficWeight = 0
		}
		target.TrafficWeight = 100
		svc.CurrentState = domain.StateReady
		return &timelineEntry{
			eventType:   domain.EventRollback,
			title:       "Rollback executed",
			description: fmt.Sprintf("All traffic moved to revision %s", targetRevisionID),
			action:      "rollback_executed",
			actor:       actor,
		}, nil
	})
}
