package serving

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/modelplane/modelplane/internal/domain"
)

// DeployStrategy selects how traffic shifts when a new revision lands.
type DeployStrategy string

const (
	// StrategyFull cuts all traffic over to the new revision.
	StrategyFull DeployStrategy = "full"
	// StrategyKeepZero deploys the revision without routing traffic to it.
	StrategyKeepZero DeployStrategy = "keep_zero"
	// StrategyCanary routes a slice of traffic to the new revision and scales
	// the existing distribution down proportionally.
	StrategyCanary DeployStrategy = "canary"
)

const defaultCanaryWeight = 10

// DeployInput models a revision deployment request.
type DeployInput struct {
	ServiceID    string
	Revision     RevisionSpec
	Strategy     DeployStrategy
	CanaryWeight *float64
	Actor        string
}

// DeployRevision creates a new revision from the request and applies the
// selected traffic strategy. The new revision is inserted at the head of the
// revision list and the service is marked Ready.
func (s Service) DeployRevision(ctx context.Context, input DeployInput) (*domain.Service, error) {
	if err := validateRevisionSpec(input.Revision); err != nil {
		return nil, err
	}
	canary := float64(defaultCanaryWeight)
	switch input.Strategy {
	case StrategyFull, StrategyKeepZero:
	case StrategyCanary:
		if input.CanaryWeight != nil {
			canary = *input.CanaryWeight
		}
		if canary < 1 || canary > 99 {
			return nil, errCanaryOutOfRange
		}
	default:
		return nil, errStrategyInvalid
	}

	return s.mutate(ctx, input.ServiceID, func(svc *domain.Service) (*timelineEntry, error) {
		rev := s.buildRevision(svc.ID, input.Revision, input.Actor, domain.RevisionReady)
		applyStrategy(svc, &rev, input.Strategy, canary)
		svc.Revisions = append([]domain.Revision{rev}, svc.Revisions...)
		svc.CurrentState = domain.StateReady
		return &timelineEntry{
			eventType:   domain.EventDeploy,
			title:       "Revision deployed",
			description: fmt.Sprintf("Revision %s (%s) deployed with strategy %s at %.2f%% traffic", rev.ID, rev.ModelVersionID, input.Strategy, rev.TrafficWeight),
			action:      "revision_deployed",
			actor:       input.Actor,
		}, nil
	})
}

// buildRevision assembles an immutable revision record from a spec. The
// caller assigns the traffic weight afterwards.
func (s Service) buildRevision(serviceID string, spec RevisionSpec, actor string, status domain.RevisionStatus) domain.Revision {
	snapshot := domain.ConfigSnapshot{
		Runtime:     spec.Runtime,
		Resources:   spec.Resources,
		Autoscaling: spec.Autoscaling,
	}
	rev := domain.Revision{
		ID:             s.ids.RevisionID(),
		ServiceID:      serviceID,
		ModelVersionID: spec.ModelVersionID,
		Runtime:        spec.Runtime,
		ImageDigest:    s.ids.ImageDigest(),
		Status:         status,
		Resources:      spec.Resources,
		Autoscaling:    spec.Autoscaling,
		Snapshot:       snapshot,
		CreatedBy:      actor,
		CreatedAt:      s.now().UTC(),
	}
	rev.ConfigHash = configHashOf(rev.ID, snapshot)
	return rev
}

// applyStrategy assigns the new revision's weight and redistributes the
// existing revisions' weights. Canary preserves the relative ratios of the
// prior distribution by normalizing it to the remaining share.
func applyStrategy(svc *domain.Service, rev *domain.Revision, strategy DeployStrategy, canaryWeight float64) {
	switch strategy {
	case StrategyFull:
		rev.TrafficWeight = 100
		for i := range svc.Revisions {
			svc.Revisions[i].TrafficWeight = 0
		}
	case StrategyKeepZero:
		rev.TrafficWeight = 0
	case StrategyCanary:
		// Round once and split the remainder off the rounded value, so the
		// resting distribution sums to 100 even for fractional canary weights.
		canary := round2(canaryWeight)
		rev.TrafficWeight = canary
		current := make([]domain.TrafficWeight, len(svc.Revisions))
		for i, existing := range svc.Revisions {
			current[i] = domain.TrafficWeight{RevisionID: existing.ID, Weight: existing.TrafficWeight}
		}
		redistributed := Normalize(current, 100-canary)
		byID := make(map[string]float64, len(redistributed))
		for _, w := range redistributed {
			byID[w.RevisionID] = w.Weight
		}
		for i := range svc.Revisions {
			svc.Revisions[i].TrafficWeight = byID[svc.Revisions[i].ID]
		}
	}
}

func configHashOf(revisionID string, snapshot domain.ConfigSnapshot) string {
	payload, _ := json.Marshal(struct {
		RevisionID string
		Snapshot   domain.ConfigSnapshot
	}{revisionID, snapshot})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])[:12]
}
