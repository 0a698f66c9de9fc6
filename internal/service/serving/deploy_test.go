package serving

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/modelplane/modelplane/internal/domain"
	"github.com/modelplane/modelplane/internal/repository"
)

func TestDeployFullZeroesSiblings(t *testing.T) {
	plane, _ := newTestPlane(t)
	ctx := context.Background()
	svc := createTestService(t, plane, "chat")

	spec := testRevisionSpec()
	spec.ModelVersionID = "llama3-8b@v2"
	updated, err := plane.DeployRevision(ctx, DeployInput{
		ServiceID: svc.ID,
		Revision:  spec,
		Strategy:  StrategyFull,
		Actor:     "alice",
	})
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}

	if len(updated.Revisions) != 2 {
		t.Fatalf("expected 2 revisions, got %d", len(updated.Revisions))
	}
	if updated.Revisions[0].TrafficWeight != 100 {
		t.Fatalf("new revision should carry 100%%, got %v", updated.Revisions[0].TrafficWeight)
	}
	if updated.Revisions[1].TrafficWeight != 0 {
		t.Fatalf("prior revision should be drained, got %v", updated.Revisions[1].TrafficWeight)
	}
	if updated.CurrentState != domain.StateReady {
		t.Fatalf("expected Ready state, got %s", updated.CurrentState)
	}
	if updated.ModelVersionID != "llama3-8b@v2" {
		t.Fatalf("summary should follow the new revision, got %s", updated.ModelVersionID)
	}
}

func TestDeployKeepZeroLeavesDistributionUntouched(t *testing.T) {
	plane, _ := newTestPlane(t)
	ctx := context.Background()
	svc := createTestService(t, plane, "chat")
	oldRevision := svc.Revisions[0].ID

	updated, err := plane.DeployRevision(ctx, DeployInput{
		ServiceID: svc.ID,
		Revision:  testRevisionSpec(),
		Strategy:  StrategyKeepZero,
		Actor:     "alice",
	})
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}
	weights := weightsOf(updated)
	if weights[oldRevision] != 100 {
		t.Fatalf("existing revision weight changed: %v", weights)
	}
	if weights[updated.Revisions[0].ID] != 0 {
		t.Fatalf("keep_zero revision should start at 0: %v", weights)
	}
	if len(updated.TrafficSummary) != 1 || updated.TrafficSummary[0].RevisionID != oldRevision {
		t.Fatalf("traffic summary should still list only the old revision: %+v", updated.TrafficSummary)
	}
}

func TestDeployCanaryPreservesRatios(t *testing.T) {
	plane, _ := newTestPlane(t)
	ctx := context.Background()
	svc := createTestService(t, plane, "chat")
	revA := svc.Revisions[0].ID

	// Second revision via keep_zero, then hand-set a 70/30 split.
	second, err := plane.DeployRevision(ctx, DeployInput{
		ServiceID: svc.ID,
		Revision:  testRevisionSpec(),
		Strategy:  StrategyKeepZero,
		Actor:     "alice",
	})
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}
	revB := second.Revisions[0].ID
	if _, err := plane.CommitTraffic(ctx, svc.ID, []domain.TrafficWeight{
		{RevisionID: revA, Weight: 70},
		{RevisionID: revB, Weight: 30},
	}, "alice"); err != nil {
		t.Fatalf("commit traffic: %v", err)
	}

	canary := 20.0
	updated, err := plane.DeployRevision(ctx, DeployInput{
		ServiceID:    svc.ID,
		Revision:     testRevisionSpec(),
		Strategy:     StrategyCanary,
		CanaryWeight: &canary,
		Actor:        "alice",
	})
	if err != nil {
		t.Fatalf("canary deploy: %v", err)
	}

	weights := weightsOf(updated)
	if weights[updated.Revisions[0].ID] != 20 {
		t.Fatalf("canary should carry 20%%, got %v", weights)
	}
	if weights[revA] != 56 || weights[revB] != 24 {
		t.Fatalf("expected 70:30 scaled to [56 24], got %v", weights)
	}
	if weightSum(updated) != 100 {
		t.Fatalf("weights must sum to 100, got %v", weightSum(updated))
	}
}

func TestDeployCanaryFractionalWeightRestsAtHundred(t *testing.T) {
	plane, _ := newTestPlane(t)
	ctx := context.Background()
	svc := createTestService(t, plane, "chat")
	oldRevision := svc.Revisions[0].ID

	canary := 10.555
	updated, err := plane.DeployRevision(ctx, DeployInput{
		ServiceID:    svc.ID,
		Revision:     testRevisionSpec(),
		Strategy:     StrategyCanary,
		CanaryWeight: &canary,
		Actor:        "alice",
	})
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}

	weights := weightsOf(updated)
	if got := weights[updated.Revisions[0].ID]; got != round2(canary) {
		t.Fatalf("canary weight should be rounded to two decimals, got %v", got)
	}
	if got := weights[oldRevision]; math.Abs(got-(100-round2(canary))) > 1e-9 {
		t.Fatalf("remainder should split off the rounded canary weight, got %v", got)
	}
	if sum := weightSum(updated); math.Abs(sum-100) > 1e-9 {
		t.Fatalf("fractional canary must still rest at 100, got %v", sum)
	}
}

func TestDeployCanaryDefaultsToTen(t *testing.T) {
	plane, _ := newTestPlane(t)
	ctx := context.Background()
	svc := createTestService(t, plane, "chat")
	oldRevision := svc.Revisions[0].ID

	updated, err := plane.DeployRevision(ctx, DeployInput{
		ServiceID: svc.ID,
		Revision:  testRevisionSpec(),
		Strategy:  StrategyCanary,
		Actor:     "alice",
	})
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}
	weights := weightsOf(updated)
	if weights[updated.Revisions[0].ID] != 10 || weights[oldRevision] != 90 {
		t.Fatalf("expected default 10/90 split, got %v", weights)
	}
}

func TestDeployCanaryLeavesDrainedRevisionsAtZero(t *testing.T) {
	plane, _ := newTestPlane(t)
	ctx := context.Background()
	svc := createTestService(t, plane, "chat")
	drained := svc.Revisions[0].ID

	full, err := plane.DeployRevision(ctx, DeployInput{ServiceID: svc.ID, Revision: testRevisionSpec(), Strategy: StrategyFull, Actor: "alice"})
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}
	holder := full.Revisions[0].ID

	canary := 40.0
	updated, err := plane.DeployRevision(ctx, DeployInput{
		ServiceID:    svc.ID,
		Revision:     testRevisionSpec(),
		Strategy:     StrategyCanary,
		CanaryWeight: &canary,
		Actor:        "alice",
	})
	if err != nil {
		t.Fatalf("canary deploy: %v", err)
	}
	weights := weightsOf(updated)
	if weights[updated.Revisions[0].ID] != 40 || weights[holder] != 60 || weights[drained] != 0 {
		t.Fatalf("expected [40 60 0], got %v", weights)
	}
	if weightSum(updated) != 100 {
		t.Fatalf("weights must sum to 100, got %v", weightSum(updated))
	}
}

func TestDeployRejectsBadInput(t *testing.T) {
	plane, _ := newTestPlane(t)
	ctx := context.Background()
	svc := createTestService(t, plane, "chat")

	outOfRange := 100.0
	cases := []struct {
		name  string
		input DeployInput
	}{
		{"unknown strategy", DeployInput{ServiceID: svc.ID, Revision: testRevisionSpec(), Strategy: "blue_green"}},
		{"canary too high", DeployInput{ServiceID: svc.ID, Revision: testRevisionSpec(), Strategy: StrategyCanary, CanaryWeight: &outOfRange}},
		{"missing model", DeployInput{ServiceID: svc.ID, Revision: RevisionSpec{Runtime: domain.RuntimeVLLM, Resources: testRevisionSpec().Resources, Autoscaling: testRevisionSpec().Autoscaling}, Strategy: StrategyFull}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := plane.DeployRevision(ctx, tc.input); !errors.Is(err, repository.ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}

	stored, err := plane.Get(ctx, svc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(stored.Revisions) != 1 {
		t.Fatalf("rejected deploys must not add revisions, got %d", len(stored.Revisions))
	}
}

func TestDeployGeneratesUniqueArtifacts(t *testing.T) {
	plane, _ := newTestPlane(t)
	ctx := context.Background()
	svc := createTestService(t, plane, "chat")

	first, err := plane.DeployRevision(ctx, DeployInput{ServiceID: svc.ID, Revision: testRevisionSpec(), Strategy: StrategyKeepZero, Actor: "alice"})
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}
	second, err := plane.DeployRevision(ctx, DeployInput{ServiceID: svc.ID, Revision: testRevisionSpec(), Strategy: StrategyKeepZero, Actor: "alice"})
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}

	a, b := first.Revisions[0], second.Revisions[0]
	if a.ID == b.ID || a.ImageDigest == b.ImageDigest || a.ConfigHash == b.ConfigHash {
		t.Fatalf("identical specs must still produce unique artifacts: %+v vs %+v", a, b)
	}
	if !strings.HasPrefix(a.ImageDigest, "sha256:") {
		t.Fatalf("unexpected digest shape: %s", a.ImageDigest)
	}
	if a.Snapshot.Runtime != a.Runtime {
		t.Fatalf("snapshot should freeze the runtime: %+v", a.Snapshot)
	}
}
