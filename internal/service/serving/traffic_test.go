package serving

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/modelplane/modelplane/internal/domain"
	"github.com/modelplane/modelplane/internal/repository"
)

func deployKeepZero(t *testing.T, plane Service, serviceID string) string {
	t.Helper()
	updated, err := plane.DeployRevision(context.Background(), DeployInput{
		ServiceID: serviceID,
		Revision:  testRevisionSpec(),
		Strategy:  StrategyKeepZero,
		Actor:     "alice",
	})
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}
	return updated.Revisions[0].ID
}

func TestCommitTrafficRejectsBadSums(t *testing.T) {
	plane, _ := newTestPlane(t)
	ctx := context.Background()
	svc := createTestService(t, plane, "chat")
	revA := svc.Revisions[0].ID
	revB := deployKeepZero(t, plane, svc.ID)

	for _, sum := range []struct {
		name    string
		a, b    float64
		allowed bool
	}{
		{"too low", 50, 47, false},
		{"too high", 60, 43, false},
		{"within epsilon", 50, 49.995, true},
		{"exact", 30, 70, true},
	} {
		t.Run(sum.name, func(t *testing.T) {
			_, err := plane.CommitTraffic(ctx, svc.ID, []domain.TrafficWeight{
				{RevisionID: revA, Weight: sum.a},
				{RevisionID: revB, Weight: sum.b},
			}, "alice")
			if sum.allowed && err != nil {
				t.Fatalf("expected success, got %v", err)
			}
			if !sum.allowed && !errors.Is(err, ErrInvalidTrafficSum) {
				t.Fatalf("expected ErrInvalidTrafficSum, got %v", err)
			}
		})
	}
}

func TestCommitTrafficFailedRevisionGuard(t *testing.T) {
	plane, _ := newTestPlane(t)
	ctx := context.Background()
	svc := createTestService(t, plane, "chat")
	revA := svc.Revisions[0].ID
	revB := deployKeepZero(t, plane, svc.ID)

	if _, err := plane.MarkRevisionStatus(ctx, svc.ID, revA, domain.RevisionFailed); err != nil {
		t.Fatalf("mark status: %v", err)
	}

	_, err := plane.CommitTraffic(ctx, svc.ID, []domain.TrafficWeight{
		{RevisionID: revA, Weight: 100},
		{RevisionID: revB, Weight: 0},
	}, "alice")
	if !errors.Is(err, ErrAllTrafficToFailed) {
		t.Fatalf("expected ErrAllTrafficToFailed, got %v", err)
	}

	// A mix with one healthy positive-weight revision is fine.
	if _, err := plane.CommitTraffic(ctx, svc.ID, []domain.TrafficWeight{
		{RevisionID: revA, Weight: 50},
		{RevisionID: revB, Weight: 50},
	}, "alice"); err != nil {
		t.Fatalf("expected mixed commit to succeed, got %v", err)
	}

	// Once the revision recovers, full traffic is allowed again.
	if _, err := plane.MarkRevisionStatus(ctx, svc.ID, revA, domain.RevisionReady); err != nil {
		t.Fatalf("mark status: %v", err)
	}
	if _, err := plane.CommitTraffic(ctx, svc.ID, []domain.TrafficWeight{
		{RevisionID: revA, Weight: 100},
	}, "alice"); err != nil {
		t.Fatalf("expected commit to recovered revision to succeed, got %v", err)
	}
}

func TestCommitTrafficUnknownRevision(t *testing.T) {
	plane, _ := newTestPlane(t)
	ctx := context.Background()
	svc := createTestService(t, plane, "chat")

	_, err := plane.CommitTraffic(ctx, svc.ID, []domain.TrafficWeight{
		{RevisionID: "rev-missing", Weight: 100},
	}, "alice")
	if !errors.Is(err, ErrRevisionNotFound) {
		t.Fatalf("expected ErrRevisionNotFound, got %v", err)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("revision errors should carry the not-found kind, got %v", err)
	}
}

func TestCommitTrafficZeroesAbsentRevisions(t *testing.T) {
	plane, _ := newTestPlane(t)
	ctx := context.Background()
	svc := createTestService(t, plane, "chat")
	revA := svc.Revisions[0].ID
	revB := deployKeepZero(t, plane, svc.ID)

	updated, err := plane.CommitTraffic(ctx, svc.ID, []domain.TrafficWeight{
		{RevisionID: revB, Weight: 100},
	}, "alice")
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	weights := weightsOf(updated)
	if weights[revA] != 0 || weights[revB] != 100 {
		t.Fatalf("absent revisions must drop to zero: %v", weights)
	}
	want := []domain.TrafficWeight{{RevisionID: revB, Weight: 100}}
	if !reflect.DeepEqual(updated.TrafficSummary, want) {
		t.Fatalf("unexpected traffic summary: %+v", updated.TrafficSummary)
	}
}

func TestCommitTrafficFailureLeavesAggregateUnchanged(t *testing.T) {
	plane, _ := newTestPlane(t)
	ctx := context.Background()
	svc := createTestService(t, plane, "chat")
	revA := svc.Revisions[0].ID

	before, err := plane.Get(ctx, svc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if _, err := plane.CommitTraffic(ctx, svc.ID, []domain.TrafficWeight{
		{RevisionID: revA, Weight: 97},
	}, "alice"); !errors.Is(err, ErrInvalidTrafficSum) {
		t.Fatalf("expected rejection, got %v", err)
	}

	after, err := plane.Get(ctx, svc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("rejected commit mutated the aggregate:\nbefore %+v\nafter  %+v", before, after)
	}
}

func TestRollbackMovesAllTraffic(t *testing.T) {
	plane, _ := newTestPlane(t)
	ctx := context.Background()
	svc := createTestService(t, plane, "chat")
	revA := svc.Revisions[0].ID
	revB := deployKeepZero(t, plane, svc.ID)

	if _, err := plane.CommitTraffic(ctx, svc.ID, []domain.TrafficWeight{
		{RevisionID: revA, Weight: 40},
		{RevisionID: revB, Weight: 60},
	}, "alice"); err != nil {
		t.Fatalf("commit: %v", err)
	}

	updated, err := plane.Rollback(ctx, svc.ID, revB, "alice")
	if err != nil {
		t.Fatalf("rollback: %v", err)
	}
	weights := weightsOf(updated)
	if weights[revA] != 0 || weights[revB] != 100 {
		t.Fatalf("expected [0 100], got %v", weights)
	}
	if updated.CurrentState != domain.StateReady {
		t.Fatalf("rollback should mark the service Ready, got %s", updated.CurrentState)
	}
}

func TestRollbackToFailedRevisionIsAllowed(t *testing.T) {
	plane, _ := newTestPlane(t)
	ctx := context.Background()
	svc := createTestService(t, plane, "chat")
	revA := svc.Revisions[0].ID

	if _, err := plane.MarkRevisionStatus(ctx, svc.ID, revA, domain.RevisionFailed); err != nil {
		t.Fatalf("mark status: %v", err)
	}
	updated, err := plane.Rollback(ctx, svc.ID, revA, "alice")
	if err != nil {
		t.Fatalf("rollback is the recovery path and must not consult status: %v", err)
	}
	if updated.Revisions[0].TrafficWeight != 100 {
		t.Fatalf("expected full traffic on target, got %v", updated.Revisions[0].TrafficWeight)
	}
}

func TestRollbackUnknownRevision(t *testing.T) {
	plane, _ := newTestPlane(t)
	ctx := context.Background()
	svc := createTestService(t, plane, "chat")

	if _, err := plane.Rollback(ctx, svc.ID, "rev-missing", "alice"); !errors.Is(err, ErrRevisionNotFound) {
		t.Fatalf("expected ErrRevisionNotFound, got %v", err)
	}
}
