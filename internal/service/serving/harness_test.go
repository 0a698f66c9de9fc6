package serving

import (
	"context"
	"io"
	"testing"
	"time"

	"log/slog"

	"github.com/modelplane/modelplane/internal/domain"
	"github.com/modelplane/modelplane/internal/repository/memory"
	"github.com/modelplane/modelplane/pkg/id"
)

type planeOption func(*Service)

func withClock(at time.Time) planeOption {
	return func(s *Service) {
		s.now = func() time.Time { return at }
	}
}

func newTestPlane(t *testing.T, opts ...planeOption) (Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	svc := Service{
		store:  store,
		ids:    id.NewSequence(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&svc)
	}
	return svc, store
}

func testRevisionSpec() RevisionSpec {
	return RevisionSpec{
		ModelVersionID: "llama3-8b@v1",
		Runtime:        domain.RuntimeVLLM,
		Resources: domain.ResourceSpec{
			GPUModel:      "A100",
			GPUCount:      1,
			CPURequest:    "2",
			CPULimit:      "4",
			MemoryRequest: "8Gi",
			MemoryLimit:   "16Gi",
		},
		Autoscaling: domain.AutoscalingSpec{
			Metric:                domain.MetricConcurrency,
			MinReplicas:           1,
			MaxReplicas:           4,
			ScaleDownDelaySeconds: 60,
		},
	}
}

func createTestService(t *testing.T, plane Service, name string) *domain.Service {
	t.Helper()
	svc, err := plane.CreateService(context.Background(), CreateInput{
		Name:            name,
		Env:             domain.EnvDev,
		NetworkExposure: domain.ExposurePrivate,
		Revision:        testRevisionSpec(),
		Actor:           "alice",
	})
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	return svc
}

func weightsOf(svc *domain.Service) map[string]float64 {
	out := make(map[string]float64, len(svc.Revisions))
	for _, rev := range svc.Revisions {
		out[rev.ID] = rev.TrafficWeight
	}
	return out
}

func weightSum(svc *domain.Service) float64 {
	sum := 0.0
	for _, rev := range svc.Revisions {
		sum += rev.TrafficWeight
	}
	return sum
}
