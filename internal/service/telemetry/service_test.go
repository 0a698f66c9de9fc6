package telemetry

import (
	"context"
	"errors"
	"io"
	"math"
	"testing"
	"time"

	"log/slog"

	"github.com/modelplane/modelplane/internal/domain"
	"github.com/modelplane/modelplane/internal/repository"
	"github.com/modelplane/modelplane/internal/repository/memory"
	"github.com/modelplane/modelplane/internal/service/serving"
	"github.com/modelplane/modelplane/pkg/id"
)

func newTestIngestor(t *testing.T) (Service, *domain.Service) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	plane := serving.New(memory.NewStore(), id.NewSequence(), nil, logger)
	svc, err := plane.CreateService(context.Background(), serving.CreateInput{
		Name:            "chat",
		Env:             domain.EnvDev,
		NetworkExposure: domain.ExposurePrivate,
		Revision: serving.RevisionSpec{
			ModelVersionID: "llama3-8b@v1",
			Runtime:        domain.RuntimeVLLM,
			Resources:      domain.ResourceSpec{GPUModel: "A100", GPUCount: 1},
			Autoscaling: domain.AutoscalingSpec{
				Metric:      domain.MetricConcurrency,
				MinReplicas: 1,
				MaxReplicas: 4,
			},
		},
		Actor: "alice",
	})
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	return New(plane, logger), svc
}

func TestReportRevisionStatus(t *testing.T) {
	ingest, svc := newTestIngestor(t)

	updated, err := ingest.ReportRevisionStatus(context.Background(), svc.ID, svc.Revisions[0].ID, domain.RevisionFailed)
	if err != nil {
		t.Fatalf("report status: %v", err)
	}
	if updated.Revisions[0].Status != domain.RevisionFailed {
		t.Fatalf("expected Failed, got %s", updated.Revisions[0].Status)
	}
}

func TestReportStage(t *testing.T) {
	ingest, svc := newTestIngestor(t)

	updated, err := ingest.ReportStage(context.Background(), svc.ID, domain.StateDownloading)
	if err != nil {
		t.Fatalf("report stage: %v", err)
	}
	if updated.CurrentState != domain.StateDownloading {
		t.Fatalf("expected Downloading, got %s", updated.CurrentState)
	}
}

func TestIngestMetricsStampsMissingTimestamps(t *testing.T) {
	ingest, svc := newTestIngestor(t)
	fixed := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	ingest.now = func() time.Time { return fixed }

	updated, err := ingest.IngestMetrics(context.Background(), svc.ID, []domain.MetricPoint{
		{QPS: 10, P95MS: 120, ErrorRate: 0.2},
		{Timestamp: fixed.Add(-5 * time.Minute), QPS: 12, P95MS: 130, ErrorRate: 0.1},
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if got := updated.MetricHistory[0].Timestamp; !got.Equal(fixed) {
		t.Fatalf("zero timestamp should be stamped with ingestion time, got %v", got)
	}
	if got := updated.MetricHistory[1].Timestamp; !got.Equal(fixed.Add(-5 * time.Minute)) {
		t.Fatalf("explicit timestamps must survive, got %v", got)
	}
}

func TestIngestMetricsRejectsBadSamples(t *testing.T) {
	ingest, svc := newTestIngestor(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		point domain.MetricPoint
	}{
		{"negative qps", domain.MetricPoint{QPS: -1}},
		{"nan p95", domain.MetricPoint{P95MS: math.NaN()}},
		{"infinite error rate", domain.MetricPoint{ErrorRate: math.Inf(1)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ingest.IngestMetrics(ctx, svc.ID, []domain.MetricPoint{tc.point}); !errors.Is(err, repository.ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}

	stored, err := ingest.plane.Get(ctx, svc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(stored.MetricHistory) != 0 {
		t.Fatalf("rejected batches must not be partially applied, got %d points", len(stored.MetricHistory))
	}
}

func TestIngestMetricsRejectsOversizedBatch(t *testing.T) {
	ingest, svc := newTestIngestor(t)

	batch := make([]domain.MetricPoint, maxBatchSize+1)
	if _, err := ingest.IngestMetrics(context.Background(), svc.ID, batch); !errors.Is(err, repository.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
