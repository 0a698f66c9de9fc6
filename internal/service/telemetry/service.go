package telemetry

import (
	"context"
	"fmt"
	"math"
	"time"

	"log/slog"

	"github.com/modelplane/modelplane/internal/domain"
	"github.com/modelplane/modelplane/internal/repository"
	"github.com/modelplane/modelplane/internal/service/serving"
)

// maxBatchSize bounds a single metrics report. Agents sample every five
// minutes, so anything larger than a day of points is a misbehaving sender.
const maxBatchSize = 288

var (
	errBatchTooLarge = fmt.Errorf("%w: metric batch exceeds %d points", repository.ErrInvalidArgument, maxBatchSize)
	errPointInvalid  = fmt.Errorf("%w: metric point has negative or non-finite values", repository.ErrInvalidArgument)
)

// Service ingests signals reported by serving agents: revision health,
// readiness stage transitions, and sampled metrics. It validates and
// normalizes payloads before handing them to the control plane.
type Service struct {
	plane  serving.Service
	logger *slog.Logger
	now    func() time.Time
}

// New constructs the telemetry ingestion service.
func New(plane serving.Service, logger *slog.Logger) Service {
	return Service{plane: plane, logger: logger, now: time.Now}
}

// ReportRevisionStatus records a health probe result for one revision.
func (s Service) ReportRevisionStatus(ctx context.Context, serviceID, revisionID string, status domain.RevisionStatus) (*domain.Service, error) {
	svc, err := s.plane.MarkRevisionStatus(ctx, serviceID, revisionID, status)
	if err != nil {
		return nil, err
	}
	s.logger.Info("revision status reported", "service_id", serviceID, "revision_id", revisionID, "status", status)
	return svc, nil
}

// ReportStage records a readiness stage transition for the whole service.
func (s Service) ReportStage(ctx context.Context, serviceID string, stage domain.CurrentState) (*domain.Service, error) {
	svc, err := s.plane.AdvanceStage(ctx, serviceID, stage)
	if err != nil {
		return nil, err
	}
	s.logger.Info("stage reported", "service_id", serviceID, "stage", stage)
	return svc, nil
}

// IngestMetrics validates a batch of sampled points and appends them to the
// service's metric history. Points with a zero timestamp are stamped with the
// ingestion time.
func (s Service) IngestMetrics(ctx context.Context, serviceID string, points []domain.MetricPoint) (*domain.Service, error) {
	if len(points) > maxBatchSize {
		return nil, errBatchTooLarge
	}
	now := s.now().UTC()
	cleaned := make([]domain.MetricPoint, 0, len(points))
	for _, p := range points {
		if !validSample(p.QPS) || !validSample(p.P95MS) || !validSample(p.ErrorRate) {
			return nil, errPointInvalid
		}
		if p.Timestamp.IsZero() {
			p.Timestamp = now
		} else {
			p.Timestamp = p.Timestamp.UTC()
		}
		cleaned = append(cleaned, p)
	}
	return s.plane.AppendMetricPoints(ctx, serviceID, cleaned)
}

func validSample(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
