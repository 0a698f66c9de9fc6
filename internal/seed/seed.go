package seed

import (
	"context"
	"fmt"
	"os"
	"time"

	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/modelplane/modelplane/internal/domain"
	"github.com/modelplane/modelplane/internal/service/serving"
	"github.com/modelplane/modelplane/internal/service/telemetry"
)

// File is the top-level fixture document.
type File struct {
	Services []ServiceFixture `yaml:"services"`
}

// ServiceFixture describes one demo service. The first revision becomes the
// initial deployment; later ones are deployed in order with their strategy.
type ServiceFixture struct {
	Name            string            `yaml:"name"`
	Description     string            `yaml:"description"`
	Env             string            `yaml:"env"`
	NetworkExposure string            `yaml:"network_exposure"`
	IPAllowlist     []string          `yaml:"ip_allowlist"`
	Revisions       []RevisionFixture `yaml:"revisions"`
	Metrics         []MetricFixture   `yaml:"metrics"`
}

// RevisionFixture describes a deployable revision.
type RevisionFixture struct {
	ModelVersionID string  `yaml:"model_version_id"`
	Runtime        string  `yaml:"runtime"`
	Strategy       string  `yaml:"strategy"`
	CanaryWeight   float64 `yaml:"canary_weight"`

	GPUModel      string `yaml:"gpu_model"`
	GPUCount      int    `yaml:"gpu_count"`
	CPURequest    string `yaml:"cpu_request"`
	CPULimit      string `yaml:"cpu_limit"`
	MemoryRequest string `yaml:"memory_request"`
	MemoryLimit   string `yaml:"memory_limit"`

	Metric                string `yaml:"autoscaling_metric"`
	MinReplicas           int    `yaml:"min_replicas"`
	MaxReplicas           int    `yaml:"max_replicas"`
	ScaleDownDelaySeconds int    `yaml:"scale_down_delay_seconds"`
	ScaleToZero           bool   `yaml:"scale_to_zero"`
}

// MetricFixture is one sampled metric point.
type MetricFixture struct {
	Timestamp string  `yaml:"timestamp"`
	QPS       float64 `yaml:"qps"`
	P95MS     float64 `yaml:"p95_ms"`
	ErrorRate float64 `yaml:"error_rate"`
}

// Load parses a fixture file.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var file File
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &file, nil
}

// Apply replays the fixtures through the regular control-plane operations so
// seeded services carry real events, audits, and projections.
func Apply(ctx context.Context, file *File, plane serving.Service, ingest telemetry.Service, logger *slog.Logger) error {
	for _, fixture := range file.Services {
		if len(fixture.Revisions) == 0 {
			return fmt.Errorf("seed service %q has no revisions", fixture.Name)
		}
		if existing, err := plane.GetByName(ctx, fixture.Name); err == nil {
			logger.Info("seed fixture already present, skipping", "name", existing.Name)
			continue
		}
		svc, err := plane.CreateService(ctx, serving.CreateInput{
			Name:            fixture.Name,
			Description:     fixture.Description,
			Env:             domain.Env(fixture.Env),
			NetworkExposure: exposureOrDefault(fixture.NetworkExposure),
			IPAllowlist:     fixture.IPAllowlist,
			Revision:        fixture.Revisions[0].toSpec(),
			Actor:           "seed",
		})
		if err != nil {
			return fmt.Errorf("seed service %q: %w", fixture.Name, err)
		}

		for _, rev := range fixture.Revisions[1:] {
			strategy := serving.DeployStrategy(rev.Strategy)
			if rev.Strategy == "" {
				strategy = serving.StrategyKeepZero
			}
			input := serving.DeployInput{
				ServiceID: svc.ID,
				Revision:  rev.toSpec(),
				Strategy:  strategy,
				Actor:     "seed",
			}
			if rev.CanaryWeight > 0 {
				weight := rev.CanaryWeight
				input.CanaryWeight = &weight
			}
			if _, err := plane.DeployRevision(ctx, input); err != nil {
				return fmt.Errorf("seed service %q revision %s: %w", fixture.Name, rev.ModelVersionID, err)
			}
		}

		if len(fixture.Metrics) > 0 {
			points := make([]domain.MetricPoint, 0, len(fixture.Metrics))
			for _, m := range fixture.Metrics {
				point := domain.MetricPoint{QPS: m.QPS, P95MS: m.P95MS, ErrorRate: m.ErrorRate}
				if m.Timestamp != "" {
					parsed, err := time.Parse(time.RFC3339, m.Timestamp)
					if err != nil {
						return fmt.Errorf("seed service %q: invalid metric timestamp %q", fixture.Name, m.Timestamp)
					}
					point.Timestamp = parsed.UTC()
				}
				points = append(points, point)
			}
			if _, err := ingest.IngestMetrics(ctx, svc.ID, points); err != nil {
				return fmt.Errorf("seed service %q metrics: %w", fixture.Name, err)
			}
		}
		logger.Info("seeded service", "name", fixture.Name, "revisions", len(fixture.Revisions), "metric_points", len(fixture.Metrics))
	}
	return nil
}

func (r RevisionFixture) toSpec() serving.RevisionSpec {
	return serving.RevisionSpec{
		ModelVersionID: r.ModelVersionID,
		Runtime:        domain.RuntimeKind(r.Runtime),
		Resources: domain.ResourceSpec{
			GPUModel:      r.GPUModel,
			GPUCount:      r.GPUCount,
			CPURequest:    r.CPURequest,
			CPULimit:      r.CPULimit,
			MemoryRequest: r.MemoryRequest,
			MemoryLimit:   r.MemoryLimit,
		},
		Autoscaling: domain.AutoscalingSpec{
			Metric:                domain.AutoscalingMetric(r.Metric),
			MinReplicas:           r.MinReplicas,
			MaxReplicas:           r.MaxReplicas,
			ScaleDownDelaySeconds: r.ScaleDownDelaySeconds,
			ScaleToZero:           r.ScaleToZero,
		},
	}
}

func exposureOrDefault(exposure string) domain.NetworkExposure {
	if exposure == "" {
		return domain.ExposurePrivate
	}
	return domain.NetworkExposure(exposure)
}
