package serving

import "github.com/modelplane/modelplane/internal/domain"

// metricsWindow is the number of trailing metric points covering the rolling
// hour (one point per five minutes).
const metricsWindow = 12

// projectSummary recomputes every derived field on the service from its
// revision set and metric history. Idempotent apart from UpdatedAt.
func (s Service) projectSummary(svc *domain.Service) {
	if active := electActiveRevision(svc.Revisions); active != nil {
		svc.ModelVersionID = active.ModelVersionID
		svc.Runtime = active.Runtime
		svc.RuntimeConfig = active.Snapshot
		svc.ResourceSpec = active.Resources
		svc.Autoscaling = active.Autoscaling
		svc.Replicas.Min = active.Autoscaling.MinReplicas
		svc.Replicas.Max = active.Autoscaling.MaxReplicas
	}

	summary := make([]domain.TrafficWeight, 0, len(svc.Revisions))
	for _, rev := range svc.Revisions {
		if rev.TrafficWeight > 0 {
			summary = append(summary, domain.TrafficWeight{RevisionID: rev.ID, Weight: rev.TrafficWeight})
		}
	}
	svc.TrafficSummary = summary

	if svc.DesiredState == domain.DesiredInactive {
		svc.Replicas.Current = 0
	} else {
		svc.Replicas.Current = clampReplicas(svc.Replicas.Current, svc.Replicas.Min, svc.Replicas.Max)
	}

	svc.Metrics1h = summarizeMetrics(svc.MetricHistory)
	svc.UpdatedAt = s.now().UTC()
}

// electActiveRevision picks the revision whose configuration the service
// surfaces: first carrying traffic, else first Ready, else first in list.
func electActiveRevision(revisions []domain.Revision) *domain.Revision {
	for i := range revisions {
		if revisions[i].TrafficWeight > 0 {
			return &revisions[i]
		}
	}
	for i := range revisions {
		if revisions[i].Status == domain.RevisionReady {
			return &revisions[i]
		}
	}
	if len(revisions) > 0 {
		return &revisions[0]
	}
	return nil
}

func clampReplicas(current, min, max int) int {
	if current < min {
		return min
	}
	if current > max {
		return max
	}
	return current
}

func summarizeMetrics(points []domain.MetricPoint) domain.MetricsSummary {
	if len(points) == 0 {
		return domain.MetricsSummary{}
	}
	start := len(points) - metricsWindow
	if start < 0 {
		start = 0
	}
	window := points[start:]
	var qps, p95, errorRate float64
	for _, p := range window {
		qps += p.QPS
		p95 += p.P95MS
		errorRate += p.ErrorRate
	}
	n := float64(len(window))
	return domain.MetricsSummary{
		QPS:       round2(qps / n),
		P95MS:     round2(p95 / n),
		ErrorRate: round2(errorRate / n),
	}
}
