package httpx

import (
	"time"

	"github.com/modelplane/modelplane/internal/domain"
)

// View types shape API responses. The domain aggregates carry no JSON tags so
// the wire format stays an explicit transport concern.

type replicasView struct {
	Min     int `json:"min"`
	Max     int `json:"max"`
	Current int `json:"current"`
}

type resourceView struct {
	GPUModel      string `json:"gpu_model"`
	GPUCount      int    `json:"gpu_count"`
	CPURequest    string `json:"cpu_request,omitempty"`
	CPULimit      string `json:"cpu_limit,omitempty"`
	MemoryRequest string `json:"memory_request,omitempty"`
	MemoryLimit   string `json:"memory_limit,omitempty"`
}

type autoscalingView struct {
	Metric                string `json:"metric"`
	MinReplicas           int    `json:"min_replicas"`
	MaxReplicas           int    `json:"max_replicas"`
	ScaleDownDelaySeconds int    `json:"scale_down_delay_seconds"`
	ScaleToZero           bool   `json:"scale_to_zero"`
}

type trafficWeightView struct {
	RevisionID string  `json:"revision_id"`
	Weight     float64 `json:"weight"`
}

type metricsSummaryView struct {
	QPS       float64 `json:"qps"`
	P95MS     float64 `json:"p95_ms"`
	ErrorRate float64 `json:"error_rate"`
}

type metricPointView struct {
	Timestamp string  `json:"timestamp"`
	QPS       float64 `json:"qps"`
	P95MS     float64 `json:"p95_ms"`
	ErrorRate float64 `json:"error_rate"`
}

type revisionView struct {
	ID             string          `json:"id"`
	ModelVersionID string          `json:"model_version_id"`
	Runtime        string          `json:"runtime"`
	ImageDigest    string          `json:"image_digest"`
	ConfigHash     string          `json:"config_hash"`
	Status         string          `json:"status"`
	TrafficWeight  float64         `json:"traffic_weight"`
	Resources      resourceView    `json:"resources"`
	Autoscaling    autoscalingView `json:"autoscaling"`
	CreatedBy      string          `json:"created_by"`
	CreatedAt      string          `json:"created_at"`
}

type eventView struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	HappenedAt  string `json:"happened_at"`
}

type auditView struct {
	ID         string `json:"id"`
	Action     string `json:"action"`
	Actor      string `json:"actor"`
	HappenedAt string `json:"happened_at"`
}

type serviceView struct {
	ID              string              `json:"id"`
	Name            string              `json:"name"`
	Description     string              `json:"description,omitempty"`
	Env             string              `json:"env"`
	DesiredState    string              `json:"desired_state"`
	CurrentState    string              `json:"current_state"`
	NetworkExposure string              `json:"network_exposure"`
	IPAllowlist     []string            `json:"ip_allowlist,omitempty"`
	Replicas        replicasView        `json:"replicas"`
	ModelVersionID  string              `json:"model_version_id"`
	Runtime         string              `json:"runtime"`
	Resources       resourceView        `json:"resources"`
	Autoscaling     autoscalingView     `json:"autoscaling"`
	TrafficSummary  []trafficWeightView `json:"traffic_summary"`
	Metrics1h       metricsSummaryView  `json:"metrics_1h"`
	Revisions       []revisionView      `json:"revisions,omitempty"`
	Events          []eventView         `json:"events,omitempty"`
	Audits          []auditView         `json:"audits,omitempty"`
	MetricHistory   []metricPointView   `json:"metric_history,omitempty"`
	CreatedBy       string              `json:"created_by"`
	CreatedAt       string              `json:"created_at"`
	UpdatedAt       string              `json:"updated_at"`
}

type serviceSummaryView struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	Env            string              `json:"env"`
	DesiredState   string              `json:"desired_state"`
	CurrentState   string              `json:"current_state"`
	ModelVersionID string              `json:"model_version_id"`
	Runtime        string              `json:"runtime"`
	Replicas       replicasView        `json:"replicas"`
	TrafficSummary []trafficWeightView `json:"traffic_summary"`
	Metrics1h      metricsSummaryView  `json:"metrics_1h"`
	UpdatedAt      string              `json:"updated_at"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func toResourceView(r domain.ResourceSpec) resourceView {
	return resourceView{
		GPUModel:      r.GPUModel,
		GPUCount:      r.GPUCount,
		CPURequest:    r.CPURequest,
		CPULimit:      r.CPULimit,
		MemoryRequest: r.MemoryRequest,
		MemoryLimit:   r.MemoryLimit,
	}
}

func toAutoscalingView(a domain.AutoscalingSpec) autoscalingView {
	return autoscalingView{
		Metric:                string(a.Metric),
		MinReplicas:           a.MinReplicas,
		MaxReplicas:           a.MaxReplicas,
		ScaleDownDelaySeconds: a.ScaleDownDelaySeconds,
		ScaleToZero:           a.ScaleToZero,
	}
}

func toTrafficViews(weights []domain.TrafficWeight) []trafficWeightView {
	out := make([]trafficWeightView, 0, len(weights))
	for _, w := range weights {
		out = append(out, trafficWeightView{RevisionID: w.RevisionID, Weight: w.Weight})
	}
	return out
}

func toRevisionView(r domain.Revision) revisionView {
	return revisionView{
		ID:             r.ID,
		ModelVersionID: r.ModelVersionID,
		Runtime:        string(r.Runtime),
		ImageDigest:    r.ImageDigest,
		ConfigHash:     r.ConfigHash,
		Status:         string(r.Status),
		TrafficWeight:  r.TrafficWeight,
		Resources:      toResourceView(r.Resources),
		Autoscaling:    toAutoscalingView(r.Autoscaling),
		CreatedBy:      r.CreatedBy,
		CreatedAt:      formatTime(r.CreatedAt),
	}
}

func toServiceView(svc *domain.Service) serviceView {
	view := serviceView{
		ID:              svc.ID,
		Name:            svc.Name,
		Description:     svc.Description,
		Env:             string(svc.Env),
		DesiredState:    string(svc.DesiredState),
		CurrentState:    string(svc.CurrentState),
		NetworkExposure: string(svc.NetworkExposure),
		IPAllowlist:     svc.IPAllowlist,
		Replicas:        replicasView(svc.Replicas),
		ModelVersionID:  svc.ModelVersionID,
		Runtime:         string(svc.Runtime),
		Resources:       toResourceView(svc.ResourceSpec),
		Autoscaling:     toAutoscalingView(svc.Autoscaling),
		TrafficSummary:  toTrafficViews(svc.TrafficSummary),
		Metrics1h:       metricsSummaryView(svc.Metrics1h),
		CreatedBy:       svc.CreatedBy,
		CreatedAt:       formatTime(svc.CreatedAt),
		UpdatedAt:       formatTime(svc.UpdatedAt),
	}
	for _, rev := range svc.Revisions {
		view.Revisions = append(view.Revisions, toRevisionView(rev))
	}
	for _, event := range svc.Events {
		view.Events = append(view.Events, eventView{
			ID:          event.ID,
			Type:        string(event.Type),
			Title:       event.Title,
			Description: event.Description,
			HappenedAt:  formatTime(event.HappenedAt),
		})
	}
	for _, audit := range svc.Audits {
		view.Audits = append(view.Audits, auditView{
			ID:         audit.ID,
			Action:     audit.Action,
			Actor:      audit.Actor,
			HappenedAt: formatTime(audit.HappenedAt),
		})
	}
	for _, point := range svc.MetricHistory {
		view.MetricHistory = append(view.MetricHistory, metricPointView{
			Timestamp: formatTime(point.Timestamp),
			QPS:       point.QPS,
			P95MS:     point.P95MS,
			ErrorRate: point.ErrorRate,
		})
	}
	return view
}

func toServiceSummaryView(svc domain.Service) serviceSummaryView {
	return serviceSummaryView{
		ID:             svc.ID,
		Name:           svc.Name,
		Env:            string(svc.Env),
		DesiredState:   string(svc.DesiredState),
		CurrentState:   string(svc.CurrentState),
		ModelVersionID: svc.ModelVersionID,
		Runtime:        string(svc.Runtime),
		Replicas:       replicasView(svc.Replicas),
		TrafficSummary: toTrafficViews(svc.TrafficSummary),
		Metrics1h:      metricsSummaryView(svc.Metrics1h),
		UpdatedAt:      formatTime(svc.UpdatedAt),
	}
}
