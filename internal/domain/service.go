package domain

import "time"

// Env identifies the deployment environment a service belongs to.
type Env string

const (
	EnvDev  Env = "Dev"
	EnvTest Env = "Test"
	EnvProd Env = "Prod"
)

// DesiredState captures operator intent for a service.
type DesiredState string

const (
	DesiredActive   DesiredState = "Active"
	DesiredInactive DesiredState = "Inactive"
)

// CurrentState is the observed readiness stage of a service.
type CurrentState string

const (
	StatePending     CurrentState = "Pending"
	StateDownloading CurrentState = "Downloading"
	StateStarting    CurrentState = "Starting"
	StateReady       CurrentState = "Ready"
	StateInactive    CurrentState = "Inactive"
	StateFailed      CurrentState = "Failed"
)

// NetworkExposure controls whether a service endpoint is reachable publicly.
type NetworkExposure string

const (
	ExposurePublic  NetworkExposure = "Public"
	ExposurePrivate NetworkExposure = "Private"
)

// Replicas tracks the replica bounds and the observed replica count.
type Replicas struct {
	Min     int
	Max     int
	Current int
}

// Service is the externally addressable deployable unit. It owns its revision
// list, event timeline, audit trail, and metric history exclusively.
//
// The fields between ModelVersionID and Metrics1h are derived: they are
// recomputed from the revision set after every mutation and must never be
// written directly by operation handlers.
type Service struct {
	ID              string
	Name            string
	Description     string
	Env             Env
	DesiredState    DesiredState
	CurrentState    CurrentState
	NetworkExposure NetworkExposure
	IPAllowlist     []string
	Replicas        Replicas

	ModelVersionID string
	Runtime        RuntimeKind
	RuntimeConfig  ConfigSnapshot
	ResourceSpec   ResourceSpec
	Autoscaling    AutoscalingSpec
	TrafficSummary []TrafficWeight
	Metrics1h      MetricsSummary

	Revisions     []Revision
	Events        []Event
	Audits        []AuditRecord
	MetricHistory []MetricPoint

	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Revision returns the revision with the given id, or nil when absent.
func (s *Service) Revision(revisionID string) *Revision {
	for i := range s.Revisions {
		if s.Revisions[i].ID == revisionID {
			return &s.Revisions[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the service aggregate.
func (s *Service) Clone() *Service {
	if s == nil {
		return nil
	}
	out := *s
	out.IPAllowlist = append([]string(nil), s.IPAllowlist...)
	out.TrafficSummary = append([]TrafficWeight(nil), s.TrafficSummary...)
	out.Revisions = append([]Revision(nil), s.Revisions...)
	out.Events = append([]Event(nil), s.Events...)
	out.Audits = append([]AuditRecord(nil), s.Audits...)
	out.MetricHistory = append([]MetricPoint(nil), s.MetricHistory...)
	return &out
}
