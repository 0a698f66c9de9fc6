package domain

import "time"

// RuntimeKind names the inference runtime serving a revision.
type RuntimeKind string

const (
	RuntimeVLLM   RuntimeKind = "vLLM"
	RuntimeTGI    RuntimeKind = "TGI"
	RuntimeTriton RuntimeKind = "Triton"
	RuntimeHF     RuntimeKind = "HF"
)

// RevisionStatus is the externally supplied health of a revision. The control
// plane consumes it but never transitions it.
type RevisionStatus string

const (
	RevisionPending RevisionStatus = "Pending"
	RevisionReady   RevisionStatus = "Ready"
	RevisionFailed  RevisionStatus = "Failed"
)

// ResourceSpec describes the compute assigned to a revision.
type ResourceSpec struct {
	GPUModel      string
	GPUCount      int
	CPURequest    string
	CPULimit      string
	MemoryRequest string
	MemoryLimit   string
}

// AutoscalingMetric selects the signal the autoscaler reacts to.
type AutoscalingMetric string

const (
	MetricConcurrency AutoscalingMetric = "Concurrency"
	MetricQPS         AutoscalingMetric = "QPS"
)

// AutoscalingSpec bounds replica scaling for a revision.
type AutoscalingSpec struct {
	Metric                AutoscalingMetric
	MinReplicas           int
	MaxReplicas           int
	ScaleDownDelaySeconds int
	ScaleToZero           bool
}

// ConfigSnapshot freezes the runtime/resource/autoscaling triple of a revision
// at creation time for later diffing.
type ConfigSnapshot struct {
	Runtime     RuntimeKind
	Resources   ResourceSpec
	Autoscaling AutoscalingSpec
}

// Revision is an immutable deployment artifact owned by exactly one service.
// Only TrafficWeight and Status change after creation: the former through
// traffic operations, the latter through the external health signal.
type Revision struct {
	ID             string
	ServiceID      string
	ModelVersionID string
	Runtime        RuntimeKind
	ImageDigest    string
	ConfigHash     string
	Status         RevisionStatus
	TrafficWeight  float64
	Resources      ResourceSpec
	Autoscaling    AutoscalingSpec
	Snapshot       ConfigSnapshot
	CreatedBy      string
	CreatedAt      time.Time
}

// TrafficWeight assigns a percentage of inbound traffic to one revision.
type TrafficWeight struct {
	RevisionID string
	Weight     float64
}
