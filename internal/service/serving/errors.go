package serving

import (
	"fmt"

	"github.com/modelplane/modelplane/internal/repository"
)

// Operation errors returned by the control plane. All wrap a repository kind
// so transports can branch on errors.Is without knowing every sentinel.
var (
	ErrInvalidTrafficSum    = fmt.Errorf("%w: traffic weights must sum to 100", repository.ErrInvalidArgument)
	ErrAllTrafficToFailed   = fmt.Errorf("%w: traffic would route only to failed revisions", repository.ErrInvalidArgument)
	ErrRevisionNotFound     = fmt.Errorf("%w: revision", repository.ErrNotFound)
	ErrNameConflict         = fmt.Errorf("%w: service name already in use", repository.ErrConflict)
	ErrConfirmationMismatch = fmt.Errorf("%w: confirmation does not match service name", repository.ErrConflict)
)

var (
	errServiceIDRequired = fmt.Errorf("%w: service id required", repository.ErrInvalidArgument)
	errNameInvalid       = fmt.Errorf("%w: name must be lowercase letters, digits, and hyphens", repository.ErrInvalidArgument)
	errEnvInvalid        = fmt.Errorf("%w: env must be Dev, Test, or Prod", repository.ErrInvalidArgument)
	errExposureInvalid   = fmt.Errorf("%w: network exposure must be Public or Private", repository.ErrInvalidArgument)
	errAllowlistRequired = fmt.Errorf("%w: public exposure requires a non-empty ip allowlist", repository.ErrInvalidArgument)
	errAllowlistInvalid  = fmt.Errorf("%w: ip allowlist entries must be CIDR blocks", repository.ErrInvalidArgument)
	errModelRequired     = fmt.Errorf("%w: model version id required", repository.ErrInvalidArgument)
	errRuntimeInvalid    = fmt.Errorf("%w: runtime must be vLLM, TGI, Triton, or HF", repository.ErrInvalidArgument)
	errGPUCountInvalid   = fmt.Errorf("%w: gpu count must be at least 1", repository.ErrInvalidArgument)
	errAutoscaleInvalid  = fmt.Errorf("%w: autoscaling bounds invalid", repository.ErrInvalidArgument)
	errStrategyInvalid   = fmt.Errorf("%w: unknown deployment strategy", repository.ErrInvalidArgument)
	errCanaryOutOfRange  = fmt.Errorf("%w: canary weight must be between 1 and 99", repository.ErrInvalidArgument)
	errDesiredInvalid    = fmt.Errorf("%w: desired state must be Active or Inactive", repository.ErrInvalidArgument)
	errStatusInvalid     = fmt.Errorf("%w: revision status must be Pending, Ready, or Failed", repository.ErrInvalidArgument)
	errStageInvalid      = fmt.Errorf("%w: unknown readiness stage", repository.ErrInvalidArgument)
)
