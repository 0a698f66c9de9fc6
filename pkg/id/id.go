package id

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	revisionAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	digestAlphabet   = "0123456789abcdef"
)

// Generator produces identifiers for control-plane entities. Implementations
// must return values unique per call.
type Generator interface {
	ServiceID() string
	RevisionID() string
	EventID() string
	AuditID() string
	ImageDigest() string
}

// Random is the production Generator backed by UUIDs and nanoids.
type Random struct{}

// NewRandom returns the default Generator.
func NewRandom() Random {
	return Random{}
}

// ServiceID returns a UUID string.
func (Random) ServiceID() string {
	return uuid.NewString()
}

// RevisionID returns a short service-scoped revision identifier.
func (Random) RevisionID() string {
	return "rev-" + gonanoid.MustGenerate(revisionAlphabet, 10)
}

// EventID returns a UUID string.
func (Random) EventID() string {
	return uuid.NewString()
}

// AuditID returns a UUID string.
func (Random) AuditID() string {
	return uuid.NewString()
}

// ImageDigest returns a synthetic sha256-form image digest.
func (Random) ImageDigest() string {
	return "sha256:" + gonanoid.MustGenerate(digestAlphabet, 64)
}

// Sequence is a deterministic Generator for tests. Each method returns a
// prefixed monotonically increasing value.
type Sequence struct {
	counter atomic.Uint64
}

// NewSequence returns a fresh deterministic Generator.
func NewSequence() *Sequence {
	return &Sequence{}
}

func (s *Sequence) next(prefix string) string {
	return fmt.Sprintf("%s-%04d", prefix, s.counter.Add(1))
}

func (s *Sequence) ServiceID() string  { return s.next("svc") }
func (s *Sequence) RevisionID() string { return s.next("rev") }
func (s *Sequence) EventID() string    { return s.next("evt") }
func (s *Sequence) AuditID() string    { return s.next("aud") }
func (s *Sequence) ImageDigest() string {
	return "sha256:" + s.next("digest")
}
