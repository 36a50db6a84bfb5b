package policy

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNilBatch is returned when a learning phase is given or
	// returns a nil batch
	ErrNilBatch = errors.New("nil batch")

	// ErrKeyCollision is returned when two learning phases report the
	// same info key
	ErrKeyCollision = errors.New("info key reported by more than one phase")

	// ErrIncomplete is returned when a value does not implement every
	// Policy capability
	ErrIncomplete = errors.New("incomplete policy")

	// ErrUnknownPolicy is returned when no policy is registered under
	// a name
	ErrUnknownPolicy = errors.New("unknown policy")
)

// Phase is a phase of the learning procedure
type Phase int

const (
	PreLearnPhase Phase = iota
	DoLearnPhase
	PostLearnPhase
)

func (p Phase) String() string {
	switch p {
	case PreLearnPhase:
		return "preLearn"
	case DoLearnPhase:
		return "doLearn"
	case PostLearnPhase:
		return "postLearn"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// PhaseError reports an error returned by a learning phase
type PhaseError struct {
	Phase Phase
	Err   error
}

func (e *PhaseError) Error() string {
	return "learn: " + e.Phase.String() + ": " + e.Err.Error()
}

// Unwrap returns the error returned by the phase
func (e *PhaseError) Unwrap() error {
	return e.Err
}

// CollisionError reports an info key produced by more than one phase.
// Phase is the later of the colliding phases.
type CollisionError struct {
	Key   string
	Phase Phase
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("merge: %v: key %q already reported by an earlier "+
		"phase", e.Phase, e.Key)
}

// Unwrap returns ErrKeyCollision
func (e *CollisionError) Unwrap() error {
	return ErrKeyCollision
}

// IncompleteError lists the capabilities a value is missing
type IncompleteError struct {
	Type    string
	Missing []string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("%v does not implement %v", e.Type,
		strings.Join(e.Missing, ", "))
}

// Unwrap returns ErrIncomplete
func (e *IncompleteError) Unwrap() error {
	return ErrIncomplete
}
