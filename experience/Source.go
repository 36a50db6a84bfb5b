// Package experience implements sources of interaction data that
// batches for learning are drawn from.
package experience

import (
	"gonum.org/v1/gonum/mat"
)

// Source is a read-only view of whatever produced a batch of
// experience. Policies query it for context while learning.
type Source interface {
	// Steps returns the number of environment steps taken so far
	Steps() int

	// Episodes returns the number of completed episodes
	Episodes() int

	// EpisodeReturns returns the return of every completed episode in
	// the order they completed
	EpisodeReturns() []float64

	// Stats returns summary statistics of the interaction so far
	Stats() map[string]float64
}

// Actor selects actions given observations
type Actor interface {
	Act(obs mat.Vector) (*mat.VecDense, error)
}

// ActorFunc adapts a function to the Actor interface
type ActorFunc func(obs mat.Vector) (*mat.VecDense, error)

// Act implements the Actor interface
func (f ActorFunc) Act(obs mat.Vector) (*mat.VecDense, error) {
	return f(obs)
}
