package batch

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// GAE computes generalized advantage estimates, GAE(λ), and
// rewards-to-go for every transition in the Batch following
// https://arxiv.org/abs/1506.02438, storing them in the Advantages and
// Returns columns.
//
// The values argument holds v(s) and nextValues holds v(s') for each
// transition. Bootstrapping from v(s') stops at terminal states, and
// the advantage recursion restarts whenever an episode ends, so a
// Batch may hold several (possibly truncated) trajectories.
//
// The discount factor gamma overrides the environment discount stored
// in the Batch.
func GAE(b *Batch, values, nextValues mat.Vector, gamma,
	lambda float64) error {
	n := b.Len()
	if values.Len() != n || nextValues.Len() != n {
		return fmt.Errorf("gae: expected %v values, got %v and %v next "+
			"values", n, values.Len(), nextValues.Len())
	}

	advantages := mat.NewVecDense(n, nil)
	returns := mat.NewVecDense(n, nil)

	var acc float64
	for i := n - 1; i >= 0; i-- {
		notTerminal := 1.0 - b.Terminals.AtVec(i)
		notLast := 1.0 - b.Lasts.AtVec(i)

		delta := b.Rewards.AtVec(i) +
			gamma*notTerminal*nextValues.AtVec(i) - values.AtVec(i)
		acc = delta + gamma*lambda*notLast*acc

		advantages.SetVec(i, acc)
		returns.SetVec(i, acc+values.AtVec(i))
	}

	if err := b.Set(Advantages, advantages); err != nil {
		return fmt.Errorf("gae: %w", err)
	}
	if err := b.Set(Returns, returns); err != nil {
		return fmt.Errorf("gae: %w", err)
	}
	return nil
}
