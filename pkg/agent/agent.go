// Package agent implements the policies that act in an environment:
// an LLM-scored policy trained through the rl adapter, and a uniform
// random baseline.
package agent

import (
	"context"
	"math"
	"math/rand"

	"github.com/glam-rl/glam/pkg/env"
)

// Decision is the outcome of one action selection, carrying
// everything the trainer needs to build a transition.
type Decision struct {
	Action  int
	Name    string
	LogProb float64
	Value   float64
	Scores  []float64
	Probs   []float64
}

// Agent selects actions from observations.
type Agent interface {
	// Act chooses an action for the current observation. The agent
	// tracks its own observation history; callers must report the
	// observation of every step, in order.
	Act(ctx context.Context, obs env.Observation) (Decision, error)
	// Value estimates the value of obs without acting on it or
	// recording it. Trainers use it to bootstrap truncated rollouts.
	Value(ctx context.Context, obs env.Observation) (float64, error)
	// Reset clears per-episode state.
	Reset()
	GetID() string
}

// RandomAgent samples uniformly over the action space.
type RandomAgent struct {
	id      string
	actions []string
	rng     *rand.Rand
}

func NewRandomAgent(id string, actions []string, rng *rand.Rand) *RandomAgent {
	return &RandomAgent{id: id, actions: actions, rng: rng}
}

func (a *RandomAgent) GetID() string { return a.id }

func (a *RandomAgent) Reset() {}

func (a *RandomAgent) Value(context.Context, env.Observation) (float64, error) {
	return 0, nil
}

func (a *RandomAgent) Act(_ context.Context, _ env.Observation) (Decision, error) {
	n := len(a.actions)
	action := a.rng.Intn(n)
	probs := make([]float64, n)
	for i := range probs {
		probs[i] = 1 / float64(n)
	}
	return Decision{
		Action:  action,
		Name:    a.actions[action],
		LogProb: -math.Log(float64(n)),
		Scores:  make([]float64, n),
		Probs:   probs,
	}, nil
}
