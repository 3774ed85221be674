package agent

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/glam-rl/glam/pkg/env"
	"github.com/glam-rl/glam/pkg/rl"
	"github.com/glam-rl/glam/pkg/scoring"
)

// LLMAgent asks a scorer how likely each action is given the current
// prompt, feeds the scores through a trainable policy adapter, and
// samples from the resulting distribution.
type LLMAgent struct {
	id      string
	scorer  scoring.Scorer
	policy  *rl.Policy
	actions []string
	history *History
	window  int
	rng     *rand.Rand
}

type AgentParams struct {
	ID      string
	Scorer  scoring.Scorer
	Policy  *rl.Policy
	Actions []string
	Window  int
	RNG     *rand.Rand
}

type AgentOption func(*AgentParams)

func WithAgentID(id string) AgentOption {
	return func(p *AgentParams) { p.ID = id }
}

func WithScorer(s scoring.Scorer) AgentOption {
	return func(p *AgentParams) { p.Scorer = s }
}

func WithPolicy(policy *rl.Policy) AgentOption {
	return func(p *AgentParams) { p.Policy = policy }
}

func WithActions(actions []string) AgentOption {
	return func(p *AgentParams) { p.Actions = actions }
}

// WithWindow sets how many recent observations enter the prompt.
func WithWindow(n int) AgentOption {
	return func(p *AgentParams) { p.Window = n }
}

func WithRNG(rng *rand.Rand) AgentOption {
	return func(p *AgentParams) { p.RNG = rng }
}

func defaultAgentParams() *AgentParams {
	return &AgentParams{
		ID:     "agent-" + uuid.New().String(),
		Window: 3,
	}
}

// NewLLMAgent creates an agent. Scorer, policy and actions are
// required; the policy is typically shared between agents so one PPO
// update trains them all.
func NewLLMAgent(opts ...AgentOption) (*LLMAgent, error) {
	params := defaultAgentParams()
	for _, opt := range opts {
		opt(params)
	}

	if params.Scorer == nil {
		return nil, errors.New("agent: scorer is required")
	}
	if params.Policy == nil {
		return nil, errors.New("agent: policy is required")
	}
	if len(params.Actions) == 0 {
		return nil, errors.New("agent: action list is required")
	}
	if params.Policy.NumActions() != len(params.Actions) {
		return nil, fmt.Errorf("agent: policy has %d actions, got %d names", params.Policy.NumActions(), len(params.Actions))
	}
	if params.Window <= 0 {
		return nil, fmt.Errorf("agent: window must be > 0, got %d", params.Window)
	}
	if params.RNG == nil {
		params.RNG = rand.New(rand.NewSource(int64(uuid.New().ID())))
	}

	return &LLMAgent{
		id:      params.ID,
		scorer:  params.Scorer,
		policy:  params.Policy,
		actions: params.Actions,
		history: NewHistory(params.Window),
		window:  params.Window,
		rng:     params.RNG,
	}, nil
}

func (a *LLMAgent) GetID() string { return a.id }

// Reset clears the observation history at an episode boundary.
func (a *LLMAgent) Reset() {
	a.history.Clear()
}

// Prompt returns the scoring context the next decision would use.
func (a *LLMAgent) Prompt() string {
	return BuildPrompt(a.actions, a.history.Window(a.window))
}

// Value scores the prompt the agent would see after observing obs and
// returns the policy's value estimate. The history is not mutated, so
// a later Act on the same observation behaves as if Value was never
// called.
func (a *LLMAgent) Value(ctx context.Context, obs env.Observation) (float64, error) {
	window := a.history.Window(a.window - 1)
	window = append(window, Step{Obs: obs})
	prompt := BuildPrompt(a.actions, window)

	scores, err := a.scorer.Score(ctx, prompt, a.actions)
	if err != nil {
		return 0, fmt.Errorf("agent %s: %w", a.id, err)
	}
	if len(scores) != len(a.actions) {
		return 0, fmt.Errorf("agent %s: got %d scores for %d actions", a.id, len(scores), len(a.actions))
	}
	return a.policy.Value(scores), nil
}

func (a *LLMAgent) Act(ctx context.Context, obs env.Observation) (Decision, error) {
	a.history.Observe(obs)
	prompt := BuildPrompt(a.actions, a.history.Window(a.window))

	scores, err := a.scorer.Score(ctx, prompt, a.actions)
	if err != nil {
		return Decision{}, fmt.Errorf("agent %s: %w", a.id, err)
	}
	if len(scores) != len(a.actions) {
		return Decision{}, fmt.Errorf("agent %s: got %d scores for %d actions", a.id, len(scores), len(a.actions))
	}

	dist := rl.NewCategorical(a.policy.Logits(scores))
	action := dist.Sample(a.rng)
	a.history.Commit(a.actions[action])

	return Decision{
		Action:  action,
		Name:    a.actions[action],
		LogProb: dist.LogProb(action),
		Value:   a.policy.Value(scores),
		Scores:  scores,
		Probs:   dist.Probs(),
	}, nil
}
