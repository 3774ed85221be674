// Package rl implements the training side of glam: a trainable
// actor-critic adapter over language-model action scores, generalized
// advantage estimation, and a PPO-style clipped update.
//
// The adapter keeps the policy tractable without touching model
// weights: logits are a per-action affine transform of the scorer's
// outputs and the value head is linear in the same scores, so every
// gradient a PPO step needs has a closed form.
package rl

import (
	"fmt"
	"math"
	"math/rand"
)

// Policy is the trainable actor-critic adapter. Parameters are stored
// in one flat vector so the optimizer can treat them uniformly:
// [scale_0..scale_n, bias_0..bias_n, vw_0..vw_n, vbias].
type Policy struct {
	n      int
	params []float64
}

// NewPolicy builds an adapter for n discrete actions. Scales start at
// 1 and everything else at 0, so the initial policy is exactly the
// softmax of the raw model scores.
func NewPolicy(n int) *Policy {
	p := &Policy{n: n, params: make([]float64, 3*n+1)}
	for i := 0; i < n; i++ {
		p.params[i] = 1
	}
	return p
}

// NumActions returns the size of the action space.
func (p *Policy) NumActions() int { return p.n }

// NumParams returns the length of the flat parameter vector.
func (p *Policy) NumParams() int { return len(p.params) }

// Params exposes the flat parameter vector for the optimizer and for
// checkpointing. Mutations apply to the policy directly.
func (p *Policy) Params() []float64 { return p.params }

// SetParams restores a checkpointed parameter vector.
func (p *Policy) SetParams(params []float64) error {
	if len(params) != len(p.params) {
		return fmt.Errorf("rl: parameter vector has length %d, want %d", len(params), len(p.params))
	}
	copy(p.params, params)
	return nil
}

// Logits maps raw model scores to policy logits.
func (p *Policy) Logits(scores []float64) []float64 {
	logits := make([]float64, p.n)
	for i := 0; i < p.n; i++ {
		logits[i] = p.params[i]*scores[i] + p.params[p.n+i]
	}
	return logits
}

// Value estimates the state value from the same scores.
func (p *Policy) Value(scores []float64) float64 {
	v := p.params[3*p.n]
	for i := 0; i < p.n; i++ {
		v += p.params[2*p.n+i] * scores[i]
	}
	return v
}

// Categorical is a discrete distribution built from logits.
type Categorical struct {
	logProbs []float64
	probs    []float64
}

// NewCategorical normalizes logits with a numerically stable softmax.
func NewCategorical(logits []float64) Categorical {
	maxLogit := math.Inf(-1)
	for _, l := range logits {
		if l > maxLogit {
			maxLogit = l
		}
	}
	var sum float64
	probs := make([]float64, len(logits))
	for i, l := range logits {
		probs[i] = math.Exp(l - maxLogit)
		sum += probs[i]
	}
	logProbs := make([]float64, len(logits))
	logSum := math.Log(sum)
	for i, l := range logits {
		probs[i] /= sum
		logProbs[i] = l - maxLogit - logSum
	}
	return Categorical{logProbs: logProbs, probs: probs}
}

// Sample draws an action index.
func (c Categorical) Sample(rng *rand.Rand) int {
	u := rng.Float64()
	var cum float64
	for i, p := range c.probs {
		cum += p
		if u < cum {
			return i
		}
	}
	return len(c.probs) - 1
}

// Probs returns the probability vector.
func (c Categorical) Probs() []float64 { return c.probs }

// LogProb returns the log-probability of action i.
func (c Categorical) LogProb(i int) float64 { return c.logProbs[i] }

// Entropy returns the Shannon entropy in nats.
func (c Categorical) Entropy() float64 {
	var h float64
	for i, p := range c.probs {
		if p > 0 {
			h -= p * c.logProbs[i]
		}
	}
	return h
}
