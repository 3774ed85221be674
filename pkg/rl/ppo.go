package rl

import (
	"fmt"
	"math"
	"math/rand"
)

// PPOConfig carries the update hyperparameters.
type PPOConfig struct {
	LR            float64
	Beta1         float64
	Beta2         float64
	AdamEps       float64
	ClipEps       float64
	EntropyCoef   float64
	ValueLossCoef float64
	MaxGradNorm   float64
	Epochs        int
	BatchSize     int
}

// PPO performs clipped-objective policy optimization on a Policy.
type PPO struct {
	policy *Policy
	opt    *Adam
	cfg    PPOConfig
	rng    *rand.Rand
}

// Diagnostics summarizes one update for logging.
type Diagnostics struct {
	Loss       float64
	PolicyLoss float64
	ValueLoss  float64
	Entropy    float64
	GradNorm   float64
}

// NewPPO builds an updater around the given policy.
func NewPPO(policy *Policy, cfg PPOConfig, rng *rand.Rand) *PPO {
	return &PPO{
		policy: policy,
		opt:    NewAdam(policy.NumParams(), cfg.LR, cfg.Beta1, cfg.Beta2, cfg.AdamEps),
		cfg:    cfg,
		rng:    rng,
	}
}

// Policy returns the policy being optimized.
func (p *PPO) Policy() *Policy { return p.policy }

// Optimizer returns the Adam state for checkpointing.
func (p *PPO) Optimizer() *Adam { return p.opt }

// Update runs Epochs passes of shuffled BatchSize minibatches over the
// rollout and applies one Adam step per minibatch. Advantages must
// have been computed first.
func (p *PPO) Update(r *Rollout) (Diagnostics, error) {
	if len(r.Advantages) != r.Len() {
		return Diagnostics{}, fmt.Errorf("rl: rollout advantages not computed")
	}
	if r.Len() == 0 {
		return Diagnostics{}, fmt.Errorf("rl: empty rollout")
	}

	indices := make([]int, r.Len())
	for i := range indices {
		indices[i] = i
	}

	var total Diagnostics
	var batches int
	for epoch := 0; epoch < p.cfg.Epochs; epoch++ {
		p.rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
		for start := 0; start < len(indices); start += p.cfg.BatchSize {
			end := start + p.cfg.BatchSize
			if end > len(indices) {
				end = len(indices)
			}
			d := p.step(r, indices[start:end])
			total.Loss += d.Loss
			total.PolicyLoss += d.PolicyLoss
			total.ValueLoss += d.ValueLoss
			total.Entropy += d.Entropy
			total.GradNorm += d.GradNorm
			batches++
		}
	}

	total.Loss /= float64(batches)
	total.PolicyLoss /= float64(batches)
	total.ValueLoss /= float64(batches)
	total.Entropy /= float64(batches)
	total.GradNorm /= float64(batches)
	return total, nil
}

// step accumulates the closed-form gradient for one minibatch and
// applies it.
func (p *PPO) step(r *Rollout, batch []int) Diagnostics {
	n := p.policy.NumActions()
	grads := make([]float64, p.policy.NumParams())
	var d Diagnostics

	for _, idx := range batch {
		tr := &r.Transitions[idx]
		advantage := r.Advantages[idx]
		target := r.Returns[idx]

		logits := p.policy.Logits(tr.Scores)
		dist := NewCategorical(logits)
		logProb := dist.LogProb(tr.Action)
		ratio := math.Exp(logProb - tr.LogProb)

		surr1 := ratio * advantage
		surr2 := clamp(ratio, 1-p.cfg.ClipEps, 1+p.cfg.ClipEps) * advantage
		d.PolicyLoss += -math.Min(surr1, surr2)

		entropy := dist.Entropy()
		d.Entropy += entropy

		value := p.policy.Value(tr.Scores)
		valueClipped := tr.Value + clamp(value-tr.Value, -p.cfg.ClipEps, p.cfg.ClipEps)
		surrV1 := (value - target) * (value - target)
		surrV2 := (valueClipped - target) * (valueClipped - target)
		d.ValueLoss += math.Max(surrV1, surrV2)

		// dLoss/dlogits. The clipped branch of the min has zero
		// gradient outside the trust region.
		probs := dist.Probs()
		var dLogits []float64
		if surr1 <= surr2 {
			dLogits = make([]float64, n)
			for j := 0; j < n; j++ {
				indicator := 0.0
				if j == tr.Action {
					indicator = 1
				}
				dLogits[j] = -advantage * ratio * (indicator - probs[j])
			}
		} else {
			dLogits = make([]float64, n)
		}
		// Entropy bonus: dH/dz_j = -p_j (log p_j + H).
		for j := 0; j < n; j++ {
			dLogits[j] += p.cfg.EntropyCoef * probs[j] * (dist.LogProb(j) + entropy)
		}

		// dValueLoss/dvalue, zero through the clipped branch when
		// the raw value left the trust region.
		var dValue float64
		if surrV1 >= surrV2 {
			dValue = 2 * (value - target)
		} else if math.Abs(value-tr.Value) <= p.cfg.ClipEps {
			dValue = 2 * (valueClipped - target)
		}
		dValue *= p.cfg.ValueLossCoef

		// Chain into the flat parameter vector.
		for j := 0; j < n; j++ {
			grads[j] += dLogits[j] * tr.Scores[j] // scale_j
			grads[n+j] += dLogits[j]              // bias_j
			grads[2*n+j] += dValue * tr.Scores[j] // vw_j
		}
		grads[3*n] += dValue // value bias
	}

	batchSize := float64(len(batch))
	for i := range grads {
		grads[i] /= batchSize
	}
	d.PolicyLoss /= batchSize
	d.ValueLoss /= batchSize
	d.Entropy /= batchSize
	d.Loss = d.PolicyLoss - p.cfg.EntropyCoef*d.Entropy + p.cfg.ValueLossCoef*d.ValueLoss

	d.GradNorm = ClipGradNorm(grads, p.cfg.MaxGradNorm)
	p.opt.Step(p.policy.Params(), grads)
	return d
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
