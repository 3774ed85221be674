package rl

import "math"

// RewardShaper rescales environment rewards before they enter the
// update: successes are amplified by a fixed bonus, and a nonzero Beta
// adds a log-ratio shaping term that penalizes actions the scorer
// ranked far above the policy's own value for them.
type RewardShaper struct {
	Beta float64
}

// successBonus is the multiplier applied to positive env rewards.
const successBonus = 20

// Shape returns the reshaped reward and the shaping bonus alone, so
// both can be tracked separately. actionProb is the policy probability
// of the chosen action and scoreProb the scorer-implied probability.
func (s RewardShaper) Shape(reward, scoreProb, actionProb float64) (shaped, bonus float64) {
	var base float64
	if reward > 0 {
		base = successBonus * reward
	}
	if s.Beta == 0 {
		return base, 0
	}
	bonus = -s.Beta * math.Log(scoreProb/actionProb)
	return base + bonus, bonus
}
