package rl

import "fmt"

// Transition is one frame of experience from one environment instance.
type Transition struct {
	Scores  []float64 // raw scorer outputs the decision was made from
	Action  int
	LogProb float64
	Value   float64
	Reward  float64
	Done    bool
}

// Rollout accumulates transitions for a fixed number of frames across
// parallel environment instances. Transitions are stored frame-major:
// frame f of env e is at index f*NumEnvs + e.
type Rollout struct {
	NumEnvs     int
	Transitions []Transition

	Advantages []float64
	Returns    []float64
}

// NewRollout prepares a buffer for frames*numEnvs transitions.
func NewRollout(numEnvs, frames int) *Rollout {
	return &Rollout{
		NumEnvs:     numEnvs,
		Transitions: make([]Transition, 0, numEnvs*frames),
	}
}

// Add appends one frame of transitions, one per env instance.
func (r *Rollout) Add(frame []Transition) error {
	if len(frame) != r.NumEnvs {
		return fmt.Errorf("rl: frame has %d transitions, want %d", len(frame), r.NumEnvs)
	}
	r.Transitions = append(r.Transitions, frame...)
	return nil
}

// Frames returns the number of frames collected so far.
func (r *Rollout) Frames() int { return len(r.Transitions) / r.NumEnvs }

// Len returns the total number of transitions.
func (r *Rollout) Len() int { return len(r.Transitions) }

// at returns the transition of env e at frame f.
func (r *Rollout) at(f, e int) *Transition {
	return &r.Transitions[f*r.NumEnvs+e]
}

// ComputeAdvantages fills Advantages and Returns using generalized
// advantage estimation. lastValues holds the bootstrap value of the
// observation following the final frame, one per env; episodes that
// ended inside the rollout are masked so no value leaks across the
// boundary.
func (r *Rollout) ComputeAdvantages(lastValues []float64, discount, lambda float64) error {
	if len(lastValues) != r.NumEnvs {
		return fmt.Errorf("rl: got %d bootstrap values for %d envs", len(lastValues), r.NumEnvs)
	}
	frames := r.Frames()
	r.Advantages = make([]float64, r.Len())
	r.Returns = make([]float64, r.Len())

	for e := 0; e < r.NumEnvs; e++ {
		var accumulation float64
		for f := frames - 1; f >= 0; f-- {
			tr := r.at(f, e)

			nextValue := lastValues[e]
			if f+1 < frames {
				nextValue = r.at(f+1, e).Value
			}
			mask := 1.0
			if tr.Done {
				mask = 0
			}

			delta := tr.Reward + discount*nextValue*mask - tr.Value
			accumulation = delta + discount*lambda*mask*accumulation

			idx := f*r.NumEnvs + e
			r.Advantages[idx] = accumulation
			r.Returns[idx] = accumulation + tr.Value
		}
	}
	return nil
}
