package rl

import "math"

// Adam is the Adam optimizer over a flat parameter vector.
type Adam struct {
	LR    float64
	Beta1 float64
	Beta2 float64
	Eps   float64

	m []float64
	v []float64
	t int
}

// NewAdam builds an optimizer for vectors of length n.
func NewAdam(n int, lr, beta1, beta2, eps float64) *Adam {
	return &Adam{
		LR:    lr,
		Beta1: beta1,
		Beta2: beta2,
		Eps:   eps,
		m:     make([]float64, n),
		v:     make([]float64, n),
	}
}

// Step applies one bias-corrected Adam update to params in place,
// descending along grads.
func (a *Adam) Step(params, grads []float64) {
	a.t++
	c1 := 1 - math.Pow(a.Beta1, float64(a.t))
	c2 := 1 - math.Pow(a.Beta2, float64(a.t))
	for i, g := range grads {
		a.m[i] = a.Beta1*a.m[i] + (1-a.Beta1)*g
		a.v[i] = a.Beta2*a.v[i] + (1-a.Beta2)*g*g
		mHat := a.m[i] / c1
		vHat := a.v[i] / c2
		params[i] -= a.LR * mHat / (math.Sqrt(vHat) + a.Eps)
	}
}

// State snapshots the optimizer for checkpointing.
type AdamState struct {
	M []float64 `json:"m"`
	V []float64 `json:"v"`
	T int       `json:"t"`
}

// State returns a copy of the optimizer's moment estimates.
func (a *Adam) State() AdamState {
	s := AdamState{M: make([]float64, len(a.m)), V: make([]float64, len(a.v)), T: a.t}
	copy(s.M, a.m)
	copy(s.V, a.v)
	return s
}

// Restore loads a previously saved optimizer state.
func (a *Adam) Restore(s AdamState) {
	if len(s.M) == len(a.m) {
		copy(a.m, s.M)
	}
	if len(s.V) == len(a.v) {
		copy(a.v, s.V)
	}
	a.t = s.T
}

// ClipGradNorm rescales grads in place so their global L2 norm does
// not exceed maxNorm, returning the norm before clipping.
func ClipGradNorm(grads []float64, maxNorm float64) float64 {
	var sq float64
	for _, g := range grads {
		sq += g * g
	}
	norm := math.Sqrt(sq)
	if norm > maxNorm && norm > 0 {
		scale := maxNorm / norm
		for i := range grads {
			grads[i] *= scale
		}
	}
	return norm
}
