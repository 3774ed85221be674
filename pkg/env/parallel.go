package env

import (
	"fmt"
	"math/rand"
	"sync"
)

// StepResult is the outcome of stepping one env instance. Done marks
// episode boundaries; the observation after a done step belongs to the
// freshly reset episode.
type StepResult struct {
	Obs    Observation
	Reward float64
	Done   bool
}

// ParallelEnv steps several instances of the same environment
// concurrently, one goroutine per instance, and resets finished
// episodes automatically.
type ParallelEnv struct {
	envs []Env
	rng  *rand.Rand
	mu   sync.Mutex // guards rng across the step goroutines
}

// NewParallel instantiates n copies of the named environment.
func NewParallel(name string, n int) (*ParallelEnv, error) {
	if n <= 0 {
		return nil, fmt.Errorf("env: need at least one instance, got %d", n)
	}
	envs := make([]Env, n)
	for i := range envs {
		e, err := Make(name)
		if err != nil {
			return nil, err
		}
		envs[i] = e
	}
	return &ParallelEnv{envs: envs}, nil
}

// Len returns the number of instances.
func (p *ParallelEnv) Len() int { return len(p.envs) }

// Actions returns the ordered action names shared by all instances.
func (p *ParallelEnv) Actions() []string { return p.envs[0].Actions() }

// MaxSteps returns the shared per-episode step budget.
func (p *ParallelEnv) MaxSteps() int { return p.envs[0].MaxSteps() }

// Reset seeds instance i with 100*seed + i and returns the first
// observations.
func (p *ParallelEnv) Reset(seed int64) []Observation {
	p.rng = rand.New(rand.NewSource(seed))
	obs := make([]Observation, len(p.envs))
	for i, e := range p.envs {
		obs[i] = e.Reset(100*seed + int64(i))
	}
	return obs
}

// Step applies one action per instance, concurrently. Instances whose
// episode ends are reset and report the new episode's first
// observation alongside Done=true.
func (p *ParallelEnv) Step(actions []int) ([]StepResult, error) {
	if len(actions) != len(p.envs) {
		return nil, fmt.Errorf("env: got %d actions for %d instances", len(actions), len(p.envs))
	}

	results := make([]StepResult, len(p.envs))
	errs := make([]error, len(p.envs))
	var wg sync.WaitGroup
	for i := range p.envs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			obs, reward, done, err := p.envs[i].Step(actions[i])
			if err != nil {
				errs[i] = err
				return
			}
			if done {
				obs = p.envs[i].Reset(p.nextSeed())
			}
			results[i] = StepResult{Obs: obs, Reward: reward, Done: done}
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

func (p *ParallelEnv) nextSeed() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Int63()
}
