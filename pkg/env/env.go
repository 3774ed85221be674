// Package env provides text-rendered grid-world environments for
// grounded language agents, registered under gym-style names.
package env

import (
	"fmt"
	"sort"
	"sync"
)

// Observation is what an agent sees after a step: the mission text and
// an egocentric textual rendering of the scene.
type Observation struct {
	Goal         string
	Descriptions []string
}

// Env is a single episodic environment instance. Implementations are
// not safe for concurrent use; ParallelEnv gives each instance its own
// goroutine instead.
type Env interface {
	// Reset starts a new episode seeded deterministically and
	// returns the first observation.
	Reset(seed int64) Observation
	// Step applies the action with the given index and returns the
	// next observation, the reward, and whether the episode ended.
	Step(action int) (Observation, float64, bool, error)
	// Actions returns the ordered action names the env understands.
	Actions() []string
	// MaxSteps returns the step budget after which an episode is
	// truncated.
	MaxSteps() int
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]func() Env)
)

// Register makes an environment constructor available to Make under
// the given name. Registering the same name twice panics, mirroring
// database/sql driver registration.
func Register(name string, factory func() Env) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("env: Register called twice for %q", name))
	}
	registry[name] = factory
}

// Make instantiates a registered environment by name.
func Make(name string) (Env, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("env: unknown environment %q (known: %v)", name, Names())
	}
	return factory(), nil
}

// Names lists the registered environment names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
