package agent

import (
	"sync"

	"github.com/glam-rl/glam/pkg/env"
)

// Step is one observation and the action taken on it. The action is
// empty for the step currently being decided.
type Step struct {
	Obs    env.Observation
	Action string
}

// History is a bounded record of an agent's recent steps within the
// current episode.
type History struct {
	steps    []Step
	capacity int
	mu       sync.RWMutex
}

func NewHistory(capacity int) *History {
	return &History{
		steps:    make([]Step, 0, capacity),
		capacity: capacity,
	}
}

// Observe appends a new step for obs with no action yet, evicting the
// oldest step when full.
func (h *History) Observe(obs env.Observation) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.steps = append(h.steps, Step{Obs: obs})
	if len(h.steps) > h.capacity {
		h.steps = h.steps[1:]
	}
}

// Commit records the action chosen for the most recent observation.
func (h *History) Commit(action string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.steps) > 0 {
		h.steps[len(h.steps)-1].Action = action
	}
}

// Window returns a copy of up to n most recent steps, oldest first.
func (h *History) Window(n int) []Step {
	h.mu.RLock()
	defer h.mu.RUnlock()
	start := len(h.steps) - n
	if start < 0 {
		start = 0
	}
	window := make([]Step, len(h.steps)-start)
	copy(window, h.steps[start:])
	return window
}

// Clear drops all steps, for a new episode.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.steps = h.steps[:0]
}
