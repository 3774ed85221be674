package agent

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/glam-rl/glam/pkg/env"
	"github.com/glam-rl/glam/pkg/rl"
)

// fixedScorer returns the same scores for every prompt and remembers
// the last prompt it saw.
type fixedScorer struct {
	scores     []float64
	lastPrompt string
}

func (s *fixedScorer) Score(_ context.Context, prompt string, candidates []string) ([]float64, error) {
	s.lastPrompt = prompt
	return s.scores, nil
}

type errScorer struct{}

func (errScorer) Score(context.Context, string, []string) ([]float64, error) {
	return nil, errors.New("scorer unavailable")
}

var testActions = []string{"turn left", "turn right", "go forward"}

func newTestAgent(t *testing.T, scorer *fixedScorer) *LLMAgent {
	t.Helper()
	a, err := NewLLMAgent(
		WithAgentID("test-agent"),
		WithScorer(scorer),
		WithPolicy(rl.NewPolicy(len(testActions))),
		WithActions(testActions),
		WithWindow(3),
		WithRNG(rand.New(rand.NewSource(1))),
	)
	if err != nil {
		t.Fatalf("NewLLMAgent failed: %v", err)
	}
	return a
}

func TestBuildPrompt(t *testing.T) {
	window := []Step{
		{
			Obs: env.Observation{
				Goal:         "go to the green ball",
				Descriptions: []string{"You see a wall 2 steps forward", "You see a green ball 1 step left"},
			},
			Action: "turn left",
		},
		{
			Obs: env.Observation{
				Goal:         "go to the green ball",
				Descriptions: []string{"You see a green ball 1 step forward"},
			},
		},
	}

	got := BuildPrompt(testActions, window)
	want := "Possible action of the agent: turn left, turn right, go forward" +
		" \n Goal of the agent: go to the green ball" +
		" \n Observation 0: You see a wall 2 steps forward, You see a green ball 1 step left" +
		" \n Action 0: turn left" +
		" \n Observation 1: You see a green ball 1 step forward" +
		" \n Action 1: "
	if got != want {
		t.Errorf("BuildPrompt() =\n%q\nwant\n%q", got, want)
	}
}

func TestHistoryWindowAndEviction(t *testing.T) {
	h := NewHistory(2)
	for _, goal := range []string{"first", "second", "third"} {
		h.Observe(env.Observation{Goal: goal})
		h.Commit("go forward")
	}

	window := h.Window(3)
	if len(window) != 2 {
		t.Fatalf("Window(3) returned %d steps, want 2 (capacity)", len(window))
	}
	if window[0].Obs.Goal != "second" || window[1].Obs.Goal != "third" {
		t.Errorf("window = [%s %s], want [second third]", window[0].Obs.Goal, window[1].Obs.Goal)
	}
	if window[1].Action != "go forward" {
		t.Errorf("committed action = %q, want %q", window[1].Action, "go forward")
	}

	h.Clear()
	if len(h.Window(3)) != 0 {
		t.Error("Clear did not empty the history")
	}
}

func TestLLMAgentAct(t *testing.T) {
	scorer := &fixedScorer{scores: []float64{0, 0, 5}}
	a := newTestAgent(t, scorer)

	obs := env.Observation{Goal: "go to the red box", Descriptions: []string{"You see a red box 2 steps forward"}}
	counts := make([]int, len(testActions))
	var last Decision
	for i := 0; i < 200; i++ {
		d, err := a.Act(context.Background(), obs)
		if err != nil {
			t.Fatalf("Act failed: %v", err)
		}
		counts[d.Action]++
		last = d
	}

	// Score 5 vs 0 makes "go forward" overwhelmingly likely under the
	// fresh identity policy.
	if counts[2] < 180 {
		t.Errorf("high-scored action chosen %d/200 times, want >= 180", counts[2])
	}
	if last.Name != testActions[last.Action] {
		t.Errorf("Name = %q, want %q", last.Name, testActions[last.Action])
	}
	var sum float64
	for _, p := range last.Probs {
		sum += p
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("probs sum to %v, want 1", sum)
	}
	if math.Abs(last.LogProb-math.Log(last.Probs[last.Action])) > 1e-9 {
		t.Errorf("LogProb = %v, inconsistent with Probs[%d] = %v", last.LogProb, last.Action, last.Probs[last.Action])
	}

	if !strings.Contains(scorer.lastPrompt, "Goal of the agent: go to the red box") {
		t.Errorf("prompt missing the goal: %q", scorer.lastPrompt)
	}
	if !strings.Contains(scorer.lastPrompt, "Possible action of the agent: turn left, turn right, go forward") {
		t.Errorf("prompt missing the action header: %q", scorer.lastPrompt)
	}
}

func TestLLMAgentWindowsPrompt(t *testing.T) {
	scorer := &fixedScorer{scores: []float64{0, 0, 0}}
	a := newTestAgent(t, scorer)

	obs := env.Observation{Goal: "g", Descriptions: []string{"step"}}
	for i := 0; i < 5; i++ {
		if _, err := a.Act(context.Background(), obs); err != nil {
			t.Fatalf("Act failed: %v", err)
		}
	}
	// Window is 3, so even after 5 steps only observations 0..2 appear.
	if strings.Contains(scorer.lastPrompt, "Observation 3:") {
		t.Errorf("prompt exceeded the observation window: %q", scorer.lastPrompt)
	}
	if !strings.Contains(scorer.lastPrompt, "Observation 2:") {
		t.Errorf("prompt missing the last window slot: %q", scorer.lastPrompt)
	}

	a.Reset()
	if _, err := a.Act(context.Background(), obs); err != nil {
		t.Fatalf("Act after Reset failed: %v", err)
	}
	if strings.Contains(scorer.lastPrompt, "Observation 1:") {
		t.Errorf("Reset did not clear the history: %q", scorer.lastPrompt)
	}
}

func TestLLMAgentPropagatesScorerErrors(t *testing.T) {
	a, err := NewLLMAgent(
		WithScorer(errScorer{}),
		WithPolicy(rl.NewPolicy(len(testActions))),
		WithActions(testActions),
	)
	if err != nil {
		t.Fatalf("NewLLMAgent failed: %v", err)
	}
	if _, err := a.Act(context.Background(), env.Observation{Goal: "g"}); err == nil {
		t.Error("expected scorer error, got nil")
	}
}

func TestNewLLMAgentValidation(t *testing.T) {
	policy := rl.NewPolicy(3)
	cases := []struct {
		name string
		opts []AgentOption
	}{
		{"missing scorer", []AgentOption{WithPolicy(policy), WithActions(testActions)}},
		{"missing policy", []AgentOption{WithScorer(&fixedScorer{}), WithActions(testActions)}},
		{"missing actions", []AgentOption{WithScorer(&fixedScorer{}), WithPolicy(policy)}},
		{"action count mismatch", []AgentOption{WithScorer(&fixedScorer{}), WithPolicy(policy), WithActions([]string{"just one"})}},
		{"bad window", []AgentOption{WithScorer(&fixedScorer{}), WithPolicy(policy), WithActions(testActions), WithWindow(0)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewLLMAgent(tc.opts...); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestRandomAgent(t *testing.T) {
	a := NewRandomAgent("rand-agent", testActions, rand.New(rand.NewSource(2)))
	d, err := a.Act(context.Background(), env.Observation{})
	if err != nil {
		t.Fatalf("Act failed: %v", err)
	}
	if d.Action < 0 || d.Action >= len(testActions) {
		t.Errorf("action %d out of range", d.Action)
	}
	if want := -math.Log(3); math.Abs(d.LogProb-want) > 1e-12 {
		t.Errorf("LogProb = %v, want %v", d.LogProb, want)
	}
	if a.GetID() != "rand-agent" {
		t.Errorf("GetID() = %q", a.GetID())
	}
}
