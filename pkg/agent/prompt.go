package agent

import (
	"fmt"
	"strings"
)

// BuildPrompt renders the scoring context: the possible actions, the
// mission, and the windowed observation/action trace ending with the
// open "Action k:" slot the candidates complete.
//
// The layout follows the few-shot template grounded-language agents
// are scored with:
//
//	Possible action of the agent: turn left, turn right, go forward
//	Goal of the agent: go to the green ball
//	Observation 0: You see a wall 2 steps forward, ...
//	Action 0: go forward
//	Observation 1: ...
//	Action 1:
func BuildPrompt(actions []string, window []Step) string {
	var b strings.Builder

	b.WriteString("Possible action of the agent:")
	for i, a := range actions {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte(' ')
		b.WriteString(a)
	}

	if len(window) > 0 {
		fmt.Fprintf(&b, " \n Goal of the agent: %s", window[0].Obs.Goal)
	}
	for k, step := range window {
		fmt.Fprintf(&b, " \n Observation %d: %s", k, strings.Join(step.Obs.Descriptions, ", "))
		fmt.Fprintf(&b, " \n Action %d: ", k)
		if step.Action != "" {
			b.WriteString(step.Action)
		}
	}
	return b.String()
}
