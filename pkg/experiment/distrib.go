package experiment

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glam-rl/glam/pkg/agent"
)

const distribFile = "distrib.csv"

// TestPrompts returns the fixed evaluation prompts for the given
// template set, completed with the possible-action header for the
// current action names. Set 1 covers every mission family, set 2 only
// the go-to pair. Other values select no set and disable the
// distribution log.
func TestPrompts(template int, actions []string) []string {
	var bodies []string
	switch template {
	case 1:
		bodies = evalPromptBodies
	case 2:
		bodies = evalPromptBodies[:2]
	default:
		return nil
	}

	head := agent.BuildPrompt(actions, nil)
	prompts := make([]string, len(bodies))
	for i, b := range bodies {
		prompts[i] = head + b
	}
	return prompts
}

// AppendDistrib adds one row to distrib.csv in dir: the action
// probabilities of every evaluation prompt, flattened prompt by
// prompt. The file has no header and grows by one row per update,
// matching the training log's cadence.
func AppendDistrib(dir string, row []float64) error {
	f, err := os.OpenFile(filepath.Join(dir, distribFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening distribution log: %w", err)
	}
	rec := make([]string, len(row))
	for i, v := range row {
		rec[i] = ff(v)
	}
	w := csv.NewWriter(f)
	if err := w.Write(rec); err != nil {
		f.Close()
		return fmt.Errorf("appending distribution row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
