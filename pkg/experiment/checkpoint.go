package experiment

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/glam-rl/glam/pkg/rl"
)

const checkpointFile = "checkpoint.json"

// Checkpoint holds everything needed to resume training: the policy
// parameters and the optimizer moments.
type Checkpoint struct {
	Update    int          `json:"update"`
	Params    []float64    `json:"params"`
	Optimizer rl.AdamState `json:"optimizer"`
}

// SaveCheckpoint writes the checkpoint under dir/last, first rotating
// the previous one into dir/backup so a crash mid-write never loses
// both copies.
func SaveCheckpoint(dir string, ck Checkpoint) error {
	lastDir := filepath.Join(dir, "last")
	backupDir := filepath.Join(dir, "backup")
	for _, d := range []string{lastDir, backupDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("creating checkpoint dir: %w", err)
		}
	}

	last := filepath.Join(lastDir, checkpointFile)
	if prev, err := os.ReadFile(last); err == nil {
		if err := os.WriteFile(filepath.Join(backupDir, checkpointFile), prev, 0o644); err != nil {
			return fmt.Errorf("rotating checkpoint backup: %w", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("reading previous checkpoint: %w", err)
	}

	data, err := json.Marshal(ck)
	if err != nil {
		return fmt.Errorf("encoding checkpoint: %w", err)
	}
	tmp := last + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing checkpoint: %w", err)
	}
	if err := os.Rename(tmp, last); err != nil {
		return fmt.Errorf("replacing checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint reads dir/last, falling back to dir/backup when the
// last copy is missing or corrupted. A missing checkpoint altogether
// returns ok=false with no error.
func LoadCheckpoint(dir string) (Checkpoint, bool, error) {
	var firstErr error
	for _, sub := range []string{"last", "backup"} {
		path := filepath.Join(dir, sub, checkpointFile)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		var ck Checkpoint
		if err := json.Unmarshal(data, &ck); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("parsing %s: %w", path, err)
			}
			continue
		}
		return ck, true, nil
	}
	if firstErr != nil {
		return Checkpoint{}, false, fmt.Errorf("loading checkpoint: %w", firstErr)
	}
	return Checkpoint{}, false, nil
}
