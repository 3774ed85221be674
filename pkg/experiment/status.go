package experiment

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const statusFile = "status.json"

// Status is the resume bookkeeping persisted next to the training log.
// A fresh experiment starts from the zero value; an interrupted one
// picks up at the recorded update.
type Status struct {
	Update      int `json:"i"`
	NumEpisodes int `json:"num_episodes"`
	NumFrames   int `json:"num_frames"`
}

// LoadStatus reads status.json from dir. A missing file is not an
// error: it returns the zero Status.
func LoadStatus(dir string) (Status, error) {
	var st Status
	data, err := os.ReadFile(filepath.Join(dir, statusFile))
	if errors.Is(err, fs.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("reading status: %w", err)
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return st, fmt.Errorf("parsing status: %w", err)
	}
	return st, nil
}

// SaveStatus writes status.json atomically via a rename.
func SaveStatus(dir string, st Status) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding status: %w", err)
	}
	tmp := filepath.Join(dir, statusFile+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing status: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, statusFile)); err != nil {
		return fmt.Errorf("replacing status: %w", err)
	}
	return nil
}
