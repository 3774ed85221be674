package experiment

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const logFile = "log.csv"

var logHeader = []string{
	"update", "episodes", "frames", "FPS", "duration",
	"return_mean", "return_std", "return_min", "return_max",
	"success_rate",
	"reshaped_return_mean", "reshaped_return_std", "reshaped_return_min", "reshaped_return_max",
	"reshaped_return_bonus_mean", "reshaped_return_bonus_std", "reshaped_return_bonus_min", "reshaped_return_bonus_max",
	"num_frames_mean", "num_frames_std", "num_frames_min", "num_frames_max",
	"entropy", "policy_loss", "value_loss", "loss", "grad_norm",
}

// LogRow is one line of the training log, emitted after each update.
type LogRow struct {
	Update    int
	Episodes  int
	Frames    int
	FPS       float64
	Duration  int
	Return    Stats
	Success   float64
	Reshaped  Stats
	Bonus     Stats
	NumFrames Stats

	Entropy    float64
	PolicyLoss float64
	ValueLoss  float64
	Loss       float64
	GradNorm   float64
}

// CSVLogger appends update rows to log.csv, writing the header only
// when the file is created, so resumed runs keep one contiguous log.
type CSVLogger struct {
	f *os.File
	w *csv.Writer
}

func NewCSVLogger(dir string) (*CSVLogger, error) {
	path := filepath.Join(dir, logFile)
	info, err := os.Stat(path)
	fresh := err != nil || info.Size() == 0

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening training log: %w", err)
	}
	l := &CSVLogger{f: f, w: csv.NewWriter(f)}
	if fresh {
		if err := l.w.Write(logHeader); err != nil {
			f.Close()
			return nil, fmt.Errorf("writing log header: %w", err)
		}
	}
	return l, nil
}

func (l *CSVLogger) Append(row LogRow) error {
	rec := []string{
		strconv.Itoa(row.Update),
		strconv.Itoa(row.Episodes),
		strconv.Itoa(row.Frames),
		ff(row.FPS),
		strconv.Itoa(row.Duration),
		ff(row.Return.Mean), ff(row.Return.Std), ff(row.Return.Min), ff(row.Return.Max),
		ff(row.Success),
		ff(row.Reshaped.Mean), ff(row.Reshaped.Std), ff(row.Reshaped.Min), ff(row.Reshaped.Max),
		ff(row.Bonus.Mean), ff(row.Bonus.Std), ff(row.Bonus.Min), ff(row.Bonus.Max),
		ff(row.NumFrames.Mean), ff(row.NumFrames.Std), ff(row.NumFrames.Min), ff(row.NumFrames.Max),
		ff(row.Entropy), ff(row.PolicyLoss), ff(row.ValueLoss), ff(row.Loss), ff(row.GradNorm),
	}
	if err := l.w.Write(rec); err != nil {
		return fmt.Errorf("appending log row: %w", err)
	}
	l.w.Flush()
	return l.w.Error()
}

func (l *CSVLogger) Close() error {
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		l.f.Close()
		return err
	}
	return l.f.Close()
}

func ff(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
