package experiment

import (
	"context"
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/glam-rl/glam/pkg/config"
	"github.com/glam-rl/glam/pkg/rl"
)

// steadyScorer prefers the first candidate regardless of prompt. Safe
// for concurrent use.
type steadyScorer struct{}

func (steadyScorer) Score(_ context.Context, _ string, candidates []string) ([]float64, error) {
	scores := make([]float64, len(candidates))
	for i := range scores {
		scores[i] = -5
	}
	scores[0] = -1
	return scores, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.LamorelArgs.LogLevel = "info"
	cfg.LamorelArgs.DistributedSetupArgs.NRLProcesses = 1
	cfg.LamorelArgs.DistributedSetupArgs.NLLMProcesses = 1
	cfg.LamorelArgs.LLMArgs.ModelType = "seq2seq"
	cfg.LamorelArgs.LLMArgs.ModelPath = "t5-small"
	cfg.LamorelArgs.LLMArgs.Pretrained = true
	cfg.LamorelArgs.LLMArgs.MinibatchSize = 2

	cfg.RLScriptArgs = config.RLScriptArgs{
		Path:              "main.go",
		Seed:              7,
		NumberEnvs:        2,
		NumSteps:          16,
		FramesPerProc:     4,
		Discount:          0.99,
		LR:                1e-3,
		Beta1:             0.9,
		Beta2:             0.999,
		AdamEps:           1e-5,
		GAELambda:         0.95,
		EntropyCoef:       0.01,
		ValueLossCoef:     0.5,
		MaxGradNorm:       0.5,
		ClipEps:           0.2,
		Epochs:            2,
		BatchSize:         4,
		ActionSpace:       []string{"turn_left", "turn_right", "go_forward", "pick_up", "drop", "toggle"},
		NameEnvironment:   "BabyAI-MixedTestLocal-v0",
		NameExperiment:    "llm_mtl",
		NameModel:         "T5small",
		SavingPathLogs:    t.TempDir(),
		SavingPathModel:   t.TempDir(),
		NbrObs:            3,
		RewardShapingBeta: 0,
	}
	return cfg
}

func TestSynthesize(t *testing.T) {
	s := Synthesize([]float64{1, 2, 3, 4})
	if s.Mean != 2.5 || s.Min != 1 || s.Max != 4 {
		t.Fatalf("unexpected stats: %+v", s)
	}
	want := math.Sqrt(1.25)
	if math.Abs(s.Std-want) > 1e-12 {
		t.Errorf("std = %v, want %v", s.Std, want)
	}

	if z := Synthesize(nil); z != (Stats{}) {
		t.Errorf("empty input should give zero stats, got %+v", z)
	}
}

func TestSuccessRate(t *testing.T) {
	if got := SuccessRate([]float64{0.5, 0, 0.9, 0}); got != 0.5 {
		t.Errorf("success rate = %v, want 0.5", got)
	}
	if got := SuccessRate(nil); got != 0 {
		t.Errorf("success rate of no episodes = %v, want 0", got)
	}
}

func TestStatusRoundTrip(t *testing.T) {
	dir := t.TempDir()

	st, err := LoadStatus(dir)
	if err != nil {
		t.Fatalf("LoadStatus on empty dir: %v", err)
	}
	if st != (Status{}) {
		t.Fatalf("expected zero status, got %+v", st)
	}

	want := Status{Update: 3, NumEpisodes: 12, NumFrames: 240}
	if err := SaveStatus(dir, want); err != nil {
		t.Fatalf("SaveStatus: %v", err)
	}
	got, err := LoadStatus(dir)
	if err != nil {
		t.Fatalf("LoadStatus: %v", err)
	}
	if got != want {
		t.Errorf("status round trip: got %+v, want %+v", got, want)
	}
}

func TestCheckpointBackupFallback(t *testing.T) {
	dir := t.TempDir()

	if _, ok, err := LoadCheckpoint(dir); err != nil || ok {
		t.Fatalf("empty dir: ok=%v err=%v, want false nil", ok, err)
	}

	first := Checkpoint{Update: 1, Params: []float64{1, 2}, Optimizer: rl.AdamState{M: []float64{0, 0}, V: []float64{0, 0}, T: 1}}
	second := Checkpoint{Update: 2, Params: []float64{3, 4}, Optimizer: rl.AdamState{M: []float64{0, 0}, V: []float64{0, 0}, T: 2}}
	if err := SaveCheckpoint(dir, first); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := SaveCheckpoint(dir, second); err != nil {
		t.Fatalf("second save: %v", err)
	}

	ck, ok, err := LoadCheckpoint(dir)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if ck.Update != 2 {
		t.Errorf("loaded update %d, want 2", ck.Update)
	}

	// Corrupt last; the rotated backup must still load.
	last := filepath.Join(dir, "last", checkpointFile)
	if err := os.WriteFile(last, []byte("{truncated"), 0o644); err != nil {
		t.Fatal(err)
	}
	ck, ok, err = LoadCheckpoint(dir)
	if err != nil || !ok {
		t.Fatalf("load with corrupt last: ok=%v err=%v", ok, err)
	}
	if ck.Update != 1 {
		t.Errorf("fallback loaded update %d, want 1", ck.Update)
	}
}

func TestCSVLoggerResumesWithoutSecondHeader(t *testing.T) {
	dir := t.TempDir()

	l, err := NewCSVLogger(dir)
	if err != nil {
		t.Fatalf("NewCSVLogger: %v", err)
	}
	if err := l.Append(LogRow{Update: 1, Frames: 80}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	l, err = NewCSVLogger(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if err := l.Append(LogRow{Update: 2, Frames: 160}); err != nil {
		t.Fatalf("second Append: %v", err)
	}
	l.Close()

	f, err := os.Open(filepath.Join(dir, logFile))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header plus 2", len(rows))
	}
	if !equalStrings(rows[0], logHeader) {
		t.Errorf("header mismatch: %v", rows[0])
	}
	for i, want := range []string{"1", "2"} {
		if rows[i+1][0] != want {
			t.Errorf("row %d update = %s, want %s", i+1, rows[i+1][0], want)
		}
	}
}

func TestRunTrainsLogsAndResumes(t *testing.T) {
	cfg := testConfig(t)

	exp, err := New(cfg, steadyScorer{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := exp.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	logDir := filepath.Join(cfg.RLScriptArgs.SavingPathLogs, exp.ID())
	mdlDir := filepath.Join(cfg.RLScriptArgs.SavingPathModel, exp.ID())

	st, err := LoadStatus(logDir)
	if err != nil {
		t.Fatalf("LoadStatus: %v", err)
	}
	if st.NumFrames < cfg.RLScriptArgs.NumSteps {
		t.Errorf("trained %d frames, want at least %d", st.NumFrames, cfg.RLScriptArgs.NumSteps)
	}
	wantUpdates := cfg.RLScriptArgs.NumSteps / (cfg.RLScriptArgs.FramesPerProc * cfg.RLScriptArgs.NumberEnvs)
	if st.Update != wantUpdates {
		t.Errorf("ran %d updates, want %d", st.Update, wantUpdates)
	}

	data, err := os.ReadFile(filepath.Join(logDir, logFile))
	if err != nil {
		t.Fatalf("reading log.csv: %v", err)
	}
	lines := strings.Count(strings.TrimSpace(string(data)), "\n") + 1
	if lines != wantUpdates+1 {
		t.Errorf("log has %d lines, want %d", lines, wantUpdates+1)
	}

	ck, ok, err := LoadCheckpoint(mdlDir)
	if err != nil || !ok {
		t.Fatalf("checkpoint after run: ok=%v err=%v", ok, err)
	}
	if ck.Update != st.Update {
		t.Errorf("checkpoint update %d, status update %d", ck.Update, st.Update)
	}

	// A second Run restores the finished status and does nothing.
	exp2, err := New(cfg, steadyScorer{}, nil)
	if err != nil {
		t.Fatalf("New (resume): %v", err)
	}
	if err := exp2.Run(context.Background()); err != nil {
		t.Fatalf("resumed Run: %v", err)
	}
	st2, err := LoadStatus(logDir)
	if err != nil {
		t.Fatal(err)
	}
	if st2 != st {
		t.Errorf("resumed run changed status from %+v to %+v", st, st2)
	}
}

func TestTestPrompts(t *testing.T) {
	actions := []string{"turn left", "turn right", "go forward"}

	one := TestPrompts(1, actions)
	if len(one) != 11 {
		t.Fatalf("set 1 has %d prompts, want 11", len(one))
	}
	two := TestPrompts(2, actions)
	if len(two) != 2 {
		t.Fatalf("set 2 has %d prompts, want 2", len(two))
	}
	for i, p := range two {
		if p != one[i] {
			t.Errorf("set 2 prompt %d differs from set 1", i)
		}
	}

	head := "Possible action of the agent: turn left, turn right, go forward"
	for i, p := range one {
		if !strings.HasPrefix(p, head) {
			t.Errorf("prompt %d does not start with the action header: %.60q", i, p)
		}
		if !strings.Contains(p, "Goal of the agent:") {
			t.Errorf("prompt %d has no goal line", i)
		}
		if !strings.HasSuffix(strings.TrimRight(p, " "), ":") {
			t.Errorf("prompt %d does not end on an open action slot: %.40q", i, p[len(p)-40:])
		}
	}

	if got := TestPrompts(0, actions); got != nil {
		t.Errorf("set 0 should have no prompts, got %d", len(got))
	}
}

func TestRunWritesDistributionLog(t *testing.T) {
	cfg := testConfig(t)
	cfg.RLScriptArgs.TemplateTest = 1

	exp, err := New(cfg, steadyScorer{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := exp.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	logDir := filepath.Join(cfg.RLScriptArgs.SavingPathLogs, exp.ID())
	f, err := os.Open(filepath.Join(logDir, distribFile))
	if err != nil {
		t.Fatalf("opening distrib.csv: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("reading distrib.csv: %v", err)
	}

	wantUpdates := cfg.RLScriptArgs.NumSteps / (cfg.RLScriptArgs.FramesPerProc * cfg.RLScriptArgs.NumberEnvs)
	if len(rows) != wantUpdates {
		t.Fatalf("distrib.csv has %d rows, want one per update (%d)", len(rows), wantUpdates)
	}

	numActions := len(cfg.RLScriptArgs.ActionSpace)
	wantCols := 11 * numActions
	for r, row := range rows {
		if len(row) != wantCols {
			t.Fatalf("row %d has %d columns, want %d", r, len(row), wantCols)
		}
		// Each prompt contributes a probability vector.
		for p := 0; p < len(row); p += numActions {
			var sum float64
			for _, cell := range row[p : p+numActions] {
				v, err := strconv.ParseFloat(cell, 64)
				if err != nil {
					t.Fatalf("row %d col %d: %v", r, p, err)
				}
				sum += v
			}
			if math.Abs(sum-1) > 1e-9 {
				t.Errorf("row %d prompt %d: probabilities sum to %v", r, p/numActions, sum)
			}
		}
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	cfg := testConfig(t)
	cfg.RLScriptArgs.NumSteps = 1 << 20

	exp, err := New(cfg, steadyScorer{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := exp.Run(ctx); err != context.Canceled {
		t.Errorf("Run with cancelled context: %v, want context.Canceled", err)
	}
}

func TestNewRejectsUnsupportedModes(t *testing.T) {
	for _, mode := range []string{"im_learning", "bot", "no_llm_processes"} {
		t.Run(mode, func(t *testing.T) {
			cfg := testConfig(t)
			switch mode {
			case "im_learning":
				cfg.RLScriptArgs.IMLearning = true
			case "bot":
				cfg.RLScriptArgs.Bot = true
			case "no_llm_processes":
				// Zero LLM processes would select the DRRN
				// baseline, which this build does not carry.
				cfg.LamorelArgs.DistributedSetupArgs.NLLMProcesses = 0
			}
			if _, err := New(cfg, steadyScorer{}, nil); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestRandomAgentModeRuns(t *testing.T) {
	cfg := testConfig(t)
	cfg.RLScriptArgs.RandomAgent = true
	cfg.RLScriptArgs.NumSteps = 8

	exp, err := New(cfg, steadyScorer{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := exp.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
