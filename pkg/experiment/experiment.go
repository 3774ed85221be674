// Package experiment runs the training loop: it collects rollouts
// from parallel environments driven by scorer-backed agents, updates
// the shared policy with PPO, and persists logs, status and
// checkpoints so interrupted runs resume where they stopped.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/glam-rl/glam/pkg/agent"
	"github.com/glam-rl/glam/pkg/config"
	"github.com/glam-rl/glam/pkg/env"
	"github.com/glam-rl/glam/pkg/rl"
	"github.com/glam-rl/glam/pkg/scoring"
)

// Experiment owns everything one training run needs.
type Experiment struct {
	cfg    *config.Config
	id     string
	logDir string
	mdlDir string

	penv    *env.ParallelEnv
	agents  []agent.Agent
	actions []string
	scorer  scoring.Scorer
	policy  *rl.Policy
	ppo     *rl.PPO
	shaper  rl.RewardShaper
	logger  *slog.Logger

	// evaluation prompts scored after every update for distrib.csv
	evalPrompts []string

	obs []env.Observation

	// per-env episode accumulators
	epReturn   []float64
	epReshaped []float64
	epBonus    []float64
	epFrames   []int
}

// New wires an experiment from a validated config and a scorer. The
// scorer is shared by all per-env agents, as is the policy, so a
// single update trains every actor.
func New(cfg *config.Config, scorer scoring.Scorer, logger *slog.Logger) (*Experiment, error) {
	if cfg.RLScriptArgs.IMLearning {
		return nil, errors.New("experiment: imitation learning is not supported")
	}
	if cfg.RLScriptArgs.Bot {
		return nil, errors.New("experiment: bot demonstrations are not supported")
	}
	if cfg.LamorelArgs.DistributedSetupArgs.NLLMProcesses == 0 {
		return nil, errors.New("experiment: n_llm_processes is 0, which selects the DRRN baseline; DRRN is not supported, configure at least one LLM process")
	}
	if logger == nil {
		logger = slog.Default()
	}

	args := cfg.RLScriptArgs
	actions := args.Actions()

	penv, err := env.NewParallel(args.NameEnvironment, args.NumberEnvs)
	if err != nil {
		return nil, fmt.Errorf("experiment: %w", err)
	}

	policy := rl.NewPolicy(len(actions))
	ppo := rl.NewPPO(policy, rl.PPOConfig{
		LR:            args.LR,
		Beta1:         args.Beta1,
		Beta2:         args.Beta2,
		AdamEps:       args.AdamEps,
		ClipEps:       args.ClipEps,
		EntropyCoef:   args.EntropyCoef,
		ValueLossCoef: args.ValueLossCoef,
		MaxGradNorm:   args.MaxGradNorm,
		Epochs:        args.Epochs,
		BatchSize:     args.BatchSize,
	}, rand.New(rand.NewSource(int64(args.Seed))))

	agents := make([]agent.Agent, args.NumberEnvs)
	for i := range agents {
		rng := rand.New(rand.NewSource(int64(args.Seed)*1000 + int64(i)))
		if args.RandomAgent {
			agents[i] = agent.NewRandomAgent(fmt.Sprintf("random-%d", i), actions, rng)
			continue
		}
		a, err := agent.NewLLMAgent(
			agent.WithAgentID(fmt.Sprintf("env-%d", i)),
			agent.WithScorer(scorer),
			agent.WithPolicy(policy),
			agent.WithActions(actions),
			agent.WithWindow(args.NbrObs),
			agent.WithRNG(rng),
		)
		if err != nil {
			return nil, fmt.Errorf("experiment: %w", err)
		}
		agents[i] = a
	}

	id := cfg.ExperimentID()
	n := args.NumberEnvs
	return &Experiment{
		cfg:         cfg,
		id:          id,
		logDir:      filepath.Join(args.SavingPathLogs, id),
		mdlDir:      filepath.Join(args.SavingPathModel, id),
		penv:        penv,
		agents:      agents,
		actions:     actions,
		scorer:      scorer,
		policy:      policy,
		ppo:         ppo,
		shaper:      rl.RewardShaper{Beta: args.RewardShapingBeta},
		logger:      logger.With("experiment", id),
		evalPrompts: TestPrompts(args.TemplateTest, actions),
		epReturn:    make([]float64, n),
		epReshaped:  make([]float64, n),
		epBonus:     make([]float64, n),
		epFrames:    make([]int, n),
	}, nil
}

// ID returns the composed experiment identifier used for log and
// checkpoint directories.
func (e *Experiment) ID() string { return e.id }

// Run trains until NumSteps frames have been collected or ctx is
// cancelled. It restores status and checkpoint state when present, so
// calling Run again after an interruption continues the same run.
func (e *Experiment) Run(ctx context.Context) error {
	args := e.cfg.RLScriptArgs

	if err := os.MkdirAll(e.logDir, 0o755); err != nil {
		return fmt.Errorf("experiment: creating log dir: %w", err)
	}
	if err := os.MkdirAll(e.mdlDir, 0o755); err != nil {
		return fmt.Errorf("experiment: creating model dir: %w", err)
	}

	status, err := LoadStatus(e.logDir)
	if err != nil {
		return fmt.Errorf("experiment: %w", err)
	}
	if ck, ok, err := LoadCheckpoint(e.mdlDir); err != nil {
		return fmt.Errorf("experiment: %w", err)
	} else if ok {
		if err := e.policy.SetParams(ck.Params); err != nil {
			return fmt.Errorf("experiment: restoring policy: %w", err)
		}
		e.ppo.Optimizer().Restore(ck.Optimizer)
		e.logger.Info("restored checkpoint", "update", ck.Update)
	}

	log, err := NewCSVLogger(e.logDir)
	if err != nil {
		return fmt.Errorf("experiment: %w", err)
	}
	defer log.Close()

	e.obs = e.penv.Reset(int64(args.Seed))
	for _, a := range e.agents {
		a.Reset()
	}

	e.logger.Info("starting training",
		"env", args.NameEnvironment,
		"envs", args.NumberEnvs,
		"frames_total", args.NumSteps,
		"resume_frames", status.NumFrames,
	)

	for status.NumFrames < args.NumSteps {
		if err := ctx.Err(); err != nil {
			e.logger.Info("training interrupted", "frames", status.NumFrames)
			return err
		}

		start := time.Now()
		rollout, ep, err := e.collect(ctx)
		if err != nil {
			return fmt.Errorf("experiment: collecting rollout: %w", err)
		}
		diag, err := e.ppo.Update(rollout)
		if err != nil {
			return fmt.Errorf("experiment: update %d: %w", status.Update+1, err)
		}

		elapsed := time.Since(start)
		status.Update++
		status.NumFrames += rollout.Len()
		status.NumEpisodes += len(ep.returns)

		row := LogRow{
			Update:     status.Update,
			Episodes:   status.NumEpisodes,
			Frames:     status.NumFrames,
			FPS:        float64(rollout.Len()) / elapsed.Seconds(),
			Duration:   int(elapsed.Seconds()),
			Return:     Synthesize(ep.returns),
			Success:    SuccessRate(ep.returns),
			Reshaped:   Synthesize(ep.reshaped),
			Bonus:      Synthesize(ep.bonuses),
			NumFrames:  Synthesize(ep.frames),
			Entropy:    diag.Entropy,
			PolicyLoss: diag.PolicyLoss,
			ValueLoss:  diag.ValueLoss,
			Loss:       diag.Loss,
			GradNorm:   diag.GradNorm,
		}
		if err := log.Append(row); err != nil {
			return fmt.Errorf("experiment: %w", err)
		}
		e.logger.Info("update complete",
			"update", status.Update,
			"frames", status.NumFrames,
			"episodes", status.NumEpisodes,
			"fps", row.FPS,
			"return_mean", row.Return.Mean,
			"success_rate", row.Success,
			"entropy", diag.Entropy,
			"loss", diag.Loss,
		)

		if err := e.logDistribution(ctx); err != nil {
			return fmt.Errorf("experiment: %w", err)
		}

		if err := SaveCheckpoint(e.mdlDir, Checkpoint{
			Update:    status.Update,
			Params:    e.policy.Params(),
			Optimizer: e.ppo.Optimizer().State(),
		}); err != nil {
			return fmt.Errorf("experiment: %w", err)
		}
		if err := SaveStatus(e.logDir, status); err != nil {
			return fmt.Errorf("experiment: %w", err)
		}
	}

	e.logger.Info("training finished",
		"updates", status.Update,
		"frames", status.NumFrames,
		"episodes", status.NumEpisodes,
	)
	return nil
}

// episodeLog gathers the figures of episodes that ended during one
// rollout.
type episodeLog struct {
	returns  []float64
	reshaped []float64
	bonuses  []float64
	frames   []float64
}

// collect advances every environment FramesPerProc steps and returns
// the filled rollout plus per-episode bookkeeping. Agents act
// concurrently since each decision is an independent scorer call.
func (e *Experiment) collect(ctx context.Context) (*rl.Rollout, episodeLog, error) {
	args := e.cfg.RLScriptArgs
	n := e.penv.Len()

	rollout := rl.NewRollout(n, args.FramesPerProc)
	var ep episodeLog

	for f := 0; f < args.FramesPerProc; f++ {
		decisions, err := e.decide(ctx)
		if err != nil {
			return nil, ep, err
		}

		actions := make([]int, n)
		for i, d := range decisions {
			actions[i] = d.Action
		}
		results, err := e.penv.Step(actions)
		if err != nil {
			return nil, ep, err
		}

		frame := make([]rl.Transition, n)
		for i, d := range decisions {
			res := results[i]
			shaped, bonus := e.shaper.Shape(res.Reward, scoreProb(d), d.Probs[d.Action])
			frame[i] = rl.Transition{
				Scores:  d.Scores,
				Action:  d.Action,
				LogProb: d.LogProb,
				Value:   d.Value,
				Reward:  shaped,
				Done:    res.Done,
			}

			e.epReturn[i] += res.Reward
			e.epReshaped[i] += shaped
			e.epBonus[i] += bonus
			e.epFrames[i]++
			if res.Done {
				ep.returns = append(ep.returns, e.epReturn[i])
				ep.reshaped = append(ep.reshaped, e.epReshaped[i])
				ep.bonuses = append(ep.bonuses, e.epBonus[i])
				ep.frames = append(ep.frames, float64(e.epFrames[i]))
				e.epReturn[i], e.epReshaped[i], e.epBonus[i] = 0, 0, 0
				e.epFrames[i] = 0
				e.agents[i].Reset()
			}
			e.obs[i] = res.Obs
		}
		if err := rollout.Add(frame); err != nil {
			return nil, ep, err
		}
	}

	lastValues, err := e.bootstrap(ctx)
	if err != nil {
		return nil, ep, err
	}
	if err := rollout.ComputeAdvantages(lastValues, args.Discount, args.GAELambda); err != nil {
		return nil, ep, err
	}
	return rollout, ep, nil
}

// decide asks every agent for its next action concurrently.
func (e *Experiment) decide(ctx context.Context) ([]agent.Decision, error) {
	decisions := make([]agent.Decision, len(e.agents))
	errs := make([]error, len(e.agents))

	var wg sync.WaitGroup
	for i, a := range e.agents {
		wg.Add(1)
		go func(i int, a agent.Agent) {
			defer wg.Done()
			decisions[i], errs[i] = a.Act(ctx, e.obs[i])
		}(i, a)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return decisions, nil
}

// bootstrap estimates the value of each environment's current
// observation without acting on it.
func (e *Experiment) bootstrap(ctx context.Context) ([]float64, error) {
	values := make([]float64, len(e.agents))
	errs := make([]error, len(e.agents))

	var wg sync.WaitGroup
	for i, a := range e.agents {
		wg.Add(1)
		go func(i int, a agent.Agent) {
			defer wg.Done()
			values[i], errs[i] = a.Value(ctx, e.obs[i])
		}(i, a)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return values, nil
}

// logDistribution scores the fixed evaluation prompts with the
// freshly updated policy and appends the flattened action
// probabilities to distrib.csv. template_test selects the prompt set;
// a value without one disables the log.
func (e *Experiment) logDistribution(ctx context.Context) error {
	if len(e.evalPrompts) == 0 {
		return nil
	}

	row := make([]float64, 0, len(e.evalPrompts)*len(e.actions))
	for _, prompt := range e.evalPrompts {
		scores, err := e.scorer.Score(ctx, prompt, e.actions)
		if err != nil {
			return fmt.Errorf("scoring evaluation prompt: %w", err)
		}
		row = append(row, rl.NewCategorical(e.policy.Logits(scores)).Probs()...)
	}
	return AppendDistrib(e.logDir, row)
}

// scoreProb is the scorer-implied probability of the chosen action,
// before the policy adapter reweights it.
func scoreProb(d agent.Decision) float64 {
	return rl.NewCategorical(d.Scores).Probs()[d.Action]
}
