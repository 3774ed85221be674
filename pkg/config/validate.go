package config

import (
	"errors"
	"fmt"
)

// Validate checks every semantic constraint on the document and
// returns all violations joined together, so a bad file is reported in
// one pass instead of one error per run attempt.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	l := &c.LamorelArgs
	if l.DistributedSetupArgs.NRLProcesses < 1 {
		fail("lamorel_args.distributed_setup_args.n_rl_processes: must be >= 1, got %d", l.DistributedSetupArgs.NRLProcesses)
	}
	if l.DistributedSetupArgs.NLLMProcesses < 0 {
		fail("lamorel_args.distributed_setup_args.n_llm_processes: must be >= 0, got %d", l.DistributedSetupArgs.NLLMProcesses)
	}
	if l.LLMArgs.ModelType != "causal" && l.LLMArgs.ModelType != "seq2seq" {
		fail("lamorel_args.llm_args.model_type: must be %q or %q, got %q", "causal", "seq2seq", l.LLMArgs.ModelType)
	}
	if err := required("lamorel_args.llm_args.model_path", l.LLMArgs.ModelPath); err != nil {
		errs = append(errs, err)
	}
	if l.LLMArgs.MinibatchSize <= 0 {
		fail("lamorel_args.llm_args.minibatch_size: must be > 0, got %d", l.LLMArgs.MinibatchSize)
	}
	if l.LLMArgs.Parallelism.ModelParallelismSize < 1 {
		fail("lamorel_args.llm_args.parallelism.model_parallelism_size: must be >= 1, got %d", l.LLMArgs.Parallelism.ModelParallelismSize)
	}

	r := &c.RLScriptArgs
	for _, req := range []struct{ name, val string }{
		{"rl_script_args.path", r.Path},
		{"rl_script_args.name_environment", r.NameEnvironment},
		{"rl_script_args.name_experiment", r.NameExperiment},
		{"rl_script_args.saving_path_logs", r.SavingPathLogs},
		{"rl_script_args.saving_path_model", r.SavingPathModel},
	} {
		if err := required(req.name, req.val); err != nil {
			errs = append(errs, err)
		}
	}

	if r.NumberEnvs <= 0 {
		fail("rl_script_args.number_envs: must be > 0, got %d", r.NumberEnvs)
	}
	if r.NumSteps <= 0 {
		fail("rl_script_args.num_steps: must be > 0, got %d", r.NumSteps)
	}
	if r.FramesPerProc <= 0 {
		fail("rl_script_args.frames_per_proc: must be > 0, got %d", r.FramesPerProc)
	}
	if r.Discount <= 0 || r.Discount > 1 {
		fail("rl_script_args.discount: must be in (0, 1], got %v", r.Discount)
	}
	if r.LR <= 0 {
		fail("rl_script_args.lr: must be > 0, got %v", r.LR)
	}
	if r.Beta1 < 0 || r.Beta1 >= 1 {
		fail("rl_script_args.beta1: must be in [0, 1), got %v", r.Beta1)
	}
	if r.Beta2 < 0 || r.Beta2 >= 1 {
		fail("rl_script_args.beta2: must be in [0, 1), got %v", r.Beta2)
	}
	if r.AdamEps <= 0 {
		fail("rl_script_args.adam_eps: must be > 0, got %v", r.AdamEps)
	}
	if r.GAELambda < 0 || r.GAELambda > 1 {
		fail("rl_script_args.gae_lambda: must be in [0, 1], got %v", r.GAELambda)
	}
	if r.EntropyCoef < 0 {
		fail("rl_script_args.entropy_coef: must be >= 0, got %v", r.EntropyCoef)
	}
	if r.ValueLossCoef < 0 {
		fail("rl_script_args.value_loss_coef: must be >= 0, got %v", r.ValueLossCoef)
	}
	if r.MaxGradNorm <= 0 {
		fail("rl_script_args.max_grad_norm: must be > 0, got %v", r.MaxGradNorm)
	}
	if r.ClipEps <= 0 {
		fail("rl_script_args.clip_eps: must be > 0, got %v", r.ClipEps)
	}
	if r.Epochs <= 0 {
		fail("rl_script_args.epochs: must be > 0, got %d", r.Epochs)
	}
	if r.BatchSize <= 0 {
		fail("rl_script_args.batch_size: must be > 0, got %d", r.BatchSize)
	}
	if r.NbrObs <= 0 {
		fail("rl_script_args.nbr_obs: must be > 0, got %d", r.NbrObs)
	}

	errs = append(errs, validateActionSpace("rl_script_args.action_space", r.ActionSpace)...)
	if r.NewActionSpace != nil {
		errs = append(errs, validateActionSpace("rl_script_args.new_action_space", *r.NewActionSpace)...)
		if len(*r.NewActionSpace) != len(r.ActionSpace) {
			fail("rl_script_args.new_action_space: must have the same length as action_space (%d), got %d",
				len(r.ActionSpace), len(*r.NewActionSpace))
		}
	}

	return errors.Join(errs...)
}

func required(name, val string) error {
	switch val {
	case "":
		return fmt.Errorf("%s: required field is empty", name)
	case Placeholder:
		return fmt.Errorf("%s: required field left as %q placeholder", name, Placeholder)
	}
	return nil
}

func validateActionSpace(name string, actions []string) []error {
	var errs []error
	if len(actions) == 0 {
		return []error{fmt.Errorf("%s: must not be empty", name)}
	}
	seen := make(map[string]bool, len(actions))
	for i, a := range actions {
		if a == "" {
			errs = append(errs, fmt.Errorf("%s[%d]: empty action name", name, i))
			continue
		}
		if seen[a] {
			errs = append(errs, fmt.Errorf("%s: duplicate action %q", name, a))
		}
		seen[a] = true
	}
	return errs
}
