// Package config loads and validates glam experiment configuration files.
//
// A configuration file is a YAML document with two top-level groups:
// lamorel_args describes the language-model scoring side (process
// topology, serving parameters) and rl_script_args describes the RL
// side (experiment identity, PPO hyperparameters, environment and
// action space selection).
package config

import (
	"fmt"
	"strings"
)

// Placeholder marks a required field that must be filled in before the
// configuration can be used.
const Placeholder = "???"

// Config is the root of an experiment configuration document.
type Config struct {
	LamorelArgs  LamorelArgs  `yaml:"lamorel_args"`
	RLScriptArgs RLScriptArgs `yaml:"rl_script_args"`
}

// LamorelArgs configures the language-model scoring backend.
type LamorelArgs struct {
	LogLevel                     string               `yaml:"log_level"`
	AllowSubgraphUseWithGradient bool                 `yaml:"allow_subgraph_use_with_gradient"`
	DistributedSetupArgs         DistributedSetupArgs `yaml:"distributed_setup_args"`
	AccelerateArgs               AccelerateArgs       `yaml:"accelerate_args"`
	LLMArgs                      LLMArgs              `yaml:"llm_args"`
}

// DistributedSetupArgs describes the process topology: how many
// processes collect rollouts and how many serve model scores.
type DistributedSetupArgs struct {
	NRLProcesses  int `yaml:"n_rl_processes"`
	NLLMProcesses int `yaml:"n_llm_processes"`
}

// AccelerateArgs points at an accelerate-style launch configuration.
// It is carried for the launcher and never interpreted here.
type AccelerateArgs struct {
	ConfigPath  string `yaml:"config_path"`
	MachineRank int    `yaml:"machine_rank"`
	NumMachines int    `yaml:"num_machines"`
}

// LLMArgs configures the served language model.
type LLMArgs struct {
	ModelType       string          `yaml:"model_type"`
	ModelPath       string          `yaml:"model_path"`
	Pretrained      bool            `yaml:"pretrained"`
	MinibatchSize   int             `yaml:"minibatch_size"`
	PreEncodeInputs bool            `yaml:"pre_encode_inputs"`
	Parallelism     ParallelismArgs `yaml:"parallelism"`
}

// ParallelismArgs configures device placement on the serving side.
type ParallelismArgs struct {
	UseGPU                      bool `yaml:"use_gpu"`
	ModelParallelismSize        int  `yaml:"model_parallelism_size"`
	SynchronizeGPUsAfterScoring bool `yaml:"synchronize_gpus_after_scoring"`
	EmptyCudaCacheAfterScoring  bool `yaml:"empty_cuda_cache_after_scoring"`
}

// RLScriptArgs configures the training run.
type RLScriptArgs struct {
	Path string `yaml:"path"`

	Seed          int     `yaml:"seed"`
	NumberEnvs    int     `yaml:"number_envs"`
	NumSteps      int     `yaml:"num_steps"`
	FramesPerProc int     `yaml:"frames_per_proc"`
	Discount      float64 `yaml:"discount"`
	LR            float64 `yaml:"lr"`
	Beta1         float64 `yaml:"beta1"`
	Beta2         float64 `yaml:"beta2"`
	AdamEps       float64 `yaml:"adam_eps"`
	GAELambda     float64 `yaml:"gae_lambda"`
	EntropyCoef   float64 `yaml:"entropy_coef"`
	ValueLossCoef float64 `yaml:"value_loss_coef"`
	MaxGradNorm   float64 `yaml:"max_grad_norm"`
	ClipEps       float64 `yaml:"clip_eps"`
	Epochs        int     `yaml:"epochs"`
	BatchSize     int     `yaml:"batch_size"`

	ActionSpace []string `yaml:"action_space"`
	// NewActionSpace, when present, overrides ActionSpace with
	// alternative wordings for the same discrete actions.
	NewActionSpace *[]string `yaml:"new_action_space,omitempty"`

	NameEnvironment string `yaml:"name_environment"`
	ZeroShot        bool   `yaml:"zero_shot"`
	TemplateTest    int    `yaml:"template_test"`

	NameExperiment  string `yaml:"name_experiment"`
	NameModel       string `yaml:"name_model"`
	SavingPathLogs  string `yaml:"saving_path_logs"`
	SavingPathModel string `yaml:"saving_path_model"`

	RandomAgent       bool    `yaml:"random_agent"`
	IMLearning        bool    `yaml:"im_learning"`
	Bot               bool    `yaml:"bot"`
	NbrObs            int     `yaml:"nbr_obs"`
	RewardShapingBeta float64 `yaml:"reward_shaping_beta"`
	LoadEmbedding     bool    `yaml:"load_embedding"`
	UseActionHeads    bool    `yaml:"use_action_heads"`
}

// Actions returns the effective action space: NewActionSpace when set,
// ActionSpace otherwise, with underscores replaced by spaces so the
// names read naturally inside prompts.
func (r *RLScriptArgs) Actions() []string {
	src := r.ActionSpace
	if r.NewActionSpace != nil {
		src = *r.NewActionSpace
	}
	actions := make([]string, len(src))
	for i, a := range src {
		actions[i] = strings.ReplaceAll(a, "_", " ")
	}
	return actions
}

// ExperimentID composes the deterministic identity a run saves its
// logs and checkpoints under. Two runs with identical settings share
// an ID and therefore resume each other.
func (c *Config) ExperimentID() string {
	r := &c.RLScriptArgs
	var b strings.Builder
	fmt.Fprintf(&b, "%s_nbr_env_%d_%s_pretrained_%t_", r.NameExperiment, r.NumberEnvs, r.NameModel, c.LamorelArgs.LLMArgs.Pretrained)
	if !c.LamorelArgs.LLMArgs.Pretrained {
		fmt.Fprintf(&b, "load_embedding_%t_", r.LoadEmbedding)
	}
	if r.UseActionHeads {
		fmt.Fprintf(&b, "use_action_heads_%t_", r.UseActionHeads)
	}
	if r.NbrObs != 3 {
		fmt.Fprintf(&b, "nbr_obs_%d_", r.NbrObs)
	}
	fmt.Fprintf(&b, "nbr_actions_%d_", len(r.ActionSpace))
	for _, a := range r.ActionSpace {
		b.WriteString(a)
		b.WriteByte('_')
	}
	fmt.Fprintf(&b, "shape_reward_beta_%v_seed_%d", r.RewardShapingBeta, r.Seed)
	return b.String()
}
