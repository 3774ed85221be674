package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/glam-rl/glam/pkg/config"
	"github.com/glam-rl/glam/pkg/experiment"
	"github.com/glam-rl/glam/pkg/scoring"
)

var (
	configPath string
	provider   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "glam",
		Short: "glam trains language-model agents on grounded BabyAI tasks with PPO over LLM action scores.",
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/local_gpu_config.yaml", "path to the experiment config")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a training experiment described by the config",
		RunE:  runExperiment,
	}
	runCmd.Flags().StringVar(&provider, "provider", "openai", "scoring backend: openai, gemini or mock")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a config for missing or out-of-range values",
		RunE:  validateConfig,
	}

	for _, envFile := range []string{
		".env",
		"../../.env",
		"../../../.env",
	} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%s:\n%w", configPath, err)
	}
	fmt.Printf("%s: ok (experiment id %s)\n", configPath, cfg.ExperimentID())
	return nil
}

func runExperiment(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%s:\n%w", configPath, err)
	}
	setupLogger(cfg.LamorelArgs.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		slog.Info("interrupt received, stopping after the current update")
		cancel()
	}()

	scorer, err := buildScorer(ctx, cfg)
	if err != nil {
		return err
	}
	if closer, ok := scorer.(interface{ Close() }); ok {
		defer closer.Close()
	}

	exp, err := experiment.New(cfg, scorer, slog.Default())
	if err != nil {
		return err
	}
	slog.Info("experiment configured", "id", exp.ID(), "provider", provider)

	if err := exp.Run(ctx); err != nil && err != context.Canceled {
		return fmt.Errorf("experiment failed: %w", err)
	}
	return nil
}

// buildScorer assembles the scoring pool: one backend per configured
// LLM process, requests split into minibatches.
func buildScorer(ctx context.Context, cfg *config.Config) (scoring.Scorer, error) {
	llm := cfg.LamorelArgs.LLMArgs
	n := cfg.LamorelArgs.DistributedSetupArgs.NLLMProcesses
	if n == 0 {
		return nil, fmt.Errorf("n_llm_processes is 0, which selects the DRRN baseline; DRRN is not supported, configure at least one LLM process")
	}

	backends := make([]scoring.Scorer, n)
	for i := range backends {
		switch provider {
		case "openai":
			backends[i] = scoring.NewOpenAIScorer(llm.ModelPath)
		case "gemini":
			s, err := scoring.NewGeminiScorer(ctx, llm.ModelPath, os.Getenv("GEMINI_API_KEY"))
			if err != nil {
				return nil, fmt.Errorf("creating gemini scorer: %w", err)
			}
			backends[i] = s
		case "mock":
			backends[i] = uniformScorer{}
		default:
			return nil, fmt.Errorf("unknown provider %q (want openai, gemini or mock)", provider)
		}
	}
	pool, err := scoring.NewPool(backends, llm.MinibatchSize)
	if err != nil {
		return nil, fmt.Errorf("creating scoring pool: %w", err)
	}
	return pool, nil
}

// uniformScorer gives every candidate the same log probability. Useful
// for exercising the training loop without a model behind it.
type uniformScorer struct{}

func (uniformScorer) Score(_ context.Context, _ string, candidates []string) ([]float64, error) {
	scores := make([]float64, len(candidates))
	for i := range scores {
		scores[i] = -1
	}
	return scores, nil
}

func setupLogger(level string) {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warning", "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})
	slog.SetDefault(slog.New(handler))
}
