// Package scoring turns a served language model into a candidate
// scorer: given a context prompt and a list of candidate action
// strings, it returns one log-probability-like score per candidate.
//
// The scoring side of a run is a pool of workers (the in-process
// analog of the configured n_llm_processes split) fed fixed-size
// minibatches of candidates.
package scoring

import "context"

// Scorer scores candidate continuations of a prompt. Implementations
// must return exactly one score per candidate, in candidate order.
// Higher means the model considers the candidate more likely.
type Scorer interface {
	Score(ctx context.Context, prompt string, candidates []string) ([]float64, error)
}
