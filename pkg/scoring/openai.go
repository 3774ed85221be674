package scoring

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"

	"github.com/glam-rl/glam/internal/client"
)

// OpenAIScorer scores candidates against an OpenAI-compatible
// completions endpoint, which is how locally served models (t5-small
// behind a serving shim, vLLM, llama.cpp) are reached as well.
//
// A candidate's score is the sum of the token log-probabilities of the
// candidate continuation, obtained by echoing the prompt+candidate
// through the model with zero new tokens.
type OpenAIScorer struct {
	client *openai.Client
	model  string
}

type OpenAIOption func(*openAIParams)

type openAIParams struct {
	baseURL string
	apiKey  string
}

func WithBaseURL(baseURL string) OpenAIOption {
	return func(p *openAIParams) { p.baseURL = baseURL }
}

func WithAPIKey(apiKey string) OpenAIOption {
	return func(p *openAIParams) { p.apiKey = apiKey }
}

// NewOpenAIScorer builds a scorer for the given served model name.
func NewOpenAIScorer(model string, opts ...OpenAIOption) *OpenAIScorer {
	params := &openAIParams{}
	for _, opt := range opts {
		opt(params)
	}
	return &OpenAIScorer{
		client: client.GetOpenAiClient(params.baseURL, params.apiKey),
		model:  model,
	}
}

func (s *OpenAIScorer) Score(ctx context.Context, prompt string, candidates []string) ([]float64, error) {
	scores := make([]float64, len(candidates))
	for i, candidate := range candidates {
		logProb, err := s.sequenceLogProb(ctx, prompt, candidate)
		if err != nil {
			return nil, fmt.Errorf("score candidate %q: %w", candidate, err)
		}
		scores[i] = logProb
	}
	return scores, nil
}

// sequenceLogProb echoes prompt+candidate through the model and sums
// the log-probabilities of the tokens past the prompt boundary.
func (s *OpenAIScorer) sequenceLogProb(ctx context.Context, prompt, candidate string) (float64, error) {
	completion, err := s.client.Completions.New(ctx, openai.CompletionNewParams{
		Model:       openai.F(openai.CompletionNewParamsModel(s.model)),
		Prompt:      openai.F[openai.CompletionNewParamsPromptUnion](shared.UnionString(prompt + candidate)),
		Echo:        openai.F(true),
		MaxTokens:   openai.F(int64(0)),
		Logprobs:    openai.F(int64(1)),
		Temperature: openai.F(0.0),
	})
	if err != nil {
		return 0, err
	}
	if len(completion.Choices) == 0 {
		return 0, fmt.Errorf("no choices in completion response")
	}

	lp := completion.Choices[0].Logprobs
	if len(lp.TokenLogprobs) == 0 {
		return 0, fmt.Errorf("endpoint returned no token logprobs; echo scoring unsupported?")
	}

	boundary := int64(len(prompt))
	var total float64
	for i, off := range lp.TextOffset {
		if off < boundary || i >= len(lp.TokenLogprobs) {
			continue
		}
		total += lp.TokenLogprobs[i]
	}
	return total, nil
}
