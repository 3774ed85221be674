package scoring

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"google.golang.org/genai"
)

// choicePenalty is the pseudo log-probability assigned to candidates
// the model did not pick. Hosted chat APIs expose no per-token
// logprobs for arbitrary continuations, so the Gemini backend scores
// by choice: the picked candidate gets 0, the rest this penalty.
const choicePenalty = -20.0

// GeminiScorer scores candidates with a Gemini model via a single
// choose-one generation call per prompt.
type GeminiScorer struct {
	client *genai.Client
	model  string
}

func NewGeminiScorer(ctx context.Context, model string, apiKey string) (*GeminiScorer, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGoogleAI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiScorer{client: client, model: model}, nil
}

func (s *GeminiScorer) Score(ctx context.Context, prompt string, candidates []string) ([]float64, error) {
	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString("\nChoose the single best continuation from the numbered list and answer with its number only.\n")
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c)
	}

	parts := []*genai.Part{{Text: b.String()}}
	result, err := s.client.Models.GenerateContent(ctx, s.model, []*genai.Content{{Parts: parts}}, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini returned no content")
	}

	chosen := parseChoice(result.Candidates[0].Content.Parts[0].Text, len(candidates))
	scores := make([]float64, len(candidates))
	for i := range scores {
		if i == chosen {
			continue
		}
		scores[i] = choicePenalty
	}
	return scores, nil
}

// parseChoice extracts a 1-based choice from the model's reply,
// falling back to the first candidate on anything unparseable.
func parseChoice(reply string, n int) int {
	fields := strings.FieldsFunc(strings.TrimSpace(reply), func(r rune) bool {
		return r < '0' || r > '9'
	})
	for _, f := range fields {
		if v, err := strconv.Atoi(f); err == nil && v >= 1 && v <= n {
			return v - 1
		}
	}
	return 0
}
