package client

import (
	"log/slog"
	"os"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var (
	once   sync.Once
	client *openai.Client
)

func newOpenAiClient(baseUrl string, apiKey string) *openai.Client {
	if apiKey != "" {
		return openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithBaseURL(baseUrl),
		)
	}
	return openai.NewClient(
		option.WithBaseURL(baseUrl),
	)
}

// GetOpenAiClient returns the process-wide OpenAI-compatible client.
// Scoring workers share one client; the serving side handles request
// concurrency. Empty arguments fall back to OPENAI_API_BASE_URL /
// OPENAI_API_KEY.
func GetOpenAiClient(baseUrl string, apiKey string) *openai.Client {
	once.Do(func() {
		if baseUrl == "" {
			baseUrl = os.Getenv("OPENAI_API_BASE_URL")
			if baseUrl == "" {
				baseUrl = "https://api.openai.com/v1/"
			}
		}
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		slog.Debug("creating OpenAI-compatible client", "base_url", baseUrl)
		client = newOpenAiClient(baseUrl, apiKey)
	})
	return client
}
