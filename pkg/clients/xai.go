package clients

import (
	"fmt"

	"github.com/tmc/langchaingo/llms/openai"
)

const XAIBaseURL = "https://api.x.ai/v1"

// XAI builds a langchaingo model against xAI's OpenAI-compatible endpoint.
func XAI(apiKey, model string) (*openai.LLM, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("XAI_API_KEY is not set")
	}

	llm, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithBaseURL(XAIBaseURL),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create xai client: %w", err)
	}
	return llm, nil
}
