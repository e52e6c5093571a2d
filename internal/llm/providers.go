package llm

import (
	"context"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

func newOpenAI(o Options) (llms.Model, error) {
	opts := []openai.Option{
		openai.WithModel(o.Model),
		openai.WithToken(o.APIKey),
	}
	if o.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(o.BaseURL))
	}
	return openai.New(opts...)
}

func newOllama(o Options) (llms.Model, error) {
	opts := []ollama.Option{
		ollama.WithModel(o.Model),
		// The interpreter always expects a JSON object back.
		ollama.WithFormat("json"),
	}
	if o.BaseURL != "" {
		opts = append(opts, ollama.WithServerURL(o.BaseURL))
	}
	return ollama.New(opts...)
}

func newAnthropic(o Options) (llms.Model, error) {
	opts := []anthropic.Option{
		anthropic.WithModel(o.Model),
		anthropic.WithToken(o.APIKey),
	}
	if o.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(o.BaseURL))
	}
	return anthropic.New(opts...)
}

func newGemini(o Options) (llms.Model, error) {
	opts := []googleai.Option{
		googleai.WithDefaultModel(o.Model),
		googleai.WithAPIKey(o.APIKey),
	}
	if o.BaseURL != "" {
		opts = append(opts, googleai.WithRest())
	}
	return googleai.New(context.Background(), opts...)
}
