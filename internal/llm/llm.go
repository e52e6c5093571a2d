package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"planos/internal/chat"
	"planos/internal/middleware"

	"github.com/tmc/langchaingo/llms"
)

type Provider string

const (
	ProviderOllama    Provider = "ollama"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
)

var (
	ErrMissingAPIKey    = errors.New("API key not configured")
	ErrUnknownProvider  = errors.New("unsupported provider")
	errEmptyModelOutput = errors.New("empty response from model")
)

// Options selects and configures a provider.
type Options struct {
	Provider Provider
	Model    string
	BaseURL  string
	APIKey   string
}

// DefaultModel is used when Options.Model is empty.
func DefaultModel(p Provider) string {
	switch p {
	case ProviderOpenAI:
		return "gpt-4o-mini"
	case ProviderOllama:
		return "llama3.2"
	case ProviderAnthropic:
		return "claude-3-5-sonnet-latest"
	case ProviderGemini:
		return "gemini-2.5-flash"
	default:
		return ""
	}
}

// ParseProvider accepts the config spelling of a provider ("google" is an
// alias for gemini).
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderOllama, ProviderOpenAI, ProviderAnthropic, ProviderGemini:
		return p, nil
	case "google", "googleai":
		return ProviderGemini, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownProvider, s)
	}
}

// RequiresAPIKey reports whether the provider refuses to start without a key.
func RequiresAPIKey(p Provider) bool {
	return p != ProviderOllama
}

func NewAdapter(opts Options) (chat.Adapter, error) {
	if opts.Model == "" {
		opts.Model = DefaultModel(opts.Provider)
	}
	if RequiresAPIKey(opts.Provider) && strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("%s: %w", opts.Provider, ErrMissingAPIKey)
	}

	var (
		model llms.Model
		err   error
	)
	switch opts.Provider {
	case ProviderOllama:
		model, err = newOllama(opts)
	case ProviderOpenAI:
		model, err = newOpenAI(opts)
	case ProviderAnthropic:
		model, err = newAnthropic(opts)
	case ProviderGemini:
		model, err = newGemini(opts)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, opts.Provider)
	}
	if err != nil {
		return nil, err
	}
	return &modelAdapter{llm: model, provider: opts.Provider, model: opts.Model}, nil
}

// modelAdapter drives any langchaingo model through chat.Adapter.
type modelAdapter struct {
	llm      llms.Model
	provider Provider
	model    string
}

func (a *modelAdapter) Reply(ctx context.Context, history []chat.Message, params *middleware.LLMParams) (string, error) {
	resp, err := a.llm.GenerateContent(ctx, convertHistory(history), a.callOptions(params)...)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: %w", a.provider, errEmptyModelOutput)
	}
	return resp.Choices[0].Content, nil
}

func (a *modelAdapter) callOptions(params *middleware.LLMParams) []llms.CallOption {
	opts := make([]llms.CallOption, 0, 8)
	opts = append(opts, llms.WithModel(a.model))
	if params == nil {
		return opts
	}
	if params.Model != "" {
		opts = append(opts, llms.WithModel(params.Model))
	}
	if params.Temperature != 0 {
		opts = append(opts, llms.WithTemperature(params.Temperature))
	}
	if params.TopP != 0 {
		opts = append(opts, llms.WithTopP(params.TopP))
	}
	if params.MaxTokens != 0 {
		opts = append(opts, llms.WithMaxTokens(params.MaxTokens))
	}
	if len(params.Stop) > 0 {
		opts = append(opts, llms.WithStopWords(params.Stop))
	}
	if params.Seed != nil {
		opts = append(opts, llms.WithSeed(*params.Seed))
	}
	// Anthropic has no JSON mode; the prompt alone constrains the shape there.
	if params.JSONMode && a.provider != ProviderAnthropic {
		opts = append(opts, llms.WithJSONMode())
	}
	return opts
}

func convertHistory(history []chat.Message) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case chat.RoleUser:
			messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, m.Content))
		case chat.RoleAssistant:
			content := m.Content
			if content == "" {
				content = " "
			}
			messages = append(messages, llms.TextParts(llms.ChatMessageTypeAI, content))
		case chat.RoleSystem:
			messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, m.Content))
		}
	}
	return messages
}
