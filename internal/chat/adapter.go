package chat

import (
	"context"

	"planos/internal/middleware"
)

// Adapter abstracts chat completion providers. A call is a single
// request/response unit; adapters do not stream and do not retry.
type Adapter interface {
	Reply(ctx context.Context, history []Message, params *middleware.LLMParams) (string, error)
}

// AdapterFunc lets a plain function satisfy Adapter.
type AdapterFunc func(ctx context.Context, history []Message, params *middleware.LLMParams) (string, error)

func (f AdapterFunc) Reply(ctx context.Context, history []Message, params *middleware.LLMParams) (string, error) {
	return f(ctx, history, params)
}
