package tokenbudget

import (
	"context"

	"planos/internal/interpreter"
	mw "planos/internal/middleware"
)

func init() {
	mw.Register(BudgetLimiter{})
}

// BudgetLimiter caps MaxTokens at the budget found in
// Event.Context["token_budget"], keeping whichever limit is smaller.
type BudgetLimiter struct{}

func (BudgetLimiter) ID() string    { return "token_budget" }
func (BudgetLimiter) Priority() int { return 90 }

func (BudgetLimiter) ShouldLoad(_ context.Context, e *mw.Event) bool {
	return e != nil && e.Name == mw.EventBeforeLLMRequest && budget(e.Context) > 0
}

func (BudgetLimiter) OnEvent(_ context.Context, e *mw.Event) (mw.Decision, error) {
	if e == nil || e.Name != mw.EventBeforeLLMRequest {
		return mw.Decision{}, nil
	}
	limit := budget(e.Context)
	if limit <= 0 {
		return mw.Decision{}, nil
	}

	params := &mw.LLMParams{}
	if e.Params != nil {
		*params = *e.Params
	}
	if params.MaxTokens != 0 && params.MaxTokens <= limit {
		return mw.Decision{}, nil
	}
	params.MaxTokens = limit
	return mw.Decision{
		OverrideParams: params,
		Reason:         "token_budget: capped MaxTokens",
	}, nil
}

// budget accepts the integer kinds a caller or a decoded settings file may
// have stored.
func budget(ctx map[string]any) int {
	switch v := ctx[interpreter.ContextKeyBudget].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
