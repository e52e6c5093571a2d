package middleware

import "context"

type EventName string

const (
	EventBeforeLLMRequest EventName = "before_llm_request"
	EventAfterLLMResponse EventName = "after_llm_response"
)

// LLMParams are the per-call generation settings a middleware may override.
type LLMParams struct {
	Model       string
	Temperature float64
	TopP        float64
	MaxTokens   int
	Stop        []string
	Seed        *int

	// JSONMode asks the provider to constrain output to a JSON object.
	JSONMode bool
}

type Decision struct {
	Cancel      bool   // stop the pipeline for this event
	Reason      string // for logs
	ReplaceText *string

	// Optional: change request + continue
	OverrideParams *LLMParams
}

// Event is what the chain dispatches. Context carries request data such as
// the viewed week, existing events and language; keys are documented by the
// producer (see interpreter.ContextKey*).
type Event struct {
	Name     EventName
	UserText string     // for before_llm_request
	LLMText  string     // for after_llm_response
	Params   *LLMParams // mutable
	Context  map[string]any
}

type Middleware interface {
	ID() string
	Priority() int
	OnEvent(ctx context.Context, e *Event) (Decision, error)
}

// ConditionalMiddleware is an optional extension that allows a middleware to be
// dynamically enabled/disabled per request/event.
//
// If a middleware implements this interface and returns false, it will be
// skipped during dispatch (but still recorded in results with a "skipped"
// reason).
type ConditionalMiddleware interface {
	ShouldLoad(ctx context.Context, e *Event) bool
}
