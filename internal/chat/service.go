package chat

import (
	"context"
	"errors"
	"strings"

	"planos/internal/middleware"
)

var (
	ErrEmptyInput    = errors.New("empty input")
	ErrEmptyResponse = errors.New("empty response from model")
)

// Service runs one stateless completion at a time: middlewares see the
// request first and may answer it locally, then the adapter is called, then
// middlewares see the response.
type Service struct {
	adapter Adapter
	mws     *middleware.Chain
}

type ServiceOption func(*Service)

func WithMiddlewareChain(chain *middleware.Chain) ServiceOption {
	return func(s *Service) {
		s.mws = chain
	}
}

func NewService(adapter Adapter, opts ...ServiceOption) *Service {
	s := &Service{adapter: adapter}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Request is one completion call.
type Request struct {
	System  string
	Input   string
	Params  middleware.LLMParams
	Context map[string]any
}

type Completion struct {
	Text string
	// AnsweredBy names the middleware that produced Text without calling the
	// adapter; empty when the model answered.
	AnsweredBy string
}

func (s *Service) Complete(ctx context.Context, req Request) (Completion, error) {
	input := strings.TrimSpace(req.Input)
	if input == "" {
		return Completion{}, ErrEmptyInput
	}
	params := req.Params

	if s.mws != nil {
		e := &middleware.Event{
			Name:     middleware.EventBeforeLLMRequest,
			UserText: input,
			Params:   &params,
			Context:  req.Context,
		}
		results, err := s.mws.Dispatch(ctx, e)
		if err != nil {
			return Completion{}, err
		}
		updated, canceled := applyTextDecisions(input, results)
		if canceled != nil {
			if strings.TrimSpace(updated) != "" && updated != input {
				return Completion{Text: updated, AnsweredBy: canceled.MiddlewareID}, nil
			}
			return Completion{}, cancelError("request", canceled.Decision)
		}
		input = updated
		if e.Params != nil {
			params = *e.Params
		}
	}

	if s.adapter == nil {
		return Completion{}, errors.New("no model adapter configured")
	}
	history := make([]Message, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		history = append(history, Message{Role: RoleSystem, Content: req.System})
	}
	history = append(history, Message{Role: RoleUser, Content: input})

	assistant, err := s.adapter.Reply(ctx, history, &params)
	if err != nil {
		return Completion{}, err
	}
	assistant = strings.TrimSpace(assistant)
	if assistant == "" {
		return Completion{}, ErrEmptyResponse
	}

	if s.mws != nil {
		e := &middleware.Event{
			Name:     middleware.EventAfterLLMResponse,
			UserText: input,
			LLMText:  assistant,
			Params:   &params,
			Context:  req.Context,
		}
		results, err := s.mws.Dispatch(ctx, e)
		if err != nil {
			return Completion{}, err
		}
		updated, canceled := applyTextDecisions(assistant, results)
		if canceled != nil && strings.TrimSpace(updated) == "" {
			return Completion{}, cancelError("response", canceled.Decision)
		}
		assistant = updated
	}

	return Completion{Text: assistant}, nil
}

func cancelError(stage string, dec middleware.Decision) error {
	if strings.TrimSpace(dec.Reason) == "" {
		return errors.New(stage + " canceled by middleware")
	}
	return errors.New(dec.Reason)
}

func applyTextDecisions(initial string, results []middleware.DecisionResult) (string, *middleware.DecisionResult) {
	cur := strings.TrimSpace(initial)
	for i, r := range results {
		if r.Decision.ReplaceText != nil {
			cur = strings.TrimSpace(*r.Decision.ReplaceText)
		}
		if r.Decision.Cancel {
			return cur, &results[i]
		}
	}
	return cur, nil
}
