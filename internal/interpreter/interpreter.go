// Package interpreter turns a free-text scheduling request into calendar
// event drafts. The reasoning step is delegated to a Completer; everything
// around it (prompt, parsing, validation, conflict handling) is local and
// deterministic.
package interpreter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"planos/internal/chat"
	appLog "planos/internal/log"
	"planos/internal/middleware"
)

// Completer performs a single reasoning call. *chat.Service satisfies it.
type Completer interface {
	Complete(ctx context.Context, req chat.Request) (chat.Completion, error)
}

// DefaultParams match what the week view has always used.
var DefaultParams = middleware.LLMParams{
	Temperature: 0.5,
	MaxTokens:   1000,
	JSONMode:    true,
}

type Interpreter struct {
	completer Completer
	params    middleware.LLMParams
	now       func() time.Time
}

type Option func(*Interpreter)

// WithParams overrides generation settings. Zero fields keep their defaults.
func WithParams(p middleware.LLMParams) Option {
	return func(in *Interpreter) {
		if p.Model != "" {
			in.params.Model = p.Model
		}
		if p.Temperature != 0 {
			in.params.Temperature = p.Temperature
		}
		if p.MaxTokens != 0 {
			in.params.MaxTokens = p.MaxTokens
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(in *Interpreter) { in.now = now }
}

func New(c Completer, opts ...Option) *Interpreter {
	in := &Interpreter{completer: c, params: DefaultParams, now: time.Now}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Interpret runs one request. A malformed model answer yields an empty
// result with an explanatory message and a nil error. A failed reasoning
// call yields ErrServiceUnavailable (wrapped) together with a Result whose
// Message is ready to show. The call is never retried.
func (in *Interpreter) Interpret(ctx context.Context, req Request) (Result, error) {
	utterance := strings.TrimSpace(req.Utterance)
	if utterance == "" {
		return Result{Events: []Draft{}}, ErrEmptyUtterance
	}
	if req.Now.IsZero() {
		req.Now = in.now()
	}
	lang := DetectLanguage(utterance, req.Language)

	completion, err := in.completer.Complete(ctx, chat.Request{
		System: BuildPrompt(req, lang),
		Input:  utterance,
		Params: in.params,
		Context: map[string]any{
			ContextKeyWeek:     req.Week,
			ContextKeyExisting: req.Existing,
			ContextKeyLanguage: lang,
			ContextKeyNow:      req.Now,
			ContextKeyBudget:   in.params.MaxTokens,
		},
	})
	if err != nil {
		if errors.Is(err, chat.ErrEmptyResponse) {
			appLog.Warn("interpreter: empty model response")
			return Result{Events: []Draft{}, Message: tr(lang, msgMalformed), Source: "model"}, nil
		}
		appLog.Error("interpreter: reasoning call failed", err)
		return Result{Events: []Draft{}, Message: tr(lang, msgUnavailable)}, fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}

	source := completion.AnsweredBy
	if source == "" {
		source = "model"
	}
	res := Finalize(completion.Text, req, lang)
	res.Source = source
	return res, nil
}

// Finalize applies parsing, validation, conflict resolution and message
// cleanup to raw model text. It never fails: unusable text becomes an empty
// result with a message.
func Finalize(raw string, req Request, lang string) Result {
	parsed, err := ParseResponse(raw)
	if err != nil {
		appLog.Warn("interpreter: malformed model response", "err", err, "chars", len(raw))
		return Result{Events: []Draft{}, Message: tr(lang, msgMalformed)}
	}

	drafts, dropped := Validate(parsed.Drafts, lang)
	if dropped+parsed.Skipped > 0 {
		appLog.Debug("interpreter: discarded invalid drafts", "dropped", dropped, "incomplete", parsed.Skipped)
	}

	message := parsed.Message
	if len(drafts) == 0 {
		if message == "" {
			message = tr(lang, msgAmbiguous)
		}
		return Result{Events: []Draft{}, Message: message}
	}

	var notes []string
	if len(drafts) > 1 {
		drafts, notes = Resolve(drafts, req.Existing, req.Utterance, lang)
	} else {
		for _, c := range Conflicts(drafts, req.Existing) {
			if c.BExisting {
				notes = append(notes, tr(lang, msgOverlapsExisting, drafts[0].Title, req.Existing[c.B].Title))
			}
		}
	}

	message = ScrubConflictClaims(message, drafts, req.Existing)
	if len(notes) > 0 {
		parts := append([]string{}, notes...)
		if message != "" {
			parts = append([]string{message}, parts...)
		}
		message = strings.Join(parts, " ")
	}
	return Result{Events: drafts, Message: message}
}
