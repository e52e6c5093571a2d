// Package app wires configuration, storage, the middleware chain and the
// interpreter together for every front-end.
package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"planos/internal/calendar"
	"planos/internal/chat"
	"planos/internal/config"
	"planos/internal/events"
	"planos/internal/finance"
	"planos/internal/interpreter"
	"planos/internal/llm"
	appLog "planos/internal/log"
	"planos/internal/middleware"
	"planos/internal/notes"
	"planos/internal/portfolio"
	"planos/internal/settings"
	"planos/internal/tasks"
	"planos/internal/webui"
	_ "planos/middlewares/autoload"
)

type App struct {
	Config   *config.Config
	Services webui.Services

	loc   *time.Location
	now   func() time.Time
	chain *middleware.Chain
	debug io.Closer

	mu           sync.Mutex
	interpreters map[string]*interpreter.Interpreter
	// keyOrder holds interpreter cache keys, oldest first.
	keyOrder []string
}

// maxInterpreters bounds the per-key interpreter cache.
const maxInterpreters = 32

// cacheKey hashes an API key so raw keys are not kept as map keys.
func cacheKey(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:])
}

type Option func(*App)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// New opens every store under cfg.DataDir and builds the middleware chain.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{
		Config:       cfg,
		loc:          cfg.Location(),
		now:          time.Now,
		interpreters: make(map[string]*interpreter.Interpreter),
	}
	for _, opt := range opts {
		opt(a)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if err := a.openServices(); err != nil {
		return nil, err
	}

	logPath := filepath.Join(cfg.DataDir, "middleware.debug.jsonl")
	var mwLog io.Writer
	if f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err != nil {
		appLog.Warn("middleware debug log unavailable", "path", logPath, "err", err)
	} else {
		mwLog, a.debug = f, f
	}
	a.chain = middleware.NewChainFromRegistry(cfg.DisabledMiddlewares, mwLog)
	if a.chain != nil {
		appLog.Debug("middlewares loaded", "ids", strings.Join(a.chain.IDs(), ","))
	}
	return a, nil
}

func (a *App) openServices() error {
	dir := a.Config.DataDir
	var err error
	s := &a.Services
	if s.Events, err = events.Open(dir); err != nil {
		return fmt.Errorf("open events: %w", err)
	}
	if s.Notes, err = notes.Open(dir); err != nil {
		return fmt.Errorf("open notes: %w", err)
	}
	if s.Tasks, err = tasks.Open(dir); err != nil {
		return fmt.Errorf("open tasks: %w", err)
	}
	if s.Finance, err = finance.Open(dir); err != nil {
		return fmt.Errorf("open finance: %w", err)
	}
	if s.Portfolio, err = portfolio.Open(dir); err != nil {
		return fmt.Errorf("open portfolio: %w", err)
	}
	if s.Settings, err = settings.Open(dir); err != nil {
		return fmt.Errorf("open settings: %w", err)
	}
	return nil
}

func (a *App) Close() error {
	if a.debug != nil {
		return a.debug.Close()
	}
	return nil
}

// Now is the current time in the configured zone.
func (a *App) Now() time.Time {
	return a.now().In(a.loc)
}

// Interpreter returns an interpreter using apiKey, or the configured key
// when apiKey is empty. Interpreters are cached per key, oldest evicted first. Without any key the local fast path still answers
// and every call that reaches the model fails with llm.ErrMissingAPIKey.
func (a *App) Interpreter(apiKey string) (*interpreter.Interpreter, error) {
	if apiKey == "" {
		apiKey = a.Config.LLM.APIKey
	}
	key := cacheKey(apiKey)
	a.mu.Lock()
	defer a.mu.Unlock()
	if in, ok := a.interpreters[key]; ok {
		return in, nil
	}

	provider, err := llm.ParseProvider(a.Config.LLM.Provider)
	if err != nil {
		return nil, err
	}
	adapter, err := llm.NewAdapter(llm.Options{
		Provider: provider,
		Model:    a.Config.LLM.Model,
		BaseURL:  a.Config.LLM.BaseURL,
		APIKey:   apiKey,
	})
	if errors.Is(err, llm.ErrMissingAPIKey) {
		missing := err
		adapter = chat.AdapterFunc(func(context.Context, []chat.Message, *middleware.LLMParams) (string, error) {
			return "", missing
		})
	} else if err != nil {
		return nil, err
	}

	in := interpreter.New(
		chat.NewService(adapter, chat.WithMiddlewareChain(a.chain)),
		interpreter.WithParams(middleware.LLMParams{
			Model:       a.Config.LLM.Model,
			Temperature: a.Config.LLM.Temperature,
			MaxTokens:   a.Config.LLM.MaxTokens,
		}),
		interpreter.WithClock(a.Now),
	)
	if len(a.keyOrder) >= maxInterpreters {
		delete(a.interpreters, a.keyOrder[0])
		a.keyOrder = a.keyOrder[1:]
	}
	a.interpreters[key] = in
	a.keyOrder = append(a.keyOrder, key)
	return in, nil
}

// Plan interprets utterance for owner against the week at offset. With apply
// the drafts are stored and returned as events.
func (a *App) Plan(ctx context.Context, owner, utterance string, week int, apply bool) (interpreter.Result, []calendar.Event, error) {
	prefs, err := a.Services.Settings.Get(owner)
	if err != nil {
		return interpreter.Result{}, nil, err
	}
	lang := prefs.Language
	if lang == "" {
		lang = a.Config.Language
	}
	in, err := a.Interpreter(prefs.APIKey)
	if err != nil {
		return interpreter.Result{}, nil, err
	}

	now := a.Now()
	res, err := in.Interpret(ctx, interpreter.Request{
		Utterance: utterance,
		Week:      calendar.WeekDates(now, week, lang),
		Existing:  interpreter.ExistingFromEvents(a.Services.Events.List(owner, &week)),
		Language:  lang,
		Now:       now,
	})
	if err != nil || !apply || len(res.Events) == 0 {
		return res, nil, err
	}
	evs := make([]calendar.Event, len(res.Events))
	for i, d := range res.Events {
		evs[i] = d.Event(week)
	}
	saved, err := a.Services.Events.CreateMany(owner, evs)
	if err != nil {
		return res, nil, err
	}
	appLog.Info("events stored", "user", owner, "count", len(saved), "source", res.Source)
	return res, saved, nil
}

// Server builds the HTTP API on top of the app.
func (a *App) Server() *webui.Server {
	return webui.NewServer(a.Config, a.Services, a.Interpreter, webui.WithClock(a.now))
}

// StartScheduler books due recurring transactions once now and then on
// Config.RecurringCron. The returned func stops the scheduler.
func (a *App) StartScheduler() (func(), error) {
	c := cron.New(cron.WithLocation(a.loc))
	if _, err := c.AddFunc(a.Config.RecurringCron, a.runRecurring); err != nil {
		return nil, fmt.Errorf("recurring_cron %q: %w", a.Config.RecurringCron, err)
	}
	a.runRecurring()
	c.Start()
	appLog.Info("recurring scheduler started", "spec", a.Config.RecurringCron)
	return func() { <-c.Stop().Done() }, nil
}

func (a *App) runRecurring() {
	if n := a.Services.Finance.MaterializeAll(a.Now()); n > 0 {
		appLog.Info("recurring transactions booked", "count", n)
	}
}
