// Package webui serves the Planos JSON API.
package webui

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"planos/internal/calendar"
	"planos/internal/config"
	"planos/internal/events"
	"planos/internal/finance"
	"planos/internal/interpreter"
	"planos/internal/llm"
	appLog "planos/internal/log"
	"planos/internal/notes"
	"planos/internal/portfolio"
	"planos/internal/settings"
	"planos/internal/store"
	"planos/internal/tasks"
)

// LocalOwner owns all data when basic auth is disabled.
const LocalOwner = "local"

const maxBodyBytes = 1 << 20

var errBadBody = errors.New("invalid request body")

// Services bundles the domain services behind the API.
type Services struct {
	Events    *events.Service
	Notes     *notes.Service
	Tasks     *tasks.Service
	Finance   *finance.Service
	Portfolio *portfolio.Service
	Settings  *settings.Service
}

// InterpreterFor returns the interpreter bound to apiKey. An empty key
// selects the configured credentials.
type InterpreterFor func(apiKey string) (*interpreter.Interpreter, error)

type Server struct {
	cfg          *config.Config
	svc          Services
	interpreters InterpreterFor
	mux          *http.ServeMux
	loc          *time.Location
	now          func() time.Time
	started      time.Time
}

type Option func(*Server)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

func NewServer(cfg *config.Config, svc Services, interpreters InterpreterFor, opts ...Option) *Server {
	s := &Server{
		cfg:          cfg,
		svc:          svc,
		interpreters: interpreters,
		mux:          http.NewServeMux(),
		loc:          cfg.Location(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.started = s.now()
	s.registerRoutes()
	return s
}

// Handler returns the API with request logging and, when users are
// configured, basic auth.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if len(s.cfg.Users) > 0 {
		h = s.basicAuth(h)
	} else {
		h = withOwner(h, LocalOwner)
	}
	return logRequests(h)
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		appLog.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen, "auth", len(s.cfg.Users) > 0)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/status", s.handleStatus)
	s.mux.HandleFunc("/api/ai", s.handleAI)

	s.mux.HandleFunc("/api/user/events", s.handleEvents())
	s.mux.HandleFunc("/api/user/events/layout", s.handleLayout)
	s.mux.HandleFunc("/api/user/events.ics", s.handleExport)
	s.mux.HandleFunc("/api/user/events/import", s.handleImport)
	s.mux.HandleFunc("/api/user/notes", s.handleNotes())
	s.mux.HandleFunc("/api/user/tasks", s.handleTasks())
	s.mux.HandleFunc("/api/user/tasks/items", s.handleTaskItem)
	s.mux.HandleFunc("/api/user/settings", s.handleSettings)

	s.mux.HandleFunc("/api/finance/categories", s.handleCategories())
	s.mux.HandleFunc("/api/finance/transactions", s.handleTransactions())
	s.mux.HandleFunc("/api/finance/budgets", s.handleBudgets())
	s.mux.HandleFunc("/api/finance/budgets/status", s.handleBudgetStatus)
	s.mux.HandleFunc("/api/finance/recurring", s.handleRecurring())
	s.mux.HandleFunc("/api/finance/recurring/run", s.handleRecurringRun)

	s.mux.HandleFunc("/api/portfolio", s.handlePortfolioSummary)
	s.mux.HandleFunc("/api/portfolio/assets", s.handleAssets())
	s.mux.HandleFunc("/api/portfolio/holdings", s.handleHoldings())
	s.mux.HandleFunc("/api/portfolio/update-prices", s.handleUpdatePrices)
}

type ownerKey struct{}

func withOwner(next http.Handler, owner string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerKey{}, owner)))
	})
}

func ownerOf(r *http.Request) string {
	if o, ok := r.Context().Value(ownerKey{}).(string); ok && o != "" {
		return o
	}
	return LocalOwner
}

// basicAuth checks every request except /health against the configured
// users. The username becomes the data owner.
func (s *Server) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		u, p, ok := r.BasicAuth()
		if ok {
			for _, user := range s.cfg.Users {
				if secureCompare(u, user.Username) && secureCompare(p, user.Password) {
					next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerKey{}, user.Username)))
					return
				}
			}
		}
		w.Header().Set("WWW-Authenticate", `Basic realm="Planos", charset="UTF-8"`)
		writeError(w, http.StatusUnauthorized, "Unauthorized")
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		appLog.Debug("http request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "took", time.Since(start).Round(time.Millisecond))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	now := s.now()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "online",
		"time":     now.Format(time.RFC3339),
		"uptime":   now.Sub(s.started).Round(time.Second).String(),
		"provider": s.cfg.LLM.Provider,
		"model":    s.cfg.LLM.Model,
		"user":     ownerOf(r),
	})
}

// today is the reference instant for week offsets.
func (s *Server) today() time.Time {
	return s.now().In(s.loc)
}

var validationErrs = []error{
	errBadBody,
	calendar.ErrInvalidDay, calendar.ErrInvalidTime, calendar.ErrEmptyRange, calendar.ErrEmptyTitle,
	notes.ErrEmptyText,
	tasks.ErrEmptyTitle, tasks.ErrInvalidPriority, tasks.ErrInvalidStatus,
	finance.ErrInvalidAmount, finance.ErrInvalidType, finance.ErrInvalidCategory, finance.ErrMissingCategory,
	finance.ErrInvalidPeriod, finance.ErrDuplicateBudget, finance.ErrInvalidFrequency,
	portfolio.ErrDuplicateAsset, portfolio.ErrInvalidAsset, portfolio.ErrInvalidHolding,
	settings.ErrInvalidLanguage, settings.ErrInvalidHours,
	interpreter.ErrEmptyUtterance,
}

// fail maps service errors onto HTTP statuses.
func fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, finance.ErrDefaultCategory):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, llm.ErrMissingAPIKey):
		writeError(w, http.StatusBadRequest, "API key not configured. Please add it in Settings.")
	default:
		var typeErr *json.UnmarshalTypeError
		var syntaxErr *json.SyntaxError
		if errors.As(err, &typeErr) || errors.As(err, &syntaxErr) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		for _, v := range validationErrs {
			if errors.Is(err, v) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
		}
		appLog.Error("request failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func readBody(r *http.Request) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadBody, err)
	}
	if len(b) > maxBodyBytes {
		return nil, fmt.Errorf("%w: too large", errBadBody)
	}
	return b, nil
}

func decodeBody(r *http.Request, v any) error {
	b, err := readBody(r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	return nil
}

// applyPatch overlays the fields present in body onto a deep copy of dst,
// so a failed update never touches the stored record.
func applyPatch[T any](body []byte, dst *T) error {
	base, err := json.Marshal(dst)
	if err != nil {
		return err
	}
	var out T
	if err := json.Unmarshal(base, &out); err != nil {
		return err
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	*dst = out
	return nil
}

// idOf reads ?id= and falls back to an "id" field in body.
func idOf(r *http.Request, body []byte) string {
	if id := strings.TrimSpace(r.URL.Query().Get("id")); id != "" {
		return id
	}
	var v struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(body, &v)
	return strings.TrimSpace(v.ID)
}

// intParam parses an optional integer query parameter.
func intParam(r *http.Request, name string) (*int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an integer", errBadBody, name)
	}
	return &n, nil
}

// crud describes a collection endpoint: GET lists, POST creates, PUT patches
// the record named by id, DELETE removes it.
type crud[T any] struct {
	list   func(r *http.Request, owner string) (any, error)
	create func(owner string, v T) (T, error)
	update func(owner, id string, fn func(*T) error) (T, error)
	remove func(owner, id string) error
}

func serveCRUD[T any](c crud[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := ownerOf(r)
		switch r.Method {
		case http.MethodGet:
			v, err := c.list(r, owner)
			if err != nil {
				fail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, v)
		case http.MethodPost:
			var v T
			if err := decodeBody(r, &v); err != nil {
				fail(w, err)
				return
			}
			out, err := c.create(owner, v)
			if err != nil {
				fail(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, out)
		case http.MethodPut:
			body, err := readBody(r)
			if err != nil {
				fail(w, err)
				return
			}
			id := idOf(r, body)
			if id == "" {
				writeError(w, http.StatusBadRequest, "id is required")
				return
			}
			out, err := c.update(owner, id, func(v *T) error { return applyPatch(body, v) })
			if err != nil {
				fail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, out)
		case http.MethodDelete:
			id := strings.TrimSpace(r.URL.Query().Get("id"))
			if id == "" {
				writeError(w, http.StatusBadRequest, "id is required")
				return
			}
			if err := c.remove(owner, id); err != nil {
				fail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]bool{"success": true})
		default:
			methodNotAllowed(w)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
