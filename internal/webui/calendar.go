package webui

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"planos/internal/calendar"
	"planos/internal/events"
	"planos/internal/ical"
	"planos/internal/interpreter"
	"planos/internal/llm"
	appLog "planos/internal/log"
)

func (s *Server) handleEvents() http.HandlerFunc {
	ev := s.svc.Events
	return serveCRUD(crud[calendar.Event]{
		list: func(r *http.Request, owner string) (any, error) {
			week, err := intParam(r, "week")
			if err != nil {
				return nil, err
			}
			return ev.List(owner, week), nil
		},
		create: ev.Create,
		update: ev.Update,
		remove: ev.Delete,
	})
}

// handleLayout returns events with their column assignment. Without ?day=
// every day of the week is laid out.
func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	week, err := intParam(r, "week")
	if err != nil {
		fail(w, err)
		return
	}
	day, err := intParam(r, "day")
	if err != nil {
		fail(w, err)
		return
	}
	wk := 0
	if week != nil {
		wk = *week
	}
	owner := ownerOf(r)
	if day != nil {
		if *day < 0 || *day > 6 {
			fail(w, calendar.ErrInvalidDay)
			return
		}
		writeJSON(w, http.StatusOK, s.svc.Events.Layout(owner, wk, *day))
		return
	}
	out := []events.Positioned{}
	for d := 0; d < 7; d++ {
		out = append(out, s.svc.Events.Layout(owner, wk, d)...)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	week, err := intParam(r, "week")
	if err != nil {
		fail(w, err)
		return
	}
	var buf bytes.Buffer
	if err := ical.Export(&buf, s.svc.Events.List(ownerOf(r), week), s.today()); err != nil {
		fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="planos.ics"`)
	_, _ = w.Write(buf.Bytes())
}

// handleImport stores the events of an uploaded .ics file. With ?week= only
// events of that week are kept.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	week, err := intParam(r, "week")
	if err != nil {
		fail(w, err)
		return
	}
	body, err := readBody(r)
	if err != nil {
		fail(w, err)
		return
	}
	parsed, skipped, err := ical.Import(bytes.NewReader(body), s.today(), s.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	keep := parsed[:0]
	for _, e := range parsed {
		if week == nil || e.Week == *week {
			keep = append(keep, e)
		}
	}
	saved, err := s.svc.Events.CreateMany(ownerOf(r), keep)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"imported": len(saved),
		"skipped":  skipped,
		"events":   saved,
	})
}

type aiRequest struct {
	Message    string `json:"message"`
	WeekOffset int    `json:"weekOffset"`
	APIKey     string `json:"apiKey"`
	// ExistingEvents overrides the stored events of the week when set.
	ExistingEvents *[]interpreter.ExistingEvent `json:"existingEvents"`
	Apply          bool                         `json:"apply"`
}

type aiResponse struct {
	Events  []interpreter.Draft `json:"events"`
	Message string              `json:"message,omitempty"`
	Source  string              `json:"source,omitempty"`
	Saved   []calendar.Event    `json:"saved,omitempty"`
}

// handleAI interprets one utterance against the viewed week. The API key is
// taken from the request, then from the user's settings, then from config.
func (s *Server) handleAI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req aiRequest
	if err := decodeBody(r, &req); err != nil {
		fail(w, err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		fail(w, fmt.Errorf("message: %w", interpreter.ErrEmptyUtterance))
		return
	}
	owner := ownerOf(r)
	prefs, err := s.svc.Settings.Get(owner)
	if err != nil {
		fail(w, err)
		return
	}

	key := strings.TrimSpace(req.APIKey)
	if key == "" {
		key = prefs.APIKey
	}
	interp, err := s.interpreters(key)
	if err != nil {
		fail(w, err)
		return
	}

	var existing []interpreter.ExistingEvent
	if req.ExistingEvents != nil {
		existing = *req.ExistingEvents
	} else {
		existing = interpreter.ExistingFromEvents(s.svc.Events.List(owner, &req.WeekOffset))
	}

	now := s.today()
	res, err := interp.Interpret(r.Context(), interpreter.Request{
		Utterance: req.Message,
		Week:      calendar.WeekDates(now, req.WeekOffset, prefs.Language),
		Existing:  existing,
		Language:  prefs.Language,
		Now:       now,
	})
	if err != nil {
		if errors.Is(err, interpreter.ErrServiceUnavailable) && !errors.Is(err, llm.ErrMissingAPIKey) {
			writeError(w, http.StatusBadGateway, res.Message)
			return
		}
		fail(w, err)
		return
	}

	out := aiResponse{Events: res.Events, Message: res.Message, Source: res.Source}
	if req.Apply && len(res.Events) > 0 {
		evs := make([]calendar.Event, len(res.Events))
		for i, d := range res.Events {
			evs[i] = d.Event(req.WeekOffset)
		}
		saved, err := s.svc.Events.CreateMany(owner, evs)
		if err != nil {
			fail(w, err)
			return
		}
		out.Saved = saved
		appLog.Info("ai events stored", "user", owner, "count", len(saved), "source", res.Source)
	}
	writeJSON(w, http.StatusOK, out)
}
