package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"planos/internal/app"
	"planos/internal/calendar"
	"planos/internal/events"
	"planos/internal/interpreter"
)

type fakePlanner struct {
	now      time.Time
	weeks    []int
	planned  []string
	planWeek int
	res      interpreter.Result
	saved    []calendar.Event
	err      error
}

func (f *fakePlanner) Now() time.Time { return f.now }

func (f *fakePlanner) Week(_ string, offset int) app.WeekView {
	f.weeks = append(f.weeks, offset)
	v := app.WeekView{Offset: offset, Days: calendar.WeekDates(f.now, offset, "en")}
	if offset == 0 {
		v.Events[2] = []events.Positioned{
			{Event: calendar.Event{Title: "Lecture", Day: 2, StartTime: 9, EndTime: 11}, Column: 0, Columns: 2},
			{Event: calendar.Event{Title: "Call", Day: 2, StartTime: 10, EndTime: 12}, Column: 1, Columns: 2},
		}
	}
	return v
}

func (f *fakePlanner) Plan(_ context.Context, _, utterance string, week int, _ bool) (interpreter.Result, []calendar.Event, error) {
	f.planned = append(f.planned, utterance)
	f.planWeek = week
	return f.res, f.saved, f.err
}

func newModel(p *fakePlanner) Model {
	p.now = time.Date(2024, 10, 23, 12, 0, 0, 0, time.UTC)
	return New(p, "local", "en")
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func TestViewShowsColumns(t *testing.T) {
	m := newModel(&fakePlanner{})
	v := m.View()
	for _, want := range []string{"Lecture", "[1/2]", "Call", "[2/2]", "21.10 - 27.10.2024"} {
		if !strings.Contains(v, want) {
			t.Fatalf("view missing %q:\n%s", want, v)
		}
	}
}

func TestArrowsChangeWeek(t *testing.T) {
	p := &fakePlanner{}
	m := newModel(p)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRight})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRight})
	if m.offset != 2 || m.week.Offset != 2 {
		t.Fatalf("offset = %d", m.offset)
	}
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyHome})
	if m.offset != 0 {
		t.Fatalf("home offset = %d", m.offset)
	}
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	if m.offset != -1 {
		t.Fatalf("offset = %d", m.offset)
	}

	// With text typed the arrows edit the input instead.
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("gym")})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	if m.offset != -1 {
		t.Fatalf("arrow with text moved week to %d", m.offset)
	}
}

func TestEnterPlansAndReloads(t *testing.T) {
	p := &fakePlanner{
		res:   interpreter.Result{Message: "Done."},
		saved: []calendar.Event{{Title: "Gym", Day: 5, StartTime: 18, EndTime: 20}},
	}
	m := newModel(p)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRight})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("gym on saturday")})
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil || !m.busy || m.input.Value() != "" {
		t.Fatalf("enter did not start planning: busy=%v", m.busy)
	}
	loads := len(p.weeks)
	m, _ = update(t, m, cmd())
	if len(p.planned) != 1 || p.planned[0] != "gym on saturday" || p.planWeek != 1 {
		t.Fatalf("planned %v for week %d", p.planned, p.planWeek)
	}
	if m.busy || len(p.weeks) != loads+1 {
		t.Fatal("week not reloaded after planning")
	}
	if !strings.Contains(m.status, "Sat 18:00-20:00 Gym") || !strings.HasSuffix(m.status, "Done.") {
		t.Fatalf("status = %q", m.status)
	}
}

func TestPlanErrorShown(t *testing.T) {
	p := &fakePlanner{err: errors.New("boom"), res: interpreter.Result{Message: "Unavailable."}}
	m := newModel(p)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = update(t, m, cmd())
	if !m.failed || m.status != "Unavailable." {
		t.Fatalf("status = %q failed = %v", m.status, m.failed)
	}
}
