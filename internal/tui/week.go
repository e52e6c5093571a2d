// Package tui is an interactive terminal week view. Typed requests are sent
// to the interpreter and the resulting events are stored immediately.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"planos/internal/app"
	"planos/internal/calendar"
	"planos/internal/interpreter"
)

const planTimeout = 2 * time.Minute

var (
	titleStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("230")).
			Padding(0, 1).
			Bold(true)
	dayStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	todayStyle  = dayStyle.Underline(true)
	freeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// Planner is the part of *app.App the view needs.
type Planner interface {
	Plan(ctx context.Context, owner, utterance string, week int, apply bool) (interpreter.Result, []calendar.Event, error)
	Week(owner string, offset int) app.WeekView
	Now() time.Time
}

type planMsg struct {
	res   interpreter.Result
	saved []calendar.Event
	err   error
}

type Model struct {
	planner Planner
	owner   string
	lang    string

	offset int
	week   app.WeekView
	input  textinput.Model
	busy   bool
	status string
	failed bool
}

func New(p Planner, owner, lang string) Model {
	ti := textinput.New()
	ti.Placeholder = "gym on saturday evening"
	ti.Prompt = "> "
	ti.Focus()
	return Model{
		planner: p,
		owner:   owner,
		lang:    lang,
		input:   ti,
		week:    p.Week(owner, 0),
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "pgup", "ctrl+left":
			return m.move(-1), nil
		case "pgdown", "ctrl+right":
			return m.move(1), nil
		case "left", "right":
			if m.input.Value() == "" {
				d := 1
				if msg.String() == "left" {
					d = -1
				}
				return m.move(d), nil
			}
		case "home":
			if m.input.Value() == "" {
				return m.move(-m.offset), nil
			}
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if text == "" || m.busy {
				return m, nil
			}
			m.busy = true
			m.status = "..."
			m.failed = false
			m.input.SetValue("")
			return m, m.plan(text, m.offset)
		}
	case planMsg:
		m.busy = false
		m.status, m.failed = describe(msg, m.lang)
		m.week = m.planner.Week(m.owner, m.offset)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) move(delta int) Model {
	m.offset += delta
	m.week = m.planner.Week(m.owner, m.offset)
	return m
}

func (m Model) plan(text string, week int) tea.Cmd {
	p, owner := m.planner, m.owner
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), planTimeout)
		defer cancel()
		res, saved, err := p.Plan(ctx, owner, text, week, true)
		return planMsg{res: res, saved: saved, err: err}
	}
}

// describe turns a plan outcome into the status line.
func describe(msg planMsg, lang string) (string, bool) {
	if msg.err != nil {
		if msg.res.Message != "" {
			return msg.res.Message, true
		}
		return msg.err.Error(), true
	}
	var parts []string
	for _, e := range msg.saved {
		parts = append(parts, fmt.Sprintf("+ %s %s %s", calendar.WeekdayShort(e.Day, lang), e.Interval(), e.Title))
	}
	if msg.res.Message != "" {
		parts = append(parts, msg.res.Message)
	}
	if len(parts) == 0 {
		return interpreter.AmbiguousMessage(lang), false
	}
	return strings.Join(parts, "\n"), false
}

func (m Model) View() string {
	var b strings.Builder
	title := " Planos "
	if len(m.week.Days) == 7 {
		first, last := m.week.Days[0].Date, m.week.Days[6].Date
		title = fmt.Sprintf(" Planos  %s - %s ", first.Format("02.01"), last.Format("02.01.2006"))
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")

	today := m.planner.Now()
	for d, day := range m.week.Days {
		style := dayStyle
		if sameDate(day.Date, today) {
			style = todayStyle
		}
		b.WriteString(style.Render(day.Label))
		b.WriteByte('\n')
		if len(m.week.Events[d]) == 0 {
			b.WriteString(freeStyle.Render("  -"))
			b.WriteByte('\n')
			continue
		}
		for _, e := range m.week.Events[d] {
			line := fmt.Sprintf("%s%s  %s", strings.Repeat("  ", e.Column+1), e.Interval(), e.Title)
			if e.Columns > 1 {
				line += fmt.Sprintf("  [%d/%d]", e.Column+1, e.Columns)
			}
			if e.Color != "" {
				line = lipgloss.NewStyle().Foreground(lipgloss.Color(e.Color)).Render(line)
			}
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}

	b.WriteByte('\n')
	b.WriteString(m.input.View())
	b.WriteByte('\n')
	if m.status != "" {
		style := statusStyle
		if m.failed {
			style = errStyle
		}
		b.WriteString(style.Render(m.status))
		b.WriteByte('\n')
	}
	b.WriteString(helpStyle.Render("←/→ or pgup/pgdn: week • home: this week • enter: send • esc: quit"))
	return b.String()
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}

// Run starts the full-screen view.
func Run(p Planner, owner, lang string) error {
	_, err := tea.NewProgram(New(p, owner, lang), tea.WithAltScreen()).Run()
	return err
}
