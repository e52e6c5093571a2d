package onboarding

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"planos/internal/config"
	"planos/internal/llm"
)

const ollamaURL = "http://localhost:11434"

var (
	focusedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	titleStyle   = lipgloss.NewStyle().
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("230")).
			Padding(0, 1).
			Bold(true)

	docStyle = lipgloss.NewStyle().Padding(1, 2)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(lipgloss.Color("205")).
			Padding(0, 1)

	inactiveTabStyle = lipgloss.NewStyle().Padding(0, 1)

	windowStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1)
)

type state int

const (
	stateProvider state = iota
	stateAPIKey
	stateModel
	stateLanguage
	stateTelegram
	stateMiddlewares
	stateDone
)

type item struct {
	title, desc string
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title }

// savedMsg reports the outcome of writing the config file.
type savedMsg struct{ err error }

// TUIModel is the bubbletea form behind `planos config init`.
type TUIModel struct {
	state       state
	cfg         *config.Config
	path        string
	middlewares []MiddlewareSetting
	models      func(p llm.Provider, baseURL string) []list.Item

	list   list.Model
	input  textinput.Model
	cursor int
	err    error
	saved  bool
	width  int
	height int
}

// NewTUIModel edits a copy of base and saves it to path when finished.
func NewTUIModel(base *config.Config, path string) TUIModel {
	cfg := config.DefaultConfig()
	if base != nil {
		c := *base
		cfg = &c
	}

	items := make([]list.Item, len(providers))
	for i, p := range providers {
		items[i] = item{title: string(p), desc: providerDesc(p)}
	}
	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Select AI provider"
	l.SetShowHelp(false)
	for i, p := range providers {
		if string(p) == cfg.LLM.Provider {
			l.Select(i)
		}
	}

	ti := textinput.New()
	ti.Focus()

	return TUIModel{
		state:       stateProvider,
		cfg:         cfg,
		path:        path,
		middlewares: Settings(cfg.DisabledMiddlewares),
		models:      modelItems,
		list:        l,
		input:       ti,
	}
}

func providerDesc(p llm.Provider) string {
	switch p {
	case llm.ProviderOllama:
		return "Local execution via Ollama"
	case llm.ProviderOpenAI:
		return "OpenAI GPT models (requires API key)"
	case llm.ProviderAnthropic:
		return "Claude models (requires API key)"
	default:
		return "Google Gemini models (requires API key)"
	}
}

type ollamaResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// modelItems offers the provider's models, asking a local Ollama for its tags.
func modelItems(p llm.Provider, baseURL string) []list.Item {
	switch p {
	case llm.ProviderOpenAI:
		return []list.Item{item{"gpt-4o-mini", "Fast OpenAI model"}, item{"gpt-4o", "Best OpenAI model"}}
	case llm.ProviderAnthropic:
		return []list.Item{item{"claude-3-5-sonnet-latest", "Best Anthropic model"}, item{"claude-3-5-haiku-latest", "Fast Anthropic model"}}
	case llm.ProviderGemini:
		return []list.Item{item{"gemini-2.5-flash", "Fast Google model"}, item{"gemini-2.5-pro", "Powerful Google model"}}
	}

	fallback := []list.Item{item{llm.DefaultModel(llm.ProviderOllama), "Default (Ollama not responding)"}}
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(strings.TrimRight(baseURL, "/") + "/api/tags")
	if err != nil {
		return fallback
	}
	defer resp.Body.Close()

	var data ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil || len(data.Models) == 0 {
		return fallback
	}
	out := make([]list.Item, len(data.Models))
	for i, m := range data.Models {
		out[i] = item{m.Name, "Local Ollama model"}
	}
	return out
}

func (m TUIModel) Init() tea.Cmd {
	return nil
}

// Config is the configuration built so far.
func (m TUIModel) Config() *config.Config {
	return m.cfg
}

// Saved reports whether the config file was written.
func (m TUIModel) Saved() bool {
	return m.saved
}

func (m TUIModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if msg.String() == "q" && (m.state == stateMiddlewares || m.state == stateDone) {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.list.SetSize(msg.Width-10, msg.Height-15)
	case savedMsg:
		m.err = msg.err
		m.saved = msg.err == nil
		return m, nil
	}

	var cmd tea.Cmd
	enter := isKey(msg, "enter")

	switch m.state {
	case stateProvider:
		if enter {
			if it, ok := m.list.SelectedItem().(item); ok {
				m.chooseProvider(llm.Provider(it.title))
			}
			return m, nil
		}
		m.list, cmd = m.list.Update(msg)

	case stateAPIKey:
		if enter {
			if key := strings.TrimSpace(m.input.Value()); key != "" {
				m.cfg.LLM.APIKey = key
			}
			m.toModels()
			return m, nil
		}
		m.input, cmd = m.input.Update(msg)

	case stateModel:
		if enter {
			if it, ok := m.list.SelectedItem().(item); ok {
				m.cfg.LLM.Model = it.title
			}
			m.state = stateLanguage
			m.list.SetItems([]list.Item{item{"ru", "Русский"}, item{"en", "English"}})
			m.list.Title = "Default language"
			if m.cfg.Language == "en" {
				m.list.Select(1)
			} else {
				m.list.Select(0)
			}
			return m, nil
		}
		m.list, cmd = m.list.Update(msg)

	case stateLanguage:
		if enter {
			if it, ok := m.list.SelectedItem().(item); ok {
				m.cfg.Language = it.title
			}
			m.state = stateTelegram
			m.input.Prompt = "Telegram bot token (optional): "
			m.input.EchoMode = textinput.EchoPassword
			m.input.SetValue(m.cfg.Telegram.Token)
			return m, nil
		}
		m.list, cmd = m.list.Update(msg)

	case stateTelegram:
		if enter {
			m.cfg.Telegram.Token = strings.TrimSpace(m.input.Value())
			m.state = stateMiddlewares
			return m, nil
		}
		m.input, cmd = m.input.Update(msg)

	case stateMiddlewares:
		switch {
		case isKey(msg, "up", "k"):
			if m.cursor > 0 {
				m.cursor--
			}
		case isKey(msg, "down", "j"):
			if m.cursor < len(m.middlewares)-1 {
				m.cursor++
			}
		case isKey(msg, " ", "space"):
			if len(m.middlewares) > 0 {
				m.middlewares[m.cursor].Enabled = !m.middlewares[m.cursor].Enabled
			}
		case enter:
			m.cfg.DisabledMiddlewares = Disabled(m.middlewares)
			m.cfg.Normalize()
			m.state = stateDone
			return m, m.saveConfig()
		}

	case stateDone:
		if _, ok := msg.(tea.KeyMsg); ok {
			return m, tea.Quit
		}
	}

	return m, cmd
}

func isKey(msg tea.Msg, keys ...string) bool {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return false
	}
	for _, want := range keys {
		if k.String() == want {
			return true
		}
	}
	return false
}

func (m *TUIModel) chooseProvider(p llm.Provider) {
	if string(p) != m.cfg.LLM.Provider {
		m.cfg.LLM.Model = ""
		m.cfg.LLM.BaseURL = ""
	}
	m.cfg.LLM.Provider = string(p)
	if p == llm.ProviderOllama && m.cfg.LLM.BaseURL == "" {
		m.cfg.LLM.BaseURL = ollamaURL
	}
	if !llm.RequiresAPIKey(p) {
		m.toModels()
		return
	}
	m.state = stateAPIKey
	m.input.Prompt = fmt.Sprintf("%s API key: ", p)
	m.input.Placeholder = "empty keeps the current key or PLANOS_LLM_API_KEY"
	m.input.EchoMode = textinput.EchoPassword
	m.input.SetValue("")
}

func (m *TUIModel) toModels() {
	p := llm.Provider(m.cfg.LLM.Provider)
	m.state = stateModel
	m.list.SetItems(m.models(p, m.cfg.LLM.BaseURL))
	m.list.Title = "Select model"
	m.list.Select(0)
}

func (m TUIModel) View() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render(" Planos setup "))
	s.WriteString("\n\n")

	tabs := []string{"Provider", "Model", "Language", "Telegram", "Middleware", "Finish"}
	current := map[state]int{
		stateProvider: 0, stateAPIKey: 0, stateModel: 1, stateLanguage: 2,
		stateTelegram: 3, stateMiddlewares: 4, stateDone: 5,
	}[m.state]
	rendered := make([]string, len(tabs))
	for i, t := range tabs {
		if i == current {
			rendered[i] = activeTabStyle.Render(t)
		} else {
			rendered[i] = inactiveTabStyle.Render(t)
		}
	}
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
	s.WriteString("\n\n")

	var content string
	switch m.state {
	case stateProvider, stateModel, stateLanguage:
		content = m.list.View()
	case stateAPIKey, stateTelegram:
		content = "\n" + m.input.View() + "\n\n" + helpStyle.Render("Press enter to continue")
	case stateMiddlewares:
		var b strings.Builder
		b.WriteString("Toggle middleware with [space], press [enter] to save.\n\n")
		for i, mw := range m.middlewares {
			cursor, checked := " ", " "
			if m.cursor == i {
				cursor = ">"
			}
			if mw.Enabled {
				checked = "x"
			}
			line := fmt.Sprintf("%s [%s] %s", cursor, checked, mw.ID)
			if m.cursor == i {
				line = focusedStyle.Render(line)
			}
			b.WriteString(line + "\n")
		}
		content = b.String()
	case stateDone:
		switch {
		case m.err != nil:
			content = errStyle.Render("Could not save: "+m.err.Error()) + "\nPress any key to exit."
		case m.saved:
			content = fmt.Sprintf("\nSaved to %s.\nPress any key to exit.", m.path)
		default:
			content = fmt.Sprintf("\nSaving configuration to %s...", m.path)
		}
	}

	win := windowStyle
	if m.width > 10 && m.height > 15 {
		win = win.Width(m.width - 10).Height(m.height - 15)
	}
	s.WriteString(win.Render(content))
	if m.state != stateDone {
		s.WriteString("\n\n" + helpStyle.Render("ctrl+c: quit • ↑/↓: navigate • enter: select"))
	}
	return docStyle.Render(s.String())
}

func (m TUIModel) saveConfig() tea.Cmd {
	cfg, path := m.cfg, m.path
	return func() tea.Msg {
		return savedMsg{err: config.Save(path, cfg)}
	}
}

// RunTUI shows the form and returns the saved configuration, or nil when the
// user quit before saving.
func RunTUI(base *config.Config, path string) (*config.Config, error) {
	final, err := tea.NewProgram(NewTUIModel(base, path), tea.WithAltScreen()).Run()
	if err != nil {
		return nil, err
	}
	m, ok := final.(TUIModel)
	if !ok || !m.saved {
		return nil, m.err
	}
	return m.cfg, nil
}
