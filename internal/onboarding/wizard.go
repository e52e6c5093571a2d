// Package onboarding builds a Planos configuration interactively, either with
// plain line prompts or with a bubbletea form.
package onboarding

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"planos/internal/config"
	"planos/internal/llm"
)

var providers = []llm.Provider{llm.ProviderOpenAI, llm.ProviderOllama, llm.ProviderAnthropic, llm.ProviderGemini}

// Wizard asks its questions on out and reads answers line by line from in.
type Wizard struct {
	scanner *bufio.Scanner
	out     io.Writer
	eof     bool
}

func NewWizard(in io.Reader, out io.Writer) *Wizard {
	return &Wizard{scanner: bufio.NewScanner(in), out: out}
}

// Run starts from base (defaults when nil) and returns the edited copy.
func (w *Wizard) Run(base *config.Config) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if base != nil {
		c := *base
		cfg = &c
	}

	fmt.Fprintln(w.out, "Planos setup")
	fmt.Fprintln(w.out, strings.Repeat("-", 40))

	fmt.Fprintln(w.out, "\n[1/3] Assistant")
	w.askProvider(cfg)
	cfg.LLM.Model = w.ask("Model", modelDefault(cfg))
	w.askBaseURL(cfg)
	w.askAPIKey(cfg)

	fmt.Fprintln(w.out, "\n[2/3] Calendar")
	w.askLanguage(cfg)
	w.askTimezone(cfg)
	cfg.Telegram.Token = w.ask("Telegram bot token (optional)", cfg.Telegram.Token)

	fmt.Fprintln(w.out, "\n[3/3] Middleware")
	cfg.DisabledMiddlewares = NewMiddlewareMenu(w.scanner, w.out).Run(cfg.DisabledMiddlewares)

	if err := w.scanner.Err(); err != nil {
		return nil, err
	}
	cfg.Normalize()
	w.summarize(cfg)
	return cfg, nil
}

// ask prints a prompt with its default and returns the answer or the default.
func (w *Wizard) ask(label, def string) string {
	if def != "" {
		fmt.Fprintf(w.out, "%s (default: %s): ", label, def)
	} else {
		fmt.Fprintf(w.out, "%s: ", label)
	}
	if !w.scanner.Scan() {
		w.eof = true
		return def
	}
	if v := strings.TrimSpace(w.scanner.Text()); v != "" {
		return v
	}
	return def
}

func (w *Wizard) askProvider(cfg *config.Config) {
	fmt.Fprintln(w.out, "Select LLM provider:")
	for i, p := range providers {
		fmt.Fprintf(w.out, "%d) %s\n", i+1, p)
	}
	for {
		in := w.ask("Choice", cfg.LLM.Provider)
		if p, err := llm.ParseProvider(in); err == nil {
			w.setProvider(cfg, p)
			return
		}
		var n int
		if _, err := fmt.Sscanf(in, "%d", &n); err == nil && n >= 1 && n <= len(providers) {
			w.setProvider(cfg, providers[n-1])
			return
		}
		fmt.Fprintf(w.out, "Invalid choice. Select 1-%d.\n", len(providers))
		if w.eof {
			return
		}
	}
}

func (w *Wizard) setProvider(cfg *config.Config, p llm.Provider) {
	if string(p) != cfg.LLM.Provider {
		cfg.LLM.Model = ""
		cfg.LLM.BaseURL = ""
	}
	cfg.LLM.Provider = string(p)
}

func modelDefault(cfg *config.Config) string {
	if cfg.LLM.Model != "" {
		return cfg.LLM.Model
	}
	p, err := llm.ParseProvider(cfg.LLM.Provider)
	if err != nil {
		return ""
	}
	return llm.DefaultModel(p)
}

func (w *Wizard) askBaseURL(cfg *config.Config) {
	if cfg.LLM.Provider != string(llm.ProviderOllama) {
		return
	}
	def := cfg.LLM.BaseURL
	if def == "" {
		def = ollamaURL
	}
	cfg.LLM.BaseURL = w.ask("Ollama URL", def)
}

func (w *Wizard) askAPIKey(cfg *config.Config) {
	p, err := llm.ParseProvider(cfg.LLM.Provider)
	if err != nil || !llm.RequiresAPIKey(p) {
		return
	}
	def := ""
	if cfg.LLM.APIKey != "" {
		def = "keep current"
	}
	fmt.Fprintln(w.out, "Leave empty to use PLANOS_LLM_API_KEY from the environment.")
	if key := w.ask("API key", def); key != "keep current" {
		cfg.LLM.APIKey = key
	}
}

func (w *Wizard) askLanguage(cfg *config.Config) {
	for {
		switch v := strings.ToLower(w.ask("Default language [ru/en]", cfg.Language)); v {
		case "ru", "en":
			cfg.Language = v
			return
		default:
			fmt.Fprintln(w.out, "Enter ru or en.")
			if w.eof {
				return
			}
		}
	}
}

func (w *Wizard) askTimezone(cfg *config.Config) {
	for {
		tz := w.ask("Time zone", cfg.Timezone)
		if tz == "Local" {
			cfg.Timezone = tz
			return
		}
		if _, err := time.LoadLocation(tz); err == nil {
			cfg.Timezone = tz
			return
		}
		fmt.Fprintf(w.out, "Unknown time zone %q.\n", tz)
		if w.eof {
			return
		}
	}
}

func (w *Wizard) summarize(cfg *config.Config) {
	fmt.Fprintln(w.out, "\n"+strings.Repeat("=", 40))
	fmt.Fprintf(w.out, "Provider: %s\n", cfg.LLM.Provider)
	fmt.Fprintf(w.out, "Model:    %s\n", cfg.LLM.Model)
	if cfg.LLM.BaseURL != "" {
		fmt.Fprintf(w.out, "URL:      %s\n", cfg.LLM.BaseURL)
	}
	fmt.Fprintf(w.out, "Language: %s\n", cfg.Language)
	fmt.Fprintf(w.out, "Timezone: %s\n", cfg.Timezone)
	if len(cfg.DisabledMiddlewares) > 0 {
		fmt.Fprintf(w.out, "Disabled: %s\n", strings.Join(cfg.DisabledMiddlewares, ", "))
	}
	fmt.Fprintln(w.out, strings.Repeat("=", 40))
}
