package onboarding

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"planos/internal/middleware"
)

// MiddlewareSetting is the user's choice for one registered middleware.
type MiddlewareSetting struct {
	ID      string
	Enabled bool
}

// Settings lists every registered middleware sorted by ID, enabled unless
// named in disabled.
func Settings(disabled []string) []MiddlewareSetting {
	off := make(map[string]bool, len(disabled))
	for _, id := range disabled {
		off[id] = true
	}
	registered := middleware.Registered()
	out := make([]MiddlewareSetting, len(registered))
	for i, mw := range registered {
		out[i] = MiddlewareSetting{ID: mw.ID(), Enabled: !off[mw.ID()]}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Disabled returns the IDs switched off in settings.
func Disabled(settings []MiddlewareSetting) []string {
	var out []string
	for _, s := range settings {
		if !s.Enabled {
			out = append(out, s.ID)
		}
	}
	return out
}

// MiddlewareMenu toggles middleware by number until the user enters 0 or an
// empty line.
type MiddlewareMenu struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func NewMiddlewareMenu(scanner *bufio.Scanner, out io.Writer) *MiddlewareMenu {
	return &MiddlewareMenu{scanner: scanner, out: out}
}

// Run returns the IDs left disabled.
func (m *MiddlewareMenu) Run(disabled []string) []string {
	settings := Settings(disabled)
	if len(settings) == 0 {
		return disabled
	}
	for {
		fmt.Fprintln(m.out, "\nMiddleware:")
		for i, s := range settings {
			status := "[ON] "
			if !s.Enabled {
				status = "[OFF]"
			}
			fmt.Fprintf(m.out, "%2d) %s %s\n", i+1, status, s.ID)
		}
		fmt.Fprintln(m.out, " 0) Finish")
		fmt.Fprint(m.out, "Toggle: ")

		if !m.scanner.Scan() {
			break
		}
		input := strings.TrimSpace(m.scanner.Text())
		if input == "0" || input == "" {
			break
		}
		idx, err := strconv.Atoi(input)
		if err != nil || idx < 1 || idx > len(settings) {
			fmt.Fprintln(m.out, "Invalid selection.")
			continue
		}
		settings[idx-1].Enabled = !settings[idx-1].Enabled
	}
	return Disabled(settings)
}
