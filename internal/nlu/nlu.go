package nlu

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	appLog "planos/internal/log"
)

// IntentResult represents the result of an NLU parse operation.
type IntentResult struct {
	Intent string
	// Confidence is 1 when every slot matched a typed pattern and drops for
	// each free-text slot.
	Confidence float64
	Slots      map[string]string
	Template   string
}

// Engine matches input against registered utterance templates in
// registration order.
type Engine struct {
	mu       sync.RWMutex
	matchers []*intentMatcher
	slots    map[string]string
}

// intentMatcher holds the compiled logic for a specific intent's utterances.
type intentMatcher struct {
	intentName string
	template   string
	regex      *regexp.Regexp
	slotNames  []string
	freeSlots  int
}

// NewEngine returns an empty engine. Each caller owns its engine, so slot
// patterns registered by one middleware never leak into another.
func NewEngine() *Engine {
	return &Engine{slots: make(map[string]string)}
}

// RegisterSlot constrains every later {name} placeholder to pattern. The
// pattern must not contain capturing groups.
func (e *Engine) RegisterSlot(name, pattern string) error {
	if _, err := regexp.Compile(pattern); err != nil {
		return fmt.Errorf("slot %s: %w", name, err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.slots[name] = pattern
	return nil
}

// RegisterIntent adds an intent with a list of example utterances.
// Utterances can contain entities in the format {entity_name}.
// Example: RegisterIntent("add_event", "{title} on {day} at {time}")
func (e *Engine) RegisterIntent(intent string, utterances ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, u := range utterances {
		matcher, err := compileUtterance(intent, u, e.slots)
		if err != nil {
			appLog.Warn("nlu: skipping utterance", "intent", intent, "utterance", u, "err", err)
			continue
		}
		e.matchers = append(e.matchers, matcher)
	}
}

// Parse attempts to match the input string against registered intents.
// It returns the first matching intent, its confidence, and extracted slots.
func (e *Engine) Parse(input string) IntentResult {
	e.mu.RLock()
	defer e.mu.RUnlock()

	input = strings.Join(strings.Fields(input), " ")

	for _, m := range e.matchers {
		matches := m.regex.FindStringSubmatch(input)
		if matches == nil {
			continue
		}
		slots := make(map[string]string, len(m.slotNames))
		// Index 0 is the full match.
		for i, name := range m.slotNames {
			if i+1 < len(matches) {
				slots[name] = strings.TrimSpace(matches[i+1])
			}
		}
		conf := 1.0
		for i := 0; i < m.freeSlots; i++ {
			conf *= 0.9
		}
		return IntentResult{Intent: m.intentName, Confidence: conf, Slots: slots, Template: m.template}
	}

	return IntentResult{}
}

// compileUtterance converts a natural language template into a regex matcher.
// "set alarm for {time}" -> `(?i)^set\s+alarm\s+for\s+(.*?)$`
// Slots registered with RegisterSlot use their pattern instead of (.*?).
func compileUtterance(intent, utterance string, slotPatterns map[string]string) (*intentMatcher, error) {
	utterance = strings.Join(strings.Fields(utterance), " ")

	var (
		regexParts []string
		slotNames  []string
		free       int
	)

	segments := strings.Split(utterance, "{")
	regexParts = append(regexParts, literal(segments[0]))

	for i := 1; i < len(segments); i++ {
		// segment looks like "time} optional suffix"
		parts := strings.SplitN(segments[i], "}", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("unclosed brace in utterance: %s", utterance)
		}

		slotName := strings.TrimSpace(parts[0])
		slotNames = append(slotNames, slotName)

		if p, ok := slotPatterns[slotName]; ok {
			regexParts = append(regexParts, `(`+p+`)`)
		} else {
			regexParts = append(regexParts, `(.*?)`)
			free++
		}
		regexParts = append(regexParts, literal(parts[1]))
	}

	re, err := regexp.Compile(`(?i)^` + strings.Join(regexParts, "") + `$`)
	if err != nil {
		return nil, err
	}

	return &intentMatcher{
		intentName: intent,
		template:   utterance,
		regex:      re,
		slotNames:  slotNames,
		freeSlots:  free,
	}, nil
}

func literal(s string) string {
	if s == "" {
		return ""
	}
	return strings.ReplaceAll(regexp.QuoteMeta(s), " ", `\s+`)
}
