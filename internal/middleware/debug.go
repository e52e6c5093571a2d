package middleware

import (
	"encoding/json"
	"io"
	"time"
	"unicode/utf8"
)

// traceEntry is one JSONL line per middleware step. Answered marks a step
// that replied itself, so the request never reached the model.
type traceEntry struct {
	Timestamp    string `json:"ts"`
	Event        string `json:"event"`
	MiddlewareID string `json:"middleware"`
	Priority     int    `json:"priority"`
	Skipped      bool   `json:"skipped,omitempty"`
	Reason       string `json:"reason,omitempty"`
	Error        bool   `json:"error,omitempty"`

	Answered      bool  `json:"answered,omitempty"`
	Rewritten     bool  `json:"rewritten,omitempty"`
	ParamsChanged bool  `json:"params_changed,omitempty"`
	InputChars    int   `json:"in_chars"`
	ReplyChars    int   `json:"reply_chars,omitempty"`
	TookMicros    int64 `json:"took_us"`
}

func eventText(e *Event) string {
	if e == nil {
		return ""
	}
	switch e.Name {
	case EventBeforeLLMRequest:
		return e.UserText
	case EventAfterLLMResponse:
		return e.LLMText
	default:
		return ""
	}
}

func applyDecisionToEvent(e *Event, dec Decision) {
	if e == nil {
		return
	}
	if dec.OverrideParams != nil {
		e.Params = dec.OverrideParams
	}
	if dec.ReplaceText == nil {
		return
	}
	switch e.Name {
	case EventBeforeLLMRequest:
		e.UserText = *dec.ReplaceText
	case EventAfterLLMResponse:
		e.LLMText = *dec.ReplaceText
	}
}

func (c *Chain) debugLog(e *Event, id string, priority int, step stepTrace) {
	c.debugMu.Lock()
	w := c.debugW
	c.debugMu.Unlock()
	if w == nil {
		return
	}

	dec := step.dec
	entry := traceEntry{
		Timestamp:     time.Now().UTC().Format(time.RFC3339Nano),
		Event:         string(e.Name),
		MiddlewareID:  id,
		Priority:      priority,
		Skipped:       step.skipped,
		Reason:        dec.Reason,
		Error:         step.failed,
		Answered:      dec.Cancel && dec.ReplaceText != nil,
		Rewritten:     !dec.Cancel && dec.ReplaceText != nil && *dec.ReplaceText != step.before,
		ParamsChanged: dec.OverrideParams != nil,
		InputChars:    utf8.RuneCountInString(step.before),
		TookMicros:    step.took.Microseconds(),
	}
	if entry.Answered {
		entry.ReplyChars = utf8.RuneCountInString(*dec.ReplaceText)
	}

	b, err := json.Marshal(entry)
	if err != nil {
		return
	}
	_, _ = io.WriteString(w, string(b)+"\n")
}

type stepTrace struct {
	before  string
	dec     Decision
	skipped bool
	failed  bool
	took    time.Duration
}
