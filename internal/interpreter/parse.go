package interpreter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"planos/internal/calendar"
)

var errNoJSONObject = errors.New("no JSON object in response")

// flexInt accepts 13, 13.0 and "13". A missing field stays unset.
type flexInt struct {
	set bool
	v   int
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		// "13:30" keeps the hour; minutes travel in their own field.
		if i := strings.IndexByte(s, ':'); i > 0 {
			s = s[:i]
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("not a number: %q", s)
		}
		f.set, f.v = true, int(math.Floor(n))
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	f.set, f.v = true, int(math.Floor(n))
	return nil
}

// flexDay accepts a day index or a weekday name.
type flexDay struct {
	set bool
	v   int
}

func (f *flexDay) UnmarshalJSON(b []byte) error {
	var n flexInt
	if err := n.UnmarshalJSON(b); err == nil {
		f.set, f.v = n.set, n.v
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	d, ok := calendar.ParseWeekday(s)
	if !ok {
		return fmt.Errorf("unknown weekday %q", s)
	}
	f.set, f.v = true, d
	return nil
}

type rawEvent struct {
	Day         flexDay `json:"day"`
	StartTime   flexInt `json:"startTime"`
	StartMinute flexInt `json:"startMinute"`
	EndTime     flexInt `json:"endTime"`
	EndMinute   flexInt `json:"endMinute"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
}

func (r rawEvent) complete() bool {
	return r.Day.set && r.StartTime.set && r.EndTime.set
}

func (r rawEvent) draft() Draft {
	// Missing minutes default to 0.
	return Draft{
		Day:         r.Day.v,
		StartTime:   r.StartTime.v,
		StartMinute: r.StartMinute.v,
		EndTime:     r.EndTime.v,
		EndMinute:   r.EndMinute.v,
		Title:       r.Title,
		Description: r.Description,
	}
}

type rawResponse struct {
	Events  json.RawMessage `json:"events"`
	Message *string         `json:"message"`
}

// Parsed is the decoded model answer before validation.
type Parsed struct {
	Drafts  []Draft
	Message string
	// Skipped counts entries lacking day, startTime or endTime, or whose
	// fields could not be decoded.
	Skipped int
}

// ParseResponse decodes the model text. It accepts the {events, message}
// shape and the legacy single-event object, tolerates Markdown fences and
// prose around the JSON, and fails only when no usable JSON is present.
func ParseResponse(s string) (Parsed, error) {
	obj, err := extractObject(s)
	if err != nil {
		return Parsed{}, err
	}

	var resp rawResponse
	if err := json.Unmarshal(obj, &resp); err != nil {
		return Parsed{}, fmt.Errorf("decode response: %w", err)
	}

	var out Parsed
	if resp.Message != nil {
		out.Message = strings.TrimSpace(*resp.Message)
	}

	if len(resp.Events) > 0 && string(resp.Events) != "null" {
		var items []json.RawMessage
		if err := json.Unmarshal(resp.Events, &items); err != nil {
			return Parsed{}, fmt.Errorf("decode events: %w", err)
		}
		for _, item := range items {
			var ev rawEvent
			if err := json.Unmarshal(item, &ev); err != nil || !ev.complete() {
				out.Skipped++
				continue
			}
			out.Drafts = append(out.Drafts, ev.draft())
		}
		return out, nil
	}

	var single rawEvent
	if err := json.Unmarshal(obj, &single); err == nil && single.complete() {
		out.Drafts = append(out.Drafts, single.draft())
		return out, nil
	}
	if resp.Message != nil || resp.Events != nil {
		return out, nil
	}
	return Parsed{}, fmt.Errorf("unexpected response shape")
}

// extractObject finds the outermost JSON object in s.
func extractObject(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return nil, errNoJSONObject
	}
	obj := []byte(s[start : end+1])
	if !json.Valid(obj) {
		return nil, fmt.Errorf("%w: invalid JSON", errNoJSONObject)
	}
	return obj, nil
}

// Validate rounds minutes, trims text and drops drafts that break the event
// invariant. It returns the kept drafts and how many were dropped.
func Validate(drafts []Draft, lang string) ([]Draft, int) {
	out := make([]Draft, 0, len(drafts))
	dropped := 0
	for _, d := range drafts {
		ev := d.Event(0)
		if strings.TrimSpace(ev.Title) == "" {
			ev.Title = defaultTitle(lang)
		}
		if err := ev.Normalize(); err != nil {
			dropped++
			continue
		}
		out = append(out, Draft{
			Day: ev.Day, StartTime: ev.StartTime, StartMinute: ev.StartMinute,
			EndTime: ev.EndTime, EndMinute: ev.EndMinute,
			Title: ev.Title, Description: ev.Description,
		})
	}
	return out, dropped
}

func defaultTitle(lang string) string {
	if lang == "en" {
		return "Event"
	}
	return "Событие"
}
