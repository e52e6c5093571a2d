package interpreter

import (
	"errors"
	"time"

	"planos/internal/calendar"
)

var (
	// ErrServiceUnavailable wraps any failure of the reasoning call itself.
	ErrServiceUnavailable = errors.New("reasoning service unavailable")
	ErrEmptyUtterance     = errors.New("empty utterance")
)

// Keys under which Interpret publishes request data to middlewares.
const (
	ContextKeyWeek     = "planos.week"     // []calendar.WeekDay
	ContextKeyExisting = "planos.existing" // []ExistingEvent
	ContextKeyLanguage = "planos.language" // string
	ContextKeyNow      = "planos.now"      // time.Time
	ContextKeyBudget   = "token_budget"    // int
)

// ExistingEvent is an already scheduled event of the viewed week.
type ExistingEvent struct {
	Day         int    `json:"day"`
	StartTime   int    `json:"startTime"`
	StartMinute int    `json:"startMinute"`
	EndTime     int    `json:"endTime"`
	EndMinute   int    `json:"endMinute"`
	Title       string `json:"title"`
}

func (e ExistingEvent) Interval() calendar.Interval {
	return calendar.Interval{Start: e.StartTime*60 + e.StartMinute, End: e.EndTime*60 + e.EndMinute}
}

// ExistingFromEvents converts stored events into interpreter context.
func ExistingFromEvents(evs []calendar.Event) []ExistingEvent {
	out := make([]ExistingEvent, 0, len(evs))
	for _, e := range evs {
		out = append(out, ExistingEvent{
			Day: e.Day, StartTime: e.StartTime, StartMinute: e.StartMinute,
			EndTime: e.EndTime, EndMinute: e.EndMinute, Title: e.Title,
		})
	}
	return out
}

// Request is one interpretation call.
type Request struct {
	Utterance string
	// Week lists the seven days of the viewed week, Monday first.
	Week     []calendar.WeekDay
	Existing []ExistingEvent
	// Language is used when the utterance itself gives no hint.
	Language string
	Now      time.Time
}

// Draft is a proposed event. It becomes a calendar.Event once stored.
type Draft struct {
	Day         int    `json:"day"`
	StartTime   int    `json:"startTime"`
	StartMinute int    `json:"startMinute"`
	EndTime     int    `json:"endTime"`
	EndMinute   int    `json:"endMinute"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (d Draft) Interval() calendar.Interval {
	return calendar.Interval{Start: d.StartTime*60 + d.StartMinute, End: d.EndTime*60 + d.EndMinute}
}

func (d *Draft) setInterval(iv calendar.Interval) {
	d.StartTime, d.StartMinute = iv.Start/60, iv.Start%60
	d.EndTime, d.EndMinute = iv.End/60, iv.End%60
}

// Event turns the draft into a calendar event for the given week offset.
func (d Draft) Event(week int) calendar.Event {
	return calendar.Event{
		Title:       d.Title,
		Description: d.Description,
		Day:         d.Day,
		StartTime:   d.StartTime,
		StartMinute: d.StartMinute,
		EndTime:     d.EndTime,
		EndMinute:   d.EndMinute,
		Week:        week,
	}
}

// Result is the interpreter output.
type Result struct {
	Events  []Draft `json:"events"`
	Message string  `json:"message,omitempty"`
	// Source is "model" or the ID of the middleware that answered locally.
	Source string `json:"source,omitempty"`
}
