// Package calendar holds the week-calendar event model and the minute
// arithmetic shared by the layout engine, the interpreter and the stores.
package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MinutesPerDay = 24 * 60

	// MaxDescription is the longest description kept on an event, in runes.
	MaxDescription = 200
)

var (
	ErrInvalidDay  = errors.New("day must be between 0 (Monday) and 6 (Sunday)")
	ErrInvalidTime = errors.New("time out of range")
	ErrEmptyRange  = errors.New("start must be before end")
	ErrEmptyTitle  = errors.New("title is required")
)

// Event is a timed block on one day of a week. Week is an offset from the
// current calendar week; Day is 0 for Monday through 6 for Sunday.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Day         int       `json:"day"`
	StartTime   int       `json:"startTime"`
	StartMinute int       `json:"startMinute"`
	EndTime     int       `json:"endTime"`
	EndMinute   int       `json:"endMinute"`
	Color       string    `json:"color,omitempty"`
	Week        int       `json:"week"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}

// Start is the start instant in minutes since midnight.
func (e Event) Start() int { return e.StartTime*60 + e.StartMinute }

// End is the end instant in minutes since midnight.
func (e Event) End() int { return e.EndTime*60 + e.EndMinute }

func (e Event) Interval() Interval { return Interval{Start: e.Start(), End: e.End()} }

// SetInterval writes iv back into the hour/minute fields.
func (e *Event) SetInterval(iv Interval) {
	e.StartTime, e.StartMinute = iv.Start/60, iv.Start%60
	e.EndTime, e.EndMinute = iv.End/60, iv.End%60
}

// Interval is a half-open [Start, End) range in minutes since midnight.
type Interval struct {
	Start int
	End   int
}

// Overlaps reports whether a and b share any instant. Touching intervals
// (13:00-14:00 and 14:00-15:00) do not overlap.
func (a Interval) Overlaps(b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

func (a Interval) Duration() int { return a.End - a.Start }

func (a Interval) String() string {
	return FormatClock(a.Start) + "-" + FormatClock(a.End)
}

// FormatClock renders minutes since midnight as HH:MM.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// RoundMinute snaps m to the nearest of 0, 15, 30 and 45. Values past 52
// stay in the same hour and become 45.
func RoundMinute(m int) int {
	switch {
	case m <= 7:
		return 0
	case m <= 22:
		return 15
	case m <= 37:
		return 30
	default:
		return 45
	}
}

// ValidateSlot checks day and time ranges without touching the title.
func ValidateSlot(day, startHour, startMinute, endHour, endMinute int) error {
	if day < 0 || day > 6 {
		return ErrInvalidDay
	}
	if startHour < 0 || startHour > 23 || endHour < 0 || endHour > 24 {
		return fmt.Errorf("%w: hour", ErrInvalidTime)
	}
	if startMinute < 0 || startMinute > 59 || endMinute < 0 || endMinute > 59 {
		return fmt.Errorf("%w: minute", ErrInvalidTime)
	}
	if endHour == 24 && endMinute != 0 {
		return fmt.Errorf("%w: end past midnight", ErrInvalidTime)
	}
	if startHour*60+startMinute >= endHour*60+endMinute {
		return ErrEmptyRange
	}
	return nil
}

// Validate checks the full event invariant.
func (e Event) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return ErrEmptyTitle
	}
	return ValidateSlot(e.Day, e.StartTime, e.StartMinute, e.EndTime, e.EndMinute)
}

// Normalize trims text, rounds minutes onto the quarter-hour grid and then
// validates. It is the entry point for every event crossing a boundary.
func (e *Event) Normalize() error {
	e.Title = strings.TrimSpace(e.Title)
	e.Description = Truncate(strings.TrimSpace(e.Description), MaxDescription)
	e.StartMinute = RoundMinute(e.StartMinute)
	e.EndMinute = RoundMinute(e.EndMinute)
	if e.EndTime == 24 {
		e.EndMinute = 0
	}
	return e.Validate()
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// FirstFreeSlot returns the earliest quarter-hour aligned interval of the
// given duration inside [from, to) that overlaps none of busy.
func FirstFreeSlot(busy []Interval, duration, from, to int) (Interval, bool) {
	if duration <= 0 {
		return Interval{}, false
	}
	if r := from % 15; r != 0 {
		from += 15 - r
	}
	for s := from; s+duration <= to; s += 15 {
		cand := Interval{Start: s, End: s + duration}
		free := true
		for _, b := range busy {
			if cand.Overlaps(b) {
				free = false
				break
			}
		}
		if free {
			return cand, true
		}
	}
	return Interval{}, false
}
