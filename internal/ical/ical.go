// Package ical converts week-relative calendar events to and from iCalendar.
package ical

import (
	"errors"
	"fmt"
	"io"
	"time"

	goical "github.com/emersion/go-ical"

	"planos/internal/calendar"
)

const (
	productID = "-//planos//planos//EN"
	propColor = "COLOR"
)

// Span returns the absolute start and end of e, with weeks counted from the
// week containing now.
func Span(e calendar.Event, now time.Time) (time.Time, time.Time) {
	day := calendar.WeekStart(now, e.Week).AddDate(0, 0, e.Day)
	start := day.Add(time.Duration(e.Start()) * time.Minute)
	end := day.Add(time.Duration(e.End()) * time.Minute)
	return start, end
}

// Export writes evs as one VCALENDAR.
func Export(w io.Writer, evs []calendar.Event, now time.Time) error {
	cal := goical.NewCalendar()
	cal.Props.SetText(goical.PropVersion, "2.0")
	cal.Props.SetText(goical.PropProductID, productID)

	stamp := now.UTC()
	for _, e := range evs {
		start, end := Span(e, now)
		ev := goical.NewEvent()
		ev.Props.SetText(goical.PropUID, e.ID+"@planos")
		ev.Props.SetDateTime(goical.PropDateTimeStamp, stamp)
		ev.Props.SetDateTime(goical.PropDateTimeStart, start.UTC())
		ev.Props.SetDateTime(goical.PropDateTimeEnd, end.UTC())
		ev.Props.SetText(goical.PropSummary, e.Title)
		if e.Description != "" {
			ev.Props.SetText(goical.PropDescription, e.Description)
		}
		if e.Color != "" {
			ev.Props.SetText(propColor, e.Color)
		}
		cal.Children = append(cal.Children, ev.Component)
	}
	return goical.NewEncoder(w).Encode(cal)
}

// Import reads every VEVENT from r and maps it onto the week grid of loc.
// Events ending on a later day are cut at midnight. Events that cannot be
// represented are skipped and counted.
func Import(r io.Reader, now time.Time, loc *time.Location) ([]calendar.Event, int, error) {
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)
	dec := goical.NewDecoder(r)
	var (
		out     []calendar.Event
		skipped int
	)
	for {
		cal, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("decode calendar: %w", err)
		}
		for _, ev := range cal.Events() {
			e, ok := convert(ev, now, loc)
			if !ok {
				skipped++
				continue
			}
			out = append(out, e)
		}
	}
	return out, skipped, nil
}

func convert(ev goical.Event, now time.Time, loc *time.Location) (calendar.Event, bool) {
	start, err := ev.DateTimeStart(loc)
	if err != nil || start.IsZero() {
		return calendar.Event{}, false
	}
	end, err := ev.DateTimeEnd(loc)
	if err != nil || end.IsZero() {
		end = start.Add(time.Hour)
	}
	start, end = start.In(loc), end.In(loc)

	midnight := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
	nextMidnight := midnight.AddDate(0, 0, 1)
	if end.After(nextMidnight) {
		end = nextMidnight
	}
	startMin := int(start.Sub(midnight) / time.Minute)
	endMin := int(end.Sub(midnight) / time.Minute)

	title, _ := ev.Props.Text(goical.PropSummary)
	desc, _ := ev.Props.Text(goical.PropDescription)
	color := ""
	if p := ev.Props.Get(propColor); p != nil {
		color = p.Value
	}

	e := calendar.Event{
		Title:       title,
		Description: desc,
		Day:         calendar.DayIndex(start),
		Week:        calendar.WeekOffsetOf(now, start),
		Color:       color,
	}
	e.SetInterval(calendar.Interval{Start: startMin, End: endMin})
	if err := e.Normalize(); err != nil {
		return calendar.Event{}, false
	}
	return e, true
}
