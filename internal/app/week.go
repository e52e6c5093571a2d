package app

import (
	"fmt"
	"strings"

	"planos/internal/calendar"
	"planos/internal/events"
)

// WeekView is one week with every day laid out into columns.
type WeekView struct {
	Offset int
	Days   []calendar.WeekDay
	Events [7][]events.Positioned
}

// Week loads the week at offset for owner.
func (a *App) Week(owner string, offset int) WeekView {
	lang := a.Config.Language
	if prefs, err := a.Services.Settings.Get(owner); err == nil && prefs.Language != "" {
		lang = prefs.Language
	}
	v := WeekView{Offset: offset, Days: calendar.WeekDates(a.Now(), offset, lang)}
	for d := range v.Events {
		v.Events[d] = a.Services.Events.Layout(owner, offset, d)
	}
	return v
}

// FormatWeek renders v as plain text, one block per day. Events sharing a
// time slot are marked with their column.
func FormatWeek(v WeekView, lang string) string {
	var b strings.Builder
	empty := "(free)"
	if lang == "ru" {
		empty = "(свободно)"
	}
	for d, day := range v.Days {
		b.WriteString(day.Label)
		b.WriteByte('\n')
		if len(v.Events[d]) == 0 {
			b.WriteString("  " + empty + "\n")
			continue
		}
		for _, e := range v.Events[d] {
			fmt.Fprintf(&b, "  %s  %s", e.Interval(), e.Title)
			if e.Columns > 1 {
				fmt.Fprintf(&b, "  [%d/%d]", e.Column+1, e.Columns)
			}
			b.WriteByte('\n')
		}
	}
	return b.String()
}
