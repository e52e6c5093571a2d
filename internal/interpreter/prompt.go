package interpreter

import (
	"fmt"
	"strings"
	"time"

	"planos/internal/calendar"
)

// BuildPrompt renders the system instructions for one request. The utterance
// itself is sent separately as the user message.
func BuildPrompt(req Request, lang string) string {
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}

	var b strings.Builder
	b.WriteString("You are a scheduling assistant for a weekly calendar.\n\n")
	fmt.Fprintf(&b, "TODAY: %s, %s\nYEAR: %d\n\n",
		now.Format("2006-01-02"), calendar.WeekdayName(calendar.DayIndex(now), "en"), now.Year())

	b.WriteString("VIEWED WEEK (day index = date):\n")
	for _, d := range req.Week {
		fmt.Fprintf(&b, "- %d = %s %s\n", d.Day, calendar.WeekdayName(d.Day, "en"), d.Date.Format("2006-01-02"))
	}

	if len(req.Existing) > 0 {
		b.WriteString("\nEXISTING EVENTS THIS WEEK:\n")
		for _, e := range req.Existing {
			fmt.Fprintf(&b, "- %s %s %q\n", calendar.WeekdayShort(e.Day, "en"), e.Interval(), e.Title)
		}
	}

	b.WriteString(`
DATES:
- A weekday name ("on monday", "в понедельник") means that day of the viewed week.
- An absolute date ("22 october") means the weekday of that date in the current year. If that date is not in the viewed week, still create the event with the correct day index and say so in "message".
- "today" and "tomorrow" are relative to TODAY.

CONFLICTS:
- Two events conflict only when their times overlap: conflict if (startA < endB) and (startB < endA).
- 13:00-14:00 and 15:00-17:00 do NOT conflict. 13:00-14:00 and 14:00-16:00 do NOT conflict. 13:00-15:00 and 14:00-16:00 DO conflict.
- Check new events against each other and against EXISTING EVENTS.
- When the request describes several events and a real conflict exists: keep the event marked or implied as important, shorten or move the other one, and explain the change in "message".
- Never mention a conflict that does not exist.

TIME:
- Hours are 0-24, minutes are one of 0, 15, 30, 45. Round other minutes to the nearest of these (13:20 -> 13:15).
- Only hours given (13-14): minutes are 0.
- "morning" = 08:00-10:00, "afternoon" = 12:00-15:00, "evening" = 18:00-20:00, "after lunch" = 14:00-15:00 or right after the previous event.
- A meal without an end time lasts 1 hour.
- A task without a time goes into the first free slot of suitable length that overlaps nothing.

LANGUAGE:
`)
	if name := promptLanguage(req.Utterance, lang); name != "" {
		fmt.Fprintf(&b, "- The request is written in %s. Write title, description and message in that same language. Never translate.\n", name)
	} else {
		b.WriteString("- Write title, description and message in the same language as the request. Never translate.\n")
	}

	b.WriteString(`
OUTPUT: reply with a single JSON object and nothing else:
{"events":[{"day":number,"startTime":number,"startMinute":number,"endTime":number,"endMinute":number,"title":string,"description":string}],"message":string}
- title: short, 2-4 words. description: optional, up to 150 characters.
- message: optional; explain assumptions and adjustments.
- Prefer a best-effort answer with stated assumptions over refusing.
`)
	fmt.Fprintf(&b, "- If nothing can be extracted, reply {\"events\":[],\"message\":%q}\n", tr(lang, msgAmbiguous))

	b.WriteString(`
EXAMPLES:
Existing: "Homework" Mon 15:00-17:00
Request: "toilet time monday 13:00 - 14:00"
-> {"events":[{"day":0,"startTime":13,"startMinute":0,"endTime":14,"endMinute":0,"title":"Toilet time","description":""}]}
(no message: 13:00-14:00 does not overlap 15:00-17:00)

Request: "tomorrow sport 10:00-12:00, important meeting 11:00-13:00" (tomorrow = day 1)
-> {"events":[{"day":1,"startTime":10,"startMinute":0,"endTime":11,"endMinute":0,"title":"Sport","description":"Shortened"},{"day":1,"startTime":11,"startMinute":0,"endTime":13,"endMinute":0,"title":"Important meeting","description":""}],"message":"Sport was shortened to 10:00-11:00 so it does not overlap the important meeting."}
`)
	return b.String()
}
