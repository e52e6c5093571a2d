// Package quickevent answers simple single-event requests such as
// "dentist tomorrow 9-10" or "обед в пятницу в 13" without a model call.
// Anything it is not sure about is left to the reasoning step.
package quickevent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"planos/internal/calendar"
	"planos/internal/interpreter"
	appLog "planos/internal/log"
	mw "planos/internal/middleware"
	"planos/internal/nlu"
)

func init() {
	mw.Register(QuickEvent{})
}

const (
	intentAddEvent = "add_event"
	minConfidence  = 0.85
	// A start without an end (a meal, an appointment) gets one hour.
	defaultMinutes = 60
)

var engine = newEngine()

var (
	weekdayPattern = `понедельник\p{L}*|вторник\p{L}*|сред[аыу]|четверг\p{L}*|пятниц[аыу]|суббот[аыу]|воскресень[ея]|` +
		`monday|tuesday|wednesday|thursday|friday|saturday|sunday`
	relativePattern = `today|tomorrow|day after tomorrow|сегодня|послезавтра|завтра`
	monthPattern    = `(?:january|february|march|april|may|june|july|august|september|october|november|december|` +
		`январ|феврал|март|апрел|мая|май|июн|июл|август|сентябр|октябр|ноябр|декабр)\p{L}*`
	datePattern = `\d{1,2}(?:st|nd|rd|th)?\s+` + monthPattern + `|` + monthPattern + `\s+\d{1,2}(?:st|nd|rd|th)?`

	slotPatterns = map[string]string{
		"day":   weekdayPattern + `|` + relativePattern + `|` + datePattern,
		"start": `\d{1,2}(?:[:.]\d{2})?(?:\s*[ap]\.?m\.?)?`,
		"end":   `\d{1,2}(?:[:.]\d{2})?(?:\s*[ap]\.?m\.?)?`,
		"band":  `morning|afternoon|evening|after lunch|утром|днём|днем|вечером|после обеда`,
	}

	// More specific templates come first; the engine returns the first match.
	templates = []string{
		"{title} on {day} from {start} to {end}",
		"{title} on {day} {start}-{end}",
		"{title} on {day} at {start}",
		"{title} on {day} in the {band}",
		"{title} on {day} {band}",
		"{title} {day} from {start} to {end}",
		"{title} {day} {start}-{end}",
		"{title} {day} at {start}",
		"{title} {day} in the {band}",
		"{title} {day} {band}",
		"{day} from {start} to {end} {title}",
		"{day} {start}-{end} {title}",
		"{day} at {start} {title}",
		"{day} {title} from {start} to {end}",
		"{day} {title} {start}-{end}",
		"{day} {title} at {start}",

		"в {day} {title} с {start} до {end}",
		"в {day} с {start} до {end} {title}",
		"в {day} в {start} {title}",
		"в {day} {title} в {start}",
		"в {day} {title} {start}-{end}",
		"{title} в {day} с {start} до {end}",
		"{title} в {day} {start}-{end}",
		"{title} в {day} в {start}",
		"{title} в {day} {band}",
		"{title} {day} с {start} до {end}",
		"{title} {day} {start}-{end}",
		"{title} {day} в {start}",
		"{title} {day} {band}",
		"{day} с {start} до {end} {title}",
		"{day} в {start} {title}",
		"{day} {band} {title}",
		"{day} {title} с {start} до {end}",
		"{day} {title} {start}-{end}",
		"{day} {title} в {start}",
	}
)

func newEngine() *nlu.Engine {
	e := nlu.NewEngine()
	for name, p := range slotPatterns {
		if err := e.RegisterSlot(name, p); err != nil {
			panic(err)
		}
	}
	e.RegisterIntent(intentAddEvent, templates...)
	return e
}

// bands are the default ranges for fuzzy times of day, in minutes.
var bands = map[string]calendar.Interval{
	"morning":     {Start: 8 * 60, End: 10 * 60},
	"утром":       {Start: 8 * 60, End: 10 * 60},
	"afternoon":   {Start: 12 * 60, End: 15 * 60},
	"днём":        {Start: 12 * 60, End: 15 * 60},
	"днем":        {Start: 12 * 60, End: 15 * 60},
	"evening":     {Start: 18 * 60, End: 20 * 60},
	"вечером":     {Start: 18 * 60, End: 20 * 60},
	"after lunch": {Start: 14 * 60, End: 15 * 60},
	"после обеда": {Start: 14 * 60, End: 15 * 60},
}

var (
	dashes      = strings.NewReplacer("–", "-", "—", "-", "−", "-")
	spacedDash  = regexp.MustCompile(`\s*-\s*`)
	multiEvent  = regexp.MustCompile(`(?i)[,;?]|\d\s*-\s*\d|\d[:.]\d\d|\s(?:and|then|и|потом|затем)\s`)
	clockRegexp = regexp.MustCompile(`(?i)^(\d{1,2})(?:[:.](\d{2}))?\s*(?:([ap])\.?m\.?)?$`)
	ordinal     = regexp.MustCompile(`(?i)^(\d{1,2})(?:st|nd|rd|th)?$`)
	leadingPrep = regexp.MustCompile(`(?i)^(?:on|at|в|во)\s+|\s+(?:on|at|в|во)$`)
)

// A title that still names a day or an hour holds a second event.
var (
	dayInTitle = regexp.MustCompile(`(?i)(?:^|\s)(?:` + weekdayPattern + `|` + relativePattern + `|` + datePattern + `)(?:\s|$)`)
	bareNumber = regexp.MustCompile(`(?:^|\s)\d{1,2}(?:\s|$)`)
)

// Requests to drop or move something are edits, not new events.
var (
	negations = map[string]bool{"not": true, "no": true, "never": true, "dont": true, "не": true, "нет": true, "никогда": true}
	editStems = []string{"cancel", "delet", "remov", "reschedul", "postpon", "move", "shift",
		"отмен", "удал", "перенес", "перенёс", "перенест", "перенос", "убер", "убра", "сдвин"}
)

var importantWords = []string{"important", "urgent", "priority", "важн", "срочн", "приоритет"}

// QuickEvent short-circuits the reasoning call for unambiguous single-event
// requests that do not touch any existing event.
type QuickEvent struct{}

func (QuickEvent) ID() string    { return "quick_event" }
func (QuickEvent) Priority() int { return 110 }

func (QuickEvent) ShouldLoad(_ context.Context, e *mw.Event) bool {
	if e == nil || e.Name != mw.EventBeforeLLMRequest || e.Context == nil {
		return false
	}
	week, _ := e.Context[interpreter.ContextKeyWeek].([]calendar.WeekDay)
	return len(week) == 7
}

func (QuickEvent) OnEvent(_ context.Context, e *mw.Event) (mw.Decision, error) {
	if e == nil || e.Name != mw.EventBeforeLLMRequest {
		return mw.Decision{}, nil
	}
	week, _ := e.Context[interpreter.ContextKeyWeek].([]calendar.WeekDay)
	if len(week) != 7 {
		return mw.Decision{}, nil
	}
	existing, _ := e.Context[interpreter.ContextKeyExisting].([]interpreter.ExistingEvent)
	now, _ := e.Context[interpreter.ContextKeyNow].(time.Time)
	if now.IsZero() {
		now = time.Now()
	}
	lang, _ := e.Context[interpreter.ContextKeyLanguage].(string)
	if lang == "" {
		lang = interpreter.DetectLanguage(e.UserText, "")
	}

	draft, note, ok := Match(e.UserText, week, now, lang)
	if !ok {
		return mw.Decision{}, nil
	}
	for _, ex := range existing {
		if ex.Day == draft.Day && ex.Interval().Overlaps(draft.Interval()) {
			appLog.Debug("quick_event: overlaps existing event, deferring", "title", draft.Title, "existing", ex.Title)
			return mw.Decision{}, nil
		}
	}

	msg := confirmation(lang, draft)
	if note != "" {
		msg += " " + note
	}
	b, err := json.Marshal(map[string]any{
		"events":  []interpreter.Draft{draft},
		"message": msg,
	})
	if err != nil {
		return mw.Decision{}, err
	}
	s := string(b)
	return mw.Decision{
		Cancel:      true,
		ReplaceText: &s,
		Reason:      "quick_event: unambiguous single event; handled locally",
	}, nil
}

// Match extracts one event from utterance. note is set when the date lies
// outside the viewed week.
func Match(utterance string, week []calendar.WeekDay, now time.Time, lang string) (draft interpreter.Draft, note string, ok bool) {
	text := normalize(utterance)
	if text == "" || mentions(text, importantWords) || editsOrNegates(text) {
		return draft, "", false
	}
	res := engine.Parse(text)
	if res.Intent != intentAddEvent || res.Confidence < minConfidence {
		return draft, "", false
	}

	title := cleanTitle(res.Slots["title"])
	if title == "" || multiEvent.MatchString(title) || dayInTitle.MatchString(title) || bareNumber.MatchString(title) {
		return draft, "", false
	}

	date, inWeek, ok := resolveDay(res.Slots["day"], week, now)
	if !ok {
		return draft, "", false
	}

	var iv calendar.Interval
	switch {
	case res.Slots["band"] != "":
		iv, ok = bands[strings.ToLower(res.Slots["band"])]
	case res.Slots["end"] != "":
		iv, ok = parseRange(res.Slots["start"], res.Slots["end"])
	default:
		var start int
		start, ok = parseStart(res.Slots["start"])
		iv = calendar.Interval{Start: start, End: start + defaultMinutes}
	}
	if !ok {
		return draft, "", false
	}

	draft = interpreter.Draft{
		Day:         calendar.DayIndex(date),
		StartTime:   iv.Start / 60,
		StartMinute: calendar.RoundMinute(iv.Start % 60),
		EndTime:     iv.End / 60,
		EndMinute:   calendar.RoundMinute(iv.End % 60),
		Title:       title,
	}
	if draft.EndTime == 24 {
		draft.EndMinute = 0
	}
	if calendar.ValidateSlot(draft.Day, draft.StartTime, draft.StartMinute, draft.EndTime, draft.EndMinute) != nil {
		return interpreter.Draft{}, "", false
	}
	if !inWeek {
		note = interpreter.OutsideWeekNote(lang, calendar.DayLabel(date, lang), calendar.WeekdayName(draft.Day, lang))
	}
	return draft, note, true
}

func normalize(s string) string {
	s = dashes.Replace(strings.TrimSpace(s))
	s = spacedDash.ReplaceAllString(s, "-")
	s = strings.TrimRight(s, ".! ")
	fields := strings.Fields(s)
	for i, f := range fields {
		if strings.EqualFold(f, "во") {
			fields[i] = "в"
		}
	}
	return strings.Join(fields, " ")
}

func editsOrNegates(text string) bool {
	text = strings.ReplaceAll(strings.ToLower(text), "’", "'")
	for _, w := range strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	}) {
		if strings.HasSuffix(w, "n't") || negations[strings.ReplaceAll(w, "'", "")] {
			return true
		}
		for _, stem := range editStems {
			if strings.HasPrefix(w, stem) {
				return true
			}
		}
	}
	return false
}

func mentions(s string, words []string) bool {
	s = strings.ToLower(s)
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func cleanTitle(s string) string {
	s = strings.TrimSpace(leadingPrep.ReplaceAllString(strings.TrimSpace(s), ""))
	s = strings.Trim(s, `"'«» `)
	if s == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(s)
	return calendar.Truncate(string(unicode.ToUpper(r))+s[size:], 100)
}

// resolveDay maps a day expression to a date and reports whether that date
// belongs to the viewed week.
func resolveDay(expr string, week []calendar.WeekDay, now time.Time) (time.Time, bool, bool) {
	expr = strings.ToLower(strings.TrimSpace(expr))
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var date time.Time
	switch expr {
	case "today", "сегодня":
		date = today
	case "tomorrow", "завтра":
		date = today.AddDate(0, 0, 1)
	case "day after tomorrow", "послезавтра":
		date = today.AddDate(0, 0, 2)
	default:
		if idx, ok := calendar.ParseWeekday(expr); ok {
			return week[idx].Date, true, true
		}
		d, ok := parseDate(expr, now)
		if !ok {
			return time.Time{}, false, false
		}
		date = d
	}
	first := week[0].Date
	start := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, date.Location())
	inWeek := !date.Before(start) && date.Before(start.AddDate(0, 0, 7))
	return date, inWeek, true
}

// parseDate reads "22 october", "october 22nd" or "22 октября" in now's year.
func parseDate(expr string, now time.Time) (time.Time, bool) {
	fields := strings.Fields(expr)
	if len(fields) != 2 {
		return time.Time{}, false
	}
	numPart, monthPart := fields[0], fields[1]
	if !ordinal.MatchString(numPart) {
		numPart, monthPart = monthPart, numPart
	}
	m := ordinal.FindStringSubmatch(numPart)
	if m == nil {
		return time.Time{}, false
	}
	n, _ := strconv.Atoi(m[1])
	month, ok := calendar.ParseMonth(monthPart)
	if !ok || n < 1 {
		return time.Time{}, false
	}
	d := time.Date(now.Year(), month, n, 0, 0, 0, 0, now.Location())
	if d.Day() != n {
		return time.Time{}, false
	}
	return d, true
}

type clock struct {
	minutes  int
	meridiem bool
}

func parseClock(s string) (clock, bool) {
	m := clockRegexp.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return clock{}, false
	}
	h, _ := strconv.Atoi(m[1])
	mins := 0
	if m[2] != "" {
		mins, _ = strconv.Atoi(m[2])
	}
	if h > 24 || mins > 59 || (h == 24 && mins > 0) {
		return clock{}, false
	}
	switch strings.ToLower(m[3]) {
	case "p":
		if h > 12 {
			return clock{}, false
		}
		if h < 12 {
			h += 12
		}
	case "a":
		if h > 12 {
			return clock{}, false
		}
		if h == 12 {
			h = 0
		}
	}
	return clock{minutes: h*60 + mins, meridiem: m[3] != ""}, true
}

// plausible rejects small bare hours like "at 3", which could mean either
// half of the day.
func plausible(c clock) bool {
	return c.meridiem || c.minutes >= 7*60
}

func parseStart(s string) (int, bool) {
	c, ok := parseClock(s)
	if !ok || !plausible(c) || c.minutes >= 24*60 {
		return 0, false
	}
	return c.minutes, true
}

func parseRange(start, end string) (calendar.Interval, bool) {
	a, ok := parseClock(start)
	if !ok {
		return calendar.Interval{}, false
	}
	b, ok := parseClock(end)
	if !ok {
		return calendar.Interval{}, false
	}
	// "1-3pm": the suffix on the end applies to the start too.
	if !a.meridiem && b.meridiem && a.minutes < 12*60 && a.minutes+12*60 <= b.minutes {
		a.minutes += 12 * 60
		a.meridiem = true
	}
	if !plausible(a) || b.minutes <= a.minutes {
		return calendar.Interval{}, false
	}
	return calendar.Interval{Start: a.minutes, End: b.minutes}, true
}

func confirmation(lang string, d interpreter.Draft) string {
	span := d.Interval().String()
	if lang == "en" {
		return fmt.Sprintf("Added %s on %s, %s.", d.Title, calendar.WeekdayName(d.Day, "en"), span)
	}
	return fmt.Sprintf("Добавлено «%s»: %s, %s.", d.Title, strings.ToLower(calendar.WeekdayName(d.Day, "ru")), span)
}
