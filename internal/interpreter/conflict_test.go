package interpreter

import (
	"strings"
	"testing"
	"time"

	"planos/internal/calendar"
)

func draft(day, sh, sm, eh, em int, title string) Draft {
	return Draft{Day: day, StartTime: sh, StartMinute: sm, EndTime: eh, EndMinute: em, Title: title}
}

func TestResolveMovesWhenShrinkTooShort(t *testing.T) {
	drafts := []Draft{
		draft(3, 9, 0, 12, 0, "Важная лекция"),
		draft(3, 9, 30, 11, 0, "Курсовая"),
	}
	out, notes := Resolve(drafts, nil, "лекция и курсовая", "ru")
	if len(out) != 2 || len(notes) != 1 {
		t.Fatalf("expected one adjustment, got %+v %v", out, notes)
	}
	if got := out[1].Interval(); got.Start != 12*60 || got.End != 13*60+30 {
		t.Fatalf("course work should move to 12:00-13:30, got %v", got)
	}
	if !strings.Contains(notes[0], "перенесено") {
		t.Fatalf("expected a move note, got %q", notes[0])
	}
}

func TestResolveAgainstExistingAndDrop(t *testing.T) {
	existing := []ExistingEvent{{Day: 4, StartTime: 6, EndTime: 24, Title: "Trip"}}
	drafts := []Draft{
		draft(4, 10, 0, 11, 0, "Call"),
		draft(5, 10, 0, 11, 0, "Brunch"),
	}
	out, notes := Resolve(drafts, existing, "call friday, brunch saturday", "en")
	if len(out) != 1 || out[0].Title != "Brunch" {
		t.Fatalf("call cannot be placed on a full day, got %+v", out)
	}
	if len(notes) != 1 || !strings.Contains(notes[0], "skipped") {
		t.Fatalf("expected a drop note, got %v", notes)
	}
}

func TestResolveNoConflictIsUntouched(t *testing.T) {
	drafts := []Draft{draft(0, 9, 0, 10, 0, "A"), draft(0, 10, 0, 11, 0, "B")}
	out, notes := Resolve(drafts, nil, "a then b", "en")
	if len(notes) != 0 || out[0] != drafts[0] || out[1] != drafts[1] {
		t.Fatalf("adjacent drafts must not be adjusted: %+v %v", out, notes)
	}
}

func TestImportanceFromClause(t *testing.T) {
	drafts := []Draft{draft(1, 10, 0, 12, 0, "Спорт"), draft(1, 11, 0, 13, 0, "Встреча")}
	got := importance(drafts, "завтра в 10 спорт до 12, но в 11 важная встреча до 13")
	if got[0] || !got[1] {
		t.Fatalf("only the meeting is important, got %v", got)
	}
}

func TestScrubConflictClaims(t *testing.T) {
	drafts := []Draft{draft(0, 13, 0, 14, 0, "Toilet time")}
	existing := []ExistingEvent{{Day: 0, StartTime: 15, EndTime: 17, Title: "Homework"}}

	if got := ScrubConflictClaims("Событие пересекается с домашкой.", drafts, existing); got != "" {
		t.Fatalf("false ru claim should be removed, got %q", got)
	}
	msg := "Added for Monday."
	if got := ScrubConflictClaims(msg, drafts, existing); got != msg {
		t.Fatalf("neutral message changed: %q", got)
	}
	overlapping := []Draft{draft(0, 16, 0, 18, 0, "Gym")}
	claim := "Gym overlaps Homework."
	if got := ScrubConflictClaims(claim, overlapping, existing); got != claim {
		t.Fatalf("true claim must stay, got %q", got)
	}
}

func TestResolveNeverMovesIntoTheNight(t *testing.T) {
	existing := []ExistingEvent{{Day: 0, StartTime: 6, EndTime: 22, Title: "Work"}}
	drafts := []Draft{draft(0, 22, 0, 24, 0, "Exam"), draft(0, 21, 0, 23, 0, "Gym")}
	out, notes := Resolve(drafts, existing, "exam and gym", "en")
	if len(out) != 1 || out[0].Title != "Exam" {
		t.Fatalf("gym has no daytime slot and should be dropped, got %+v", out)
	}
	if len(notes) != 1 || !strings.Contains(notes[0], "skipped") {
		t.Fatalf("expected a dropped note, got %v", notes)
	}
}

func TestScrubIgnoresEdgeWithExistingEvent(t *testing.T) {
	existing := []ExistingEvent{{Day: 0, StartTime: 14, EndTime: 16, Title: "Homework"}}
	single := []Draft{draft(0, 13, 0, 14, 0, "Call")}
	if got := ScrubConflictClaims("Added Call. It conflicts with Homework.", single, existing); got != "Added Call." {
		t.Fatalf("edge with an existing event is not a conflict, got %q", got)
	}
	pair := []Draft{draft(0, 10, 0, 11, 0, "Sport"), draft(0, 11, 0, 13, 0, "Meeting")}
	claim := "Sport was shortened because it overlapped Meeting."
	if got := ScrubConflictClaims(claim, pair, nil); got != claim {
		t.Fatalf("shrunk pair keeps its explanation, got %q", got)
	}
}

func TestDetectLanguage(t *testing.T) {
	cases := []struct{ in, fallback, want string }{
		{"встреча в понедельник", "en", "ru"},
		{"meeting on monday", "ru", "en"},
		{"13:00-14:00", "en", "en"},
		{"13:00-14:00", "", "ru"},
		{"zoom встреча завтра", "en", "ru"},
	}
	for _, tc := range cases {
		if got := DetectLanguage(tc.in, tc.fallback); got != tc.want {
			t.Fatalf("DetectLanguage(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestBuildPromptNamesOnlyKnownLanguages(t *testing.T) {
	now := time.Date(2024, 10, 23, 8, 0, 0, 0, time.UTC)
	cases := []struct{ utterance, want, reject string }{
		{"Zahnarzttermin am Montag von 10 bis 11 Uhr", "same language as the request", "written in English"},
		{"réunion lundi de 10 à 11", "same language as the request", "written in English"},
		{"dentist on monday 10-11", "written in English", "same language as the request"},
	}
	for _, tc := range cases {
		lang := DetectLanguage(tc.utterance, "ru")
		prompt := BuildPrompt(Request{Utterance: tc.utterance, Week: calendar.WeekDates(now, 0, lang), Now: now}, lang)
		if !strings.Contains(prompt, tc.want) || strings.Contains(prompt, tc.reject) {
			t.Fatalf("%q: unexpected language line in\n%s", tc.utterance, prompt)
		}
	}
}

func TestParseResponseVariants(t *testing.T) {
	p, err := ParseResponse(`Sure! {"events":[{"day":0,"startTime":9.0,"endTime":"10:00","title":"A"}],"message":null} Hope it helps.`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Drafts) != 1 || p.Drafts[0].EndTime != 10 || p.Message != "" {
		t.Fatalf("unexpected parse %+v", p)
	}
	p, err = ParseResponse(`{"events":[{"day":true,"startTime":1,"endTime":2}],"message":"x"}`)
	if err != nil || p.Skipped != 1 || p.Message != "x" {
		t.Fatalf("undecodable entry should be skipped: %+v %v", p, err)
	}
}

func TestBuildPromptListsWeek(t *testing.T) {
	now := time.Date(2024, 10, 23, 8, 0, 0, 0, time.UTC)
	req := Request{Week: calendar.WeekDates(now, 1, "ru"), Now: now}
	prompt := BuildPrompt(req, "ru")
	if !strings.Contains(prompt, "- 0 = Monday 2024-10-28") || !strings.Contains(prompt, "Russian") {
		t.Fatalf("unexpected prompt:\n%s", prompt)
	}
	if !strings.Contains(prompt, "TODAY: 2024-10-23, Wednesday") {
		t.Fatalf("today line missing:\n%s", prompt)
	}
}
