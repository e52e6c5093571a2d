package quickevent

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"planos/internal/calendar"
	"planos/internal/chat"
	"planos/internal/interpreter"
	mw "planos/internal/middleware"
)

// Wednesday of the week starting Monday 21 Oct 2024.
var now = time.Date(2024, 10, 23, 10, 0, 0, 0, time.UTC)

func week() []calendar.WeekDay { return calendar.WeekDates(now, 0, "en") }

func TestMatch(t *testing.T) {
	cases := []struct {
		in         string
		lang       string
		day        int
		start, end string
		title      string
	}{
		{"Toilet time monday 13:00 - 14:00", "en", 0, "13:00", "14:00", "Toilet time"},
		{"обед в пятницу в 13", "ru", 4, "13:00", "14:00", "Обед"},
		{"dentist tomorrow 9-10", "en", 3, "09:00", "10:00", "Dentist"},
		{"gym on saturday in the evening", "en", 5, "18:00", "20:00", "Gym"},
		{"call friday 1-3pm", "en", 4, "13:00", "15:00", "Call"},
		{"во вторник созвон с 10:10 до 11", "ru", 1, "10:15", "11:00", "Созвон"},
		{"прогулка в воскресенье утром", "ru", 6, "08:00", "10:00", "Прогулка"},
	}
	for _, tc := range cases {
		d, note, ok := Match(tc.in, week(), now, tc.lang)
		if !ok {
			t.Fatalf("%q: expected a match", tc.in)
		}
		if note != "" {
			t.Fatalf("%q: unexpected note %q", tc.in, note)
		}
		iv := d.Interval()
		if d.Day != tc.day || calendar.FormatClock(iv.Start) != tc.start || calendar.FormatClock(iv.End) != tc.end || d.Title != tc.title {
			t.Fatalf("%q: got day=%d %s %q", tc.in, d.Day, iv, d.Title)
		}
	}
}

func TestMatchOutsideViewedWeek(t *testing.T) {
	d, note, ok := Match("doctor 4 november 9:20-10", week(), now, "en")
	if !ok {
		t.Fatalf("expected a match")
	}
	if d.Day != 0 || d.StartTime != 9 || d.StartMinute != 15 {
		t.Fatalf("unexpected draft %+v", d)
	}
	if !strings.Contains(note, "Mon 4 Nov") || !strings.Contains(note, "Monday") {
		t.Fatalf("expected an outside-week note, got %q", note)
	}
}

func TestMatchLeavesHardCasesToModel(t *testing.T) {
	for _, in := range []string{
		"sport 10-12, important meeting 11-13 tomorrow",
		"meeting monday at 3",
		"plan my life",
		"встреча завтра с 14 до 12",
		"important exam friday 9-12",
		"lunch 30 february 13-14",
		"call mom monday 10 gym tuesday 14-16",
		"встреча понедельник 10 спорт вторник 14-16",
		"dinner with anna friday tomorrow 19-20",
		"cancel meeting monday 10-11",
		"don't schedule anything monday 10-12",
		"Meeting not on monday at 10",
		"move gym to friday 14-16",
		"отмени встречу в понедельник в 10",
		"перенеси обед в пятницу в 13",
		"не ставь ничего на понедельник 10-12",
	} {
		if _, _, ok := Match(in, week(), now, "en"); ok {
			t.Fatalf("%q: should be left to the model", in)
		}
	}
}

func event(text string, existing ...interpreter.ExistingEvent) *mw.Event {
	return &mw.Event{
		Name:     mw.EventBeforeLLMRequest,
		UserText: text,
		Params:   &mw.LLMParams{},
		Context: map[string]any{
			interpreter.ContextKeyWeek:     week(),
			interpreter.ContextKeyExisting: existing,
			interpreter.ContextKeyLanguage: "en",
			interpreter.ContextKeyNow:      now,
		},
	}
}

func TestOnEventAnswersLocally(t *testing.T) {
	dec, err := QuickEvent{}.OnEvent(context.Background(), event("Toilet time monday 13:00-14:00"))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !dec.Cancel || dec.ReplaceText == nil {
		t.Fatalf("expected cancel + ReplaceText")
	}
	var out struct {
		Events  []interpreter.Draft `json:"events"`
		Message string             `json:"message"`
	}
	if err := json.Unmarshal([]byte(*dec.ReplaceText), &out); err != nil {
		t.Fatalf("reply is not JSON: %v", err)
	}
	if len(out.Events) != 1 || out.Events[0].Title != "Toilet time" || !strings.Contains(out.Message, "Monday") {
		t.Fatalf("unexpected reply %+v", out)
	}
}

func TestOnEventDefersOnOverlap(t *testing.T) {
	homework := interpreter.ExistingEvent{Day: 0, StartTime: 13, StartMinute: 30, EndTime: 15, Title: "Homework"}
	dec, err := QuickEvent{}.OnEvent(context.Background(), event("Toilet time monday 13:00-14:00", homework))
	if err != nil || dec.Cancel {
		t.Fatalf("overlap must be left to the model: %+v %v", dec, err)
	}
}

func TestShouldLoadNeedsWeek(t *testing.T) {
	e := &mw.Event{Name: mw.EventBeforeLLMRequest, UserText: "gym monday 9-10"}
	if (QuickEvent{}).ShouldLoad(context.Background(), e) {
		t.Fatalf("no week in context, should not load")
	}
	if !(QuickEvent{}).ShouldLoad(context.Background(), event("gym monday 9-10")) {
		t.Fatalf("should load with a week in context")
	}
}

func TestInterpreterUsesFastPath(t *testing.T) {
	adapter := chat.AdapterFunc(func(context.Context, []chat.Message, *mw.LLMParams) (string, error) {
		t.Fatalf("model must not be called")
		return "", nil
	})
	svc := chat.NewService(adapter, chat.WithMiddlewareChain(mw.NewChain(QuickEvent{})))
	res, err := interpreter.New(svc).Interpret(context.Background(), interpreter.Request{
		Utterance: "Toilet time monday 13:00 - 14:00",
		Week:      week(),
		Language:  "en",
		Now:       now,
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.Source != "quick_event" || len(res.Events) != 1 || res.Events[0].StartTime != 13 {
		t.Fatalf("unexpected result %+v", res)
	}
}
