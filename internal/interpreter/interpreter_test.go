package interpreter

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"planos/internal/calendar"
	"planos/internal/chat"
)

type cannedCompleter struct {
	text string
	err  error
	got  chat.Request
}

func (c *cannedCompleter) Complete(_ context.Context, req chat.Request) (chat.Completion, error) {
	c.got = req
	if c.err != nil {
		return chat.Completion{}, c.err
	}
	return chat.Completion{Text: c.text}, nil
}

// Monday 21 Oct 2024.
var monday = time.Date(2024, 10, 21, 9, 0, 0, 0, time.UTC)

func request(utterance string, existing ...ExistingEvent) Request {
	return Request{
		Utterance: utterance,
		Week:      calendar.WeekDates(monday, 0, "en"),
		Existing:  existing,
		Language:  "ru",
		Now:       monday,
	}
}

func TestInterpretMinuteRounding(t *testing.T) {
	c := &cannedCompleter{text: `{"events":[{"day":2,"startTime":13,"startMinute":20,"endTime":14,"endMinute":50,"title":"Lecture"}]}`}
	res, err := New(c).Interpret(context.Background(), request("lecture wednesday 13:20 to 14:50"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Events) != 1 {
		t.Fatalf("expected 1 event, got %+v", res)
	}
	e := res.Events[0]
	if e.StartMinute != 15 && e.StartMinute != 30 {
		t.Fatalf("13:20 must round to 15 or 30, got %d", e.StartMinute)
	}
	if e.EndMinute != 45 {
		t.Fatalf("14:50 must round to 45, got %d", e.EndMinute)
	}
}

func TestInterpretNoFalseConflict(t *testing.T) {
	c := &cannedCompleter{text: `{"events":[{"day":0,"startTime":13,"endTime":14,"title":"Toilet time","description":""}],
		"message":"Added toilet time. There is a conflict with Homework time."}`}
	homework := ExistingEvent{Day: 0, StartTime: 15, EndTime: 17, Title: "Homework"}
	res, err := New(c).Interpret(context.Background(), request("toilet time monday 13:00 - 14:00", homework))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Events) != 1 || res.Events[0].StartMinute != 0 || res.Events[0].EndMinute != 0 {
		t.Fatalf("unexpected events %+v", res.Events)
	}
	if strings.Contains(strings.ToLower(res.Message), "conflict") {
		t.Fatalf("message must not mention a conflict: %q", res.Message)
	}
	if res.Message != "Added toilet time." {
		t.Fatalf("other sentences should survive, got %q", res.Message)
	}
	if !strings.Contains(c.got.System, `Mon 15:00-17:00 "Homework"`) {
		t.Fatalf("existing events missing from prompt:\n%s", c.got.System)
	}
	if !strings.Contains(c.got.System, "English") {
		t.Fatalf("prompt should ask for English output")
	}
}

func TestInterpretResolvesRealConflict(t *testing.T) {
	// The model ignored the overlap; the safety net must fix it.
	c := &cannedCompleter{text: "```json\n" + `{"events":[
		{"day":1,"startTime":10,"startMinute":0,"endTime":12,"endMinute":0,"title":"Sport"},
		{"day":1,"startTime":11,"startMinute":0,"endTime":13,"endMinute":0,"title":"Meeting"}]}` + "\n```"}
	res, err := New(c).Interpret(context.Background(), request("tomorrow sport 10:00-12:00, important meeting 11:00-13:00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Events) != 2 {
		t.Fatalf("expected both events kept, got %+v", res.Events)
	}
	if len(Conflicts(res.Events, nil)) != 0 {
		t.Fatalf("events still overlap: %+v", res.Events)
	}
	sport, meeting := res.Events[0], res.Events[1]
	if meeting.StartTime != 11 || meeting.EndTime != 13 {
		t.Fatalf("important meeting must keep its time, got %+v", meeting)
	}
	if sport.StartTime != 10 || sport.EndTime != 11 || sport.EndMinute != 0 {
		t.Fatalf("sport should be shortened to 10:00-11:00, got %+v", sport)
	}
	if !strings.Contains(res.Message, "Sport") || !strings.Contains(res.Message, "10:00-11:00") {
		t.Fatalf("message should describe the adjustment, got %q", res.Message)
	}
}

func TestInterpretKeepsModelResolution(t *testing.T) {
	c := &cannedCompleter{text: `{"events":[
		{"day":1,"startTime":10,"endTime":11,"title":"Спорт","description":"Сокращено"},
		{"day":1,"startTime":11,"endTime":13,"title":"Важная встреча"}],
		"message":"Спорт сокращён до 11:00, чтобы не пересекаться с важной встречей."}`}
	res, err := New(c).Interpret(context.Background(), request("завтра спорт с 10 до 12, но в 11 важная встреча до 13"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Events) != 2 || !strings.Contains(res.Message, "пересекаться") {
		t.Fatalf("model's explanation must be kept: %+v", res)
	}
}

func TestInterpretLegacyShapeAndDefaults(t *testing.T) {
	c := &cannedCompleter{text: `{"day":"wednesday","startTime":"9","endTime":10,"title":"Standup"}`}
	res, err := New(c).Interpret(context.Background(), request("standup wednesday 9-10"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Events) != 1 {
		t.Fatalf("legacy object should yield one event, got %+v", res)
	}
	e := res.Events[0]
	if e.Day != 2 || e.StartTime != 9 || e.StartMinute != 0 || e.EndMinute != 0 || res.Source != "model" {
		t.Fatalf("unexpected event %+v source=%s", e, res.Source)
	}
}

func TestInterpretMalformedIsSoft(t *testing.T) {
	for _, text := range []string{"sorry, I can't", `{"events": "nope"}`, `{"foo": 1}`} {
		c := &cannedCompleter{text: text}
		res, err := New(c).Interpret(context.Background(), request("что-то непонятное"))
		if err != nil {
			t.Fatalf("%q: malformed response must not error, got %v", text, err)
		}
		if len(res.Events) != 0 || res.Message == "" {
			t.Fatalf("%q: expected empty events with a message, got %+v", text, res)
		}
		if !strings.Contains(res.Message, "Не удалось") {
			t.Fatalf("%q: message should be in Russian, got %q", text, res.Message)
		}
	}
}

func TestInterpretDiscardsInvalidEvents(t *testing.T) {
	c := &cannedCompleter{text: `{"events":[
		{"day":0,"startTime":14,"endTime":13,"title":"Backwards"},
		{"day":9,"startTime":10,"endTime":11,"title":"No such day"},
		{"day":0,"startTime":10,"title":"No end"},
		{"day":0,"startTime":10,"endTime":11,"title":"Good"}]}`}
	res, err := New(c).Interpret(context.Background(), request("several things monday"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Events) != 1 || res.Events[0].Title != "Good" {
		t.Fatalf("only the valid event should survive, got %+v", res.Events)
	}
}

func TestInterpretAmbiguous(t *testing.T) {
	c := &cannedCompleter{text: `{"events":[]}`}
	res, err := New(c).Interpret(context.Background(), request("plan my life"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Events) != 0 || !strings.Contains(res.Message, "ambiguous") {
		t.Fatalf("expected ambiguity message, got %+v", res)
	}
}

func TestInterpretServiceUnavailable(t *testing.T) {
	cause := errors.New("401 unauthorized")
	c := &cannedCompleter{err: cause}
	res, err := New(c).Interpret(context.Background(), request("встреча в понедельник в 10"))
	if !errors.Is(err, ErrServiceUnavailable) || !errors.Is(err, cause) {
		t.Fatalf("expected ErrServiceUnavailable wrapping the cause, got %v", err)
	}
	if len(res.Events) != 0 || !strings.Contains(res.Message, "недоступен") {
		t.Fatalf("expected localized unavailable message, got %+v", res)
	}
}

func TestInterpretPassesParamsAndContext(t *testing.T) {
	c := &cannedCompleter{text: `{"events":[]}`}
	_, _ = New(c).Interpret(context.Background(), request("hello"))
	if c.got.Params.MaxTokens != 1000 || c.got.Params.Temperature != 0.5 || !c.got.Params.JSONMode {
		t.Fatalf("unexpected params %+v", c.got.Params)
	}
	if c.got.Context[ContextKeyLanguage] != "en" {
		t.Fatalf("language not published to middlewares: %v", c.got.Context)
	}
	if _, ok := c.got.Context[ContextKeyWeek].([]calendar.WeekDay); !ok {
		t.Fatalf("week not published to middlewares")
	}
}

func TestInterpretEmptyUtterance(t *testing.T) {
	if _, err := New(&cannedCompleter{}).Interpret(context.Background(), Request{Utterance: "  "}); !errors.Is(err, ErrEmptyUtterance) {
		t.Fatalf("expected ErrEmptyUtterance, got %v", err)
	}
}

func TestSingleEventOverlapWithExistingIsNoted(t *testing.T) {
	c := &cannedCompleter{text: `{"events":[{"day":0,"startTime":16,"endTime":18,"title":"Gym"}]}`}
	homework := ExistingEvent{Day: 0, StartTime: 15, EndTime: 17, Title: "Homework"}
	res, _ := New(c).Interpret(context.Background(), request("gym monday 16-18", homework))
	if len(res.Events) != 1 || res.Events[0].StartTime != 16 {
		t.Fatalf("a single requested event keeps its time: %+v", res.Events)
	}
	if !strings.Contains(res.Message, "Homework") {
		t.Fatalf("overlap with existing event should be noted, got %q", res.Message)
	}
}
