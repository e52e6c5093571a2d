package localcache

import (
	"context"
	"testing"
	"time"

	"planos/internal/calendar"
	"planos/internal/interpreter"
	mw "planos/internal/middleware"
)

var now = time.Date(2024, 10, 23, 10, 0, 0, 0, time.UTC)

func event(name mw.EventName, existing []interpreter.ExistingEvent, llmText string) *mw.Event {
	return &mw.Event{
		Name:     name,
		UserText: "gym twice this week",
		LLMText:  llmText,
		Context: map[string]any{
			interpreter.ContextKeyWeek:     calendar.WeekDates(now, 0, "en"),
			interpreter.ContextKeyExisting: existing,
			interpreter.ContextKeyLanguage: "en",
			interpreter.ContextKeyNow:      now,
		},
	}
}

func TestLocalCacheReplaysAnswer(t *testing.T) {
	lc := New()
	clock := now
	lc.now = func() time.Time { return clock }
	ctx := context.Background()

	if dec, _ := lc.OnEvent(ctx, event(mw.EventBeforeLLMRequest, nil, "")); dec.Cancel {
		t.Fatal("expected miss on first request")
	}
	if _, err := lc.OnEvent(ctx, event(mw.EventAfterLLMResponse, nil, `{"events":[]}`)); err != nil {
		t.Fatal(err)
	}

	dec, err := lc.OnEvent(ctx, event(mw.EventBeforeLLMRequest, nil, ""))
	if err != nil {
		t.Fatal(err)
	}
	if !dec.Cancel || dec.ReplaceText == nil || *dec.ReplaceText != `{"events":[]}` {
		t.Fatalf("expected hit, got %+v", dec)
	}

	// A changed calendar is a different request.
	busy := []interpreter.ExistingEvent{{Day: 1, StartTime: 9, EndTime: 10, Title: "Lecture"}}
	if dec, _ := lc.OnEvent(ctx, event(mw.EventBeforeLLMRequest, busy, "")); dec.Cancel {
		t.Fatal("expected miss after the week changed")
	}

	clock = clock.Add(6 * time.Minute)
	if dec, _ := lc.OnEvent(ctx, event(mw.EventBeforeLLMRequest, nil, "")); dec.Cancel {
		t.Fatal("expected miss after expiry")
	}
	if len(lc.cache) != 0 {
		t.Fatalf("expired entry not removed: %d left", len(lc.cache))
	}
}

func TestLocalCacheBounded(t *testing.T) {
	lc := New()
	clock := now
	lc.now = func() time.Time { return clock }
	for i := 0; i < maxEntries+10; i++ {
		e := event(mw.EventAfterLLMResponse, nil, "x")
		e.UserText = string(rune('a'+i%26)) + time.Duration(i).String()
		clock = clock.Add(time.Millisecond)
		if _, err := lc.OnEvent(context.Background(), e); err != nil {
			t.Fatal(err)
		}
	}
	if len(lc.cache) > maxEntries {
		t.Fatalf("cache grew to %d", len(lc.cache))
	}
}

func TestLocalCacheNeedsWeek(t *testing.T) {
	if New().ShouldLoad(context.Background(), &mw.Event{Name: mw.EventBeforeLLMRequest, UserText: "hi"}) {
		t.Fatal("should skip events without a week")
	}
}
