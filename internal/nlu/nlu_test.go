package nlu

import (
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	e := NewEngine()

	e.RegisterIntent("set_alarm",
		"set alarm for {time}",
		"wake me up at {time}",
		"remind me to {action} at {time}",
	)

	e.RegisterIntent("get_weather",
		"weather in {location}",
		"what is the weather in {location}",
	)

	e.RegisterIntent("control_device",
		"turn {state} the {device}",
		"turn {state} {device}",
	)

	tests := []struct {
		input          string
		expectedIntent string
		expectedSlots  map[string]string
	}{
		{
			input:          "set alarm for 8am",
			expectedIntent: "set_alarm",
			expectedSlots:  map[string]string{"time": "8am"},
		},
		{
			input:          "wake me up at 7:30",
			expectedIntent: "set_alarm",
			expectedSlots:  map[string]string{"time": "7:30"},
		},
		{
			input:          "weather in Paris",
			expectedIntent: "get_weather",
			expectedSlots:  map[string]string{"location": "Paris"},
		},
		{
			input:          "what is the weather in London",
			expectedIntent: "get_weather",
			expectedSlots:  map[string]string{"location": "London"},
		},
		{
			input:          "turn on the lights",
			expectedIntent: "control_device",
			expectedSlots:  map[string]string{"state": "on", "device": "lights"},
		},
		{
			input:          "turn off kitchen fan",
			expectedIntent: "control_device",
			expectedSlots:  map[string]string{"state": "off", "device": "kitchen fan"},
		},
		{
			input:          "what is the weather",
			expectedIntent: "",
			expectedSlots:  nil,
		},
	}

	for _, tt := range tests {
		result := e.Parse(tt.input)
		if result.Intent != tt.expectedIntent {
			t.Errorf("Parse(%q): expected intent %q, got %q", tt.input, tt.expectedIntent, result.Intent)
		}
		if result.Slots != nil && !reflect.DeepEqual(result.Slots, tt.expectedSlots) {
			t.Errorf("Parse(%q): expected slots %v, got %v", tt.input, tt.expectedSlots, result.Slots)
		}
	}
}

func TestTypedSlots(t *testing.T) {
	e := NewEngine()
	if err := e.RegisterSlot("time", `\d{1,2}(?::\d{2})?`); err != nil {
		t.Fatalf("register slot: %v", err)
	}
	if err := e.RegisterSlot("day", `monday|tuesday|понедельник`); err != nil {
		t.Fatalf("register slot: %v", err)
	}
	e.RegisterIntent("add_event",
		"{title} {day} {start}-{end}",
		"{title} в {day} в {start}",
	)
	e.RegisterSlot("start", `\d{1,2}(?::\d{2})?`)

	r := e.Parse("toilet time  Monday 13:00-14:00")
	if r.Intent != "add_event" {
		t.Fatalf("expected add_event, got %+v", r)
	}
	want := map[string]string{"title": "toilet time", "day": "Monday", "start": "13:00", "end": "14:00"}
	if !reflect.DeepEqual(r.Slots, want) {
		t.Fatalf("slots = %v, want %v", r.Slots, want)
	}
	// start/end were free when the intent was compiled.
	if r.Confidence >= 1 {
		t.Fatalf("free slots should lower confidence, got %v", r.Confidence)
	}

	r = e.Parse("встреча в Понедельник в 15")
	if r.Intent != "add_event" || r.Slots["day"] != "Понедельник" || r.Slots["start"] != "15" {
		t.Fatalf("unexpected ru parse %+v", r)
	}

	if r := e.Parse("toilet time someday 13:00-14:00"); r.Intent != "" {
		t.Fatalf("typed day slot should reject someday, got %+v", r)
	}
}

func TestRegisterSlotRejectsBadPattern(t *testing.T) {
	if err := NewEngine().RegisterSlot("x", `(`); err == nil {
		t.Fatalf("expected compile error")
	}
}

func TestEnginesDoNotShareSlots(t *testing.T) {
	typed := NewEngine()
	if err := typed.RegisterSlot("day", `monday`); err != nil {
		t.Fatalf("register slot: %v", err)
	}
	typed.RegisterIntent("add_event", "{title} {day} {start}-{end}")

	free := NewEngine()
	free.RegisterIntent("add_event", "{title} {day} {start}-{end}")

	if r := typed.Parse("gym someday 1-2"); r.Intent != "" {
		t.Fatalf("typed engine should reject someday, got %+v", r)
	}
	if r := free.Parse("gym someday 1-2"); r.Intent != "add_event" || r.Slots["day"] != "someday" {
		t.Fatalf("free engine picked up another engine's slot: %+v", r)
	}
}
