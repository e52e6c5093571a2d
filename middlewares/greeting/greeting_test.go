package greeting

import (
	"context"
	"testing"

	"planos/internal/interpreter"
	mw "planos/internal/middleware"
)

func TestGreetingAnswersLocally(t *testing.T) {
	for _, in := range []string{"Hello!", "hi there", "Привет", "добрый вечер"} {
		dec, err := Greeting{}.OnEvent(context.Background(), &mw.Event{
			Name:     mw.EventBeforeLLMRequest,
			UserText: in,
		})
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if !dec.Cancel || dec.ReplaceText == nil {
			t.Fatalf("%q: expected a local answer", in)
		}
		res := interpreter.Finalize(*dec.ReplaceText, interpreter.Request{Utterance: in}, "en")
		if len(res.Events) != 0 || res.Message == "" {
			t.Fatalf("%q: result = %+v", in, res)
		}
	}
}

func TestGreetingSkipsRequests(t *testing.T) {
	for _, in := range []string{"hello, gym tomorrow at 7", "привет, обед в пятницу"} {
		dec, err := Greeting{}.OnEvent(context.Background(), &mw.Event{
			Name:     mw.EventBeforeLLMRequest,
			UserText: in,
		})
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if dec.Cancel {
			t.Fatalf("%q: should reach the model", in)
		}
	}
}

func TestGreetingDisabledByContext(t *testing.T) {
	e := &mw.Event{Name: mw.EventBeforeLLMRequest, UserText: "hi", Context: map[string]any{"greeting": false}}
	if (Greeting{}).ShouldLoad(context.Background(), e) {
		t.Fatal("greeting=false should skip the middleware")
	}
}
