package tokenbudget

import (
	"context"
	"testing"

	mw "planos/internal/middleware"
)

func TestBudgetCapsMaxTokens(t *testing.T) {
	cases := []struct {
		name     string
		current  int
		budget   any
		want     int
		override bool
	}{
		{"unset params", 0, 500, 500, true},
		{"larger params", 2000, 1000, 1000, true},
		{"smaller params kept", 300, 1000, 0, false},
		{"float budget", 2000, float64(800), 800, true},
		{"no budget", 2000, nil, 0, false},
	}
	for _, tc := range cases {
		ctx := map[string]any{}
		if tc.budget != nil {
			ctx["token_budget"] = tc.budget
		}
		e := &mw.Event{Name: mw.EventBeforeLLMRequest, Params: &mw.LLMParams{MaxTokens: tc.current}, Context: ctx}
		dec, err := BudgetLimiter{}.OnEvent(context.Background(), e)
		if err != nil {
			t.Fatalf("%s: unexpected err: %v", tc.name, err)
		}
		if (dec.OverrideParams != nil) != tc.override {
			t.Fatalf("%s: override = %v", tc.name, dec.OverrideParams)
		}
		if tc.override && dec.OverrideParams.MaxTokens != tc.want {
			t.Fatalf("%s: MaxTokens = %d, want %d", tc.name, dec.OverrideParams.MaxTokens, tc.want)
		}
	}
}

func TestBudgetIgnoresResponses(t *testing.T) {
	e := &mw.Event{Name: mw.EventAfterLLMResponse, Context: map[string]any{"token_budget": 10}}
	if (BudgetLimiter{}).ShouldLoad(context.Background(), e) {
		t.Fatalf("should not load after the response")
	}
}
