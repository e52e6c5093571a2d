package greeting

import (
	"context"
	"encoding/json"
	"strings"
	"unicode"

	"planos/internal/interpreter"
	mw "planos/internal/middleware"
)

func init() {
	mw.Register(Greeting{})
}

// Greeting answers bare salutations ("hi", "привет") with an empty event
// list and a hint, without calling the model.
type Greeting struct{}

func (Greeting) ID() string    { return "greeting" }
func (Greeting) Priority() int { return 120 }

func (Greeting) ShouldLoad(_ context.Context, e *mw.Event) bool {
	if e == nil || e.Context == nil {
		return true
	}
	if v, ok := e.Context["greeting"].(bool); ok {
		return v
	}
	return true
}

func (Greeting) OnEvent(_ context.Context, e *mw.Event) (mw.Decision, error) {
	if e == nil || e.Name != mw.EventBeforeLLMRequest {
		return mw.Decision{}, nil
	}
	user := strings.TrimSpace(e.UserText)
	if !isGreetingOnly(user) {
		return mw.Decision{}, nil
	}

	lang, _ := e.Context[interpreter.ContextKeyLanguage].(string)
	if lang == "" {
		lang = interpreter.DetectLanguage(user, "")
	}
	b, err := json.Marshal(map[string]any{
		"events":  []interpreter.Draft{},
		"message": replies[lang == "en"],
	})
	if err != nil {
		return mw.Decision{}, err
	}
	reply := string(b)
	return mw.Decision{
		Cancel:      true,
		ReplaceText: &reply,
		Reason:      "greeting",
	}, nil
}

var replies = map[bool]string{
	true:  "Hi! Tell me what to plan, for example \"gym on saturday evening\".",
	false: "Привет! Напишите, что запланировать, например «спортзал в субботу вечером».",
}

var greetWords = map[string]struct{}{
	"hi": {}, "hello": {}, "hey": {}, "heya": {}, "howdy": {}, "yo": {},
	"good": {}, "morning": {}, "afternoon": {}, "evening": {}, "greetings": {},
	"привет": {}, "здравствуй": {}, "здравствуйте": {}, "хай": {}, "салют": {},
	"добрый": {}, "доброе": {}, "день": {}, "утро": {}, "вечер": {},
}

func isGreetingOnly(s string) bool {
	s = strings.TrimSpace(stripPunct(s))
	if s == "" {
		return false
	}
	words := strings.Fields(s)
	if len(words) > 4 {
		return false
	}
	for i, w := range words {
		w = strings.ToLower(w)
		if _, ok := greetWords[w]; ok {
			continue
		}
		// "hi there"
		if w == "there" && i == len(words)-1 && i > 0 {
			continue
		}
		return false
	}
	return true
}

func stripPunct(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsPunct(r) && r != '\'' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
