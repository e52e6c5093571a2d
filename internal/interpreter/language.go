package interpreter

import (
	"fmt"
	"strings"
	"unicode"
)

// DetectLanguage returns "ru" when Cyrillic letters dominate, "en" when Latin
// letters do, and fallback for text without letters.
func DetectLanguage(text, fallback string) string {
	var cyr, lat int
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Cyrillic, r):
			cyr++
		case unicode.Is(unicode.Latin, r):
			lat++
		}
	}
	switch {
	case cyr == 0 && lat == 0:
		if fallback == "en" {
			return "en"
		}
		return "ru"
	case cyr >= lat:
		return "ru"
	default:
		return "en"
	}
}

// Latin text is only called English when it uses some English words.
var englishWords = map[string]bool{
	"a": true, "an": true, "the": true, "at": true, "on": true, "in": true, "from": true, "to": true,
	"and": true, "with": true, "for": true, "my": true, "next": true, "today": true, "tomorrow": true,
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true, "friday": true,
	"saturday": true, "sunday": true, "morning": true, "afternoon": true, "evening": true,
	"meeting": true, "call": true, "lunch": true, "dinner": true,
}

// promptLanguage names the language of text for the model, or returns ""
// when the text is neither clearly Russian nor clearly English.
func promptLanguage(text, lang string) string {
	if lang == "ru" {
		return "Russian"
	}
	english := false
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool { return !unicode.IsLetter(r) }) {
		for _, r := range w {
			if r > unicode.MaxASCII {
				return ""
			}
		}
		english = english || englishWords[w]
	}
	if english {
		return "English"
	}
	return ""
}

type msgKey int

const (
	msgAmbiguous msgKey = iota
	msgMalformed
	msgUnavailable
	msgShortened
	msgMoved
	msgDropped
	msgOverlapsExisting
	msgOutsideWeek
)

var messages = map[string]map[msgKey]string{
	"en": {
		msgAmbiguous:        "The request is too ambiguous. Please give a specific time for each event.",
		msgMalformed:        "Could not understand the assistant's answer. Please rephrase the request or be more specific.",
		msgUnavailable:      "The AI assistant is unavailable right now. Check the API key in Settings and try again.",
		msgShortened:        "%s was shortened to %s so it no longer overlaps %s.",
		msgMoved:            "%s was moved to %s because it overlapped %s.",
		msgDropped:          "%s could not be placed without overlapping %s and was skipped.",
		msgOverlapsExisting: "Note: %s overlaps %s, which is already in your calendar.",
		msgOutsideWeek:      "%s is not in the week you are viewing; the event was added on %s.",
	},
	"ru": {
		msgAmbiguous:        "Запрос слишком неоднозначен. Попробуйте указать конкретное время для каждого события.",
		msgMalformed:        "Не удалось разобрать ответ ассистента. Переформулируйте запрос или уточните время.",
		msgUnavailable:      "AI-ассистент сейчас недоступен. Проверьте API-ключ в настройках и попробуйте снова.",
		msgShortened:        "«%s» сокращено до %s, чтобы не пересекаться с «%s».",
		msgMoved:            "«%s» перенесено на %s, так как пересекалось с «%s».",
		msgDropped:          "«%s» не удалось разместить без пересечения с «%s», событие пропущено.",
		msgOverlapsExisting: "Обратите внимание: «%s» пересекается с уже запланированным «%s».",
		msgOutsideWeek:      "%s не входит в просматриваемую неделю; событие добавлено на %s.",
	},
}

func tr(lang string, key msgKey, args ...any) string {
	tbl, ok := messages[lang]
	if !ok {
		tbl = messages["ru"]
	}
	if len(args) == 0 {
		return tbl[key]
	}
	return fmt.Sprintf(tbl[key], args...)
}

// OutsideWeekNote is shared with the deterministic fast path.
func OutsideWeekNote(lang, dateLabel, dayName string) string {
	return tr(lang, msgOutsideWeek, dateLabel, dayName)
}

// AmbiguousMessage is the reply used when nothing could be extracted.
func AmbiguousMessage(lang string) string { return tr(lang, msgAmbiguous) }

// UnavailableMessage is the user-facing text for ErrServiceUnavailable.
func UnavailableMessage(lang string) string { return tr(lang, msgUnavailable) }
