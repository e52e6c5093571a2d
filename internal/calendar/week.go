package calendar

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

// WeekDay is one column of a viewed week.
type WeekDay struct {
	Day   int       `json:"day"`
	Date  time.Time `json:"date"`
	Label string    `json:"label"`
}

var (
	weekdayShort = map[string][7]string{
		"en": {"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"},
		"ru": {"Пн", "Вт", "Ср", "Чт", "Пт", "Сб", "Вс"},
	}
	weekdayLong = map[string][7]string{
		"en": {"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"},
		"ru": {"Понедельник", "Вторник", "Среда", "Четверг", "Пятница", "Суббота", "Воскресенье"},
	}
	monthShort = map[string][12]string{
		"en": {"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
		"ru": {"янв", "фев", "мар", "апр", "мая", "июн", "июл", "авг", "сен", "окт", "ноя", "дек"},
	}
)

// Palette is the swatch set offered for events.
var Palette = []string{
	"#2563eb", "#059669", "#dc2626", "#ea580c",
	"#7c3aed", "#0891b2", "#ca8a04", "#be123c",
}

func RandomColor() string {
	return Palette[rand.IntN(len(Palette))]
}

func lang(l string) string {
	if l == "en" {
		return "en"
	}
	return "ru"
}

// DayIndex maps t to 0 for Monday through 6 for Sunday.
func DayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// WeekStart returns midnight of the Monday offset weeks away from now's week.
func WeekStart(now time.Time, offset int) time.Time {
	d := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return d.AddDate(0, 0, -DayIndex(now)+7*offset)
}

// WeekDates lists the seven days of the week at offset from now.
func WeekDates(now time.Time, offset int, language string) []WeekDay {
	start := WeekStart(now, offset)
	out := make([]WeekDay, 7)
	for i := range out {
		d := start.AddDate(0, 0, i)
		out[i] = WeekDay{Day: i, Date: d, Label: DayLabel(d, language)}
	}
	return out
}

// WeekOffsetOf returns how many weeks date lies from now's week.
func WeekOffsetOf(now, date time.Time) int {
	a := WeekStart(now, 0)
	b := WeekStart(date.In(now.Location()), 0)
	days := int(b.Sub(a).Round(24*time.Hour) / (24 * time.Hour))
	if days >= 0 {
		return days / 7
	}
	return -((-days + 6) / 7)
}

// DayLabel renders "Mon 22 Oct" or "Пн 22 окт".
func DayLabel(d time.Time, language string) string {
	l := lang(language)
	return weekdayShort[l][DayIndex(d)] + " " + strconv.Itoa(d.Day()) + " " + monthShort[l][d.Month()-1]
}

func WeekdayName(day int, language string) string {
	if day < 0 || day > 6 {
		return ""
	}
	return weekdayLong[lang(language)][day]
}

func WeekdayShort(day int, language string) string {
	if day < 0 || day > 6 {
		return ""
	}
	return weekdayShort[lang(language)][day]
}

// dayStems covers en/ru weekday names with their common inflections.
var dayStems = [7][]string{
	{"monday", "mon", "понедельник", "пн"},
	{"tuesday", "tue", "tues", "вторник", "вт"},
	{"wednesday", "wed", "сред", "ср"},
	{"thursday", "thu", "thur", "thurs", "четверг", "чт"},
	{"friday", "fri", "пятниц", "пт"},
	{"saturday", "sat", "суббот", "сб"},
	{"sunday", "sun", "воскресен", "вс"},
}

// ParseWeekday recognises a weekday name in English or Russian.
func ParseWeekday(s string) (int, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}
	for day, stems := range dayStems {
		for _, stem := range stems {
			if len([]rune(stem)) <= 3 {
				if s == stem {
					return day, true
				}
				continue
			}
			if strings.HasPrefix(s, stem) {
				return day, true
			}
		}
	}
	return 0, false
}

var monthStems = [12][]string{
	{"january", "jan", "январ"},
	{"february", "feb", "феврал"},
	{"march", "mar", "март"},
	{"april", "apr", "апрел"},
	{"may", "май", "мая"},
	{"june", "jun", "июнь", "июня"},
	{"july", "jul", "июль", "июля"},
	{"august", "aug", "август"},
	{"september", "sep", "sept", "сентябр"},
	{"october", "oct", "октябр"},
	{"november", "nov", "ноябр"},
	{"december", "dec", "декабр"},
}

// ParseMonth recognises a month name in English or Russian (any case form).
func ParseMonth(s string) (time.Month, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, stems := range monthStems {
		for _, stem := range stems {
			if len([]rune(stem)) <= 3 {
				if s == stem {
					return time.Month(i + 1), true
				}
				continue
			}
			if strings.HasPrefix(s, stem) {
				return time.Month(i + 1), true
			}
		}
	}
	return 0, false
}
