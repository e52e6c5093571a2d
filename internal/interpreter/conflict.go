package interpreter

import (
	"regexp"
	"sort"
	"strings"

	"planos/internal/calendar"
)

// ConflictPair names two overlapping events on the same day. B is an
// existing event when BExisting is set, otherwise an index into the drafts.
type ConflictPair struct {
	A         int
	B         int
	BExisting bool
}

// Conflicts lists every overlapping pair among drafts and between drafts
// and existing events.
func Conflicts(drafts []Draft, existing []ExistingEvent) []ConflictPair {
	var out []ConflictPair
	for i := range drafts {
		for j := i + 1; j < len(drafts); j++ {
			if drafts[i].Day == drafts[j].Day && drafts[i].Interval().Overlaps(drafts[j].Interval()) {
				out = append(out, ConflictPair{A: i, B: j})
			}
		}
		for j, ex := range existing {
			if drafts[i].Day == ex.Day && drafts[i].Interval().Overlaps(ex.Interval()) {
				out = append(out, ConflictPair{A: i, B: j, BExisting: true})
			}
		}
	}
	return out
}

var importantWords = []string{
	"important", "priority", "urgent", "critical", "must",
	"важн", "приоритет", "срочн", "обязательн",
}

func mentionsImportance(s string) bool {
	s = strings.ToLower(s)
	for _, w := range importantWords {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

var clauseSplit = regexp.MustCompile(`(?i)[,.;!?\n]+|\s+(?:and|but|then|и|но|а|потом)\s+`)

// importance marks drafts that the utterance calls important, either in the
// draft's own text or in the clause of the utterance that names it.
func importance(drafts []Draft, utterance string) []bool {
	out := make([]bool, len(drafts))
	var hot []string
	for _, c := range clauseSplit.Split(utterance, -1) {
		if mentionsImportance(c) {
			hot = append(hot, strings.ToLower(c))
		}
	}
	for i, d := range drafts {
		if mentionsImportance(d.Title) || mentionsImportance(d.Description) {
			out[i] = true
			continue
		}
		key := titleKey(d.Title)
		if key == "" {
			continue
		}
		for _, c := range hot {
			if strings.Contains(c, key) {
				out[i] = true
				break
			}
		}
	}
	return out
}

// titleKey is the longest word of the title, lowercased and cut to a stem so
// "Встреча" still finds "встречу".
func titleKey(title string) string {
	best := ""
	for _, w := range strings.Fields(strings.ToLower(title)) {
		w = strings.Trim(w, `"'«».,!?()`)
		if mentionsImportance(w) {
			continue
		}
		if len([]rune(w)) > len([]rune(best)) {
			best = w
		}
	}
	r := []rune(best)
	if len(r) < 3 {
		return ""
	}
	if len(r) > 5 {
		r = r[:len(r)-2]
	}
	return string(r)
}

type slot struct {
	iv    calendar.Interval
	title string
}

// minKeptMinutes is the shortest remainder accepted when shrinking.
const minKeptMinutes = 30

// earliestMoveMinute is the earliest start a moved draft may get. A draft
// that only fits in the night hours is dropped instead.
const earliestMoveMinute = 6 * 60

// Resolve removes overlaps among drafts of a multi-event request and between
// those drafts and existing events. Important drafts are placed first; the
// others are shortened, moved to the next free slot of the same day, or
// dropped. Existing events never move. It returns the kept drafts in input
// order plus one note per adjustment.
func Resolve(drafts []Draft, existing []ExistingEvent, utterance, lang string) ([]Draft, []string) {
	if len(drafts) < 2 || len(Conflicts(drafts, existing)) == 0 {
		return drafts, nil
	}

	imp := importance(drafts, utterance)
	order := make([]int, len(drafts))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return imp[order[a]] && !imp[order[b]]
	})

	byDay := map[int][]slot{}
	for _, ex := range existing {
		byDay[ex.Day] = append(byDay[ex.Day], slot{ex.Interval(), ex.Title})
	}

	kept := make([]bool, len(drafts))
	out := make([]Draft, len(drafts))
	copy(out, drafts)
	var notes []string

	for _, i := range order {
		d := out[i]
		iv := d.Interval()
		day := byDay[d.Day]

		var hits []slot
		for _, b := range day {
			if iv.Overlaps(b.iv) {
				hits = append(hits, b)
			}
		}
		if len(hits) == 0 {
			kept[i] = true
			byDay[d.Day] = append(day, slot{iv, d.Title})
			continue
		}
		blocker := hits[0].title

		if cut, ok := shrink(iv, hits); ok {
			d.setInterval(cut)
			out[i], kept[i] = d, true
			byDay[d.Day] = append(day, slot{cut, d.Title})
			notes = append(notes, tr(lang, msgShortened, d.Title, cut.String(), blocker))
			continue
		}

		intervals := make([]calendar.Interval, len(day))
		for k, b := range day {
			intervals[k] = b.iv
		}
		free, ok := calendar.FirstFreeSlot(intervals, iv.Duration(), iv.Start, calendar.MinutesPerDay)
		if !ok {
			free, ok = calendar.FirstFreeSlot(intervals, iv.Duration(), earliestMoveMinute, iv.Start)
		}
		if ok {
			d.setInterval(free)
			out[i], kept[i] = d, true
			byDay[d.Day] = append(day, slot{free, d.Title})
			notes = append(notes, tr(lang, msgMoved, d.Title, free.String(), blocker))
			continue
		}
		notes = append(notes, tr(lang, msgDropped, d.Title, blocker))
	}

	res := make([]Draft, 0, len(out))
	for i, d := range out {
		if kept[i] {
			res = append(res, d)
		}
	}
	return res, notes
}

// shrink keeps the part of iv before the first blocker or after the last
// one, whichever is longer, when at least minKeptMinutes remain.
func shrink(iv calendar.Interval, hits []slot) (calendar.Interval, bool) {
	head, tail := iv, iv
	for _, h := range hits {
		if h.iv.Start < head.End {
			head.End = h.iv.Start
		}
		if h.iv.End > tail.Start {
			tail.Start = h.iv.End
		}
	}
	best := head
	if tail.Duration() > head.Duration() {
		best = tail
	}
	if best.Duration() < minKeptMinutes {
		return calendar.Interval{}, false
	}
	return best, true
}
