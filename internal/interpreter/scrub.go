package interpreter

import (
	"regexp"
	"strings"
)

var conflictWords = regexp.MustCompile(`(?i)conflict|overlap|clash|collid|double[- ]book|конфликт|пересека|пересеч|наклад`)

var sentenceSplit = regexp.MustCompile(`[^.!?\n]+[.!?]*\s*`)

// touching reports whether two drafts share an edge, which is what a shrink
// or shift between events of one request leaves behind. Drafts that merely
// border an existing event say nothing about a conflict.
func touching(drafts []Draft) bool {
	for i, a := range drafts {
		for j, b := range drafts {
			if i != j && a.Day == b.Day && a.Interval().End == b.Interval().Start {
				return true
			}
		}
	}
	return false
}

// ScrubConflictClaims drops sentences that talk about a conflict when the
// events give no sign that one existed: nothing overlaps and no two drafts
// were pushed edge to edge. Messages without such sentences are returned as is.
func ScrubConflictClaims(message string, drafts []Draft, existing []ExistingEvent) string {
	if message == "" || !conflictWords.MatchString(message) {
		return message
	}
	if len(Conflicts(drafts, existing)) > 0 || touching(drafts) {
		return message
	}
	var kept []string
	for _, s := range sentenceSplit.FindAllString(message, -1) {
		if conflictWords.MatchString(s) {
			continue
		}
		if t := strings.TrimSpace(s); t != "" {
			kept = append(kept, t)
		}
	}
	return strings.Join(kept, " ")
}
