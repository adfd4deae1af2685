package grading

import (
	"strings"

	"github.com/Yiteng-CHEN/snaplearn/internal/model"
)

// GradeObjective compares a submitted choice answer with the canonical one and
// returns either the full point value or zero. Single choice matches one
// option case-insensitively; multiple choice splits on commas and requires the
// same options with no repeats.
func GradeObjective(t model.QuestionType, canonical, submitted string, points float64) (float64, bool) {
	var correct bool
	switch t {
	case model.QuestionSingle:
		want := normalizeOption(canonical)
		correct = want != "" && normalizeOption(submitted) == want
	case model.QuestionMultiple:
		correct = sameOptions(splitOptions(canonical), splitOptions(submitted))
	}
	if correct {
		return points, true
	}
	return 0, false
}

func normalizeOption(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func splitOptions(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = normalizeOption(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// sameOptions reports set equality where a repeated submitted token counts
// towards the size, so "A,A" does not match "A".
func sameOptions(canonical, submitted []string) bool {
	want := make(map[string]bool, len(canonical))
	for _, c := range canonical {
		want[c] = true
	}
	if len(want) == 0 || len(submitted) != len(want) {
		return false
	}
	seen := make(map[string]bool, len(submitted))
	for _, s := range submitted {
		if !want[s] || seen[s] {
			return false
		}
		seen[s] = true
	}
	return true
}
