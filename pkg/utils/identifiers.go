package utils

import (
	"strings"
	"unicode"
)

// Slugify turns free text into a lowercase snake_case identifier of at most maxWords words.
// It returns "artifact" when nothing usable remains.
func Slugify(text string, maxWords int) string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	kept := make([]string, 0, maxWords)
	for _, w := range words {
		if isStopWord(w) {
			continue
		}
		kept = append(kept, w)
		if maxWords > 0 && len(kept) == maxWords {
			break
		}
	}
	if len(kept) == 0 {
		return "artifact"
	}
	return strings.Join(kept, "_")
}

func isStopWord(w string) bool {
	switch w {
	case "a", "an", "the", "to", "for", "of", "and", "that", "which", "with", "new", "please":
		return true
	}
	return false
}
