package tokenizer

import "strings"

// suffixRules is checked in order; the first suffix that matches is the only
// one considered. minLen is the rune length the word must exceed before the
// suffix may be removed.
var suffixRules = []struct {
	suffix string
	runes  int
	minLen int
}{
	{"ов", 2, 4},
	{"ев", 2, 4},
	{"ам", 2, 4},
	{"ём", 2, 4},
	{"ing", 3, 5},
	{"ed", 2, 4},
}

// Stem removes at most one suffix from a lowercased word. Short words are
// returned unchanged.
func Stem(word string) string {
	runes := []rune(word)
	for _, rule := range suffixRules {
		if !strings.HasSuffix(word, rule.suffix) {
			continue
		}
		if len(runes) > rule.minLen {
			return string(runes[:len(runes)-rule.runes])
		}
		return word
	}
	return word
}
