package analysis

import (
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// WordCount is one (word, occurrences) pair.
type WordCount struct {
	Word  string
	Count int
}

// TopWords counts word occurrences across corpus, drops stopwords and
// single-character tokens, and returns the n most frequent words in
// descending count order. Ties break alphabetically so results are stable.
func TopWords(corpus []string, stopwords map[string]bool, n int) []WordCount {
	counts := make(map[string]int)
	for _, line := range corpus {
		for _, tok := range tokenize(line) {
			if len(tok) < 2 || stopwords[tok] {
				continue
			}
			counts[tok]++
		}
	}

	out := make([]WordCount, 0, len(counts))
	for w, c := range counts {
		out = append(out, WordCount{Word: w, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Word < out[j].Word
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func tokenize(line string) []string {
	return strings.FieldsFunc(strings.ToLower(line), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

// DefuseHighlight makes a word safe to echo into the channel: bold, with a
// zero-width space after the first rune so clients don't highlight the
// named user.
func DefuseHighlight(word string) string {
	if word == "" {
		return word
	}
	runes := []rune(word)
	return "\x02" + string(runes[:1]) + "​" + string(runes[1:]) + "\x02"
}

// FormatCounts renders a top-words list as "w: n, w: n, ...".
func FormatCounts(top []WordCount) string {
	parts := make([]string, len(top))
	for i, wc := range top {
		parts[i] = DefuseHighlight(wc.Word) + ": " + strconv.Itoa(wc.Count)
	}
	return strings.Join(parts, ", ")
}
