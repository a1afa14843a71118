package skipword

import (
	"strconv"
	"strings"
)

// Replacement maps a token back to the word it masks.
type Replacement struct {
	Token string `json:"token"`
	Word  string `json:"word"`
}

// Token returns the mask for the n-th occurrence, e.g. "[S1]".
func Token(n int) string {
	return "[S" + strconv.Itoa(n) + "]"
}

// Replace scans text left to right and masks every occurrence of a skip
// word. When several words match at the same position the longest wins.
// Tokens are numbered from 1 in the order the occurrences appear.
func Replace(text string, words []string) (string, []Replacement) {
	words = usable(words)
	if len(words) == 0 || text == "" {
		return text, nil
	}

	var (
		b            strings.Builder
		replacements []Replacement
	)

	for i := 0; i < len(text); {
		word := longestAt(text[i:], words)
		if word == "" {
			b.WriteByte(text[i])
			i++
			continue
		}

		r := Replacement{Token: Token(len(replacements) + 1), Word: word}
		replacements = append(replacements, r)
		b.WriteString(r.Token)
		i += len(word)
	}

	return b.String(), replacements
}

// Restore puts the masked words back. Tokens without a replacement are left
// as they are, and tokens the translation dropped stay dropped.
func Restore(text string, replacements []Replacement) string {
	if len(replacements) == 0 {
		return text
	}

	pairs := make([]string, 0, len(replacements)*2)
	for _, r := range replacements {
		pairs = append(pairs, r.Token, r.Word)
	}

	return strings.NewReplacer(pairs...).Replace(text)
}

func usable(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

func longestAt(s string, words []string) string {
	best := ""
	for _, w := range words {
		if len(w) > len(best) && strings.HasPrefix(s, w) {
			best = w
		}
	}
	return best
}
