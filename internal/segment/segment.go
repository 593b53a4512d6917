// Package segment splits free text into sentence units.
package segment

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// Split breaks text wherever '.', '!' or '?' is immediately followed by
// whitespace. The terminator stays with the preceding sentence; empty pieces
// are dropped.
func Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	sentences := make([]string, 0, 4)
	start := 0
	prev := rune(-1)
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(r) && isTerminator(prev) {
			if s := strings.TrimSpace(text[start:i]); s != "" {
				sentences = append(sentences, s)
			}
			j := i + size
			for j < len(text) {
				next, n := utf8.DecodeRuneInString(text[j:])
				if !unicode.IsSpace(next) {
					break
				}
				j += n
			}
			start = j
			prev = rune(-1)
			i = j
			continue
		}
		prev = r
		i += size
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
