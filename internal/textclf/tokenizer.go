package textclf

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// stopWords holds common English function words. Absolutes and modal verbs
// ("always", "never", "should", "must", "everyone") must stay out of it.
var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		a about above after again against am an and any are as at be because been
		before being below between both but by can could did do does doing down
		during each few for from further had has have having he her here hers herself
		him himself his how i if in into is it its itself just me more most my myself
		no nor not now of off on once only or other our ours ourselves out over own
		same she so some such than that the their theirs them themselves then there
		these they this those through to too under until up very was we were what
		when where which while who whom why will with would you your yours yourself
		yourselves also etc let per via yet ll ve re
	`) {
		stopWords[w] = struct{}{}
	}
}

// Tokenizer turns raw text into word n-grams.
type Tokenizer struct {
	NgramMin      int  `json:"ngram_min"`
	NgramMax      int  `json:"ngram_max"`
	KeepStopWords bool `json:"keep_stop_words"`
}

func (t Tokenizer) normalize(text string) string {
	text = norm.NFKC.String(text)
	return cases.Lower(language.Und).String(text)
}

// words splits on anything that is not a letter, digit or underscore and
// drops single-rune tokens.
func (t Tokenizer) words(text string) []string {
	fields := strings.FieldsFunc(t.normalize(text), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) < 2 {
			continue
		}
		if !t.KeepStopWords {
			if _, ok := stopWords[f]; ok {
				continue
			}
		}
		out = append(out, f)
	}
	return out
}

// Terms returns every n-gram of text in order of appearance.
func (t Tokenizer) Terms(text string) []string {
	words := t.words(text)
	lo, hi := t.NgramMin, t.NgramMax
	if lo < 1 {
		lo = 1
	}
	if hi < lo {
		hi = lo
	}
	terms := make([]string, 0, len(words)*(hi-lo+1))
	for n := lo; n <= hi; n++ {
		for i := 0; i+n <= len(words); i++ {
			if n == 1 {
				terms = append(terms, words[i])
				continue
			}
			terms = append(terms, strings.Join(words[i:i+n], " "))
		}
	}
	return terms
}
