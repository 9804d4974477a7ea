// Package textutil holds the text normalization shared by the
// recommender, the scraper's keyword extraction, and sentiment scoring.
package textutil

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	tagRe   = regexp.MustCompile(`<[^>]+>`)
	urlRe   = regexp.MustCompile(`https?://\S+|www\.\S+`)
	emailRe = regexp.MustCompile(`\S+@\S+`)
	junkRe  = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
	wordRe  = regexp.MustCompile(`\b\w+\b`)
)

// Clean lowercases text and strips HTML tags, URLs, email addresses and
// punctuation, collapsing the remainder to single-spaced words.
func Clean(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ToLower(text)
	text = tagRe.ReplaceAllString(text, " ")
	text = urlRe.ReplaceAllString(text, " ")
	text = emailRe.ReplaceAllString(text, " ")
	text = junkRe.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}

// Tokenize splits cleaned text into lowercase word tokens.
func Tokenize(text string) []string {
	return wordRe.FindAllString(strings.ToLower(text), -1)
}

// StripTags removes HTML tags without further normalization.
func StripTags(text string) string {
	return tagRe.ReplaceAllString(text, " ")
}

// WordCount counts whitespace-separated words after tag stripping.
func WordCount(text string) int {
	return len(strings.Fields(StripTags(text)))
}

// TruncateBytes cuts s to at most max bytes without splitting a rune.
func TruncateBytes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// IsStopword reports whether w is an English stopword.
func IsStopword(w string) bool {
	_, ok := stopwords[w]
	return ok
}

// stopwords is the usual English list (the one scikit-learn and NLTK
// roughly agree on); small enough to inline.
var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(stopwordList) {
		stopwords[w] = struct{}{}
	}
}

const stopwordList = `
a about above after again against all am an and any are aren as at be
because been before being below between both but by can cannot could
couldn did didn do does doesn doing don down during each few for from
further had hadn has hasn have haven having he her here hers herself him
himself his how i if in into is isn it its itself just ll m ma me might
mightn more most must mustn my myself needn no nor not now o of off on
once only or other our ours ourselves out over own re s same shan she
should shouldn so some such t than that the their theirs them themselves
then there these they this those through to too under until up ve very
was wasn we were weren what when where which while who whom why will with
won would wouldn y you your yours yourself yourselves
`
