package engine

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/anatolykoptev/go-kit/strutil"
	"golang.org/x/net/html"
)

// User-Agent string for API clients that do not need a browser fingerprint.
const UserAgentBot = "GoReview/1.0"

var (
	htmlTagRe = regexp.MustCompile(`<[^>]+>`)
	// sentenceStartRe matches a period, the whitespace after it and the next lowercase letter.
	sentenceStartRe = regexp.MustCompile(`\.(\s*)(\p{Ll})`)
	spaceBeforeRe   = regexp.MustCompile(`\s+([.,!?])`)
)

// CleanHTML unescapes entities, strips HTML tags and trims whitespace.
func CleanHTML(s string) string {
	return strings.TrimSpace(htmlTagRe.ReplaceAllString(html.UnescapeString(s), ""))
}

// Punctuate repairs transcript punctuation: capitalizes the first letter after a
// sentence-ending period, removes whitespace before . , ! ? and guarantees a
// trailing period. Applying it twice yields the same text.
func Punctuate(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	text = sentenceStartRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := sentenceStartRe.FindStringSubmatch(m)
		return "." + sub[1] + strings.ToUpper(sub[2])
	})
	text = spaceBeforeRe.ReplaceAllString(text, "$1")
	if !strings.HasSuffix(text, ".") {
		text += "."
	}
	return text
}

// TruncateAtLastPeriod cuts text after its last period; text without one is returned as is.
func TruncateAtLastPeriod(text string) string {
	if i := strings.LastIndex(text, "."); i >= 0 {
		return text[:i+1]
	}
	return text
}

// TruncateRunes caps s at limit runes, appending suffix if truncated.
func TruncateRunes(s string, limit int, suffix string) string {
	return strutil.TruncateWith(s, limit, suffix)
}

// WordFreq is one word and its number of occurrences in a transcript.
type WordFreq struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// stopwords are Spanish and English function words excluded from word counts.
var stopwords = map[string]bool{
	"a": true, "al": true, "algo": true, "como": true, "con": true, "de": true, "del": true,
	"el": true, "ella": true, "en": true, "es": true, "esta": true, "este": true, "esto": true,
	"eso": true, "fue": true, "ha": true, "hay": true, "la": true, "las": true, "le": true,
	"lo": true, "los": true, "me": true, "mi": true, "muy": true, "más": true, "no": true,
	"o": true, "para": true, "pero": true, "por": true, "porque": true, "que": true, "qué": true,
	"se": true, "si": true, "sí": true, "sin": true, "su": true, "sus": true, "también": true,
	"te": true, "tiene": true, "un": true, "una": true, "uno": true, "y": true, "ya": true,
	"yo": true, "the": true, "and": true, "of": true, "to": true, "is": true, "it": true,
}

// WordFrequencies counts words (lowercased, punctuation stripped, stopwords and
// one-letter tokens removed) and returns them ordered by count desc, then word asc.
func WordFrequencies(text string) []WordFreq {
	counts := make(map[string]int)
	for _, tok := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len([]rune(tok)) < 2 || stopwords[tok] {
			continue
		}
		counts[tok]++
	}
	out := make([]WordFreq, 0, len(counts))
	for w, n := range counts {
		out = append(out, WordFreq{Word: w, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Word < out[j].Word
	})
	return out
}

// TotalWords sums the counts of a frequency list.
func TotalWords(freqs []WordFreq) int {
	total := 0
	for _, f := range freqs {
		total += f.Count
	}
	return total
}
