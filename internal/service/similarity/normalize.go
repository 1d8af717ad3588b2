package similarity

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// maxNameRunes bounds the work done on pathological inputs.
const maxNameRunes = 256

var apostrophes = strings.NewReplacer("'", "", "’", "", "`", "")

var legalSuffixTokens = map[string]struct{}{
	"pty":          {},
	"ltd":          {},
	"limited":      {},
	"proprietary":  {},
	"company":      {},
	"co":           {},
	"corp":         {},
	"corporation":  {},
	"inc":          {},
	"incorporated": {},
	"llc":          {},
	"llp":          {},
	"lp":           {},
}

// Tokenize lower-cases, NFKC-normalises and splits text on anything that is
// not a letter or digit. At most limit runes are considered when limit > 0.
func Tokenize(text string, limit int) []string {
	text = norm.NFKC.String(strings.TrimSpace(text))
	if text == "" {
		return nil
	}
	if limit > 0 {
		if runes := []rune(text); len(runes) > limit {
			text = string(runes[:limit])
		}
	}
	text = apostrophes.Replace(strings.ToLower(text))
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// NameTokens normalises a company name and drops legal-form suffixes such as
// "Pty Ltd". A name made only of suffix words keeps its tokens.
func NameTokens(name string) []string {
	tokens := Tokenize(name, maxNameRunes)
	if len(tokens) == 0 {
		return nil
	}
	kept := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, suffix := legalSuffixTokens[token]; suffix {
			continue
		}
		kept = append(kept, token)
	}
	if len(kept) == 0 {
		return tokens
	}
	return kept
}

// NormalizeName returns the canonical single-spaced form of a company name.
func NormalizeName(name string) string {
	return strings.Join(NameTokens(name), " ")
}

func uniqueTokens(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		out = append(out, token)
	}
	return out
}
