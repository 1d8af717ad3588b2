package similarity

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// minAbbreviationRunes is the shortest token accepted as an abbreviation of
// a longer one ("tech" for "technology").
const minAbbreviationRunes = 3

// SequenceRatio returns the Ratcliff/Obershelp similarity of two strings
// compared rune by rune, 2*M/T where M counts characters in matching blocks.
// Empty input scores 0.
func SequenceRatio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	return difflib.NewMatcher(runeStrings(a), runeStrings(b)).Ratio()
}

func runeStrings(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// TokenOverlap scores the share of distinct tokens two names have in common,
// matched one-to-one. A token that is a prefix of at least three runes of a
// token on the other side counts as an abbreviation match.
func TokenOverlap(a, b []string) float64 {
	a, b = uniqueTokens(a), uniqueTokens(b)
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	used := make([]bool, len(b))
	pending := make([]string, 0, len(a))
	matches := 0
	for _, token := range a {
		found := false
		for j, other := range b {
			if !used[j] && token == other {
				used[j] = true
				found = true
				break
			}
		}
		if found {
			matches++
			continue
		}
		pending = append(pending, token)
	}
	for _, token := range pending {
		for j, other := range b {
			if !used[j] && abbreviates(token, other) {
				used[j] = true
				matches++
				break
			}
		}
	}

	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	return float64(matches) / float64(longest)
}

func abbreviates(a, b string) bool {
	short, long := a, b
	if len([]rune(short)) > len([]rune(long)) {
		short, long = long, short
	}
	return len([]rune(short)) >= minAbbreviationRunes && strings.HasPrefix(long, short)
}

// NameSimilarity compares one crawl name against every registry name and keeps
// the best score. Each comparison takes the larger of the sequence ratio and
// the token overlap of the normalised names.
func NameSimilarity(crawlName string, registryNames []string) float64 {
	crawlTokens := NameTokens(crawlName)
	if len(crawlTokens) == 0 {
		return 0
	}
	crawlNorm := strings.Join(crawlTokens, " ")

	best := 0.0
	for _, name := range registryNames {
		tokens := NameTokens(name)
		if len(tokens) == 0 {
			continue
		}
		score := SequenceRatio(crawlNorm, strings.Join(tokens, " "))
		if overlap := TokenOverlap(crawlTokens, tokens); overlap > score {
			score = overlap
		}
		if score > best {
			best = score
		}
		if best >= 1 {
			return 1
		}
	}
	return best
}

// QuickNameScore is the cheap pre-filter score: token overlap only, best over
// all registry names.
func QuickNameScore(crawlName string, registryNames []string) float64 {
	crawlTokens := NameTokens(crawlName)
	if len(crawlTokens) == 0 {
		return 0
	}
	best := 0.0
	for _, name := range registryNames {
		if score := TokenOverlap(crawlTokens, NameTokens(name)); score > best {
			best = score
		}
	}
	return best
}
