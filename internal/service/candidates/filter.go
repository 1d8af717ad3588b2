package candidates

import (
	"fmt"
	"sort"
	"strings"

	"github.com/octobees/leads-generator/resolver/internal/entity"
	"github.com/octobees/leads-generator/resolver/internal/service/similarity"
)

const (
	// MaxShortlist is the hard upper bound on candidates per crawl record.
	MaxShortlist = 50
	// DefaultMinQuickScore is the token-overlap bar a registry record must clear
	// unless the domain pre-screen matches.
	DefaultMinQuickScore = 0.70

	minDomainTokenLen = 4
)

// Ranked is a shortlisted registry record with its pre-filter score.
type Ranked struct {
	Record      entity.RegistryRecord
	QuickScore  float64
	DomainMatch bool
}

// Filter produces a bounded, ranked shortlist of plausible registry matches.
type Filter struct {
	cap           int
	minQuickScore float64
}

// NewFilter returns a filter keeping at most limit records. A limit of 0 uses
// MaxShortlist.
func NewFilter(limit int) (*Filter, error) {
	if limit == 0 {
		limit = MaxShortlist
	}
	if limit < 0 || limit > MaxShortlist {
		return nil, fmt.Errorf("shortlist cap must be within 1..%d, got %d", MaxShortlist, limit)
	}
	return &Filter{cap: limit, minQuickScore: DefaultMinQuickScore}, nil
}

// Cap returns the configured shortlist size.
func (f *Filter) Cap() int {
	return f.cap
}

// Shortlist excludes inactive records, keeps those that clear the quick-score
// bar or match the crawl domain, and returns them best first. An empty result
// means no match is possible.
func (f *Filter) Shortlist(crawl entity.CrawlRecord, registry []entity.RegistryRecord) []Ranked {
	crawlTokens := similarity.NameTokens(crawl.CompanyName)
	domain := DomainTokens(crawl.URL)
	if len(crawlTokens) == 0 && len(domain) == 0 {
		return nil
	}

	survivors := make([]Ranked, 0)
	for _, record := range registry {
		if !record.Active() {
			continue
		}
		names := record.Names()
		quick := similarity.QuickNameScore(crawl.CompanyName, names)
		domainMatch := matchesDomain(domain, names)
		if quick < f.minQuickScore && !domainMatch {
			continue
		}
		survivors = append(survivors, Ranked{Record: record, QuickScore: quick, DomainMatch: domainMatch})
	}

	sort.SliceStable(survivors, func(i, j int) bool {
		if survivors[i].QuickScore != survivors[j].QuickScore {
			return survivors[i].QuickScore > survivors[j].QuickScore
		}
		return survivors[i].Record.ABN < survivors[j].Record.ABN
	})
	if len(survivors) > f.cap {
		survivors = survivors[:f.cap]
	}
	return survivors
}

func matchesDomain(domain []string, names []string) bool {
	if len(domain) == 0 {
		return false
	}
	for _, name := range names {
		tokens := similarity.NameTokens(name)
		if len(tokens) == 0 {
			continue
		}
		joined := strings.Join(tokens, "")
		for _, d := range domain {
			if len(d) < minDomainTokenLen {
				continue
			}
			if d == joined {
				return true
			}
			for _, token := range tokens {
				if len(token) >= minDomainTokenLen && token == d {
					return true
				}
			}
		}
	}
	return false
}
