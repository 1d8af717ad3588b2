package scoring

import (
	"net/url"
	"strings"

	"github.com/octobees/leads-generator/resolver/internal/entity"
)

const (
	categoryContact  = "contact_completeness"
	categoryWebsite  = "website_quality"
	categorySocial   = "social_presence"
	categoryBusiness = "business_profile"

	// MaxValue is the upper bound of an estimated business value.
	MaxValue = 100
)

var freeHostingDomains = []string{
	"wordpress.com",
	"blogspot.com",
	"wixsite.com",
	"weebly.com",
	"squarespace.com",
	"medium.com",
	"substack.com",
	"godaddysites.com",
	"notion.site",
	"googlepages.com",
}

var (
	technologyKeywords   = []string{"technology", "software", "digital", "tech"}
	professionalKeywords = []string{"professional", "consulting", "services"}
)

// ValueFeatures captures the completeness signals used to estimate the
// business value of a potential match.
type ValueFeatures struct {
	Website   string
	Emails    []string
	Phones    []string
	Socials   map[string]string
	LegalName string
	Industry  string
}

// ScoreResult reports the aggregate value and the per-category breakdown.
type ScoreResult struct {
	Total     int
	Breakdown map[string]int
}

// FeaturesFromCandidate collects the signals of a candidate pair. Contacts are
// validated so that junk values add nothing.
func FeaturesFromCandidate(candidate entity.MatchCandidate, phoneRegion string) ValueFeatures {
	crawl := candidate.Crawl
	return ValueFeatures{
		Website:   crawl.URL,
		Emails:    ValidEmails(crawl.Emails),
		Phones:    NormalizePhones(crawl.Phones, phoneRegion),
		Socials:   crawl.Socials,
		LegalName: candidate.Registry.LegalName,
		Industry:  crawl.Industry,
	}
}

// ComputeScore evaluates the provided features and returns the value breakdown.
func ComputeScore(input ValueFeatures) ScoreResult {
	breakdown := map[string]int{
		categoryContact:  scoreContactCompleteness(input),
		categoryWebsite:  scoreWebsiteQuality(input),
		categorySocial:   scoreSocialPresence(input),
		categoryBusiness: scoreBusinessProfile(input),
	}

	total := 0
	for _, value := range breakdown {
		total += value
	}
	if total > MaxValue {
		total = MaxValue
	}

	return ScoreResult{
		Total:     total,
		Breakdown: breakdown,
	}
}

// Estimator turns a review candidate into a business value in [0, MaxValue].
type Estimator struct {
	PhoneRegion string
}

// NewEstimator defaults the phone region to AU.
func NewEstimator(phoneRegion string) *Estimator {
	region := strings.ToUpper(strings.TrimSpace(phoneRegion))
	if region == "" {
		region = defaultPhoneRegion
	}
	return &Estimator{PhoneRegion: region}
}

// Estimate is deterministic for identical candidates.
func (e *Estimator) Estimate(candidate entity.MatchCandidate) float64 {
	return float64(ComputeScore(FeaturesFromCandidate(candidate, e.PhoneRegion)).Total)
}

func scoreContactCompleteness(input ValueFeatures) int {
	score := 0
	if hasValue(input.Emails) {
		score += 15
	}
	if hasValue(input.Phones) {
		score += 10
	}
	score += min(countSocialLinks(input.Socials), 5)
	if score > 30 {
		return 30
	}
	return score
}

func scoreWebsiteQuality(input ValueFeatures) int {
	site := strings.TrimSpace(input.Website)
	if site == "" {
		return 0
	}
	score := 15
	if strings.HasPrefix(strings.ToLower(site), "https://") {
		score += 5
	}
	if highQualityDomain(site) {
		score += 5
	}
	if score > 25 {
		return 25
	}
	return score
}

func scoreSocialPresence(input ValueFeatures) int {
	if len(input.Socials) == 0 {
		return 0
	}

	score := 0
	normalized := normalizeSocialKeys(input.Socials)
	if normalized["linkedin"] != "" {
		score += 5
	}
	if normalized["instagram"] != "" || normalized["facebook"] != "" {
		score += 5
	}
	if normalized["youtube"] != "" || normalized["tiktok"] != "" {
		score += 5
	}
	if score > 15 {
		return 15
	}
	return score
}

func scoreBusinessProfile(input ValueFeatures) int {
	score := 0
	name := strings.ToLower(input.LegalName)
	switch {
	case strings.Contains(name, "pty ltd"), strings.Contains(name, "pty. ltd"):
		score += 15
	case strings.Contains(name, "limited"):
		score += 10
	}

	industry := strings.ToLower(input.Industry)
	switch {
	case containsAny(industry, technologyKeywords):
		score += 15
	case containsAny(industry, professionalKeywords):
		score += 10
	}
	if score > 30 {
		return 30
	}
	return score
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

func hasValue(values []string) bool {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return true
		}
	}
	return false
}

func countSocialLinks(socials map[string]string) int {
	if len(socials) == 0 {
		return 0
	}
	count := 0
	for _, payload := range socials {
		for _, token := range splitSocialValue(payload) {
			if token != "" {
				count++
			}
		}
	}
	return count
}

func splitSocialValue(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return strings.FieldsFunc(raw, func(r rune) bool {
		switch r {
		case ',', ';', '|':
			return true
		default:
			return r == ' ' || r == '\n' || r == '\t' || r == '\r'
		}
	})
}

func normalizeSocialKeys(socials map[string]string) map[string]string {
	if len(socials) == 0 {
		return map[string]string{}
	}
	result := make(map[string]string, len(socials))
	for key, value := range socials {
		normalizedKey := strings.ToLower(strings.TrimSpace(key))
		if normalizedKey == "" {
			continue
		}
		result[normalizedKey] = strings.TrimSpace(value)
	}
	return result
}

func highQualityDomain(raw string) bool {
	domain := extractDomain(raw)
	if domain == "" {
		return false
	}
	for _, bad := range freeHostingDomains {
		if domain == bad || strings.HasSuffix(domain, "."+bad) {
			return false
		}
	}
	return strings.Count(domain, ".") >= 1
}

func extractDomain(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	lowered := strings.ToLower(raw)
	if !strings.Contains(lowered, "://") {
		lowered = "https://" + lowered
	}
	parsed, err := url.Parse(lowered)
	if err != nil {
		return ""
	}
	host := strings.TrimSpace(strings.ToLower(parsed.Hostname()))
	host = strings.TrimPrefix(host, "www.")
	return host
}
