package similarity

import (
	"strconv"
	"strings"

	ahocorasick "github.com/cloudflare/ahocorasick"
)

// Industry categories shared by crawl industry text and registry codes.
const (
	IndustryAgriculture   = "agriculture"
	IndustryMining        = "mining"
	IndustryManufacturing = "manufacturing"
	IndustryUtilities     = "utilities"
	IndustryConstruction  = "construction"
	IndustryRetail        = "retail"
	IndustryHospitality   = "hospitality"
	IndustryTransport     = "transport"
	IndustryTechnology    = "technology"
	IndustryFinance       = "finance"
	IndustryRealEstate    = "real_estate"
	IndustryProfessional  = "professional"
	IndustryGovernment    = "government"
	IndustryEducation     = "education"
	IndustryHealthcare    = "healthcare"
	IndustryArts          = "arts"
)

type industryKeywords struct {
	category string
	keywords []string
}

// Order matters: ties between categories go to the earlier entry.
var industryTable = []industryKeywords{
	{IndustryTechnology, []string{"technology", "technologies", "tech", "software", "digital", "it services", "information technology", "computer", "computing", "telecommunications", "web development", "app development", "cloud", "saas", "information media"}},
	{IndustryManufacturing, []string{"manufacturing", "manufacturer", "factory", "production", "assembly", "fabrication"}},
	{IndustryConstruction, []string{"construction", "building", "builder", "builders", "contractor", "contractors", "renovation", "renovations", "plumbing", "roofing"}},
	{IndustryProfessional, []string{"professional services", "professional", "consulting", "consultancy", "advisory", "legal", "lawyer", "lawyers", "accounting", "accountant", "accountants", "engineering", "architecture", "marketing", "scientific"}},
	{IndustryRetail, []string{"retail", "retail trade", "shop", "store", "merchandise", "wholesale", "ecommerce"}},
	{IndustryFinance, []string{"finance", "financial", "financial services", "banking", "bank", "investment", "insurance", "lending", "mortgage"}},
	{IndustryHealthcare, []string{"healthcare", "health", "medical", "dental", "dentist", "clinic", "hospital", "pharmacy", "physiotherapy"}},
	{IndustryEducation, []string{"education", "training", "school", "university", "learning", "tutoring"}},
	{IndustryTransport, []string{"transport", "logistics", "freight", "delivery", "shipping", "courier", "warehousing", "postal"}},
	{IndustryAgriculture, []string{"agriculture", "agricultural", "farming", "farm", "rural", "livestock", "horticulture", "forestry", "fishing"}},
	{IndustryHospitality, []string{"hospitality", "restaurant", "cafe", "catering", "hotel", "accommodation", "bakery", "food services"}},
	{IndustryRealEstate, []string{"real estate", "property", "realty", "rental"}},
	{IndustryMining, []string{"mining", "quarrying", "exploration"}},
	{IndustryUtilities, []string{"energy", "electricity", "solar", "water", "waste", "utilities"}},
	{IndustryGovernment, []string{"government", "council", "public administration"}},
	{IndustryArts, []string{"arts", "recreation", "entertainment", "gallery", "fitness", "gym", "sport"}},
}

// anzsicDivisions maps ANZSIC division letters to categories. Division S
// (other services) has no category on purpose.
var anzsicDivisions = map[string]string{
	"A": IndustryAgriculture,
	"B": IndustryMining,
	"C": IndustryManufacturing,
	"D": IndustryUtilities,
	"E": IndustryConstruction,
	"F": IndustryRetail,
	"G": IndustryRetail,
	"H": IndustryHospitality,
	"I": IndustryTransport,
	"J": IndustryTechnology,
	"K": IndustryFinance,
	"L": IndustryRealEstate,
	"M": IndustryProfessional,
	"N": IndustryProfessional,
	"O": IndustryGovernment,
	"P": IndustryEducation,
	"Q": IndustryHealthcare,
	"R": IndustryArts,
}

// anzsicSubdivisions maps the first two digits of an ANZSIC code to a division.
var anzsicSubdivisions = []struct {
	from, to int
	division string
}{
	{1, 5, "A"}, {6, 10, "B"}, {11, 25, "C"}, {26, 29, "D"}, {30, 32, "E"},
	{33, 38, "F"}, {39, 43, "G"}, {44, 45, "H"}, {46, 53, "I"}, {54, 60, "J"},
	{62, 64, "K"}, {66, 67, "L"}, {69, 69, "M"}, {70, 70, "J"}, {72, 73, "N"},
	{75, 77, "O"}, {80, 82, "P"}, {84, 87, "Q"}, {89, 92, "R"},
}

// IndustryMatcher maps free text and registry classification codes onto a
// fixed set of industry categories.
type IndustryMatcher struct {
	matcher  *ahocorasick.Matcher
	patterns []string
	category []int
}

// NewIndustryMatcher builds the keyword automaton from the category table.
func NewIndustryMatcher() *IndustryMatcher {
	m := &IndustryMatcher{}
	for idx, entry := range industryTable {
		for _, keyword := range entry.keywords {
			m.patterns = append(m.patterns, " "+keyword+" ")
			m.category = append(m.category, idx)
		}
	}
	m.matcher = ahocorasick.NewStringMatcher(m.patterns)
	return m
}

// Categorize returns the category with the most keyword hits in text, or ""
// when nothing matches.
func (m *IndustryMatcher) Categorize(text string) string {
	tokens := Tokenize(text, 4*maxNameRunes)
	if len(tokens) == 0 {
		return ""
	}
	padded := " " + strings.Join(tokens, " ") + " "

	hits := make([]int, len(industryTable))
	for _, idx := range m.matcher.Match([]byte(padded)) {
		if idx < 0 || idx >= len(m.category) {
			continue
		}
		hits[m.category[idx]]++
	}

	best, bestHits := -1, 0
	for idx, count := range hits {
		if count > bestHits {
			best, bestHits = idx, count
		}
	}
	if best < 0 {
		return ""
	}
	return industryTable[best].category
}

// CategorizeCode maps a registry classification code. ANZSIC division letters
// and numeric codes are recognised; anything else is treated as free text.
func (m *IndustryMatcher) CategorizeCode(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	if len(code) == 1 {
		return anzsicDivisions[strings.ToUpper(code)]
	}
	if len(code) >= 2 {
		if n, err := strconv.Atoi(code[:2]); err == nil {
			for _, sub := range anzsicSubdivisions {
				if n >= sub.from && n <= sub.to {
					return anzsicDivisions[sub.division]
				}
			}
			return ""
		}
	}
	return m.Categorize(code)
}

// Similarity is 1 when both sides resolve to the same category, otherwise 0.
func (m *IndustryMatcher) Similarity(crawlIndustry, registryCode string) float64 {
	crawlCategory := m.Categorize(crawlIndustry)
	if crawlCategory == "" {
		return 0
	}
	if crawlCategory == m.CategorizeCode(registryCode) {
		return 1
	}
	return 0
}
