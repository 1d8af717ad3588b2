package adjudication

import (
	"fmt"
	"strings"

	"github.com/octobees/leads-generator/resolver/internal/entity"
)

const (
	maxContentRunes = 200
	maxTitleRunes   = 100
)

// TaskFraming is the instruction sent with every reasoning request.
const TaskFraming = `You are an expert in entity matching for Australian business data. Decide whether the crawl record and the registry record describe the same company.
Consider name variations (legal name, trading names, abbreviations), alignment of the website domain with the business name, industry consistency and any obvious contradictions.
Be conservative: only report a match when you are reasonably confident.
Respond with a single JSON object: {"is_match": bool, "confidence": number between 0 and 1, "reasoning": string, "factors": [string]}.`

// CrawlFields are the crawl-side values shared with the reasoning service.
type CrawlFields struct {
	URL         string `json:"url"`
	CompanyName string `json:"company_name"`
	Industry    string `json:"industry"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// RegistryFields are the registry-side values shared with the reasoning service.
type RegistryFields struct {
	ABN          string   `json:"abn"`
	LegalName    string   `json:"legal_name"`
	TradingNames []string `json:"trading_names"`
	Suburb       string   `json:"suburb"`
	State        string   `json:"state"`
	Postcode     string   `json:"postcode"`
	Status       string   `json:"status"`
	IndustryCode string   `json:"industry_code"`
}

// Request is the structured payload of one reasoning call.
type Request struct {
	RequestID string         `json:"request_id,omitempty"`
	Task      string         `json:"task"`
	Crawl     CrawlFields    `json:"crawl"`
	Registry  RegistryFields `json:"registry"`
	Score     float64        `json:"score"`
}

// NewRequest extracts the salient fields of a candidate pair.
func NewRequest(candidate entity.MatchCandidate) Request {
	crawl, registry := candidate.Crawl, candidate.Registry
	return Request{
		Task: TaskFraming,
		Crawl: CrawlFields{
			URL:         crawl.URL,
			CompanyName: crawl.CompanyName,
			Industry:    crawl.Industry,
			Title:       truncate(crawl.Title, maxTitleRunes),
			Description: truncate(crawl.Content, maxContentRunes),
		},
		Registry: RegistryFields{
			ABN:          registry.ABN,
			LegalName:    registry.LegalName,
			TradingNames: registry.TradingNames,
			Suburb:       registry.Address.Suburb,
			State:        registry.Address.State,
			Postcode:     registry.Address.Postcode,
			Status:       registry.StatusCode,
			IndustryCode: registry.IndustryCode,
		},
		Score: candidate.Composite,
	}
}

// Prompt renders the request as plain text for chat-style models.
func (r Request) Prompt() string {
	var b strings.Builder
	b.WriteString(r.Task)
	b.WriteString("\n\nCRAWL RECORD:\n")
	fmt.Fprintf(&b, "- Website URL: %s\n", orNA(r.Crawl.URL))
	fmt.Fprintf(&b, "- Company Name: %s\n", orNA(r.Crawl.CompanyName))
	fmt.Fprintf(&b, "- Industry: %s\n", orNA(r.Crawl.Industry))
	fmt.Fprintf(&b, "- Description: %s\n", orNA(r.Crawl.Description))
	fmt.Fprintf(&b, "- Page Title: %s\n", orNA(r.Crawl.Title))
	b.WriteString("\nREGISTRY RECORD:\n")
	fmt.Fprintf(&b, "- ABN: %s\n", orNA(r.Registry.ABN))
	fmt.Fprintf(&b, "- Legal Name: %s\n", orNA(r.Registry.LegalName))
	fmt.Fprintf(&b, "- Trading Names: %s\n", orNA(strings.Join(r.Registry.TradingNames, ", ")))
	fmt.Fprintf(&b, "- Location: %s, %s %s\n", orNA(r.Registry.Suburb), orNA(r.Registry.State), orNA(r.Registry.Postcode))
	fmt.Fprintf(&b, "- Status: %s\n", orNA(r.Registry.Status))
	fmt.Fprintf(&b, "\nCalculated similarity score: %.3f\n", r.Score)
	return b.String()
}

func orNA(v string) string {
	if strings.TrimSpace(v) == "" {
		return "N/A"
	}
	return v
}

func truncate(v string, limit int) string {
	runes := []rune(strings.TrimSpace(v))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit])
}
