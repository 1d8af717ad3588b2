package entity

import "strings"

// CrawlRecord is a company profile extracted from a crawled web page.
type CrawlRecord struct {
	ID          string            `json:"id"`
	URL         string            `json:"url"`
	CompanyName string            `json:"company_name"`
	Industry    string            `json:"industry,omitempty"`
	Title       string            `json:"title,omitempty"`
	Content     string            `json:"content,omitempty"`
	Emails      []string          `json:"emails,omitempty"`
	Phones      []string          `json:"phones,omitempty"`
	Socials     map[string]string `json:"socials,omitempty"`
}

// Text joins the free-text fields used for semantic comparison.
func (r CrawlRecord) Text() string {
	parts := make([]string, 0, 4)
	for _, value := range []string{r.CompanyName, r.Title, r.Content, r.Industry} {
		if value = strings.TrimSpace(value); value != "" {
			parts = append(parts, value)
		}
	}
	return strings.Join(parts, " ")
}
