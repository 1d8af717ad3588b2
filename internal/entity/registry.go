package entity

import (
	"strings"
	"time"
)

// Address holds the registry's location fields for an entity.
type Address struct {
	Line1    string `json:"line_1,omitempty"`
	Suburb   string `json:"suburb,omitempty"`
	State    string `json:"state,omitempty"`
	Postcode string `json:"postcode,omitempty"`
}

// RegistryRecord is an authoritative business registration entry.
type RegistryRecord struct {
	ABN          string     `json:"abn"`
	LegalName    string     `json:"legal_name"`
	TradingNames []string   `json:"trading_names,omitempty"`
	StatusCode   string     `json:"status_code"`
	IndustryCode string     `json:"industry_code,omitempty"`
	Address      Address    `json:"address"`
	RegisteredAt *time.Time `json:"registered_at,omitempty"`
}

var activeStatusCodes = map[string]struct{}{
	"act":        {},
	"active":     {},
	"registered": {},
}

// Active reports whether the status code marks a trading entity. Unknown or
// empty codes are treated as inactive.
func (r RegistryRecord) Active() bool {
	_, ok := activeStatusCodes[strings.ToLower(strings.TrimSpace(r.StatusCode))]
	return ok
}

// Names returns the legal name followed by the distinct trading names in order.
func (r RegistryRecord) Names() []string {
	names := make([]string, 0, 1+len(r.TradingNames))
	seen := make(map[string]struct{}, 1+len(r.TradingNames))
	for _, name := range append([]string{r.LegalName}, r.TradingNames...) {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, trimmed)
	}
	return names
}
