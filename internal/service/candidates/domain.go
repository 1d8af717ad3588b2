package candidates

import (
	"net/url"
	"strings"

	"golang.org/x/net/idna"

	"github.com/octobees/leads-generator/resolver/internal/service/similarity"
)

var idnaProfile = idna.Lookup

// secondLevelSuffixes are registrable suffixes under .au that are not part of
// the business name.
var secondLevelSuffixes = []string{
	".com.au", ".net.au", ".org.au", ".edu.au", ".gov.au", ".asn.au", ".id.au",
	".co.nz", ".co.uk",
}

// DomainTokens extracts the name-bearing tokens from a crawl URL host:
// "https://www.acme-tech.com.au/about" yields [acme tech acmetech].
func DomainTokens(raw string) []string {
	host := hostOf(raw)
	if host == "" {
		return nil
	}
	if unicodeHost, err := idnaProfile.ToUnicode(host); err == nil && unicodeHost != "" {
		host = unicodeHost
	}
	host = strings.TrimPrefix(host, "www.")

	trimmed := false
	for _, suffix := range secondLevelSuffixes {
		if strings.HasSuffix(host, suffix) {
			host = strings.TrimSuffix(host, suffix)
			trimmed = true
			break
		}
	}
	if !trimmed {
		if idx := strings.LastIndex(host, "."); idx > 0 {
			host = host[:idx]
		}
	}
	if host == "" {
		return nil
	}

	labels := strings.Split(host, ".")
	label := labels[len(labels)-1]
	tokens := similarity.Tokenize(strings.ReplaceAll(label, "-", " "), 0)
	if len(tokens) > 1 {
		tokens = append(tokens, strings.Join(tokens, ""))
	}
	return tokens
}

func hostOf(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(strings.Trim(u.Hostname(), "."))
}
