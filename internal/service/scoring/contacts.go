package scoring

import (
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
	"golang.org/x/net/idna"
)

var (
	emailPattern = regexp.MustCompile(`^[a-z0-9._%+\-']+@[a-z0-9.-]+\.[a-z]{2,}$`)
	idnaProfile  = idna.Lookup
)

const defaultPhoneRegion = "AU"

// ValidEmails lower-cases, deduplicates and keeps syntactically valid
// addresses whose domain survives IDNA lookup rules.
func ValidEmails(emails []string) []string {
	if len(emails) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(emails))
	valid := make([]string, 0, len(emails))

	for _, raw := range emails {
		email := strings.ToLower(strings.TrimSpace(raw))
		local, domain, ok := strings.Cut(email, "@")
		if !ok || local == "" || !isDomainValid(domain) {
			continue
		}
		asciiDomain, err := idnaProfile.ToASCII(domain)
		if err != nil || asciiDomain == "" {
			continue
		}
		email = local + "@" + asciiDomain
		if !emailPattern.MatchString(email) {
			continue
		}
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}
		valid = append(valid, email)
	}
	if len(valid) == 0 {
		return nil
	}
	return valid
}

// NormalizePhones returns the distinct valid numbers in E.164 form.
func NormalizePhones(phones []string, region string) []string {
	seen := make(map[string]struct{}, len(phones))
	valid := make([]string, 0, len(phones))

	for _, raw := range phones {
		normalized := normalizePhone(raw, region)
		if normalized == "" {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		valid = append(valid, normalized)
	}
	if len(valid) == 0 {
		return nil
	}
	return valid
}

func normalizePhone(raw, region string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if region == "" {
		region = defaultPhoneRegion
	}
	number, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return ""
	}
	if !phonenumbers.IsPossibleNumber(number) || !phonenumbers.IsValidNumber(number) {
		return ""
	}
	return phonenumbers.Format(number, phonenumbers.E164)
}

func isDomainValid(domain string) bool {
	if strings.Count(domain, ".") == 0 {
		return false
	}
	parts := strings.Split(domain, ".")
	for _, part := range parts {
		if part == "" || strings.HasPrefix(part, "-") || strings.HasSuffix(part, "-") {
			return false
		}
	}
	return true
}
