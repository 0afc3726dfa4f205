package tenants

import (
	"net"
	"regexp"
	"strings"
)

// Reserved subdomains are never resolved to a tenant and cannot be claimed.
var Reserved = []string{
	"www", "api", "admin", "app", "blog", "docs", "help", "support", "status",
	"mail", "email", "cdn", "assets", "static", "test", "staging", "dev",
	"development", "prod", "production",
}

var subdomainPattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?$`)

// Subdomain validation messages.
const (
	MsgSubdomainRequired = "Subdomain is required"
	MsgSubdomainTooShort = "Subdomain must be at least 3 characters"
	MsgSubdomainTooLong  = "Subdomain must be less than 63 characters"
	MsgSubdomainCharset  = "Subdomain can only contain lowercase letters, numbers, and hyphens"
	MsgSubdomainReserved = "This subdomain is reserved"
)

func isReserved(label string) bool {
	for _, r := range Reserved {
		if r == label {
			return true
		}
	}
	return false
}

// StripPort returns host without any :port suffix, lower-cased.
func StripPort(host string) string {
	host = strings.TrimSpace(strings.ToLower(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

// ExtractSubdomain returns the leading label of host when it names a tenant.
// Bare domains, localhost, www and reserved labels yield "".
func ExtractSubdomain(host string) string {
	clean := StripPort(host)
	if clean == "" || clean == "localhost" || net.ParseIP(clean) != nil {
		return ""
	}
	parts := strings.Split(clean, ".")
	if len(parts) < 3 {
		return ""
	}
	label := parts[0]
	if label == "" || label == "www" || isReserved(label) {
		return ""
	}
	return label
}

// IsCustomDomain reports whether host lies outside the platform base domain.
func IsCustomDomain(host, baseDomain string) bool {
	clean := StripPort(host)
	base := StripPort(baseDomain)
	if clean == "" || base == "" {
		return false
	}
	if clean == "localhost" || net.ParseIP(clean) != nil {
		return false
	}
	return clean != base && !strings.HasSuffix(clean, "."+base)
}

// ValidateSubdomain returns "" when s may be claimed, otherwise the reason it cannot.
func ValidateSubdomain(s string) string {
	switch {
	case s == "":
		return MsgSubdomainRequired
	case len(s) < 3:
		return MsgSubdomainTooShort
	case len(s) > 63:
		return MsgSubdomainTooLong
	case !subdomainPattern.MatchString(s):
		return MsgSubdomainCharset
	case isReserved(s):
		return MsgSubdomainReserved
	}
	return ""
}

// BuildURL prefers the tenant's custom domain and falls back to its platform subdomain.
func BuildURL(subdomain string, domain *string, baseDomain, path string) string {
	if path == "" {
		path = "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if domain != nil && strings.TrimSpace(*domain) != "" {
		return "https://" + strings.TrimSpace(*domain) + path
	}
	return "https://" + subdomain + "." + baseDomain + path
}
