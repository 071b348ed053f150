package session

import (
	"net/url"
	"strings"
	"unicode"
)

var unsafeSchemes = []string{"javascript:", "data:", "vbscript:", "mailto:", "tel:"}

// cleanURL returns the normalized form of raw, or false when raw must not
// be loaded.
func cleanURL(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || !strings.Contains(trimmed, "://") {
		return "", false
	}
	for _, r := range trimmed {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return "", false
		}
	}

	lower := strings.ToLower(trimmed)
	for _, scheme := range unsafeSchemes {
		if strings.HasPrefix(lower, scheme) {
			return "", false
		}
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if u.Host == "" || u.Hostname() == "" {
		return "", false
	}
	return u.String(), true
}

// ValidURL reports whether raw may be loaded.
func ValidURL(raw string) bool {
	_, ok := cleanURL(raw)
	return ok
}
