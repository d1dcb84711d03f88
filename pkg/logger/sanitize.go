package logger

import (
	"net/url"
	"strings"
)

// sensitiveQueryKeys are fragments of query parameter names whose values never reach the logs.
// Verification endpoints carry the one-time code in the query string.
var sensitiveQueryKeys = []string{"password", "token", "secret", "apikey", "api_key", "auth", "code", "email", "recaptcha"}

// SanitizedEmail masks an email address for logging, "alice@example.com" becomes "a****@*******.com"
func SanitizedEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || strings.Contains(domain, "@") {
		return "[invalid-email]"
	}

	if len(local) > 1 {
		local = local[:1] + strings.Repeat("*", len(local)-1)
	}

	if dot := strings.LastIndex(domain, "."); dot > 0 {
		masked := strings.Map(func(r rune) rune {
			if r == '.' {
				return r
			}
			return '*'
		}, domain[:dot])
		domain = masked + domain[dot:]
	}

	return local + "@" + domain
}

// MaskedPhone keeps only the last four digits of a phone number
func MaskedPhone(phone string) string {
	if len(phone) <= 4 {
		return strings.Repeat("*", len(phone))
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}

// SanitizeQueryString reports whether the query must be redacted as a whole.
// A query that does not parse is treated as sensitive.
func SanitizeQueryString(rawQuery string) bool {
	if rawQuery == "" {
		return false
	}

	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return true
	}

	for key := range values {
		key = strings.ToLower(key)
		for _, fragment := range sensitiveQueryKeys {
			if strings.Contains(key, fragment) {
				return true
			}
		}
	}
	return false
}
