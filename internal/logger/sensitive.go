package logger

import (
	"regexp"
	"strings"
)

const redactedValue = "[REDACTED]"

// sensitiveDataPatterns match credentials embedded in free-form values
var sensitiveDataPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(bearer\s+)([A-Za-z0-9-._~+/]+=*)`),
	regexp.MustCompile(`(?i)((api[_-]?key|access[_-]?token|secret|passw(or)?d)[\s:=]+)([^;,\s]{5,})`),
	// user:password@tcp(host) in MySQL DSNs
	regexp.MustCompile(`([^\s:/@]+:)([^\s@]+)(@tcp\()`),
	// https://...@sentry host
	regexp.MustCompile(`(https?://)([^\s:@/]+)(@)`),
}

// sensitiveKeywords mark field keys whose values are never logged
var sensitiveKeywords = []string{
	"password", "passwd", "secret", "token", "api_key", "apikey", "authorization", "dsn",
}

// RedactSensitiveData replaces embedded credentials with [REDACTED]
func RedactSensitiveData(input string) string {
	if input == "" {
		return input
	}

	for i, pattern := range sensitiveDataPatterns {
		switch i {
		case 2, 3:
			input = pattern.ReplaceAllString(input, "${1}"+redactedValue+"${3}")
		default:
			input = pattern.ReplaceAllString(input, "${1}"+redactedValue)
		}
	}

	return input
}

func isSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(keyLower, keyword) {
			return true
		}
	}
	return false
}
