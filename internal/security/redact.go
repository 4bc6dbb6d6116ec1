package security

import (
	"net/url"
	"strings"
)

// RedactURL removes credentials and secret-looking query parameters from a
// URL for safe logging. data: URLs are reduced to their media type.
func RedactURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(rawURL), "data:") {
		if i := strings.IndexAny(rawURL, ",;"); i > 0 {
			return rawURL[:i] + ",[DATA]"
		}
		return "data:[DATA]"
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "[invalid-url]"
	}
	if parsed.User != nil {
		parsed.User = url.User("[REDACTED]")
	}
	if parsed.RawQuery != "" {
		parsed.RawQuery = redactQueryParams(parsed.Query()).Encode()
	}
	return parsed.String()
}

var sensitiveParamPatterns = []string{
	"password",
	"passwd",
	"pwd",
	"secret",
	"token",
	"api_key",
	"apikey",
	"api-key",
	"auth",
	"bearer",
	"credential",
	"key",
	"session",
	"sid",
	"private",
}

func redactQueryParams(params url.Values) url.Values {
	redacted := make(url.Values, len(params))
	for key, values := range params {
		keyLower := strings.ToLower(key)
		redacted[key] = values
		for _, pattern := range sensitiveParamPatterns {
			if strings.Contains(keyLower, pattern) {
				redacted[key] = []string{"[REDACTED]"}
				break
			}
		}
	}
	return redacted
}
