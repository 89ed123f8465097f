package logging

import (
	"log/slog"
	"regexp"
	"strings"
)

// Redactor removes credentials from log attributes.
type Redactor struct {
	patterns []*redactPattern
}

type redactPattern struct {
	regex       *regexp.Regexp
	replacement string
}

// NewRedactor creates a redactor with the built-in credential patterns.
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []*redactPattern{
			// Authorization header values for both accepted schemes.
			{
				regex:       regexp.MustCompile(`(?i)\b(Bearer|Service)\s+[a-zA-Z0-9\-._~+/]+=*`),
				replacement: "$1 ***",
			},
			// Bare compact JWS tokens.
			{
				regex:       regexp.MustCompile(`\beyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]*`),
				replacement: "***",
			},
			{
				regex:       regexp.MustCompile(`(?i)(password|passwd|secret)[:=]\s*[^\s]+`),
				replacement: "$1: ***",
			},
		},
	}
}

// RedactString redacts credentials embedded in a string value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}
	for _, p := range r.patterns {
		value = p.regex.ReplaceAllString(value, p.replacement)
	}
	return value
}

// RedactAttr returns a copy of a with sensitive content removed. Values of
// sensitive keys are replaced entirely; other string values are scanned for
// embedded tokens. Groups are processed recursively.
func (r *Redactor) RedactAttr(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()

	switch v.Kind() {
	case slog.KindGroup:
		attrs := v.Group()
		out := make([]any, len(attrs))
		for i, ga := range attrs {
			out[i] = r.RedactAttr(ga)
		}
		return slog.Group(a.Key, out...)
	case slog.KindString:
		if isSensitiveKey(a.Key) {
			return slog.String(a.Key, redactValue(v.String()))
		}
		return slog.String(a.Key, r.RedactString(v.String()))
	default:
		if isSensitiveKey(a.Key) {
			return slog.String(a.Key, "***")
		}
		return slog.Attr{Key: a.Key, Value: v}
	}
}

// isSensitiveKey checks if a key name indicates a credential.
func isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)

	for _, sensitive := range []string{
		"password", "passwd", "secret", "token", "authorization", "private_key",
	} {
		if strings.Contains(lowerKey, sensitive) {
			return true
		}
	}
	return false
}

// redactValue keeps a short prefix of v for correlation.
func redactValue(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 8 {
		return "***"
	}
	return v[:4] + "***"
}
