package logging

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"mercator-hq/verdict/pkg/config"
)

// Built-in pattern names.
const (
	PatternOpenAIKey   = "openai_key"
	PatternGoogleKey   = "google_key"
	PatternGitHubToken = "github_token"
	PatternBearerToken = "bearer_token"
	PatternPassword    = "password"
)

// Redactor masks credentials in log attributes.
type Redactor struct {
	patterns []redactPattern
}

type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Patterns are applied in order; the Anthropic "sk-ant-" prefix is covered by
// the OpenAI pattern.
var defaultPatterns = []struct {
	name, regex, replacement string
}{
	{PatternOpenAIKey, `sk-[A-Za-z0-9_\-]{6,}`, "sk-***"},
	{PatternGoogleKey, `AIza[0-9A-Za-z_\-]{20,}`, "AIza***"},
	{PatternGitHubToken, `\b(gh[pousr]_)[A-Za-z0-9]{10,}`, "${1}***"},
	{PatternBearerToken, `Bearer\s+[A-Za-z0-9\-._~+/]+=*`, "Bearer ***"},
	{PatternPassword, `(password|passwd|pwd)[:=]\s*\S+`, "$1: ***"},
}

var sensitiveKeys = []string{
	"password", "passwd", "pwd",
	"secret", "token", "api_key", "apikey",
	"authorization", "passphrase",
	"private_key", "privatekey",
}

// NewRedactor compiles the built-in patterns followed by custom ones.
func NewRedactor(custom []config.RedactPattern) (*Redactor, error) {
	r := &Redactor{}
	for _, p := range defaultPatterns {
		r.patterns = append(r.patterns, redactPattern{
			name:        p.name,
			regex:       regexp.MustCompile(p.regex),
			replacement: p.replacement,
		})
	}
	for _, p := range custom {
		regex, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid redact pattern %q: %w", p.Name, err)
		}
		r.patterns = append(r.patterns, redactPattern{
			name:        p.Name,
			regex:       regex,
			replacement: p.Replacement,
		})
	}
	return r, nil
}

// RedactString applies every pattern to value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}
	for _, p := range r.patterns {
		value = p.regex.ReplaceAllString(value, p.replacement)
	}
	return value
}

// RedactAttr masks the value of sensitive keys and scans string values.
// Groups are redacted recursively.
func (r *Redactor) RedactAttr(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()

	switch v.Kind() {
	case slog.KindGroup:
		group := v.Group()
		redacted := make([]slog.Attr, len(group))
		for i, ga := range group {
			redacted[i] = r.RedactAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(redacted...)}
	case slog.KindString:
		if isSensitiveKey(a.Key) {
			return slog.String(a.Key, MaskValue(v.String()))
		}
		return slog.String(a.Key, r.RedactString(v.String()))
	default:
		if isSensitiveKey(a.Key) {
			return slog.String(a.Key, "***")
		}
		if err, ok := v.Any().(error); ok && v.Kind() == slog.KindAny {
			return slog.String(a.Key, r.RedactString(err.Error()))
		}
		return slog.Attr{Key: a.Key, Value: v}
	}
}

// isSensitiveKey checks if a key name indicates a credential.
func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	if strings.HasSuffix(lower, "tokens") {
		// Counts such as max_tokens.
		return false
	}
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// MaskValue keeps the first four characters of a credential for
// identification.
func MaskValue(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 4 {
		return "***"
	}
	return v[:4] + "***"
}
