// Package redaction masks credentials before they reach log output.
// It combines pattern detection (API keys, bearer tokens, JWTs) with an
// exact-value registry fed by the secrets provider, so a resolved endpoint
// key is masked even when it does not look like a key.
package redaction

import (
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Config holds redaction configuration.
type Config struct {
	Enabled bool `json:"enabled"`

	// RedactAPIKeys masks API keys and bearer/JWT tokens found by pattern.
	RedactAPIKeys bool `json:"redact_api_keys"`

	// RedactEmails partially masks email addresses.
	RedactEmails bool `json:"redact_emails"`

	CustomPatterns []string `json:"custom_patterns"`

	Replacement string `json:"replacement"`
}

func DefaultConfig() Config {
	return Config{
		Enabled:       true,
		RedactAPIKeys: true,
		RedactEmails:  false,
		Replacement:   "[REDACTED]",
	}
}

// minKnownValueLen keeps short values such as api versions ("2024-06-01")
// usable in logs; they are not credentials.
const minKnownValueLen = 8

var (
	reAssignedKey = regexp.MustCompile(`(?i)(api[_-]?key|apikey|api[_-]?secret|secret[_-]?key|access[_-]?token|auth[_-]?token)\s*[=:]\s*['"]?([a-zA-Z0-9_\-\.]{16,})['"]?`)
	reBearer      = regexp.MustCompile(`(?i)bearer\s+([a-zA-Z0-9_\-\.]{16,})`)
	reOpenAIKey   = regexp.MustCompile(`sk-[a-zA-Z0-9_\-]{20,}`)
	reTavilyKey   = regexp.MustCompile(`tvly-[a-zA-Z0-9_\-]{16,}`)
	reJWT         = regexp.MustCompile(`eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`)
	reJSONSecret  = regexp.MustCompile(`"(?:api_key|apikey|secret|password|token|key)"\s*:\s*"([^"]+)"`)
	reEmail       = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
)

// Redactor masks sensitive values in strings and log fields.
type Redactor struct {
	mu       sync.RWMutex
	config   Config
	custom   []*regexp.Regexp
	known    map[string]struct{}
	knownSeq []string // longest first, so overlapping values mask fully
}

func NewRedactor(config Config) *Redactor {
	if config.Replacement == "" {
		config.Replacement = "[REDACTED]"
	}
	r := &Redactor{
		config: config,
		known:  make(map[string]struct{}),
	}
	for _, pattern := range config.CustomPatterns {
		if re, err := regexp.Compile(pattern); err == nil {
			r.custom = append(r.custom, re)
		}
	}
	return r
}

// AddKnownValue registers an exact value that must never be logged.
// Values shorter than a few characters are ignored.
func (r *Redactor) AddKnownValue(value string) {
	value = strings.TrimSpace(value)
	if len(value) < minKnownValueLen {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.known[value]; ok {
		return
	}
	r.known[value] = struct{}{}
	r.knownSeq = append(r.knownSeq, value)
	sort.SliceStable(r.knownSeq, func(i, j int) bool {
		return len(r.knownSeq[i]) > len(r.knownSeq[j])
	})
}

// Redact applies all configured rules to input.
func (r *Redactor) Redact(input string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.config.Enabled || input == "" {
		return input
	}

	result := input
	for _, value := range r.knownSeq {
		result = strings.ReplaceAll(result, value, r.config.Replacement)
	}

	if r.config.RedactAPIKeys {
		result = r.replaceGroups(result, reAssignedKey, reBearer, reJSONSecret)
		result = reOpenAIKey.ReplaceAllString(result, r.config.Replacement)
		result = reTavilyKey.ReplaceAllString(result, r.config.Replacement)
		result = reJWT.ReplaceAllString(result, r.config.Replacement)
	}

	if r.config.RedactEmails {
		result = reEmail.ReplaceAllStringFunc(result, maskEmail)
	}

	for _, re := range r.custom {
		result = re.ReplaceAllString(result, r.config.Replacement)
	}

	return result
}

// replaceGroups masks only the last capture group of each match, keeping the
// key name visible ("api_key=[REDACTED]").
func (r *Redactor) replaceGroups(input string, patterns ...*regexp.Regexp) string {
	for _, re := range patterns {
		input = re.ReplaceAllStringFunc(input, func(match string) string {
			sub := re.FindStringSubmatch(match)
			if len(sub) < 2 {
				return r.config.Replacement
			}
			secret := sub[len(sub)-1]
			if secret == "" {
				return match
			}
			return strings.Replace(match, secret, r.config.Replacement, 1)
		})
	}
	return input
}

func maskEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" {
		return email
	}
	return local[:1] + "***@" + domain
}

// RedactFields returns a copy of fields with sensitive keys and values masked.
func (r *Redactor) RedactFields(fields map[string]any) map[string]any {
	r.mu.RLock()
	enabled := r.config.Enabled
	replacement := r.config.Replacement
	r.mu.RUnlock()

	if !enabled || fields == nil {
		return fields
	}

	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if isSensitiveKey(strings.ToLower(k)) {
			out[k] = replacement
			continue
		}
		switch val := v.(type) {
		case string:
			out[k] = r.Redact(val)
		case map[string]any:
			out[k] = r.RedactFields(val)
		case error:
			out[k] = r.Redact(val.Error())
		default:
			out[k] = v
		}
	}
	return out
}

func isSensitiveKey(key string) bool {
	for _, sk := range []string{"password", "api_key", "apikey", "secret_value", "token", "credential"} {
		if strings.Contains(key, sk) {
			return true
		}
	}
	return false
}

func (r *Redactor) SetEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.config.Enabled = enabled
}

var (
	globalMu       sync.RWMutex
	globalRedactor = NewRedactor(DefaultConfig())
)

func global() *Redactor {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalRedactor
}

// Redact applies redaction using the global redactor.
func Redact(input string) string {
	return global().Redact(input)
}

// RedactFields redacts fields using the global redactor.
func RedactFields(fields map[string]any) map[string]any {
	return global().RedactFields(fields)
}

// AddKnownValue registers value with the global redactor.
func AddKnownValue(value string) {
	global().AddKnownValue(value)
}

// SetGlobalConfig replaces the global redactor. Previously registered known
// values are carried over.
func SetGlobalConfig(config Config) {
	next := NewRedactor(config)

	globalMu.Lock()
	defer globalMu.Unlock()

	globalRedactor.mu.RLock()
	for _, v := range globalRedactor.knownSeq {
		next.known[v] = struct{}{}
		next.knownSeq = append(next.knownSeq, v)
	}
	globalRedactor.mu.RUnlock()

	globalRedactor = next
}
