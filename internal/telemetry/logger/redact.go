package logger

import (
	"log/slog"
	"strings"
)

// AWS access key id prefixes (long-term and temporary credentials).
var sensitiveValuePrefixes = []string{
	"AKIA",
	"ASIA",
}

// Key fragments whose values are always hidden.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"credential",
	"authorization",
	"session_key",
	"access_key",
}

const redactedValue = "***REDACTED***"

// redactSensitive masks credentials in a log attribute. Values that look
// like AWS access key ids are partially masked; values of sensitive keys
// are replaced entirely.
func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		strVal := a.Value.String()
		if prefix, ok := accessKeyPrefix(strVal); ok {
			return slog.String(a.Key, maskValue(strVal, prefix))
		}
		if strVal != "" && IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
	}

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}

	return a
}

// accessKeyPrefix reports whether value looks like an AWS access key id:
// a known prefix followed by 16 upper-case alphanumerics.
func accessKeyPrefix(value string) (string, bool) {
	if len(value) != 20 {
		return "", false
	}
	for _, prefix := range sensitiveValuePrefixes {
		if !strings.HasPrefix(value, prefix) {
			continue
		}
		for _, r := range value[len(prefix):] {
			if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
				return "", false
			}
		}
		return prefix, true
	}
	return "", false
}

// maskValue keeps the prefix and the last 4 characters.
func maskValue(value, prefix string) string {
	if len(value) <= len(prefix)+4 {
		return prefix + "***"
	}
	return prefix + "***" + value[len(value)-4:]
}

// RedactString redacts a value before it is embedded in a message.
func RedactString(value string) string {
	if prefix, ok := accessKeyPrefix(value); ok {
		return maskValue(value, prefix)
	}
	return value
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}
