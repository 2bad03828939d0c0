package slogx

import (
	"log/slog"
	"strings"
)

// Redacted replaces the value of any sensitive attribute.
const Redacted = "[REDACTED]"

var sensitiveKeys = map[string]struct{}{
	"password":      {},
	"new_password":  {},
	"secret":        {},
	"mfa_secret":    {},
	"token":         {},
	"access_token":  {},
	"code":          {},
	"authorization": {},
	"private_key":   {},
	"pepper":        {},
}

// Redact is a slog ReplaceAttr hook that masks credentials, codes, tokens
// and key material by attribute name, at any group depth.
func Redact(_ []string, a slog.Attr) slog.Attr {
	if _, ok := sensitiveKeys[strings.ToLower(a.Key)]; ok {
		return slog.String(a.Key, Redacted)
	}
	return a
}
