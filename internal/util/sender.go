package util

import (
	"regexp"
	"strings"
)

var (
	reNamedAddress = regexp.MustCompile(`^\s*"?([^"<]*?)"?\s*<\s*([^<>\s]+@[^<>\s]+)\s*>\s*$`)
	reBareAddress  = regexp.MustCompile(`([^\s<>]+@[^\s<>]+\.[^\s<>]+)`)
	reLocalSplit   = regexp.MustCompile(`[._\-]+`)
)

// ParseSender extracts a display name and address from a From header.
// "Jane Doe <jane@x.com>" yields both; a bare address derives a capitalized
// name from its local part; anything unparseable falls back to "Customer"
// with an empty address. Never fails.
func ParseSender(from string) (name, email string) {
	if m := reNamedAddress.FindStringSubmatch(from); m != nil {
		name = strings.TrimSpace(m[1])
		email = m[2]
		if name == "" {
			name = nameFromAddress(email)
		}
		return name, email
	}

	if m := reBareAddress.FindStringSubmatch(from); m != nil {
		email = m[1]
		return nameFromAddress(email), email
	}

	return "Customer", ""
}

func nameFromAddress(email string) string {
	local := email
	if at := strings.Index(email, "@"); at >= 0 {
		local = email[:at]
	}
	parts := reLocalSplit.Split(local, -1)
	words := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		words = append(words, strings.ToUpper(p[:1])+p[1:])
	}
	if len(words) == 0 {
		return "Customer"
	}
	return strings.Join(words, " ")
}
