package utils

import (
	"net/mail"
	"strings"
)

// ExtractAddress returns the bare address from a From-style header value
// such as "Alice <alice@example.com>". Unparseable input comes back
// unchanged so the caller can still log or display it.
func ExtractAddress(header string) string {
	addr, err := mail.ParseAddress(header)
	if err != nil {
		return strings.TrimSpace(header)
	}
	return addr.Address
}

// GetDomainFromEmail extracts the domain part from an email address
func GetDomainFromEmail(email string) string {
	parts := strings.Split(ExtractAddress(email), "@")
	if len(parts) != 2 {
		return ""
	}
	return parts[1]
}
