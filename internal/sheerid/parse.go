package sheerid

import (
	"regexp"
	"strings"
)

var (
	verificationIDPattern = regexp.MustCompile(`(?i)verificationId=([a-f0-9\-]+)`)
	externalUserIDPattern = regexp.MustCompile(`(?i)externalUserId=([^&]+)`)
)

// ParseVerificationID extracts the session id from a verification landing
// URL. Hyphens are stripped; letter case is preserved. Returns "" when the
// URL carries no id.
func ParseVerificationID(rawURL string) string {
	m := verificationIDPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return ""
	}
	return strings.ReplaceAll(m[1], "-", "")
}

// ParseExternalUserID extracts the externalUserId query value, if present.
func ParseExternalUserID(rawURL string) string {
	m := externalUserIDPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return ""
	}
	return m[1]
}
