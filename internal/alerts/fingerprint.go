// Package alerts routes alert deltas into deduplicated rows: one incident,
// one row, however many times it fires. It owns all alert writes so
// fingerprint locking, notification, and event publication stay in one place.
package alerts

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"unicode"

	"github.com/opspulse/opspulse/internal/database"
)

// severityClass buckets severities for identity purposes. Warning and
// critical share a class so an incident that worsens escalates the row it
// already owns instead of opening a second one; info notices never merge
// with incidents.
func severityClass(s database.AlertSeverity) string {
	if s == database.AlertSeverityInfo {
		return "notice"
	}
	return "incident"
}

// NormalizeTitle lowercases, trims, collapses whitespace runs, and folds
// digit runs to '#'. "High CPU usage: 93%" and "High CPU usage: 97%" carry
// the same identity; the live number stays visible on the stored row.
func NormalizeTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))

	lastSpace, lastDigit := false, false
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteByte(' ')
			}
			lastSpace, lastDigit = true, false
		case unicode.IsDigit(r):
			if !lastDigit {
				b.WriteByte('#')
			}
			lastSpace, lastDigit = false, true
		default:
			b.WriteRune(r)
			lastSpace, lastDigit = false, false
		}
	}
	return b.String()
}

// Fingerprint derives the dedup identity for an alert: the first 12 hex
// chars of MD5 over source, normalized title, and severity class.
func Fingerprint(source, title string, severity database.AlertSeverity) string {
	content := source + "|" + NormalizeTitle(title) + "|" + severityClass(severity)
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])[:12]
}
