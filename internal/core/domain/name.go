package domain

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	DefaultName   = "Anonymous"
	MaxNameLength = 64
)

// NormalizeName returns the canonical display name: NFC form, whitespace collapsed,
// at most MaxNameLength runes, DefaultName when blank.
func NormalizeName(name string) string {
	n := strings.Join(strings.Fields(norm.NFC.String(name)), " ")
	if n == "" {
		return DefaultName
	}
	if utf8.RuneCountInString(n) > MaxNameLength {
		n = strings.TrimSpace(string([]rune(n)[:MaxNameLength]))
	}
	return n
}
