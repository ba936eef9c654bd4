// Package textutil decodes internationalized mail headers and normalizes
// text for keyword matching and filesystem use.
package textutil

import (
	"mime"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxFilenameLen caps sanitized filenames; MaxFragmentLen caps
// subject-derived folder and pattern fragments.
const (
	MaxFilenameLen = 100
	MaxFragmentLen = 30
)

// accentReplacer covers the common Spanish-alphabet diacritics. This is a
// fixed replacement table, not full Unicode normalization; accented
// characters outside the table pass through unchanged.
var accentReplacer = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u",
	"ñ", "n", "ç", "c",
)

// DecodeHeader decodes an RFC 2047 encoded header value into a plain
// string. A failure to decode an individual encoded word falls back to the
// raw value rather than returning an error; nil-ish (empty) input yields "".
func DecodeHeader(raw string) string {
	if raw == "" {
		return ""
	}

	dec := mime.WordDecoder{}
	decoded, err := dec.DecodeHeader(raw)
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return strings.TrimSpace(decoded)
}

// NormalizeForMatch lowercases text and strips the documented accent table
// so keyword matching is accent- and case-insensitive.
func NormalizeForMatch(text string) string {
	if text == "" {
		return ""
	}
	return accentReplacer.Replace(strings.ToLower(text))
}

var (
	illegalPathChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	whitespaceRuns   = regexp.MustCompile(`\s+`)
)

// SanitizeFilename replaces characters illegal in file paths with an
// underscore, collapses whitespace runs, strips leading/trailing separator
// characters and truncates to MaxFilenameLen.
func SanitizeFilename(text string) string {
	return sanitize(text, MaxFilenameLen)
}

// SanitizeFragment sanitizes a subject-derived fragment with the shorter
// MaxFragmentLen cap.
func SanitizeFragment(text string) string {
	return sanitize(text, MaxFragmentLen)
}

func sanitize(text string, maxLen int) string {
	cleaned := illegalPathChars.ReplaceAllString(text, "_")
	cleaned = whitespaceRuns.ReplaceAllString(cleaned, "_")
	cleaned = strings.Trim(cleaned, "._")
	if utf8.RuneCountInString(cleaned) > maxLen {
		cleaned = string([]rune(cleaned)[:maxLen])
	}
	return cleaned
}
