// Package textnorm holds the string folding rules shared by the importers:
// slugs, diacritic folding and splitting of legacy free-text fields.
package textnorm

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonWord    = regexp.MustCompile(`[^\w\s-]`)
	dashSpace  = regexp.MustCompile(`[-\s]+`)
	firstInt   = regexp.MustCompile(`\d+`)
	freeTextOp = strings.NewReplacer("\r\n", ",", "\n", ",", "\r", ",", ";", ",")
	quotes     = strings.NewReplacer("„", "", "”", "", `"`, "")
)

// ł and Ł have no canonical decomposition, NFKD leaves them alone.
func mapStroke(r rune) rune {
	switch r {
	case 'ł':
		return 'l'
	case 'Ł':
		return 'L'
	}
	return r
}

// Fold lower-cases s and strips diacritics ("Długość" -> "dlugosc").
func Fold(s string) string {
	t := transform.Chain(norm.NFKD, runes.Map(mapStroke), runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// Slugify turns a label into an ASCII slug: "Uzależnienie od alkoholu" -> "uzaleznienie-od-alkoholu".
func Slugify(s string) string {
	folded := Fold(s)
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	out := nonWord.ReplaceAllString(b.String(), "")
	out = dashSpace.ReplaceAllString(out, "-")
	return strings.Trim(out, "-_")
}

// SplitFreeText splits a legacy list field on commas, semicolons and newlines.
// Tokens are trimmed and lower-cased; empty ones are dropped.
func SplitFreeText(s string) []string {
	parts := strings.Split(freeTextOp.Replace(s), ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// NormalizeName is the key used to compare facility names scraped from different pages.
func NormalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(quotes.Replace(s))), " ")
}

// TitleName returns the part of a page title before the site name.
func TitleName(title string) string {
	return strings.TrimSpace(strings.SplitN(title, "|", 2)[0])
}

// FirstInt returns the first run of digits in s.
func FirstInt(s string) (int, bool) {
	m := firstInt.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

// IsNumber reports whether s is a non-empty string of ASCII digits.
func IsNumber(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
