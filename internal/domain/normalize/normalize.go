// Package normalize turns display names into comparable keys and ID slugs.
//
// Every component that compares names or mints IDs goes through this package
// so that the same name always produces the same key.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Letters NFD cannot decompose into a base letter plus a mark.
var foldReplacer = strings.NewReplacer(
	"ø", "o", "Ø", "o",
	"ß", "ss",
	"æ", "ae", "Æ", "ae",
	"œ", "oe", "Œ", "oe",
	"đ", "d", "Đ", "d",
	"ł", "l", "Ł", "l",
	"þ", "th", "Þ", "th",
	"ı", "i",
)

// Apostrophe and quote variants seen in entered names.
var quoteReplacer = strings.NewReplacer(
	"’", "'", // right single quotation mark
	"‘", "'", // left single quotation mark
	"`", "'",
	"´", "'", // acute accent
)

// Punctuation removed from comparison keys. The apostrophe is kept so that
// quote variants compare equal without erasing the mark entirely.
const strippedPunctuation = `.,-_"()/&;:!?`

// Key canonicalizes a display name into a comparable key: lower-cased,
// accents folded to ASCII, quote variants mapped to an apostrophe, and all
// whitespace and stripped punctuation removed.
func Key(name string) string {
	if name == "" {
		return ""
	}
	s := quoteReplacer.Replace(Fold(name))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) || strings.ContainsRune(strippedPunctuation, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Fold lower-cases s and strips diacritics.
func Fold(s string) string {
	s = foldReplacer.Replace(strings.ToLower(s))
	stripAccents := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(stripAccents, s)
	if err != nil {
		return s
	}
	return out
}

// FirstToken returns the first whitespace-delimited token of name, folded.
func FirstToken(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return Key(fields[0])
}

// Prefix returns at most n runes of s.
func Prefix(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// Slug turns a name into a hyphenated ID fragment: lowercase ASCII letters
// and digits separated by single hyphens. Apostrophes are dropped rather
// than treated as separators, so "O'Neill" becomes "oneill".
func Slug(name string) string {
	s := quoteReplacer.Replace(Fold(name))
	var b strings.Builder
	b.Grow(len(s))
	pendingHyphen := false
	for _, r := range s {
		switch {
		case r == '\'':
			continue
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		default:
			pendingHyphen = true
		}
	}
	return b.String()
}
