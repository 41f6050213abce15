package dataset

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var punctuation = strings.NewReplacer(
	"\r", " ",
	"\n", " ",
	"-", "",
	"/", " ",
	"'", "",
	",", "",
	":", " ",
)

// Clean normalizes a raw text value: accents are folded to their base
// letters, separators are removed or turned into spaces, whitespace is
// collapsed, surrounding quotes are trimmed and the result is lower-cased.
// An empty result means the value is missing.
func Clean(value string) string {
	if value == "" {
		return ""
	}

	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, value)
	if err == nil {
		value = folded
	}

	value = punctuation.Replace(value)
	value = strings.Join(strings.Fields(value), " ")
	value = strings.Trim(value, `"'`)
	return strings.TrimSpace(strings.ToLower(value))
}

// CleanNumber extracts a decimal number from a value such as "$1,299.00".
// ok is false when the value is empty or holds no parsable number.
func CleanNumber(value string) (string, bool) {
	var b strings.Builder
	for _, r := range value {
		if unicode.IsDigit(r) || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "", false
	}
	f, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return "", false
	}
	return strconv.FormatFloat(f, 'f', -1, 64), true
}
