// Package romname normalizes ROM and disc image filenames for matching.
package romname

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// discPattern matches parenthesized or bracketed disc/volume indicators,
// e.g. "(Disc 1)", "(Disk 2 of 3)", "[CD2]", "(Vol. 1)", "(Side B)".
var discPattern = regexp.MustCompile(`(?i)\s*[\(\[]\s*(?:disc|disk|cd|volume|vol\.?|side)\s*[0-9a-z]{1,2}(?:\s*of\s*[0-9]+)?\s*[\)\]]`)

// trailingDiscPattern matches a bare trailing "Disc 1" / "- CD2" suffix.
var trailingDiscPattern = regexp.MustCompile(`(?i)[\s_\-]+(?:disc|disk|cd)\s*[0-9]+$`)

// tagPatterns strip region, revision and dump tags such as "(USA)",
// "(Rev 1)", "[T+Eng]" and "[!]".
var tagPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\s*\([^)]*\)`),
	regexp.MustCompile(`\s*\[[^\]]*\]`),
	regexp.MustCompile(`\s*\{[^}]*\}`),
}

var extPattern = regexp.MustCompile(`^\.[A-Za-z0-9]{1,6}$`)

// Ext returns the lowercase extension of name without the dot.
// Dotted title fragments like "Bros. 3" are not treated as extensions.
func Ext(name string) string {
	ext := filepath.Ext(name)
	if !extPattern.MatchString(ext) {
		return ""
	}
	return strings.ToLower(ext[1:])
}

// TrimExt removes the extension reported by Ext.
func TrimExt(name string) string {
	ext := Ext(name)
	if ext == "" {
		return name
	}
	return name[:len(name)-len(ext)-1]
}

// StripDiscNames removes disc and volume indicators from a filename.
// The extension, if any, is preserved.
func StripDiscNames(name string) string {
	ext := Ext(name)
	base := TrimExt(name)
	base = discPattern.ReplaceAllString(base, "")
	base = trailingDiscPattern.ReplaceAllString(base, "")
	base = collapse(base)
	if ext == "" {
		return base
	}
	return base + "." + ext
}

// StripTags removes bracketed and parenthesized tags.
func StripTags(name string) string {
	for _, p := range tagPatterns {
		name = p.ReplaceAllString(name, "")
	}
	return collapse(name)
}

// SearchName builds the query used for reference database filename searches:
// extension stripped, disc indicators and tags removed.
func SearchName(filename string) string {
	base := TrimExt(filepath.Base(filename))
	base = StripDiscNames(base)
	return StripTags(base)
}

// Title derives a display title from a filename. Only the extension and
// disc indicators are removed.
func Title(filename string) string {
	base := TrimExt(filepath.Base(filename))
	return StripDiscNames(base)
}

// AggregationKey returns a case and accent insensitive key that is equal for
// every disc of the same release. Region and revision tags are kept so
// different releases of one title stay apart.
func AggregationKey(filename string) string {
	return strings.ToLower(removeAccents(Title(filename)))
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func removeAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// romanNumeralRegex matches Roman numerals II-IX when preceded by a space.
// Standalone "I" and "X" are skipped ("X-Men", "Mega Man X").
var romanNumeralRegex = regexp.MustCompile(`(?i) (ii|iii|iv|v|vi|vii|viii|ix)\b`)

var romanToArabic = map[string]string{
	"II": "2", "III": "3", "IV": "4", "V": "5",
	"VI": "6", "VII": "7", "VIII": "8", "IX": "9",
}

// NormalizeRomanNumerals converts Roman numerals (II-IX) to Arabic numbers.
func NormalizeRomanNumerals(s string) string {
	return romanNumeralRegex.ReplaceAllStringFunc(s, func(match string) string {
		roman := strings.TrimSpace(match)
		if arabic, ok := romanToArabic[strings.ToUpper(roman)]; ok {
			return " " + arabic
		}
		return match
	})
}

// CleanTitle normalizes a title for fuzzy comparison.
// Removes tags, articles, punctuation and accents, and converts Roman numerals.
func CleanTitle(title string) string {
	s := strings.ToLower(StripTags(title))
	s = NormalizeRomanNumerals(s)
	s = removeAccents(s)

	s = strings.ReplaceAll(s, "&", " and ")
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, "'", "")
	s = strings.ReplaceAll(s, ".", " ")

	parts := strings.Split(s, ":")
	for i, part := range parts {
		parts[i] = stripLeadingArticle(strings.TrimSpace(part))
	}
	s = strings.Join(parts, " ")

	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return collapse(b.String())
}

func stripLeadingArticle(s string) string {
	s = strings.TrimSpace(s)
	for _, art := range []string{"the ", "a ", "an "} {
		if strings.HasPrefix(s, art) {
			return strings.TrimPrefix(s, art)
		}
	}
	return s
}
