package shared

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FoldKey canonicalises free-form tags: accents stripped, upper-cased,
// inner whitespace and hyphens collapsed to single underscores.
// "Punto de venta" and "PUNTO-DE-VENTA" both fold to "PUNTO_DE_VENTA".
func FoldKey(s string) string {
	stripped, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		stripped = s
	}
	upper := cases.Upper(language.Und).String(stripped)
	fields := strings.FieldsFunc(upper, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == '_'
	})
	return strings.Join(fields, "_")
}
