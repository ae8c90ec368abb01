package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FoldLabel reduces a free-text label to a comparable key: lower case, accents
// removed and runs of spaces, hyphens or underscores collapsed to a single "_".
// "En Ejecución", "en_ejecucion" and "EN-EJECUCION" all fold to "en_ejecucion".
func FoldLabel(value string) string {
	stripper := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(stripper, strings.TrimSpace(value))
	if err != nil {
		folded = strings.TrimSpace(value)
	}
	folded = strings.ToLower(folded)

	var builder strings.Builder
	pendingSep := false
	for _, r := range folded {
		if r == ' ' || r == '_' || r == '-' || r == '\t' {
			pendingSep = builder.Len() > 0
			continue
		}
		if pendingSep {
			builder.WriteByte('_')
			pendingSep = false
		}
		builder.WriteRune(r)
	}
	return builder.String()
}
