package util

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FoldText 去除重音、转小写并压缩空白，用于宽松匹配
// "  Cidade  de Destíno " -> "cidade de destino"
func FoldText(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.TrimPrefix(folded, "\ufeff")
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}
