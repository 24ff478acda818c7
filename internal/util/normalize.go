package util

import (
	"strings"
	"unicode"
)

// NormalizeText 比较前的文本清洗：转小写、去标点、压缩空白。
// 对任意输入都不会失败，空输入返回空串。
func NormalizeText(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// ContainsPhrase 忽略大小写的子串判断
func ContainsPhrase(response, phrase string) bool {
	return strings.Contains(strings.ToLower(response), strings.ToLower(phrase))
}
