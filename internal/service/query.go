package service

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MinIndexQueryLength 是全文检索要求的最少单词字符数。
const MinIndexQueryLength = 2

var (
	// reservedChars 是全文检索语法保留的字符。
	reservedChars = regexp.MustCompile(`&&|\|\||[+\-!(){}\[\]^"~*?:\\]`)
	// reservedCharsKeepWildcards 同上，但保留通配符 * 和 ?。
	reservedCharsKeepWildcards = regexp.MustCompile(`&&|\|\||[+\-!(){}\[\]^"~:\\]`)
	nonWordChars               = regexp.MustCompile(`\W+`)
	whitespace                 = regexp.MustCompile(`\s+`)

	likeEscaper = strings.NewReplacer(
		"!", "!!",
		"%", "!%",
		"_", "!_",
		"*", "%",
		"?", "_",
	)
)

// PrepareDatabaseQuery 去掉全文检索的保留字符，用于等值匹配。
func PrepareDatabaseQuery(query string) string {
	cleaned := reservedChars.ReplaceAllString(query, "")
	return strings.TrimSpace(whitespace.ReplaceAllString(cleaned, " "))
}

// PrepareLikeQuery 生成 LIKE 模式：去掉除通配符外的保留字符，
// 按 '!' 转义 LIKE 自身的通配符，再把 * 和 ? 翻译为 % 和 _。
func PrepareLikeQuery(query string) string {
	cleaned := reservedCharsKeepWildcards.ReplaceAllString(query, "")
	cleaned = strings.TrimSpace(whitespace.ReplaceAllString(cleaned, " "))
	return likeEscaper.Replace(cleaned)
}

// SanitizeIndexQuery 去掉长度不超过 1 的词并用单个空格重新连接。
func SanitizeIndexQuery(query string) string {
	fields := strings.Fields(query)
	kept := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) > 1 {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, " ")
}

// indexQueryTooShort 判断去掉非单词字符后查询是否短于 MinIndexQueryLength。
func indexQueryTooShort(query string) bool {
	return utf8.RuneCountInString(nonWordChars.ReplaceAllString(query, "")) < MinIndexQueryLength
}
