package service

import (
	"strings"
	"unicode"
)

// Conjunction 是一组必须同时满足的检索词。
type Conjunction []string

// DNF 是析取范式：各个合取子句之间为 OR 关系。
type DNF []Conjunction

// ParseDNF 把查询解析为析取范式。OR 分隔子句，AND 分隔同一子句内的检索词；
// 没有运算符分隔的相邻单词合并为一个检索词，双引号内的文本原样作为一个检索词。
// 运算符只识别大写形式。
func ParseDNF(query string) DNF {
	var (
		out    DNF
		clause Conjunction
		words  []string
	)
	flushTerm := func() {
		if len(words) > 0 {
			clause = append(clause, strings.Join(words, " "))
			words = nil
		}
	}
	flushClause := func() {
		flushTerm()
		if len(clause) > 0 {
			out = append(out, clause)
			clause = nil
		}
	}

	for _, tok := range splitDNFTokens(query) {
		switch {
		case tok.quoted:
			flushTerm()
			if tok.text != "" {
				clause = append(clause, tok.text)
			}
		case tok.text == "OR":
			flushClause()
		case tok.text == "AND":
			flushTerm()
		default:
			words = append(words, tok.text)
		}
	}
	flushClause()
	return out
}

type dnfToken struct {
	text   string
	quoted bool
}

// splitDNFTokens 按空白切分，双引号内的空白不切分，未闭合的引号延续到末尾。
func splitDNFTokens(query string) []dnfToken {
	var (
		out     []dnfToken
		current strings.Builder
		inQuote bool
	)
	flush := func(quoted bool) {
		text := strings.TrimSpace(current.String())
		current.Reset()
		if text != "" || quoted {
			out = append(out, dnfToken{text: text, quoted: quoted})
		}
	}
	for _, r := range query {
		switch {
		case r == '"':
			flush(inQuote)
			inQuote = !inQuote
		case unicode.IsSpace(r) && !inQuote:
			flush(false)
		default:
			current.WriteRune(r)
		}
	}
	flush(inQuote)
	return out
}

// String 以规范形式输出，便于日志。
func (d DNF) String() string {
	clauses := make([]string, len(d))
	for i, c := range d {
		terms := make([]string, len(c))
		for j, t := range c {
			terms[j] = `"` + t + `"`
		}
		clauses[i] = "(" + strings.Join(terms, " AND ") + ")"
	}
	return strings.Join(clauses, " OR ")
}
