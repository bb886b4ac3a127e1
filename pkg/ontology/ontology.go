// Package ontology 提供本体图的检索能力：按文本查找个体和类，并展开类的后代闭包。
package ontology

import (
	"biosearch-go/internal/model"
	"context"
	"strings"
	"unicode"

	"github.com/cockroachdb/errors"
)

// Term 是本体中的一个类。Score 只在文本检索结果中有意义，Depth 是到根节点的最短距离。
type Term struct {
	URI   string  `json:"uri"`
	Label string  `json:"label"`
	Score float64 `json:"score"`
	Depth int     `json:"depth"`
}

// Individual 是本体中的一个具名实例。
type Individual struct {
	URI      string `json:"uri"`
	Label    string `json:"label"`
	ClassURI string `json:"classUri"`
}

// Service 是本体检索能力。FindTerms 和 FindIndividuals 在查询无法解析时返回 model.ErrQuerySyntax。
type Service interface {
	FindIndividuals(ctx context.Context, query string) ([]Individual, error)
	FindTerms(ctx context.Context, query string) ([]Term, error)
	// Descendants 返回给定类的全部后代类，不包含输入本身。
	Descendants(ctx context.Context, uris []string) ([]Term, error)
	// Term 返回指定 URI 的类，不存在时返回 nil。
	Term(ctx context.Context, uri string) (*Term, error)
}

// queryToken 是解析后的一个检索词，prefix 表示以通配符结尾。
type queryToken struct {
	text   string
	prefix bool
}

// parseQuery 解析本体检索语法：反斜杠转义，双引号短语，括号分组，词尾 * 表示前缀匹配。
// 引号或括号不配对、或以通配符开头的词都是语法错误。
func parseQuery(query string) ([]queryToken, error) {
	var (
		tokens  []queryToken
		current strings.Builder
		inQuote bool
		depth   int
		escaped bool
	)
	flush := func(prefix bool) {
		if current.Len() > 0 {
			text := current.String()
			if text != "and" && text != "or" {
				tokens = append(tokens, queryToken{text: text, prefix: prefix})
			}
			current.Reset()
		}
	}

	for _, r := range query {
		if escaped {
			escaped = false
			if isWordRune(r) {
				current.WriteRune(unicode.ToLower(r))
			} else {
				flush(false)
			}
			continue
		}
		switch {
		case r == '\\':
			escaped = true
		case r == '"':
			flush(false)
			inQuote = !inQuote
		case r == '(':
			flush(false)
			depth++
		case r == ')':
			flush(false)
			depth--
			if depth < 0 {
				return nil, model.QuerySyntaxError(errors.New("unbalanced parenthesis"), query)
			}
		case r == '*':
			if current.Len() == 0 {
				return nil, model.QuerySyntaxError(errors.New("leading wildcard"), query)
			}
			flush(true)
		case isWordRune(r):
			current.WriteRune(unicode.ToLower(r))
		default:
			flush(false)
		}
	}
	flush(false)

	switch {
	case escaped:
		return nil, model.QuerySyntaxError(errors.New("dangling escape"), query)
	case inQuote:
		return nil, model.QuerySyntaxError(errors.New("unterminated phrase"), query)
	case depth != 0:
		return nil, model.QuerySyntaxError(errors.New("unbalanced parenthesis"), query)
	}
	return tokens, nil
}

// EscapeQuery 转义查询中的全部语法字符，使其按字面检索。
func EscapeQuery(query string) string {
	var b strings.Builder
	for _, r := range query {
		if !isWordRune(r) && !unicode.IsSpace(r) {
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// tokenize 把标签切分为小写词。
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool { return !isWordRune(r) })
}

// LabelFromURI 从 URI 的末尾片段推导一个标签，例如 ".../UBERON_0000955" -> "UBERON_0000955"。
func LabelFromURI(uri string) string {
	trimmed := strings.TrimRight(uri, "/#")
	if i := strings.LastIndexAny(trimmed, "/#"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}
