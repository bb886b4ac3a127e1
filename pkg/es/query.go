package es

import (
	"biosearch-go/internal/model"
	"strings"

	"github.com/cockroachdb/errors"
)

// Query 是已通过语法检查、可以发送给索引引擎的查询。
type Query struct {
	Text string
}

// ParseQuery 按 Lucene query_string 语法检查查询，语法错误标记为 model.ErrQuerySyntax。
// 检查项：引号与括号配对、查询不以布尔运算符开头或结尾、末尾没有悬空的转义符。
func ParseQuery(raw string) (Query, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Query{}, model.QuerySyntaxError(errors.New("empty query"), raw)
	}

	var stack []rune
	inQuote := false
	escaped := false
	for _, r := range text {
		if escaped {
			escaped = false
			continue
		}
		switch r {
		case '\\':
			escaped = true
		case '"':
			inQuote = !inQuote
		case '(', '[', '{':
			if !inQuote {
				stack = append(stack, r)
			}
		case ')', ']', '}':
			if inQuote {
				continue
			}
			if len(stack) == 0 || !matches(stack[len(stack)-1], r) {
				return Query{}, model.QuerySyntaxError(errors.Newf("unbalanced %q", r), raw)
			}
			stack = stack[:len(stack)-1]
		}
	}
	switch {
	case escaped:
		return Query{}, model.QuerySyntaxError(errors.New("dangling escape"), raw)
	case inQuote:
		return Query{}, model.QuerySyntaxError(errors.New("unterminated phrase"), raw)
	case len(stack) > 0:
		return Query{}, model.QuerySyntaxError(errors.Newf("unclosed %q", stack[len(stack)-1]), raw)
	}

	tokens := strings.Fields(text)
	if isOperator(tokens[0]) || isOperator(tokens[len(tokens)-1]) {
		return Query{}, model.QuerySyntaxError(errors.New("boolean operator without operand"), raw)
	}
	return Query{Text: text}, nil
}

func matches(open, closing rune) bool {
	switch open {
	case '(':
		return closing == ')'
	case '[':
		return closing == ']' || closing == '}'
	case '{':
		return closing == '}' || closing == ']'
	}
	return false
}

func isOperator(tok string) bool {
	switch tok {
	case "AND", "OR", "NOT", "&&", "||":
		return true
	}
	return false
}

// body 生成 query_string 查询体。
func (q Query) body(fields []string) map[string]any {
	return map[string]any{
		"query_string": map[string]any{
			"query":            q.Text,
			"fields":           fields,
			"default_operator": "OR",
			"lenient":          true,
		},
	}
}
