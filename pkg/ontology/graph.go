package ontology

import (
	"biosearch-go/pkg/log"
	"context"
	"encoding/json"
	"os"
	"sort"

	"github.com/cockroachdb/errors"
)

// GraphFile 是本体图文件的 JSON 结构。
type GraphFile struct {
	Terms []struct {
		URI      string   `json:"uri"`
		Label    string   `json:"label"`
		Synonyms []string `json:"synonyms"`
		Parents  []string `json:"parents"`
	} `json:"terms"`
	Individuals []struct {
		URI   string `json:"uri"`
		Label string `json:"label"`
		Type  string `json:"type"`
	} `json:"individuals"`
}

type termNode struct {
	term     Term
	names    [][]string
	parents  []string
	children []string
}

type individualNode struct {
	individual Individual
	names      [][]string
}

// Graph 是只读的内存本体图，构建后可被并发查询。
type Graph struct {
	terms       map[string]*termNode
	order       []string
	individuals []individualNode
}

// LoadGraph 从 JSON 文件加载本体图。
func LoadGraph(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read ontology graph %s", path)
	}
	return ParseGraph(data, path)
}

// ParseGraph 由 JSON 内容构建本体图，name 只用于日志和错误信息。
func ParseGraph(data []byte, name string) (*Graph, error) {
	var file GraphFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrapf(err, "failed to parse ontology graph %s", name)
	}
	g := NewGraph(file)
	log.Infof("[Ontology] 本体图加载完成, file: %s, terms: %d, individuals: %d", name, len(g.terms), len(g.individuals))
	return g, nil
}

// NewGraph 由已解析的图文件构建 Graph，并计算每个类的深度。
func NewGraph(file GraphFile) *Graph {
	g := &Graph{terms: make(map[string]*termNode, len(file.Terms))}
	for _, t := range file.Terms {
		if _, dup := g.terms[t.URI]; dup {
			continue
		}
		n := &termNode{
			term:    Term{URI: t.URI, Label: t.Label},
			parents: t.Parents,
			names:   [][]string{tokenize(t.Label)},
		}
		for _, s := range t.Synonyms {
			n.names = append(n.names, tokenize(s))
		}
		g.terms[t.URI] = n
		g.order = append(g.order, t.URI)
	}
	for _, uri := range g.order {
		for _, p := range g.terms[uri].parents {
			if parent, ok := g.terms[p]; ok {
				parent.children = append(parent.children, uri)
			}
		}
	}
	g.computeDepths()

	for _, ind := range file.Individuals {
		g.individuals = append(g.individuals, individualNode{
			individual: Individual{URI: ind.URI, Label: ind.Label, ClassURI: ind.Type},
			names:      [][]string{tokenize(ind.Label)},
		})
	}
	return g
}

// computeDepths 从根节点（没有已知父类的类）做广度优先遍历。
func (g *Graph) computeDepths() {
	var queue []string
	seen := make(map[string]bool, len(g.terms))
	for _, uri := range g.order {
		n := g.terms[uri]
		isRoot := true
		for _, p := range n.parents {
			if _, ok := g.terms[p]; ok {
				isRoot = false
				break
			}
		}
		if isRoot {
			n.term.Depth = 0
			seen[uri] = true
			queue = append(queue, uri)
		}
	}
	for len(queue) > 0 {
		uri := queue[0]
		queue = queue[1:]
		n := g.terms[uri]
		for _, c := range n.children {
			if seen[c] {
				continue
			}
			seen[c] = true
			g.terms[c].term.Depth = n.term.Depth + 1
			queue = append(queue, c)
		}
	}
}

// matchScore 计算查询词与名称的匹配分数：所有查询词都必须命中，
// 完全相同得 1，否则为查询词数与名称词数之比。
func matchScore(tokens []queryToken, name []string) float64 {
	if len(tokens) == 0 || len(name) == 0 {
		return 0
	}
	for _, tok := range tokens {
		hit := false
		for _, w := range name {
			if w == tok.text || (tok.prefix && len(w) >= len(tok.text) && w[:len(tok.text)] == tok.text) {
				hit = true
				break
			}
		}
		if !hit {
			return 0
		}
	}
	score := float64(len(tokens)) / float64(len(name))
	if score > 1 {
		score = 1
	}
	return score
}

func bestScore(tokens []queryToken, names [][]string) float64 {
	best := 0.0
	for _, name := range names {
		if s := matchScore(tokens, name); s > best {
			best = s
		}
	}
	return best
}

func (g *Graph) FindTerms(_ context.Context, query string) ([]Term, error) {
	tokens, err := parseQuery(query)
	if err != nil {
		return nil, err
	}
	var out []Term
	for _, uri := range g.order {
		n := g.terms[uri]
		if s := bestScore(tokens, n.names); s > 0 {
			t := n.term
			t.Score = s
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

func (g *Graph) FindIndividuals(_ context.Context, query string) ([]Individual, error) {
	tokens, err := parseQuery(query)
	if err != nil {
		return nil, err
	}
	var out []Individual
	for _, ind := range g.individuals {
		if bestScore(tokens, ind.names) > 0 {
			out = append(out, ind.individual)
		}
	}
	return out, nil
}

func (g *Graph) Descendants(_ context.Context, uris []string) ([]Term, error) {
	seen := make(map[string]bool, len(uris))
	var queue []string
	for _, u := range uris {
		seen[u] = true
		queue = append(queue, u)
	}
	var out []Term
	for len(queue) > 0 {
		n, ok := g.terms[queue[0]]
		queue = queue[1:]
		if !ok {
			continue
		}
		for _, c := range n.children {
			if seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, g.terms[c].term)
			queue = append(queue, c)
		}
	}
	return out, nil
}

func (g *Graph) Term(_ context.Context, uri string) (*Term, error) {
	n, ok := g.terms[uri]
	if !ok {
		return nil, nil
	}
	t := n.term
	return &t, nil
}
