package service

import (
	"biosearch-go/internal/model"
	"biosearch-go/internal/repository"
	"biosearch-go/pkg/log"
	"biosearch-go/pkg/ontology"
	"context"
	"regexp"
	"sort"
	"strings"
)

const (
	// goTermURIPrefix 是 GO 术语 URI 的公共前缀。
	goTermURIPrefix = "http://purl.obolibrary.org/obo/GO_"
	// goTextMatchPenalty 作用于文本匹配到的 GO 术语。
	goTextMatchPenalty = 0.9
	// goFallbackScore 在所有术语分数相同、无法做区间缩放时使用。
	goFallbackScore = 1.0
	// curatedGeneSetScore 是由 GO 注释整理出的基因组的分数。
	curatedGeneSetScore = 0.8
)

var goIDPattern = regexp.MustCompile(`^(?:http://purl\.obolibrary\.org/obo/)?GO[:_](\d{7})$`)

// goTermURI 识别 GO:nnnnnnn、GO_nnnnnnn 以及 OBO URI 三种写法，返回规范 URI。
func goTermURI(query string) (string, bool) {
	m := goIDPattern.FindStringSubmatch(strings.TrimSpace(query))
	if m == nil {
		return "", false
	}
	return goTermURIPrefix + m[1], true
}

// goAccession 把 GO 术语 URI 转换为 GO:nnnnnnn 形式。
func goAccession(uri string) string {
	return "GO:" + strings.TrimPrefix(uri, goTermURIPrefix)
}

// GeneOntologySearchSource 通过 GO 注释检索基因，以及由 GO 术语整理出的基因组。
type GeneOntologySearchSource struct {
	UnsupportedSource
	ontology ontology.Service
	genes    repository.GeneRepository
	geneSets repository.GeneSetRepository
}

// NewGeneOntologySearchSource 创建一个新的 GeneOntologySearchSource 实例。
func NewGeneOntologySearchSource(svc ontology.Service, genes repository.GeneRepository, geneSets repository.GeneSetRepository) *GeneOntologySearchSource {
	return &GeneOntologySearchSource{ontology: svc, genes: genes, geneSets: geneSets}
}

func (s *GeneOntologySearchSource) Name() string { return "gene-ontology" }

// SearchGenes 查询为 GO ID 时直接取该术语及其后代注释的基因；
// 否则按析取范式逐子句求交集，子句之间求并集。
func (s *GeneOntologySearchSource) SearchGenes(ctx context.Context, settings model.SearchSettings) (*model.SearchResultSet[*model.Gene], error) {
	results := model.NewSearchResultSetFor[*model.Gene](settings)
	if !settings.UseGeneOntology || strings.TrimSpace(settings.Query) == "" {
		return results, nil
	}

	var scored map[int64]float64
	if uri, ok := goTermURI(settings.Query); ok {
		genes, err := s.genesForTerms(ctx, settings, map[string]float64{uri: exactMatchScore})
		if err != nil {
			return nil, err
		}
		scored = genes
	} else {
		dnf := ParseDNF(settings.Query)
		log.Debugf("[GeneOntologySearch] 查询 '%s' 解析为 %s", settings.Query, dnf)
		scored = make(map[int64]float64)
		for _, clause := range dnf {
			genes, err := s.searchConjunction(ctx, settings, clause)
			if err != nil {
				return nil, err
			}
			for id, score := range genes {
				if prev, ok := scored[id]; !ok || score > prev {
					scored[id] = score
				}
			}
		}
	}

	for _, id := range sortedGeneIDs(scored) {
		results.Add(model.NewSearchResultFromID[*model.Gene](model.EntityGene, id, scored[id], s.Name()))
	}
	if settings.FillResults && !results.IsEmpty() {
		if err := materialize(ctx, results, s.genes.Load); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// searchConjunction 求子句内各检索词命中基因的交集，取各词分数的最小值。
// 交集一旦为空立即返回，不再检索剩余的词。
func (s *GeneOntologySearchSource) searchConjunction(ctx context.Context, settings model.SearchSettings, clause Conjunction) (map[int64]float64, error) {
	var acc map[int64]float64
	for i, term := range clause {
		genes, err := s.genesForText(ctx, settings, term)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			acc = genes
		} else {
			for id, score := range acc {
				other, ok := genes[id]
				if !ok {
					delete(acc, id)
				} else if other < score {
					acc[id] = other
				}
			}
		}
		if len(acc) == 0 {
			log.Debugf("[GeneOntologySearch] 检索词 '%s' 之后交集为空, 跳过子句剩余部分", term)
			return acc, nil
		}
	}
	return acc, nil
}

// genesForText 文本匹配 GO 术语，把术语分数缩放到 [0, 1] 后乘以 goTextMatchPenalty。
func (s *GeneOntologySearchSource) genesForText(ctx context.Context, settings model.SearchSettings, text string) (map[int64]float64, error) {
	terms, err := findWithEscapeRetry(ctx, text, s.ontology.FindTerms)
	if err != nil {
		return nil, err
	}
	if len(terms) == 0 {
		return map[int64]float64{}, nil
	}
	lo, hi := terms[0].Score, terms[0].Score
	for _, t := range terms[1:] {
		lo = min(lo, t.Score)
		hi = max(hi, t.Score)
	}
	termScores := make(map[string]float64, len(terms))
	for _, t := range terms {
		score := goFallbackScore
		if hi > lo {
			score = (t.Score - lo) / (hi - lo)
		}
		termScores[t.URI] = score * goTextMatchPenalty
	}
	return s.genesForTerms(ctx, settings, termScores)
}

// genesForTerms 把每个术语的分数传给它的后代，再取注释到这些术语的基因。
// 一个基因经由多个术语命中时取最高分。
func (s *GeneOntologySearchSource) genesForTerms(ctx context.Context, settings model.SearchSettings, termScores map[string]float64) (map[int64]float64, error) {
	expanded := make(map[string]float64, len(termScores))
	for uri, score := range termScores {
		if prev, ok := expanded[uri]; !ok || score > prev {
			expanded[uri] = score
		}
		descendants, err := s.ontology.Descendants(ctx, []string{uri})
		if err != nil {
			return nil, err
		}
		for _, d := range descendants {
			if prev, ok := expanded[d.URI]; !ok || score > prev {
				expanded[d.URI] = score
			}
		}
	}

	uris := make([]string, 0, len(expanded))
	for uri := range expanded {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	byTerm, err := s.genes.FindIDsByGOTerms(ctx, uris, settings.TaxonID)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]float64)
	for uri, ids := range byTerm {
		for _, id := range ids {
			if score, ok := out[id]; !ok || expanded[uri] > score {
				out[id] = expanded[uri]
			}
		}
	}
	return out, nil
}

// SearchGeneSets 返回由匹配的 GO 术语整理出的基因组。
func (s *GeneOntologySearchSource) SearchGeneSets(ctx context.Context, settings model.SearchSettings) (*model.SearchResultSet[*model.GeneSet], error) {
	results := model.NewSearchResultSetFor[*model.GeneSet](settings)
	if !settings.UseGeneOntology || strings.TrimSpace(settings.Query) == "" {
		return results, nil
	}

	var accessions []string
	if uri, ok := goTermURI(settings.Query); ok {
		accessions = append(accessions, goAccession(uri))
	} else {
		terms, err := findWithEscapeRetry(ctx, settings.Query, s.ontology.FindTerms)
		if err != nil {
			return nil, err
		}
		for _, t := range terms {
			if strings.HasPrefix(t.URI, goTermURIPrefix) {
				accessions = append(accessions, goAccession(t.URI))
			}
		}
	}
	sets, err := s.geneSets.FindBySourceAccessions(ctx, accessions, settings.TaxonID)
	if err != nil {
		return nil, err
	}
	addEntities(results, sets, curatedGeneSetScore, s.Name())
	return results, nil
}

func sortedGeneIDs(scored map[int64]float64) []int64 {
	ids := make([]int64, 0, len(scored))
	for id := range scored {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
