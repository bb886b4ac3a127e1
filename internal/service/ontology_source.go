package service

import (
	"biosearch-go/internal/model"
	"biosearch-go/internal/repository"
	"biosearch-go/pkg/log"
	"biosearch-go/pkg/ontology"
	"context"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

const (
	// exactTermScore 是查询本身就是术语 URI 时的分数。
	exactTermScore = 1.0
	// termMatchScore 是文本匹配到类或个体时的分数。
	termMatchScore = 0.9
	// descendantPenalty 只在 ACCURATE 模式下作用于仅经由后代闭包得到的类。
	descendantPenalty = 0.95
)

// annotationPathPenalty 是每条注释路径相对直接注释的分数系数。
var annotationPathPenalty = map[repository.AnnotationPath]float64{
	repository.AnnotationDirect: 1.0,
	repository.AnnotationFactor: 0.9,
	repository.AnnotationSample: 0.81,
}

// OntologySearchSource 把查询解析为本体 URI 集合，再经由实验注释反查实验。
type OntologySearchSource struct {
	UnsupportedSource
	ontology        ontology.Service
	characteristics repository.CharacteristicRepository
	experiments     repository.ExperimentRepository
}

// NewOntologySearchSource 创建一个新的 OntologySearchSource 实例。
func NewOntologySearchSource(
	svc ontology.Service,
	characteristics repository.CharacteristicRepository,
	experiments repository.ExperimentRepository,
) *OntologySearchSource {
	return &OntologySearchSource{
		ontology:        svc,
		characteristics: characteristics,
		experiments:     experiments,
	}
}

func (s *OntologySearchSource) Name() string { return "ontology" }

// termCandidate 是一个待反查的本体 URI。
type termCandidate struct {
	URI        string
	Label      string
	Score      float64
	Depth      int
	Descendant bool
}

// SearchExperiments 按 直接注释、因子取值、样本 的顺序反查实验，结果集已满时停止。
// 后端缺少某条路径所需的数据时跳过该路径。
func (s *OntologySearchSource) SearchExperiments(ctx context.Context, settings model.SearchSettings) (*model.SearchResultSet[*model.ExpressionExperiment], error) {
	results := model.NewSearchResultSetFor[*model.ExpressionExperiment](settings)
	if !settings.UseRelationalStore || strings.TrimSpace(settings.Query) == "" {
		return results, nil
	}

	candidates, err := s.resolveTerms(ctx, settings, true)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return results, nil
	}
	uris := make([]string, len(candidates))
	for i, c := range candidates {
		uris[i] = c.URI
	}
	constraints := repository.AnnotationConstraints{TaxonID: settings.TaxonID, DatasetID: settings.DatasetID}

	for _, path := range repository.AnnotationPaths {
		if results.IsFilled() {
			break
		}
		byURI, err := s.characteristics.FindExperimentIDsByURIs(ctx, path, uris, constraints)
		if err != nil {
			if errors.Is(err, model.ErrMissingCapability) {
				log.Debugf("[OntologySearch] 跳过 %s 路径: %v", path, err)
				continue
			}
			return nil, err
		}
		penalty := annotationPathPenalty[path]
		for _, c := range candidates {
			for _, id := range byURI[c.URI] {
				results.Add(model.NewSearchResultFromID[*model.ExpressionExperiment](
					model.EntityExperiment, id, c.Score*penalty, s.Name()+":"+path.String()))
			}
		}
	}

	if settings.FillResults && !results.IsEmpty() {
		if err := materialize(ctx, results, s.experiments.Load); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// resolveTerms 把查询解析为候选 URI：匹配的个体、匹配的类、类的后代闭包，
// 以及查询本身为 URI 时的该 URI。expand 为 false 时不展开后代。
// ACCURATE 模式下按分数降序、深度降序排列，否则按发现顺序排列。
func (s *OntologySearchSource) resolveTerms(ctx context.Context, settings model.SearchSettings, expand bool) ([]termCandidate, error) {
	query := strings.TrimSpace(settings.Query)
	var (
		out  []termCandidate
		seen = make(map[string]int)
	)
	add := func(c termCandidate) {
		if i, ok := seen[c.URI]; ok {
			if c.Score > out[i].Score {
				out[i].Score = c.Score
				out[i].Descendant = c.Descendant
			}
			return
		}
		seen[c.URI] = len(out)
		out = append(out, c)
	}

	if settings.IsTermQuery {
		c := termCandidate{URI: query, Label: ontology.LabelFromURI(query), Score: exactTermScore}
		term, err := s.ontology.Term(ctx, query)
		if err != nil {
			return nil, err
		}
		if term != nil {
			c.Label = term.Label
			c.Depth = term.Depth
		}
		add(c)
	}

	individuals, err := findWithEscapeRetry(ctx, query, s.ontology.FindIndividuals)
	if err != nil {
		return nil, err
	}
	for _, ind := range individuals {
		add(termCandidate{URI: ind.URI, Label: ind.Label, Score: termMatchScore})
	}

	terms, err := findWithEscapeRetry(ctx, query, s.ontology.FindTerms)
	if err != nil {
		return nil, err
	}
	classURIs := make([]string, 0, len(terms)+1)
	for _, t := range terms {
		add(termCandidate{URI: t.URI, Label: t.Label, Score: termMatchScore, Depth: t.Depth})
		classURIs = append(classURIs, t.URI)
	}
	if settings.IsTermQuery {
		classURIs = append(classURIs, query)
	}

	if expand && len(classURIs) > 0 {
		descendants, err := s.ontology.Descendants(ctx, classURIs)
		if err != nil {
			return nil, err
		}
		score := termMatchScore
		if settings.IsAccurate() {
			score *= descendantPenalty
		}
		for _, d := range descendants {
			add(termCandidate{URI: d.URI, Label: d.Label, Score: score, Depth: d.Depth, Descendant: true})
		}
	}

	if settings.IsAccurate() {
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].Score != out[j].Score {
				return out[i].Score > out[j].Score
			}
			return out[i].Depth > out[j].Depth
		})
	}
	log.Debugf("[OntologySearch] 查询 '%s' 解析为 %d 个本体术语", query, len(out))
	return out, nil
}

// findWithEscapeRetry 调用本体检索，遇到语法错误时转义全部特殊字符后重试一次。
func findWithEscapeRetry[T any](ctx context.Context, query string, find func(context.Context, string) ([]T, error)) ([]T, error) {
	found, err := find(ctx, query)
	if err == nil || !errors.Is(err, model.ErrQuerySyntax) {
		return found, err
	}
	escaped := ontology.EscapeQuery(query)
	log.Infof("[OntologySearch] 查询 '%s' 无法解析, 转义后重试: '%s'", query, escaped)
	return find(ctx, escaped)
}
