// Package service 实现联邦搜索：多个异构搜索来源的编排、打分与合并。
package service

import (
	"biosearch-go/internal/model"
	"context"
)

// SearchSource 是一个搜索来源，对每种实体类型提供一个检索方法。
// 不支持某种类型的来源返回空结果集，而不是错误。
type SearchSource interface {
	// Name 用于诊断日志和结果的来源标记。
	Name() string
	SearchExperiments(ctx context.Context, settings model.SearchSettings) (*model.SearchResultSet[*model.ExpressionExperiment], error)
	SearchGenes(ctx context.Context, settings model.SearchSettings) (*model.SearchResultSet[*model.Gene], error)
	SearchSequences(ctx context.Context, settings model.SearchSettings) (*model.SearchResultSet[*model.BioSequence], error)
	SearchProbes(ctx context.Context, settings model.SearchSettings) (*model.SearchResultSet[*model.CompositeSequence], error)
	SearchPlatforms(ctx context.Context, settings model.SearchSettings) (*model.SearchResultSet[*model.ArrayDesign], error)
	SearchGeneSets(ctx context.Context, settings model.SearchSettings) (*model.SearchResultSet[*model.GeneSet], error)
	SearchPublications(ctx context.Context, settings model.SearchSettings) (*model.SearchResultSet[*model.BibliographicReference], error)
	SearchExperimentSets(ctx context.Context, settings model.SearchSettings) (*model.SearchResultSet[*model.ExpressionExperimentSet], error)
}

// UnsupportedSource 可以嵌入到只支持部分实体类型的来源中，未覆盖的方法返回空结果集。
type UnsupportedSource struct{}

func (UnsupportedSource) SearchExperiments(_ context.Context, s model.SearchSettings) (*model.SearchResultSet[*model.ExpressionExperiment], error) {
	return model.NewSearchResultSetFor[*model.ExpressionExperiment](s), nil
}

func (UnsupportedSource) SearchGenes(_ context.Context, s model.SearchSettings) (*model.SearchResultSet[*model.Gene], error) {
	return model.NewSearchResultSetFor[*model.Gene](s), nil
}

func (UnsupportedSource) SearchSequences(_ context.Context, s model.SearchSettings) (*model.SearchResultSet[*model.BioSequence], error) {
	return model.NewSearchResultSetFor[*model.BioSequence](s), nil
}

func (UnsupportedSource) SearchProbes(_ context.Context, s model.SearchSettings) (*model.SearchResultSet[*model.CompositeSequence], error) {
	return model.NewSearchResultSetFor[*model.CompositeSequence](s), nil
}

func (UnsupportedSource) SearchPlatforms(_ context.Context, s model.SearchSettings) (*model.SearchResultSet[*model.ArrayDesign], error) {
	return model.NewSearchResultSetFor[*model.ArrayDesign](s), nil
}

func (UnsupportedSource) SearchGeneSets(_ context.Context, s model.SearchSettings) (*model.SearchResultSet[*model.GeneSet], error) {
	return model.NewSearchResultSetFor[*model.GeneSet](s), nil
}

func (UnsupportedSource) SearchPublications(_ context.Context, s model.SearchSettings) (*model.SearchResultSet[*model.BibliographicReference], error) {
	return model.NewSearchResultSetFor[*model.BibliographicReference](s), nil
}

func (UnsupportedSource) SearchExperimentSets(_ context.Context, s model.SearchSettings) (*model.SearchResultSet[*model.ExpressionExperimentSet], error) {
	return model.NewSearchResultSetFor[*model.ExpressionExperimentSet](s), nil
}

// addEntities 把一批已加载的实体以相同分数加入结果集。
func addEntities[T model.Entity](set *model.SearchResultSet[T], entities []T, score float64, source string) {
	for _, e := range entities {
		set.Add(model.NewSearchResult(e, score, source))
	}
}

// materialize 批量加载结果集中尚未加载的实体，已不存在的 ID 从结果集中删除。
func materialize[T model.Entity](ctx context.Context, set *model.SearchResultSet[T], load func(context.Context, []int64) ([]T, error)) error {
	var missing []int64
	for _, r := range set.Results() {
		if !r.HasObject() {
			missing = append(missing, r.ResultID)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	entities, err := load(ctx, missing)
	if err != nil {
		return err
	}
	byID := make(map[int64]T, len(entities))
	for _, e := range entities {
		byID[e.EntityID()] = e
	}
	for _, r := range set.Results() {
		if r.HasObject() {
			continue
		}
		if e, ok := byID[r.ResultID]; ok {
			r.SetObject(e)
		} else {
			set.Remove(r.Key())
		}
	}
	return nil
}
