package service

import (
	"biosearch-go/internal/model"
	"biosearch-go/internal/repository"
	"biosearch-go/pkg/es"
	"biosearch-go/pkg/log"
	"context"
	"math"
	"time"

	"github.com/cockroachdb/errors"
)

const (
	// DefaultIndexHitCap 是单次检索最多检查的命中数。
	DefaultIndexHitCap = 300
	// indexHitPenalty 使全文命中的分数低于直接匹配。
	indexHitPenalty = 0.5

	defaultSlowIndexThreshold       = 5 * time.Second
	defaultSlowMaterializeThreshold = 100 * time.Millisecond
)

// FullTextIndex 是按实体类型划分的全文索引，只能在读会话内检索和取高亮。
type FullTextIndex interface {
	WithSession(ctx context.Context, t model.EntityType, fn func(es.Session) error) error
}

// FullTextSearchSource 在预先构建的全文索引上检索，并在会话关闭前提取高亮。
type FullTextSearchSource struct {
	index       FullTextIndex
	genes       repository.GeneRepository
	probes      repository.ProbeRepository
	platforms   repository.PlatformRepository
	experiments repository.ExperimentRepository
	geneSets    repository.GeneSetRepository

	hitCap          int
	slowIndex       time.Duration
	slowMaterialize time.Duration
}

// FullTextOption 配置 FullTextSearchSource。
type FullTextOption func(*FullTextSearchSource)

// WithHitCap 设置单次检索的命中上限。
func WithHitCap(n int) FullTextOption {
	return func(f *FullTextSearchSource) {
		if n > 0 {
			f.hitCap = n
		}
	}
}

// WithSlowThresholds 设置索引检索和实体加载的慢调用阈值。
func WithSlowThresholds(index, materialize time.Duration) FullTextOption {
	return func(f *FullTextSearchSource) {
		if index > 0 {
			f.slowIndex = index
		}
		if materialize > 0 {
			f.slowMaterialize = materialize
		}
	}
}

// NewFullTextSearchSource 创建一个新的 FullTextSearchSource 实例。
func NewFullTextSearchSource(
	index FullTextIndex,
	genes repository.GeneRepository,
	probes repository.ProbeRepository,
	platforms repository.PlatformRepository,
	experiments repository.ExperimentRepository,
	geneSets repository.GeneSetRepository,
	opts ...FullTextOption,
) *FullTextSearchSource {
	f := &FullTextSearchSource{
		index:           index,
		genes:           genes,
		probes:          probes,
		platforms:       platforms,
		experiments:     experiments,
		geneSets:        geneSets,
		hitCap:          DefaultIndexHitCap,
		slowIndex:       defaultSlowIndexThreshold,
		slowMaterialize: defaultSlowMaterializeThreshold,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *FullTextSearchSource) Name() string { return "index" }

func (f *FullTextSearchSource) SearchExperiments(ctx context.Context, s model.SearchSettings) (*model.SearchResultSet[*model.ExpressionExperiment], error) {
	return searchIndex(ctx, f, s, model.EntityExperiment, f.experiments.Load)
}

func (f *FullTextSearchSource) SearchGenes(ctx context.Context, s model.SearchSettings) (*model.SearchResultSet[*model.Gene], error) {
	return searchIndex(ctx, f, s, model.EntityGene, f.genes.Load)
}

func (f *FullTextSearchSource) SearchSequences(ctx context.Context, s model.SearchSettings) (*model.SearchResultSet[*model.BioSequence], error) {
	return searchIndex(ctx, f, s, model.EntitySequence, f.probes.LoadSequences)
}

func (f *FullTextSearchSource) SearchProbes(ctx context.Context, s model.SearchSettings) (*model.SearchResultSet[*model.CompositeSequence], error) {
	return searchIndex(ctx, f, s, model.EntityProbe, f.probes.Load)
}

func (f *FullTextSearchSource) SearchPlatforms(ctx context.Context, s model.SearchSettings) (*model.SearchResultSet[*model.ArrayDesign], error) {
	return searchIndex(ctx, f, s, model.EntityPlatform, f.platforms.Load)
}

func (f *FullTextSearchSource) SearchGeneSets(ctx context.Context, s model.SearchSettings) (*model.SearchResultSet[*model.GeneSet], error) {
	return searchIndex(ctx, f, s, model.EntityGeneSet, f.geneSets.Load)
}

func (f *FullTextSearchSource) SearchPublications(ctx context.Context, s model.SearchSettings) (*model.SearchResultSet[*model.BibliographicReference], error) {
	return searchIndex(ctx, f, s, model.EntityPublication, f.geneSets.LoadPublications)
}

func (f *FullTextSearchSource) SearchExperimentSets(ctx context.Context, s model.SearchSettings) (*model.SearchResultSet[*model.ExpressionExperimentSet], error) {
	return searchIndex(ctx, f, s, model.EntityExperimentSet, f.experiments.LoadSets)
}

// searchIndex 在一个读会话内完成检索和高亮提取，然后批量加载实体。
// 查询语法错误返回给调用方；后端故障记录日志并返回空结果。
func searchIndex[T model.Entity](
	ctx context.Context,
	f *FullTextSearchSource,
	settings model.SearchSettings,
	entityType model.EntityType,
	load func(context.Context, []int64) ([]T, error),
) (*model.SearchResultSet[T], error) {
	results := model.NewSearchResultSetFor[T](settings)
	if !settings.UseFullTextIndex {
		return results, nil
	}

	query := SanitizeIndexQuery(settings.Query)
	if indexQueryTooShort(query) {
		log.Debugf("[FullTextSearch] 查询 '%s' 过短, 跳过全文检索", settings.Query)
		return results, nil
	}
	parsed, err := es.ParseQuery(query)
	if err != nil {
		return nil, err
	}

	limit := f.hitCap
	if settings.MaxResults > 0 && settings.MaxResults < limit {
		limit = settings.MaxResults
	}

	start := time.Now()
	err = f.index.WithSession(ctx, entityType, func(session es.Session) error {
		hits, err := session.Search(ctx, parsed, limit)
		if err != nil {
			return err
		}
		if len(hits) > limit {
			hits = hits[:limit]
		}
		var highlights []map[string]string
		if settings.DoHighlighting {
			highlights = extractHighlights(session, hits)
		}
		for i, hit := range hits {
			if hit.Type != entityType {
				log.Warnf("[FullTextSearch] %v, 跳过", model.TypeMismatchError(entityType, hit.Type, hit.ID))
				continue
			}
			raw := hit.Score
			if math.IsNaN(raw) {
				raw = model.DefaultScore
			}
			r := model.NewSearchResultFromID[T](entityType, hit.ID, raw*indexHitPenalty, f.Name())
			if highlights != nil {
				r.SetHighlights(highlights[i])
			}
			results.Add(r)
		}
		return nil
	})
	elapsed := time.Since(start)
	if err != nil {
		if errors.Is(err, model.ErrQuerySyntax) {
			return nil, err
		}
		if errors.Is(err, model.ErrBackendUnavailable) {
			log.Errorf("[FullTextSearch] 全文索引不可用, %s 检索返回空结果: %v", entityType, err)
			return model.NewSearchResultSetFor[T](settings), nil
		}
		return nil, err
	}
	if elapsed > f.slowIndex {
		log.Warnw("[FullTextSearch] 全文检索耗时过长",
			"query", query, "type", entityType, "hits", results.Len(), "elapsed_ms", elapsed.Milliseconds())
	}

	if settings.FillResults && !results.IsEmpty() {
		start = time.Now()
		before := results.Len()
		if err := materialize(ctx, results, load); err != nil {
			return nil, err
		}
		if dropped := before - results.Len(); dropped > 0 {
			log.Infof("[FullTextSearch] %d 条 %s 命中已无法加载, 已丢弃", dropped, entityType)
		}
		if elapsed := time.Since(start); elapsed > f.slowMaterialize {
			log.Warnw("[FullTextSearch] 实体加载耗时过长",
				"type", entityType, "count", results.Len(), "elapsed_ms", elapsed.Milliseconds())
		}
	}
	return results, nil
}

// extractHighlights 为每条命中提取所有映射字段的高亮片段，必须在会话打开期间调用。
// 某字段取高亮失败时，该字段对剩余命中一律省略，不影响其他字段。
func extractHighlights(session es.Session, hits []es.Hit) []map[string]string {
	out := make([]map[string]string, len(hits))
	for i := range out {
		out[i] = make(map[string]string)
	}
	for _, mapping := range session.Mappings() {
		for _, path := range mapping.Paths() {
			for i, hit := range hits {
				frag, err := session.Highlight(hit, path)
				if err != nil {
					log.Debugf("[FullTextSearch] 字段 %s 无法提取高亮, 后续命中不再尝试: %v", path, err)
					break
				}
				if frag != "" {
					out[i][path] = frag
				}
			}
		}
	}
	return out
}
