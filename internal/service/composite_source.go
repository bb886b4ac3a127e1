package service

import (
	"biosearch-go/internal/model"
	"biosearch-go/pkg/log"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultSlowCompositeThreshold 是复合搜索未配置阈值时的慢调用阈值。
const DefaultSlowCompositeThreshold = time.Second

// SourceReport 记录一次扇出中单个来源的耗时和贡献。
type SourceReport struct {
	Source  string
	Elapsed time.Duration
	// Raw 是来源返回的结果数，Novel 是合并后结果集增加的条目数。
	Raw   int
	Novel int
	Err   error
}

// FanOutReport 是一次扇出的诊断信息。
type FanOutReport struct {
	Query      string
	EntityType model.EntityType
	Elapsed    time.Duration
	Sources    []SourceReport
}

func (r FanOutReport) String() string {
	parts := make([]string, len(r.Sources))
	for i, s := range r.Sources {
		parts[i] = fmt.Sprintf("%s: %d ms (%d raw, %d novel)", s.Source, s.Elapsed.Milliseconds(), s.Raw, s.Novel)
	}
	return strings.Join(parts, ", ")
}

// SearchResults 是按实体类型分组的搜索结果。
type SearchResults map[model.EntityType][]model.SearchResultDTO

// CompositeSearchSource 按声明顺序依次调用各个来源并合并结果，自身也是一个 SearchSource。
type CompositeSearchSource struct {
	sources       []SearchSource
	slowThreshold time.Duration
	sourceTimeout time.Duration
	onReport      func(FanOutReport)
	tracer        trace.Tracer
}

// CompositeOption 配置 CompositeSearchSource。
type CompositeOption func(*CompositeSearchSource)

// WithSlowThreshold 设置慢调用阈值，超过阈值时以 Warn 级别输出各来源的耗时明细。
func WithSlowThreshold(d time.Duration) CompositeOption {
	return func(c *CompositeSearchSource) {
		if d > 0 {
			c.slowThreshold = d
		}
	}
}

// WithSourceTimeout 为每个来源设置超时，超时的来源贡献空结果。0 表示不设超时。
func WithSourceTimeout(d time.Duration) CompositeOption {
	return func(c *CompositeSearchSource) {
		c.sourceTimeout = d
	}
}

// WithReportHook 注册一个在每次扇出结束后调用的回调。
func WithReportHook(fn func(FanOutReport)) CompositeOption {
	return func(c *CompositeSearchSource) {
		c.onReport = fn
	}
}

// NewCompositeSearchSource 创建一个新的 CompositeSearchSource 实例。
func NewCompositeSearchSource(sources []SearchSource, opts ...CompositeOption) *CompositeSearchSource {
	c := &CompositeSearchSource{
		sources:       sources,
		slowThreshold: DefaultSlowCompositeThreshold,
		tracer:        otel.Tracer("biosearch-composite"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CompositeSearchSource) Name() string { return "composite" }

// Search 检索全部请求的实体类型。
func (c *CompositeSearchSource) Search(ctx context.Context, settings model.SearchSettings) (SearchResults, error) {
	results := make(SearchResults)
	for _, t := range settings.RequestedTypes() {
		typed := settings.WithResultTypes(t)
		var (
			dtos []model.SearchResultDTO
			err  error
		)
		switch t {
		case model.EntityExperiment:
			dtos, err = dtosOf(c.SearchExperiments(ctx, typed))
		case model.EntityGene:
			dtos, err = dtosOf(c.SearchGenes(ctx, typed))
		case model.EntitySequence:
			dtos, err = dtosOf(c.SearchSequences(ctx, typed))
		case model.EntityProbe:
			dtos, err = dtosOf(c.SearchProbes(ctx, typed))
		case model.EntityPlatform:
			dtos, err = dtosOf(c.SearchPlatforms(ctx, typed))
		case model.EntityGeneSet:
			dtos, err = dtosOf(c.SearchGeneSets(ctx, typed))
		case model.EntityPublication:
			dtos, err = dtosOf(c.SearchPublications(ctx, typed))
		case model.EntityExperimentSet:
			dtos, err = dtosOf(c.SearchExperimentSets(ctx, typed))
		default:
			continue
		}
		if err != nil {
			return nil, err
		}
		results[t] = dtos
	}
	return results, nil
}

func dtosOf[T model.Entity](set *model.SearchResultSet[T], err error) ([]model.SearchResultDTO, error) {
	if err != nil {
		return nil, err
	}
	return set.DTOs(), nil
}

func (c *CompositeSearchSource) SearchExperiments(ctx context.Context, s model.SearchSettings) (*model.SearchResultSet[*model.ExpressionExperiment], error) {
	return fanOut(ctx, c, s, model.EntityExperiment, SearchSource.SearchExperiments)
}

func (c *CompositeSearchSource) SearchGenes(ctx context.Context, s model.SearchSettings) (*model.SearchResultSet[*model.Gene], error) {
	return fanOut(ctx, c, s, model.EntityGene, SearchSource.SearchGenes)
}

func (c *CompositeSearchSource) SearchSequences(ctx context.Context, s model.SearchSettings) (*model.SearchResultSet[*model.BioSequence], error) {
	return fanOut(ctx, c, s, model.EntitySequence, SearchSource.SearchSequences)
}

func (c *CompositeSearchSource) SearchProbes(ctx context.Context, s model.SearchSettings) (*model.SearchResultSet[*model.CompositeSequence], error) {
	return fanOut(ctx, c, s, model.EntityProbe, SearchSource.SearchProbes)
}

func (c *CompositeSearchSource) SearchPlatforms(ctx context.Context, s model.SearchSettings) (*model.SearchResultSet[*model.ArrayDesign], error) {
	return fanOut(ctx, c, s, model.EntityPlatform, SearchSource.SearchPlatforms)
}

func (c *CompositeSearchSource) SearchGeneSets(ctx context.Context, s model.SearchSettings) (*model.SearchResultSet[*model.GeneSet], error) {
	return fanOut(ctx, c, s, model.EntityGeneSet, SearchSource.SearchGeneSets)
}

func (c *CompositeSearchSource) SearchPublications(ctx context.Context, s model.SearchSettings) (*model.SearchResultSet[*model.BibliographicReference], error) {
	return fanOut(ctx, c, s, model.EntityPublication, SearchSource.SearchPublications)
}

func (c *CompositeSearchSource) SearchExperimentSets(ctx context.Context, s model.SearchSettings) (*model.SearchResultSet[*model.ExpressionExperimentSet], error) {
	return fanOut(ctx, c, s, model.EntityExperimentSet, SearchSource.SearchExperimentSets)
}

// fanOut 依次调用每个来源并按身份键合并。
// 查询语法错误不会中断扇出：只有当没有任何来源给出结果时才返回该错误。
// 超时或被取消的来源贡献空结果。其他错误立即中断扇出并返回。
func fanOut[T model.Entity](
	ctx context.Context,
	c *CompositeSearchSource,
	settings model.SearchSettings,
	entityType model.EntityType,
	call func(SearchSource, context.Context, model.SearchSettings) (*model.SearchResultSet[T], error),
) (*model.SearchResultSet[T], error) {
	merged := model.NewSearchResultSetFor[T](settings)
	report := FanOutReport{Query: settings.Query, EntityType: entityType}
	start := time.Now()

	var syntaxErr error
	for _, src := range c.sources {
		sr, found, err := callSource(ctx, c, src, settings, entityType, call)
		if err != nil {
			report.Sources = append(report.Sources, sr)
			if errors.Is(err, model.ErrQuerySyntax) {
				log.Warnf("[CompositeSearch] 来源 %s 无法解析查询 '%s': %v", src.Name(), settings.Query, err)
				syntaxErr = err
				continue
			}
			return nil, errors.Wrapf(err, "%s search failed in source %s", entityType, src.Name())
		}
		before := merged.Len()
		merged.AddAll(found)
		sr.Novel = merged.Len() - before
		report.Sources = append(report.Sources, sr)
	}
	report.Elapsed = time.Since(start)

	c.emit(report)
	if syntaxErr != nil && merged.IsEmpty() {
		return nil, syntaxErr
	}
	return merged, nil
}

// callSource 调用单个来源，记录耗时并为其打开一个 span。
func callSource[T model.Entity](
	ctx context.Context,
	c *CompositeSearchSource,
	src SearchSource,
	settings model.SearchSettings,
	entityType model.EntityType,
	call func(SearchSource, context.Context, model.SearchSettings) (*model.SearchResultSet[T], error),
) (SourceReport, *model.SearchResultSet[T], error) {
	srcCtx := ctx
	if c.sourceTimeout > 0 {
		var cancel context.CancelFunc
		srcCtx, cancel = context.WithTimeout(ctx, c.sourceTimeout)
		defer cancel()
	}
	srcCtx, span := c.tracer.Start(srcCtx, "composite."+src.Name(),
		trace.WithAttributes(
			attribute.String("search.source", src.Name()),
			attribute.String("search.entity_type", string(entityType)),
		),
	)
	defer span.End()

	sr := SourceReport{Source: src.Name()}
	t0 := time.Now()
	found, err := call(src, srcCtx, settings)
	sr.Elapsed = time.Since(t0)

	if err != nil && srcCtx.Err() != nil {
		log.Warnf("[CompositeSearch] 来源 %s 超时或被取消, 贡献空结果: %v", src.Name(), srcCtx.Err())
		span.SetStatus(codes.Error, "source cancelled")
		sr.Err = srcCtx.Err()
		return sr, model.NewSearchResultSetFor[T](settings), nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "source failed")
		sr.Err = err
		return sr, nil, err
	}

	if found == nil {
		found = model.NewSearchResultSetFor[T](settings)
	}
	sr.Raw = found.Len()
	span.SetAttributes(attribute.Int("search.raw", sr.Raw))
	span.SetStatus(codes.Ok, "")
	return sr, found, nil
}

func (c *CompositeSearchSource) emit(report FanOutReport) {
	if report.Elapsed > c.slowThreshold {
		log.Warnw("[CompositeSearch] 复合搜索耗时过长",
			"query", report.Query,
			"type", report.EntityType,
			"elapsed_ms", report.Elapsed.Milliseconds(),
			"sources", report.String())
	} else {
		log.Debugw("[CompositeSearch] 复合搜索完成",
			"query", report.Query,
			"type", report.EntityType,
			"elapsed_ms", report.Elapsed.Milliseconds(),
			"sources", report.String())
	}
	if c.onReport != nil {
		c.onReport(report)
	}
}
