// Package pipeline 定义了索引同步的核心流程：从关系库加载实体并写入全文索引。
package pipeline

import (
	"biosearch-go/internal/model"
	"biosearch-go/internal/repository"
	"biosearch-go/pkg/es"
	"biosearch-go/pkg/log"
	"biosearch-go/pkg/tasks"
	"context"
	"sort"
	"strconv"

	"github.com/cockroachdb/errors"
)

// DocumentIndexer 是写入全文索引所需的操作。
type DocumentIndexer interface {
	EnsureIndex(ctx context.Context, t model.EntityType) error
	IndexDocument(ctx context.Context, doc es.Document) error
	DeleteDocument(ctx context.Context, t model.EntityType, id int64) error
}

// Processor 封装了索引同步的所有依赖和逻辑。
type Processor struct {
	index           DocumentIndexer
	genes           repository.GeneRepository
	probes          repository.ProbeRepository
	platforms       repository.PlatformRepository
	experiments     repository.ExperimentRepository
	geneSets        repository.GeneSetRepository
	characteristics repository.CharacteristicRepository
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(
	index DocumentIndexer,
	genes repository.GeneRepository,
	probes repository.ProbeRepository,
	platforms repository.PlatformRepository,
	experiments repository.ExperimentRepository,
	geneSets repository.GeneSetRepository,
	characteristics repository.CharacteristicRepository,
) *Processor {
	return &Processor{
		index:           index,
		genes:           genes,
		probes:          probes,
		platforms:       platforms,
		experiments:     experiments,
		geneSets:        geneSets,
		characteristics: characteristics,
	}
}

// Process 把任务中的实体从关系库同步到索引。
// 关系库中已不存在的实体会从索引中删除。
func (p *Processor) Process(ctx context.Context, task tasks.IndexTask) error {
	if err := task.Validate(); err != nil {
		return err
	}
	ids := uniqueIDs(task.IDs)
	log.Infof("[Processor] 开始同步索引, Type: %s, IDs: %d", task.EntityType, len(ids))

	// 1. 从关系库加载实体并构建文档
	docs, err := p.documents(ctx, task.EntityType, ids)
	if err != nil {
		log.Errorf("[Processor] 加载实体失败, Type: %s, Error: %v", task.EntityType, err)
		return errors.Wrapf(err, "加载 %s 失败", task.EntityType)
	}
	log.Infof("[Processor] 步骤1: 构建了 %d 个文档", len(docs))

	// 2. 确保索引存在
	if err := p.index.EnsureIndex(ctx, task.EntityType); err != nil {
		return err
	}

	// 3. 写入文档
	found := make(map[int64]bool, len(docs))
	for _, doc := range docs {
		if err := p.index.IndexDocument(ctx, doc); err != nil {
			log.Errorf("[Processor] 写入索引失败, Type: %s, ID: %d, Error: %v", doc.Type, doc.ID, err)
			return errors.Wrapf(err, "写入文档 %d 失败", doc.ID)
		}
		found[doc.ID] = true
	}

	// 4. 删除关系库中已不存在的实体
	removed := 0
	for _, id := range ids {
		if found[id] {
			continue
		}
		if err := p.index.DeleteDocument(ctx, task.EntityType, id); err != nil {
			return errors.Wrapf(err, "删除文档 %d 失败", id)
		}
		removed++
	}

	log.Infof("[Processor] 索引同步完成, Type: %s, 写入: %d, 删除: %d", task.EntityType, len(docs), removed)
	return nil
}

// Submit 同步执行索引任务，在未配置 Kafka 时代替生产者使用。
func (p *Processor) Submit(ctx context.Context, task tasks.IndexTask) error {
	return p.Process(ctx, task)
}

func (p *Processor) documents(ctx context.Context, t model.EntityType, ids []int64) ([]es.Document, error) {
	switch t {
	case model.EntityGene:
		genes, err := p.genes.LoadDetailed(ctx, ids)
		return build(genes, geneFields), err
	case model.EntitySequence:
		seqs, err := p.probes.LoadSequencesDetailed(ctx, ids)
		return build(seqs, sequenceFields), err
	case model.EntityProbe:
		probes, err := p.probes.Load(ctx, ids)
		return build(probes, probeFields), err
	case model.EntityPlatform:
		platforms, err := p.platforms.Load(ctx, ids)
		return build(platforms, platformFields), err
	case model.EntityGeneSet:
		sets, err := p.geneSets.Load(ctx, ids)
		return build(sets, geneSetFields), err
	case model.EntityPublication:
		pubs, err := p.geneSets.LoadPublications(ctx, ids)
		return build(pubs, publicationFields), err
	case model.EntityExperimentSet:
		sets, err := p.experiments.LoadSets(ctx, ids)
		return build(sets, experimentSetFields), err
	case model.EntityExperiment:
		return p.experimentDocuments(ctx, ids)
	default:
		return nil, errors.Newf("不支持的实体类型: %s", t)
	}
}

func (p *Processor) experimentDocuments(ctx context.Context, ids []int64) ([]es.Document, error) {
	experiments, err := p.experiments.Load(ctx, ids)
	if err != nil || len(experiments) == 0 {
		return nil, err
	}
	loaded := make([]int64, len(experiments))
	for i, e := range experiments {
		loaded[i] = e.ID
	}
	annotations, err := p.characteristics.LoadExperimentAnnotations(ctx, loaded)
	if err != nil {
		return nil, err
	}
	return build(experiments, func(e *model.ExpressionExperiment) map[string]any {
		return experimentFields(e, annotations[e.ID])
	}), nil
}

// build 把实体转换为文档，顺序同输入。
func build[T model.Entity](items []T, fields func(T) map[string]any) []es.Document {
	docs := make([]es.Document, 0, len(items))
	for _, item := range items {
		docs = append(docs, es.Document{
			ID:     item.EntityID(),
			Type:   item.EntityType(),
			Fields: fields(item),
		})
	}
	return docs
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// text 只写入非空字符串，保持文档紧凑。
type text map[string]any

func (f text) put(key, value string) text {
	if value != "" {
		f[key] = value
	}
	return f
}

func (f text) list(key string, values []map[string]any) text {
	if len(values) > 0 {
		f[key] = values
	}
	return f
}

func geneFields(g *model.Gene) map[string]any {
	f := text{}.
		put("officialSymbol", g.OfficialSymbol).
		put("officialName", g.OfficialName).
		put("ensemblId", g.EnsemblID)
	if g.NcbiGeneID != 0 {
		f.put("ncbiGeneId", strconv.Itoa(g.NcbiGeneID))
	}
	aliases := make([]map[string]any, 0, len(g.Aliases))
	for _, a := range g.Aliases {
		aliases = append(aliases, text{}.put("alias", a.Alias))
	}
	products := make([]map[string]any, 0, len(g.Products))
	for _, gp := range g.Products {
		products = append(products, text{}.put("name", gp.Name).put("externalId", gp.ExternalID))
	}
	return f.list("aliases", aliases).list("products", products)
}

func sequenceFields(s *model.BioSequence) map[string]any {
	accessions := make([]map[string]any, 0, len(s.Accessions))
	for _, a := range s.Accessions {
		accessions = append(accessions, text{}.put("accession", a.Accession))
	}
	return text{}.
		put("name", s.Name).
		put("description", s.Description).
		list("accessions", accessions)
}

func probeFields(c *model.CompositeSequence) map[string]any {
	return text{}.put("name", c.Name).put("description", c.Description)
}

func platformFields(a *model.ArrayDesign) map[string]any {
	return text{}.
		put("name", a.Name).
		put("shortName", a.ShortName).
		put("accession", a.Accession).
		put("description", a.Description)
}

func geneSetFields(s *model.GeneSet) map[string]any {
	return text{}.
		put("name", s.Name).
		put("description", s.Description).
		put("sourceAccession", s.SourceAccession)
}

func publicationFields(b *model.BibliographicReference) map[string]any {
	return text{}.
		put("title", b.Title).
		put("abstract", b.Abstract).
		put("authors", b.Authors).
		put("pubAccession", b.PubAccession)
}

func experimentSetFields(s *model.ExpressionExperimentSet) map[string]any {
	return text{}.put("name", s.Name).put("description", s.Description)
}

func characteristicValues(cs []model.Characteristic, withCategory bool) []map[string]any {
	out := make([]map[string]any, 0, len(cs))
	for _, c := range cs {
		v := text{}.put("value", c.Value)
		if withCategory {
			v.put("category", c.Category)
		}
		out = append(out, v)
	}
	return out
}

func experimentFields(e *model.ExpressionExperiment, a *repository.ExperimentAnnotations) map[string]any {
	f := text{}.
		put("name", e.Name).
		put("shortName", e.ShortName).
		put("accession", e.Accession).
		put("description", e.Description)
	if a == nil {
		return f
	}

	factors := make([]map[string]any, 0, len(a.FactorValues))
	for _, fv := range a.FactorValues {
		factors = append(factors, text{}.put("value", fv.Value))
	}
	samples := make([]map[string]any, 0, len(a.BioMaterials))
	for _, bm := range a.BioMaterials {
		samples = append(samples, text{}.
			put("name", bm.Name).
			list("characteristics", characteristicValues(bm.Characteristics, false)))
	}
	return f.
		list("characteristics", characteristicValues(a.Characteristics, true)).
		list("factorValues", factors).
		list("bioMaterials", samples)
}
