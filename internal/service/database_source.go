package service

import (
	"biosearch-go/internal/model"
	"biosearch-go/internal/repository"
	"biosearch-go/pkg/log"
	"context"
	"strconv"
	"strings"
	"unicode/utf8"
)

// 关系库来源的打分表。经由关联实体得到的命中再乘以 indirectHitPenalty。
const (
	exactMatchScore    = 1.0
	aliasMatchScore    = 0.9
	inexactSymbolScore = 0.9
	likeMatchScore     = 0.9
	indirectHitPenalty = 0.8
)

// DatabaseSearchSource 直接在权威关系库上做精确和模糊匹配。
type DatabaseSearchSource struct {
	genes       repository.GeneRepository
	probes      repository.ProbeRepository
	platforms   repository.PlatformRepository
	experiments repository.ExperimentRepository
	geneSets    repository.GeneSetRepository
}

// NewDatabaseSearchSource 创建一个新的 DatabaseSearchSource 实例。
func NewDatabaseSearchSource(
	genes repository.GeneRepository,
	probes repository.ProbeRepository,
	platforms repository.PlatformRepository,
	experiments repository.ExperimentRepository,
	geneSets repository.GeneSetRepository,
) *DatabaseSearchSource {
	return &DatabaseSearchSource{
		genes:       genes,
		probes:      probes,
		platforms:   platforms,
		experiments: experiments,
		geneSets:    geneSets,
	}
}

func (s *DatabaseSearchSource) Name() string { return "database" }

// geneLookup 是级联中的一层基因查找，score 为该层命中的基础分数。
type geneLookup struct {
	name  string
	score float64
	find  func(ctx context.Context, q string) ([]*model.Gene, error)
}

// SearchGenes 按级联逐层解析基因，在第一层有结果时停止，最后按物种过滤。
func (s *DatabaseSearchSource) SearchGenes(ctx context.Context, settings model.SearchSettings) (*model.SearchResultSet[*model.Gene], error) {
	results := model.NewSearchResultSetFor[*model.Gene](settings)
	if !settings.UseRelationalStore {
		return results, nil
	}
	query := PrepareDatabaseQuery(settings.Query)
	if query == "" {
		return results, nil
	}

	found, err := s.geneCascade(ctx, settings, query)
	if err != nil {
		return nil, err
	}
	for _, r := range found {
		if settings.HasTaxon() && r.ResultObject.TaxonID != settings.TaxonID {
			continue
		}
		results.Add(r)
	}
	return results, nil
}

func (s *DatabaseSearchSource) geneCascade(ctx context.Context, settings model.SearchSettings, query string) ([]*model.SearchResult[*model.Gene], error) {
	source := s.Name()

	// 1. 数字 ID
	if ncbiID, err := strconv.Atoi(query); err == nil {
		genes, err := s.genes.FindByNcbiID(ctx, ncbiID)
		if err != nil {
			return nil, err
		}
		if len(genes) > 0 {
			return scoreGenes(genes, exactMatchScore, source+":ncbi"), nil
		}
	}

	// 2. 外部登录号
	genes, err := s.genes.FindByEnsemblID(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(genes) > 0 {
		return scoreGenes(genes, exactMatchScore, source+":ensembl"), nil
	}

	// 3. 按长度分层的官方符号检索
	symbolHits, err := s.searchOfficialSymbol(ctx, settings, query)
	if err != nil {
		return nil, err
	}
	if len(symbolHits) > 0 {
		return symbolHits, nil
	}

	// 4. 间接匹配，按固定顺序逐层回退
	fallbacks := []geneLookup{
		{"alias", aliasMatchScore, s.genes.FindByAlias},
		{"xref", exactMatchScore, s.genes.FindByXref},
		{"product", exactMatchScore, s.genes.FindByProductName},
		{"product-id", exactMatchScore, s.genes.FindByProductExternalID},
		{"sequence-accession", exactMatchScore, s.genes.FindBySequenceAccession},
		{"sequence-name", exactMatchScore, s.genes.FindBySequenceName},
	}
	for _, f := range fallbacks {
		genes, err := f.find(ctx, query)
		if err != nil {
			return nil, err
		}
		if len(genes) > 0 {
			log.Debugf("[DatabaseSearch] 基因 '%s' 经由 %s 间接命中 %d 条", query, f.name, len(genes))
			return scoreGenes(genes, f.score*indirectHitPenalty, source+":"+f.name), nil
		}
	}
	return nil, nil
}

// searchOfficialSymbol 按清理后查询的长度选择精确或模糊的官方符号检索。
// 长度为 2 到 5 且调用方未使用通配符时，自动追加尾部通配符。
func (s *DatabaseSearchSource) searchOfficialSymbol(ctx context.Context, settings model.SearchSettings, query string) ([]*model.SearchResult[*model.Gene], error) {
	source := s.Name() + ":symbol"
	length := utf8.RuneCountInString(query)

	var (
		genes []*model.Gene
		err   error
	)
	switch {
	case length <= 1:
		genes, err = s.genes.FindByOfficialSymbol(ctx, query)
	case length <= 5:
		pattern := PrepareLikeQuery(settings.Query)
		if !settings.IsWildcard() {
			pattern += "%"
		}
		genes, err = s.genes.FindByOfficialSymbolLike(ctx, pattern)
	case settings.IsWildcard():
		genes, err = s.genes.FindByOfficialSymbolLike(ctx, PrepareLikeQuery(settings.Query))
	default:
		genes, err = s.genes.FindByOfficialSymbol(ctx, query)
	}
	if err != nil {
		return nil, err
	}

	out := make([]*model.SearchResult[*model.Gene], 0, len(genes))
	for _, g := range genes {
		score := inexactSymbolScore
		if strings.EqualFold(g.OfficialSymbol, query) {
			score = exactMatchScore
		}
		out = append(out, model.NewSearchResult(g, score, source))
	}
	return out, nil
}

func scoreGenes(genes []*model.Gene, score float64, source string) []*model.SearchResult[*model.Gene] {
	out := make([]*model.SearchResult[*model.Gene], len(genes))
	for i, g := range genes {
		out[i] = model.NewSearchResult(g, score, source)
	}
	return out
}

// SearchProbes 依次尝试：探针名、序列名、基因，越往后越间接。
func (s *DatabaseSearchSource) SearchProbes(ctx context.Context, settings model.SearchSettings) (*model.SearchResultSet[*model.CompositeSequence], error) {
	results := model.NewSearchResultSetFor[*model.CompositeSequence](settings)
	if !settings.UseRelationalStore {
		return results, nil
	}
	query := PrepareDatabaseQuery(settings.Query)
	if query == "" {
		return results, nil
	}

	probes, err := s.probes.FindByName(ctx, query, settings.PlatformID)
	if err != nil {
		return nil, err
	}
	if len(probes) > 0 {
		addEntities(results, probes, exactMatchScore, s.Name()+":name")
		return results, nil
	}

	seqs, err := s.probes.FindSequencesByName(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(seqs) > 0 {
		seqIDs := make([]int64, len(seqs))
		for i, seq := range seqs {
			seqIDs[i] = seq.ID
		}
		probes, err = s.probes.FindBySequenceIDs(ctx, seqIDs, settings.PlatformID)
		if err != nil {
			return nil, err
		}
		if len(probes) > 0 {
			addEntities(results, probes, exactMatchScore*indirectHitPenalty, s.Name()+":sequence")
			return results, nil
		}
	}

	genes, err := s.SearchGenes(ctx, settings.WithResultTypes(model.EntityGene))
	if err != nil {
		return nil, err
	}
	if genes.IsEmpty() {
		return results, nil
	}
	byGene, err := s.probes.FindByGeneIDs(ctx, genes.IDs(), settings.PlatformID)
	if err != nil {
		return nil, err
	}
	for _, g := range genes.Results() {
		addEntities(results, byGene[g.ResultID], g.Score*indirectHitPenalty, s.Name()+":gene")
	}
	return results, nil
}

// SearchSequences 依次尝试：序列名、登录号、基因。
func (s *DatabaseSearchSource) SearchSequences(ctx context.Context, settings model.SearchSettings) (*model.SearchResultSet[*model.BioSequence], error) {
	results := model.NewSearchResultSetFor[*model.BioSequence](settings)
	if !settings.UseRelationalStore {
		return results, nil
	}
	query := PrepareDatabaseQuery(settings.Query)
	if query == "" {
		return results, nil
	}
	keep := func(seq *model.BioSequence) bool {
		return !settings.HasTaxon() || seq.TaxonID == settings.TaxonID
	}

	lookups := []struct {
		name  string
		score float64
		find  func(context.Context, string) ([]*model.BioSequence, error)
	}{
		{"name", exactMatchScore, s.probes.FindSequencesByName},
		{"accession", exactMatchScore * indirectHitPenalty, s.probes.FindSequencesByAccession},
	}
	for _, l := range lookups {
		seqs, err := l.find(ctx, query)
		if err != nil {
			return nil, err
		}
		for _, seq := range seqs {
			if keep(seq) {
				results.Add(model.NewSearchResult(seq, l.score, s.Name()+":"+l.name))
			}
		}
		if !results.IsEmpty() {
			return results, nil
		}
	}

	genes, err := s.SearchGenes(ctx, settings.WithResultTypes(model.EntityGene))
	if err != nil {
		return nil, err
	}
	if genes.IsEmpty() {
		return results, nil
	}
	byGene, err := s.probes.FindSequencesByGeneIDs(ctx, genes.IDs())
	if err != nil {
		return nil, err
	}
	for _, g := range genes.Results() {
		for _, seq := range byGene[g.ResultID] {
			if keep(seq) {
				results.Add(model.NewSearchResult(seq, g.Score*indirectHitPenalty, s.Name()+":gene"))
			}
		}
	}
	return results, nil
}

// SearchPlatforms 依次尝试：名称、短名、登录号，然后经由探针名和基因间接查找。
func (s *DatabaseSearchSource) SearchPlatforms(ctx context.Context, settings model.SearchSettings) (*model.SearchResultSet[*model.ArrayDesign], error) {
	results := model.NewSearchResultSetFor[*model.ArrayDesign](settings)
	if !settings.UseRelationalStore {
		return results, nil
	}
	query := PrepareDatabaseQuery(settings.Query)
	if query == "" {
		return results, nil
	}
	add := func(platforms []*model.ArrayDesign, score float64, source string) {
		for _, p := range platforms {
			if !settings.HasTaxon() || p.TaxonID == settings.TaxonID {
				results.Add(model.NewSearchResult(p, score, s.Name()+":"+source))
			}
		}
	}

	tiers := []struct {
		name string
		find func(context.Context, string) ([]*model.ArrayDesign, error)
	}{
		{"name", s.platforms.FindByName},
		{"short-name", s.platforms.FindByShortName},
		{"accession", s.platforms.FindByAccession},
	}
	for _, tier := range tiers {
		platforms, err := tier.find(ctx, query)
		if err != nil {
			return nil, err
		}
		add(platforms, exactMatchScore, tier.name)
		if !results.IsEmpty() {
			return results, nil
		}
	}

	probes, err := s.SearchProbes(ctx, settings.WithResultTypes(model.EntityProbe))
	if err != nil {
		return nil, err
	}
	if probes.IsEmpty() {
		return results, nil
	}
	byProbe, err := s.platforms.FindByProbeIDs(ctx, probes.IDs())
	if err != nil {
		return nil, err
	}
	for _, p := range probes.Results() {
		if platform, ok := byProbe[p.ResultID]; ok {
			add([]*model.ArrayDesign{platform}, p.Score*indirectHitPenalty, "probe")
		}
		if results.IsFilled() {
			break
		}
	}
	return results, nil
}

// SearchExperiments 依次尝试：名称、短名、登录号。
// 普通调用在第一层命中后停止；settings.Exhaustive 为 true 时继续尝试后续各层。
func (s *DatabaseSearchSource) SearchExperiments(ctx context.Context, settings model.SearchSettings) (*model.SearchResultSet[*model.ExpressionExperiment], error) {
	results := model.NewSearchResultSetFor[*model.ExpressionExperiment](settings)
	if !settings.UseRelationalStore {
		return results, nil
	}
	query := PrepareDatabaseQuery(settings.Query)
	if query == "" {
		return results, nil
	}

	var inDataset map[int64]bool
	if settings.HasDataset() {
		ids, err := s.experiments.FindIDsInSet(ctx, settings.DatasetID)
		if err != nil {
			return nil, err
		}
		inDataset = make(map[int64]bool, len(ids))
		for _, id := range ids {
			inDataset[id] = true
		}
	}

	tiers := []struct {
		name string
		find func(context.Context, string) ([]*model.ExpressionExperiment, error)
	}{
		{"name", s.experiments.FindByName},
		{"short-name", s.experiments.FindByShortName},
		{"accession", s.experiments.FindByAccession},
	}
	for _, tier := range tiers {
		exps, err := tier.find(ctx, query)
		if err != nil {
			return nil, err
		}
		for _, e := range exps {
			if settings.HasTaxon() && e.TaxonID != settings.TaxonID {
				continue
			}
			if inDataset != nil && !inDataset[e.ID] {
				continue
			}
			results.Add(model.NewSearchResult(e, exactMatchScore, s.Name()+":"+tier.name))
		}
		if !results.IsEmpty() && !settings.Exhaustive {
			break
		}
	}
	return results, nil
}

// SearchGeneSets 先精确匹配名称，再做模糊匹配。
func (s *DatabaseSearchSource) SearchGeneSets(ctx context.Context, settings model.SearchSettings) (*model.SearchResultSet[*model.GeneSet], error) {
	results := model.NewSearchResultSetFor[*model.GeneSet](settings)
	if !settings.UseRelationalStore {
		return results, nil
	}
	keep := func(gs *model.GeneSet) bool {
		return !settings.HasTaxon() || gs.TaxonID == settings.TaxonID
	}
	return exactThenLike(ctx, settings, results, s.Name(), s.geneSets.FindByName, s.geneSets.FindByNameLike, keep)
}

// SearchPublications 先按 PubMed 登录号精确匹配，再按标题模糊匹配。
func (s *DatabaseSearchSource) SearchPublications(ctx context.Context, settings model.SearchSettings) (*model.SearchResultSet[*model.BibliographicReference], error) {
	results := model.NewSearchResultSetFor[*model.BibliographicReference](settings)
	if !settings.UseRelationalStore {
		return results, nil
	}
	return exactThenLike(ctx, settings, results, s.Name(), s.geneSets.FindPublicationsByAccession, s.geneSets.FindPublicationsByTitleLike, nil)
}

// SearchExperimentSets 先精确匹配名称，再做模糊匹配。
func (s *DatabaseSearchSource) SearchExperimentSets(ctx context.Context, settings model.SearchSettings) (*model.SearchResultSet[*model.ExpressionExperimentSet], error) {
	results := model.NewSearchResultSetFor[*model.ExpressionExperimentSet](settings)
	if !settings.UseRelationalStore {
		return results, nil
	}
	keep := func(es *model.ExpressionExperimentSet) bool {
		return !settings.HasTaxon() || es.TaxonID == settings.TaxonID
	}
	return exactThenLike(ctx, settings, results, s.Name(), s.experiments.FindSetsByName, s.experiments.FindSetsByNameLike, keep)
}

// exactThenLike 先做等值匹配，没有结果时做包含匹配（调用方未使用通配符时两端补 %）。
func exactThenLike[T model.Entity](
	ctx context.Context,
	settings model.SearchSettings,
	results *model.SearchResultSet[T],
	source string,
	exact func(context.Context, string) ([]T, error),
	like func(context.Context, string) ([]T, error),
	keep func(T) bool,
) (*model.SearchResultSet[T], error) {
	query := PrepareDatabaseQuery(settings.Query)
	if query == "" {
		return results, nil
	}
	add := func(entities []T, score float64, tag string) {
		for _, e := range entities {
			if keep == nil || keep(e) {
				results.Add(model.NewSearchResult(e, score, source+":"+tag))
			}
		}
	}

	found, err := exact(ctx, query)
	if err != nil {
		return nil, err
	}
	add(found, exactMatchScore, "exact")
	if !results.IsEmpty() {
		return results, nil
	}

	pattern := PrepareLikeQuery(settings.Query)
	if !settings.IsWildcard() {
		pattern = "%" + pattern + "%"
	}
	found, err = like(ctx, pattern)
	if err != nil {
		return nil, err
	}
	add(found, likeMatchScore, "like")
	return results, nil
}
