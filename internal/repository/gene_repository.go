package repository

import (
	"biosearch-go/internal/model"
	"context"

	"gorm.io/gorm"
)

// GeneRepository 接口定义了基因检索相关的数据操作。
type GeneRepository interface {
	Load(ctx context.Context, ids []int64) ([]*model.Gene, error)
	// LoadDetailed 加载基因及其别名和基因产物。
	LoadDetailed(ctx context.Context, ids []int64) ([]*model.Gene, error)
	FindByNcbiID(ctx context.Context, ncbiID int) ([]*model.Gene, error)
	FindByEnsemblID(ctx context.Context, ensemblID string) ([]*model.Gene, error)
	FindByOfficialSymbol(ctx context.Context, symbol string) ([]*model.Gene, error)
	FindByOfficialSymbolLike(ctx context.Context, pattern string) ([]*model.Gene, error)
	FindByAlias(ctx context.Context, alias string) ([]*model.Gene, error)
	FindByXref(ctx context.Context, accession string) ([]*model.Gene, error)
	FindByProductName(ctx context.Context, name string) ([]*model.Gene, error)
	FindByProductExternalID(ctx context.Context, externalID string) ([]*model.Gene, error)
	FindBySequenceAccession(ctx context.Context, accession string) ([]*model.Gene, error)
	FindBySequenceName(ctx context.Context, name string) ([]*model.Gene, error)
	// FindIDsByGOTerms 返回每个 GO 术语 URI 注释到的基因 ID，taxonID 为 0 时不按物种过滤。
	FindIDsByGOTerms(ctx context.Context, uris []string, taxonID int64) (map[string][]int64, error)
}

type geneRepository struct {
	db *gorm.DB
}

// NewGeneRepository 创建一个新的 GeneRepository 实例。
func NewGeneRepository(db *gorm.DB) GeneRepository {
	return &geneRepository{db: db}
}

func (r *geneRepository) Load(ctx context.Context, ids []int64) ([]*model.Gene, error) {
	return loadByIDs[model.Gene](ctx, r.db, ids)
}

func (r *geneRepository) LoadDetailed(ctx context.Context, ids []int64) ([]*model.Gene, error) {
	var genes []*model.Gene
	if len(ids) == 0 {
		return genes, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Aliases").
		Preload("Products").
		Where("id IN ?", ids).
		Find(&genes).Error
	return genes, err
}

func (r *geneRepository) FindByNcbiID(ctx context.Context, ncbiID int) ([]*model.Gene, error) {
	return findBy[model.Gene](ctx, r.db, "ncbi_gene_id", ncbiID)
}

func (r *geneRepository) FindByEnsemblID(ctx context.Context, ensemblID string) ([]*model.Gene, error) {
	return findBy[model.Gene](ctx, r.db, "ensembl_id", ensemblID)
}

func (r *geneRepository) FindByOfficialSymbol(ctx context.Context, symbol string) ([]*model.Gene, error) {
	return findBy[model.Gene](ctx, r.db, "official_symbol", symbol)
}

func (r *geneRepository) FindByOfficialSymbolLike(ctx context.Context, pattern string) ([]*model.Gene, error) {
	return findLike[model.Gene](ctx, r.db, "official_symbol", pattern)
}

// FindByAlias 通过别名查找基因。
func (r *geneRepository) FindByAlias(ctx context.Context, alias string) ([]*model.Gene, error) {
	var genes []*model.Gene
	err := r.db.WithContext(ctx).
		Distinct("gene.*").
		Joins("JOIN gene_alias ON gene_alias.gene_id = gene.id").
		Where("gene_alias.alias = ?", alias).
		Find(&genes).Error
	return genes, err
}

// FindByXref 通过外部数据库交叉引用查找基因。
func (r *geneRepository) FindByXref(ctx context.Context, accession string) ([]*model.Gene, error) {
	var genes []*model.Gene
	err := r.db.WithContext(ctx).
		Distinct("gene.*").
		Joins("JOIN gene_xref ON gene_xref.gene_id = gene.id").
		Where("gene_xref.accession = ?", accession).
		Find(&genes).Error
	return genes, err
}

func (r *geneRepository) FindByProductName(ctx context.Context, name string) ([]*model.Gene, error) {
	var genes []*model.Gene
	err := r.db.WithContext(ctx).
		Distinct("gene.*").
		Joins("JOIN gene_product ON gene_product.gene_id = gene.id").
		Where("gene_product.name = ?", name).
		Find(&genes).Error
	return genes, err
}

func (r *geneRepository) FindByProductExternalID(ctx context.Context, externalID string) ([]*model.Gene, error) {
	var genes []*model.Gene
	err := r.db.WithContext(ctx).
		Distinct("gene.*").
		Joins("JOIN gene_product ON gene_product.gene_id = gene.id").
		Where("gene_product.external_id = ?", externalID).
		Find(&genes).Error
	return genes, err
}

// FindBySequenceAccession 经由 序列登录号 -> 序列 -> 基因产物 -> 基因 查找。
func (r *geneRepository) FindBySequenceAccession(ctx context.Context, accession string) ([]*model.Gene, error) {
	var genes []*model.Gene
	err := r.db.WithContext(ctx).
		Distinct("gene.*").
		Joins("JOIN gene_product ON gene_product.gene_id = gene.id").
		Joins("JOIN bio_sequence2gene_product ON bio_sequence2gene_product.gene_product_id = gene_product.id").
		Joins("JOIN bio_sequence_accession ON bio_sequence_accession.bio_sequence_id = bio_sequence2gene_product.bio_sequence_id").
		Where("bio_sequence_accession.accession = ?", accession).
		Find(&genes).Error
	return genes, err
}

func (r *geneRepository) FindBySequenceName(ctx context.Context, name string) ([]*model.Gene, error) {
	var genes []*model.Gene
	err := r.db.WithContext(ctx).
		Distinct("gene.*").
		Joins("JOIN gene_product ON gene_product.gene_id = gene.id").
		Joins("JOIN bio_sequence2gene_product ON bio_sequence2gene_product.gene_product_id = gene_product.id").
		Joins("JOIN bio_sequence ON bio_sequence.id = bio_sequence2gene_product.bio_sequence_id").
		Where("bio_sequence.name = ?", name).
		Find(&genes).Error
	return genes, err
}

func (r *geneRepository) FindIDsByGOTerms(ctx context.Context, uris []string, taxonID int64) (map[string][]int64, error) {
	out := make(map[string][]int64)
	if len(uris) == 0 {
		return out, nil
	}
	var rows []struct {
		GOTermURI string `gorm:"column:go_term_uri"`
		GeneID    int64  `gorm:"column:gene_id"`
	}
	q := r.db.WithContext(ctx).
		Table("gene2go_association").
		Select("DISTINCT gene2go_association.go_term_uri AS go_term_uri, gene2go_association.gene_id AS gene_id").
		Joins("JOIN gene ON gene.id = gene2go_association.gene_id").
		Where("gene2go_association.go_term_uri IN ?", uris)
	if taxonID > 0 {
		q = q.Where("gene.taxon_id = ?", taxonID)
	}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.GOTermURI] = append(out[row.GOTermURI], row.GeneID)
	}
	return out, nil
}
