package repository

import (
	"biosearch-go/internal/model"
	"context"

	"gorm.io/gorm"
)

// GeneSetRepository 接口定义了基因组和文献的数据操作。
type GeneSetRepository interface {
	Load(ctx context.Context, ids []int64) ([]*model.GeneSet, error)
	FindByName(ctx context.Context, name string) ([]*model.GeneSet, error)
	FindByNameLike(ctx context.Context, pattern string) ([]*model.GeneSet, error)
	// FindBySourceAccessions 查找由给定 GO 术语整理出的基因组，taxonID 为 0 时不按物种过滤。
	FindBySourceAccessions(ctx context.Context, accessions []string, taxonID int64) ([]*model.GeneSet, error)

	LoadPublications(ctx context.Context, ids []int64) ([]*model.BibliographicReference, error)
	FindPublicationsByAccession(ctx context.Context, accession string) ([]*model.BibliographicReference, error)
	FindPublicationsByTitleLike(ctx context.Context, pattern string) ([]*model.BibliographicReference, error)
}

type geneSetRepository struct {
	db *gorm.DB
}

// NewGeneSetRepository 创建一个新的 GeneSetRepository 实例。
func NewGeneSetRepository(db *gorm.DB) GeneSetRepository {
	return &geneSetRepository{db: db}
}

func (r *geneSetRepository) Load(ctx context.Context, ids []int64) ([]*model.GeneSet, error) {
	return loadByIDs[model.GeneSet](ctx, r.db, ids)
}

func (r *geneSetRepository) FindByName(ctx context.Context, name string) ([]*model.GeneSet, error) {
	return findBy[model.GeneSet](ctx, r.db, "name", name)
}

func (r *geneSetRepository) FindByNameLike(ctx context.Context, pattern string) ([]*model.GeneSet, error) {
	return findLike[model.GeneSet](ctx, r.db, "name", pattern)
}

func (r *geneSetRepository) FindBySourceAccessions(ctx context.Context, accessions []string, taxonID int64) ([]*model.GeneSet, error) {
	var sets []*model.GeneSet
	if len(accessions) == 0 {
		return sets, nil
	}
	q := r.db.WithContext(ctx).Where("source_accession IN ?", accessions)
	if taxonID > 0 {
		q = q.Where("taxon_id = ?", taxonID)
	}
	err := q.Find(&sets).Error
	return sets, err
}

func (r *geneSetRepository) LoadPublications(ctx context.Context, ids []int64) ([]*model.BibliographicReference, error) {
	return loadByIDs[model.BibliographicReference](ctx, r.db, ids)
}

func (r *geneSetRepository) FindPublicationsByAccession(ctx context.Context, accession string) ([]*model.BibliographicReference, error) {
	return findBy[model.BibliographicReference](ctx, r.db, "pub_accession", accession)
}

func (r *geneSetRepository) FindPublicationsByTitleLike(ctx context.Context, pattern string) ([]*model.BibliographicReference, error) {
	return findLike[model.BibliographicReference](ctx, r.db, "title", pattern)
}
