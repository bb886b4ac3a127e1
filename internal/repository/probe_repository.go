package repository

import (
	"biosearch-go/internal/model"
	"context"

	"gorm.io/gorm"
)

// ProbeRepository 接口定义了探针（CompositeSequence）和序列的数据操作。
type ProbeRepository interface {
	Load(ctx context.Context, ids []int64) ([]*model.CompositeSequence, error)
	// FindByName 按名称精确查找探针，platformID 为 0 时不限平台。
	FindByName(ctx context.Context, name string, platformID int64) ([]*model.CompositeSequence, error)
	FindBySequenceIDs(ctx context.Context, sequenceIDs []int64, platformID int64) ([]*model.CompositeSequence, error)
	// FindByGeneIDs 返回每个基因通过 序列 -> 基因产物 关联到的探针。
	FindByGeneIDs(ctx context.Context, geneIDs []int64, platformID int64) (map[int64][]*model.CompositeSequence, error)

	LoadSequences(ctx context.Context, ids []int64) ([]*model.BioSequence, error)
	// LoadSequencesDetailed 加载序列及其外部登录号。
	LoadSequencesDetailed(ctx context.Context, ids []int64) ([]*model.BioSequence, error)
	FindSequencesByName(ctx context.Context, name string) ([]*model.BioSequence, error)
	FindSequencesByAccession(ctx context.Context, accession string) ([]*model.BioSequence, error)
	// FindSequencesByGeneIDs 返回每个基因关联的序列。
	FindSequencesByGeneIDs(ctx context.Context, geneIDs []int64) (map[int64][]*model.BioSequence, error)
}

type probeRepository struct {
	db *gorm.DB
}

// NewProbeRepository 创建一个新的 ProbeRepository 实例。
func NewProbeRepository(db *gorm.DB) ProbeRepository {
	return &probeRepository{db: db}
}

func (r *probeRepository) Load(ctx context.Context, ids []int64) ([]*model.CompositeSequence, error) {
	return loadByIDs[model.CompositeSequence](ctx, r.db, ids)
}

func (r *probeRepository) FindByName(ctx context.Context, name string, platformID int64) ([]*model.CompositeSequence, error) {
	var probes []*model.CompositeSequence
	q := r.db.WithContext(ctx).Where("name = ?", name)
	if platformID > 0 {
		q = q.Where("array_design_id = ?", platformID)
	}
	err := q.Find(&probes).Error
	return probes, err
}

func (r *probeRepository) FindBySequenceIDs(ctx context.Context, sequenceIDs []int64, platformID int64) ([]*model.CompositeSequence, error) {
	var probes []*model.CompositeSequence
	if len(sequenceIDs) == 0 {
		return probes, nil
	}
	q := r.db.WithContext(ctx).Where("bio_sequence_id IN ?", sequenceIDs)
	if platformID > 0 {
		q = q.Where("array_design_id = ?", platformID)
	}
	err := q.Find(&probes).Error
	return probes, err
}

func (r *probeRepository) FindByGeneIDs(ctx context.Context, geneIDs []int64, platformID int64) (map[int64][]*model.CompositeSequence, error) {
	out := make(map[int64][]*model.CompositeSequence)
	if len(geneIDs) == 0 {
		return out, nil
	}
	q := r.db.WithContext(ctx).
		Table("composite_sequence").
		Joins("JOIN bio_sequence2gene_product ON bio_sequence2gene_product.bio_sequence_id = composite_sequence.bio_sequence_id").
		Joins("JOIN gene_product ON gene_product.id = bio_sequence2gene_product.gene_product_id").
		Where("gene_product.gene_id IN ?", geneIDs)
	if platformID > 0 {
		q = q.Where("composite_sequence.array_design_id = ?", platformID)
	}
	pairs, err := scanGenePairs(q.Select("DISTINCT composite_sequence.id AS id, gene_product.gene_id AS gene_id"))
	if err != nil {
		return nil, err
	}
	probes, err := r.Load(ctx, pairIDs(pairs))
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*model.CompositeSequence, len(probes))
	for _, p := range probes {
		byID[p.ID] = p
	}
	for _, pair := range pairs {
		if p, ok := byID[pair.ID]; ok {
			out[pair.GeneID] = append(out[pair.GeneID], p)
		}
	}
	return out, nil
}

func (r *probeRepository) LoadSequences(ctx context.Context, ids []int64) ([]*model.BioSequence, error) {
	return loadByIDs[model.BioSequence](ctx, r.db, ids)
}

func (r *probeRepository) LoadSequencesDetailed(ctx context.Context, ids []int64) ([]*model.BioSequence, error) {
	var seqs []*model.BioSequence
	if len(ids) == 0 {
		return seqs, nil
	}
	err := r.db.WithContext(ctx).Preload("Accessions").Where("id IN ?", ids).Find(&seqs).Error
	return seqs, err
}

func (r *probeRepository) FindSequencesByName(ctx context.Context, name string) ([]*model.BioSequence, error) {
	return findBy[model.BioSequence](ctx, r.db, "name", name)
}

func (r *probeRepository) FindSequencesByAccession(ctx context.Context, accession string) ([]*model.BioSequence, error) {
	var seqs []*model.BioSequence
	err := r.db.WithContext(ctx).
		Distinct("bio_sequence.*").
		Joins("JOIN bio_sequence_accession ON bio_sequence_accession.bio_sequence_id = bio_sequence.id").
		Where("bio_sequence_accession.accession = ?", accession).
		Find(&seqs).Error
	return seqs, err
}

func (r *probeRepository) FindSequencesByGeneIDs(ctx context.Context, geneIDs []int64) (map[int64][]*model.BioSequence, error) {
	out := make(map[int64][]*model.BioSequence)
	if len(geneIDs) == 0 {
		return out, nil
	}
	q := r.db.WithContext(ctx).
		Table("bio_sequence2gene_product").
		Select("DISTINCT bio_sequence2gene_product.bio_sequence_id AS id, gene_product.gene_id AS gene_id").
		Joins("JOIN gene_product ON gene_product.id = bio_sequence2gene_product.gene_product_id").
		Where("gene_product.gene_id IN ?", geneIDs)
	pairs, err := scanGenePairs(q)
	if err != nil {
		return nil, err
	}
	seqs, err := r.LoadSequences(ctx, pairIDs(pairs))
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*model.BioSequence, len(seqs))
	for _, s := range seqs {
		byID[s.ID] = s
	}
	for _, pair := range pairs {
		if s, ok := byID[pair.ID]; ok {
			out[pair.GeneID] = append(out[pair.GeneID], s)
		}
	}
	return out, nil
}

// genePair 是 (实体 ID, 基因 ID) 关联行。
type genePair struct {
	ID     int64 `gorm:"column:id"`
	GeneID int64 `gorm:"column:gene_id"`
}

func scanGenePairs(q *gorm.DB) ([]genePair, error) {
	var pairs []genePair
	err := q.Scan(&pairs).Error
	return pairs, err
}

func pairIDs(pairs []genePair) []int64 {
	seen := make(map[int64]struct{}, len(pairs))
	ids := make([]int64, 0, len(pairs))
	for _, p := range pairs {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		ids = append(ids, p.ID)
	}
	return ids
}
