package repository

import (
	"biosearch-go/internal/model"
	"context"

	"gorm.io/gorm"
)

// PlatformRepository 接口定义了检测平台（ArrayDesign）的数据操作。
type PlatformRepository interface {
	Load(ctx context.Context, ids []int64) ([]*model.ArrayDesign, error)
	FindByName(ctx context.Context, name string) ([]*model.ArrayDesign, error)
	FindByShortName(ctx context.Context, shortName string) ([]*model.ArrayDesign, error)
	FindByAccession(ctx context.Context, accession string) ([]*model.ArrayDesign, error)
	// FindByProbeIDs 返回每个探针所属的平台，以探针 ID 为键。不存在的探针不出现在结果中。
	FindByProbeIDs(ctx context.Context, probeIDs []int64) (map[int64]*model.ArrayDesign, error)
}

type platformRepository struct {
	db *gorm.DB
}

// NewPlatformRepository 创建一个新的 PlatformRepository 实例。
func NewPlatformRepository(db *gorm.DB) PlatformRepository {
	return &platformRepository{db: db}
}

func (r *platformRepository) Load(ctx context.Context, ids []int64) ([]*model.ArrayDesign, error) {
	return loadByIDs[model.ArrayDesign](ctx, r.db, ids)
}

func (r *platformRepository) FindByName(ctx context.Context, name string) ([]*model.ArrayDesign, error) {
	return findBy[model.ArrayDesign](ctx, r.db, "name", name)
}

func (r *platformRepository) FindByShortName(ctx context.Context, shortName string) ([]*model.ArrayDesign, error) {
	return findBy[model.ArrayDesign](ctx, r.db, "short_name", shortName)
}

func (r *platformRepository) FindByAccession(ctx context.Context, accession string) ([]*model.ArrayDesign, error) {
	return findBy[model.ArrayDesign](ctx, r.db, "accession", accession)
}

func (r *platformRepository) FindByProbeIDs(ctx context.Context, probeIDs []int64) (map[int64]*model.ArrayDesign, error) {
	out := make(map[int64]*model.ArrayDesign, len(probeIDs))
	if len(probeIDs) == 0 {
		return out, nil
	}
	var probes []model.CompositeSequence
	err := r.db.WithContext(ctx).
		Select("id", "array_design_id").
		Where("id IN ?", probeIDs).
		Find(&probes).Error
	if err != nil {
		return nil, err
	}

	platformIDs := make([]int64, 0, len(probes))
	for _, p := range probes {
		platformIDs = append(platformIDs, p.ArrayDesignID)
	}
	platforms, err := loadByIDs[model.ArrayDesign](ctx, r.db, platformIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*model.ArrayDesign, len(platforms))
	for _, ad := range platforms {
		byID[ad.ID] = ad
	}
	for _, p := range probes {
		if ad, ok := byID[p.ArrayDesignID]; ok {
			out[p.ID] = ad
		}
	}
	return out, nil
}
