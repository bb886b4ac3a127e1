package repository

import (
	"biosearch-go/internal/model"
	"context"

	"gorm.io/gorm"
)

// ExperimentRepository 接口定义了表达实验及实验集合的数据操作。
type ExperimentRepository interface {
	Load(ctx context.Context, ids []int64) ([]*model.ExpressionExperiment, error)
	FindByName(ctx context.Context, name string) ([]*model.ExpressionExperiment, error)
	FindByShortName(ctx context.Context, shortName string) ([]*model.ExpressionExperiment, error)
	FindByAccession(ctx context.Context, accession string) ([]*model.ExpressionExperiment, error)
	// FindIDsInSet 返回实验集合中的实验 ID。
	FindIDsInSet(ctx context.Context, setID int64) ([]int64, error)

	LoadSets(ctx context.Context, ids []int64) ([]*model.ExpressionExperimentSet, error)
	FindSetsByName(ctx context.Context, name string) ([]*model.ExpressionExperimentSet, error)
	FindSetsByNameLike(ctx context.Context, pattern string) ([]*model.ExpressionExperimentSet, error)
}

type experimentRepository struct {
	db *gorm.DB
}

// NewExperimentRepository 创建一个新的 ExperimentRepository 实例。
func NewExperimentRepository(db *gorm.DB) ExperimentRepository {
	return &experimentRepository{db: db}
}

func (r *experimentRepository) Load(ctx context.Context, ids []int64) ([]*model.ExpressionExperiment, error) {
	return loadByIDs[model.ExpressionExperiment](ctx, r.db, ids)
}

func (r *experimentRepository) FindByName(ctx context.Context, name string) ([]*model.ExpressionExperiment, error) {
	return findBy[model.ExpressionExperiment](ctx, r.db, "name", name)
}

func (r *experimentRepository) FindByShortName(ctx context.Context, shortName string) ([]*model.ExpressionExperiment, error) {
	return findBy[model.ExpressionExperiment](ctx, r.db, "short_name", shortName)
}

func (r *experimentRepository) FindByAccession(ctx context.Context, accession string) ([]*model.ExpressionExperiment, error) {
	return findBy[model.ExpressionExperiment](ctx, r.db, "accession", accession)
}

func (r *experimentRepository) FindIDsInSet(ctx context.Context, setID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&model.ExpressionExperimentSetMember{}).
		Where("set_id = ?", setID).
		Pluck("experiment_id", &ids).Error
	return ids, err
}

func (r *experimentRepository) LoadSets(ctx context.Context, ids []int64) ([]*model.ExpressionExperimentSet, error) {
	return loadByIDs[model.ExpressionExperimentSet](ctx, r.db, ids)
}

func (r *experimentRepository) FindSetsByName(ctx context.Context, name string) ([]*model.ExpressionExperimentSet, error) {
	return findBy[model.ExpressionExperimentSet](ctx, r.db, "name", name)
}

func (r *experimentRepository) FindSetsByNameLike(ctx context.Context, pattern string) ([]*model.ExpressionExperimentSet, error) {
	return findLike[model.ExpressionExperimentSet](ctx, r.db, "name", pattern)
}
