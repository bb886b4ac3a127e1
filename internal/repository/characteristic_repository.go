package repository

import (
	"biosearch-go/internal/model"
	"context"

	"gorm.io/gorm"
)

// AnnotationPath 表示本体注释与实验之间的结构距离。
type AnnotationPath int

const (
	// AnnotationDirect 是直接挂在实验上的注释。
	AnnotationDirect AnnotationPath = iota
	// AnnotationFactor 是挂在实验设计因子取值上的注释。
	AnnotationFactor
	// AnnotationSample 是挂在单个样本上的注释。
	AnnotationSample
)

// AnnotationPaths 按搜索顺序列出全部注释路径。
var AnnotationPaths = []AnnotationPath{AnnotationDirect, AnnotationFactor, AnnotationSample}

func (p AnnotationPath) String() string {
	switch p {
	case AnnotationDirect:
		return "direct"
	case AnnotationFactor:
		return "factor"
	case AnnotationSample:
		return "sample"
	default:
		return "unknown"
	}
}

// AnnotationConstraints 是下推到关联查询中的过滤条件，0 表示不约束。
type AnnotationConstraints struct {
	TaxonID   int64
	DatasetID int64
}

// CharacteristicRepository 接口定义了按本体 URI 反查实验的操作。
type CharacteristicRepository interface {
	// FindExperimentIDsByURIs 返回每个 URI 经由指定路径关联到的实验 ID。
	// 后端缺少该路径所需的数据时返回 model.ErrMissingCapability。
	FindExperimentIDsByURIs(ctx context.Context, path AnnotationPath, uris []string, c AnnotationConstraints) (map[string][]int64, error)
	// LoadExperimentAnnotations 加载每个实验的注释、因子取值和样本，缺少的表按空处理。
	LoadExperimentAnnotations(ctx context.Context, experimentIDs []int64) (map[int64]*ExperimentAnnotations, error)
}

// ExperimentAnnotations 汇总了一个实验的自由文本注释。
type ExperimentAnnotations struct {
	Characteristics []model.Characteristic
	FactorValues    []model.FactorValue
	BioMaterials    []SampleAnnotations
}

// SampleAnnotations 是一个样本及其注释。
type SampleAnnotations struct {
	model.BioMaterial
	Characteristics []model.Characteristic
}

type characteristicRepository struct {
	db *gorm.DB
}

// NewCharacteristicRepository 创建一个新的 CharacteristicRepository 实例。
func NewCharacteristicRepository(db *gorm.DB) CharacteristicRepository {
	return &characteristicRepository{db: db}
}

func (r *characteristicRepository) FindExperimentIDsByURIs(ctx context.Context, path AnnotationPath, uris []string, c AnnotationConstraints) (map[string][]int64, error) {
	out := make(map[string][]int64)
	if len(uris) == 0 {
		return out, nil
	}

	db := r.db.WithContext(ctx)
	if !db.Migrator().HasTable(&model.Characteristic{}) {
		return nil, model.MissingCapabilityError("characteristic annotations")
	}

	var expCol string
	q := db.Table("characteristic")
	switch path {
	case AnnotationDirect:
		expCol = "characteristic.experiment_id"
	case AnnotationFactor:
		if !db.Migrator().HasTable(&model.FactorValue{}) {
			return nil, model.MissingCapabilityError("factor value annotations")
		}
		expCol = "factor_value.experiment_id"
		q = q.Joins("JOIN factor_value ON factor_value.id = characteristic.factor_value_id")
	case AnnotationSample:
		if !db.Migrator().HasTable(&model.BioMaterial{}) {
			return nil, model.MissingCapabilityError("sample annotations")
		}
		expCol = "bio_material.experiment_id"
		q = q.Joins("JOIN bio_material ON bio_material.id = characteristic.bio_material_id")
	default:
		return nil, model.MissingCapabilityError("annotation path " + path.String())
	}

	q = q.Select("DISTINCT characteristic.value_uri AS value_uri, "+expCol+" AS experiment_id").
		Where("characteristic.value_uri IN ?", uris).
		Where(expCol + " IS NOT NULL")
	if c.TaxonID > 0 {
		q = q.Joins("JOIN expression_experiment ON expression_experiment.id = "+expCol).
			Where("expression_experiment.taxon_id = ?", c.TaxonID)
	}
	if c.DatasetID > 0 {
		members := db.Table("expression_experiment_set_member").Select("experiment_id").Where("set_id = ?", c.DatasetID)
		q = q.Where(expCol+" IN (?)", members)
	}

	var rows []struct {
		ValueURI     string `gorm:"column:value_uri"`
		ExperimentID int64  `gorm:"column:experiment_id"`
	}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ValueURI] = append(out[row.ValueURI], row.ExperimentID)
	}
	return out, nil
}

func (r *characteristicRepository) LoadExperimentAnnotations(ctx context.Context, experimentIDs []int64) (map[int64]*ExperimentAnnotations, error) {
	out := make(map[int64]*ExperimentAnnotations, len(experimentIDs))
	if len(experimentIDs) == 0 {
		return out, nil
	}
	for _, id := range experimentIDs {
		out[id] = &ExperimentAnnotations{}
	}

	db := r.db.WithContext(ctx)
	hasCharacteristics := db.Migrator().HasTable(&model.Characteristic{})
	if hasCharacteristics {
		var cs []model.Characteristic
		if err := db.Where("experiment_id IN ?", experimentIDs).Find(&cs).Error; err != nil {
			return nil, err
		}
		for _, c := range cs {
			a := out[*c.ExperimentID]
			a.Characteristics = append(a.Characteristics, c)
		}
	}

	if db.Migrator().HasTable(&model.FactorValue{}) {
		var fvs []model.FactorValue
		if err := db.Where("experiment_id IN ?", experimentIDs).Find(&fvs).Error; err != nil {
			return nil, err
		}
		for _, fv := range fvs {
			a := out[fv.ExperimentID]
			a.FactorValues = append(a.FactorValues, fv)
		}
	}

	if !db.Migrator().HasTable(&model.BioMaterial{}) {
		return out, nil
	}
	var bms []model.BioMaterial
	if err := db.Where("experiment_id IN ?", experimentIDs).Order("id").Find(&bms).Error; err != nil {
		return nil, err
	}
	if len(bms) == 0 {
		return out, nil
	}
	samples := make(map[int64][]model.Characteristic)
	if hasCharacteristics {
		bmIDs := make([]int64, len(bms))
		for i, bm := range bms {
			bmIDs[i] = bm.ID
		}
		var cs []model.Characteristic
		if err := db.Where("bio_material_id IN ?", bmIDs).Find(&cs).Error; err != nil {
			return nil, err
		}
		for _, c := range cs {
			samples[*c.BioMaterialID] = append(samples[*c.BioMaterialID], c)
		}
	}
	for _, bm := range bms {
		a := out[bm.ExperimentID]
		a.BioMaterials = append(a.BioMaterials, SampleAnnotations{BioMaterial: bm, Characteristics: samples[bm.ID]})
	}
	return out, nil
}
