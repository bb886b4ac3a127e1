// Package model 定义了与数据库表对应的 Go 结构体以及搜索的数据模型。
package model

// EntityType 标识可被搜索的实体类型。
type EntityType string

const (
	EntityExperiment    EntityType = "ExpressionExperiment"
	EntityGene          EntityType = "Gene"
	EntitySequence      EntityType = "BioSequence"
	EntityProbe         EntityType = "CompositeSequence"
	EntityPlatform      EntityType = "ArrayDesign"
	EntityGeneSet       EntityType = "GeneSet"
	EntityPublication   EntityType = "BibliographicReference"
	EntityExperimentSet EntityType = "ExpressionExperimentSet"
)

// AllEntityTypes 按默认搜索顺序列出全部实体类型。
var AllEntityTypes = []EntityType{
	EntityExperiment,
	EntityGene,
	EntitySequence,
	EntityProbe,
	EntityPlatform,
	EntityGeneSet,
	EntityPublication,
	EntityExperimentSet,
}

// ParseEntityType 解析实体类型名称，大小写敏感。
func ParseEntityType(s string) (EntityType, bool) {
	for _, t := range AllEntityTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// Entity 是所有可搜索实体实现的接口。
type Entity interface {
	EntityID() int64
	EntityType() EntityType
}
