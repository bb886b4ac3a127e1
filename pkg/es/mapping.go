package es

import (
	"biosearch-go/internal/model"
)

// FieldMapping 描述索引中一个可检索字段，Components 为嵌入的组件字段。
type FieldMapping struct {
	Field      string
	Components []FieldMapping
}

// Paths 返回该映射展开后的全部字段路径，例如 "characteristics.value"。
func (m FieldMapping) Paths() []string {
	if len(m.Components) == 0 {
		return []string{m.Field}
	}
	var paths []string
	for _, c := range m.Components {
		for _, p := range c.Paths() {
			paths = append(paths, m.Field+"."+p)
		}
	}
	return paths
}

func field(name string, components ...FieldMapping) FieldMapping {
	return FieldMapping{Field: name, Components: components}
}

// entityMappings 是每种实体类型在索引中的可检索字段。
var entityMappings = map[model.EntityType][]FieldMapping{
	model.EntityExperiment: {
		field("name"), field("shortName"), field("accession"), field("description"),
		field("characteristics", field("value"), field("category")),
		field("factorValues", field("value")),
		field("bioMaterials", field("name"), field("characteristics", field("value"))),
		field("publication", field("title"), field("abstract")),
	},
	model.EntityGene: {
		field("officialSymbol"), field("officialName"), field("ncbiGeneId"), field("ensemblId"),
		field("aliases", field("alias")),
		field("products", field("name"), field("externalId")),
	},
	model.EntitySequence: {
		field("name"), field("description"),
		field("accessions", field("accession")),
	},
	model.EntityProbe: {
		field("name"), field("description"),
	},
	model.EntityPlatform: {
		field("name"), field("shortName"), field("accession"), field("description"),
	},
	model.EntityGeneSet: {
		field("name"), field("description"), field("sourceAccession"),
	},
	model.EntityPublication: {
		field("title"), field("abstract"), field("authors"), field("pubAccession"),
	},
	model.EntityExperimentSet: {
		field("name"), field("description"),
	},
}

// Mappings 返回实体类型的字段映射。
func Mappings(t model.EntityType) []FieldMapping {
	return entityMappings[t]
}

// SearchFields 返回实体类型全部可检索字段路径。
func SearchFields(t model.EntityType) []string {
	var fields []string
	for _, m := range Mappings(t) {
		fields = append(fields, m.Paths()...)
	}
	return fields
}

// indexMapping 生成建索引时使用的 mappings 结构。
func indexMapping(t model.EntityType) map[string]any {
	properties := map[string]any{
		"id":          map[string]any{"type": "long"},
		"entity_type": map[string]any{"type": "keyword"},
	}
	for _, m := range Mappings(t) {
		properties[m.Field] = fieldProperty(m)
	}
	return map[string]any{
		"mappings": map[string]any{
			"properties": properties,
		},
	}
}

func fieldProperty(m FieldMapping) map[string]any {
	if len(m.Components) == 0 {
		return map[string]any{"type": "text"}
	}
	nested := make(map[string]any, len(m.Components))
	for _, c := range m.Components {
		nested[c.Field] = fieldProperty(c)
	}
	return map[string]any{"type": "object", "properties": nested}
}
