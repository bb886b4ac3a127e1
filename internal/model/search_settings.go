package model

import (
	"slices"
	"strings"
)

// SearchMode 控制是否执行代价较高的排序细化。
type SearchMode string

const (
	SearchModeFast     SearchMode = "FAST"
	SearchModeAccurate SearchMode = "ACCURATE"
)

// SearchSettings 描述一次搜索请求。每次查询创建一次，之后只读。
type SearchSettings struct {
	Query       string
	ResultTypes []EntityType

	// 可选约束，0 表示不约束。
	TaxonID    int64
	PlatformID int64
	DatasetID  int64

	// MaxResults 为 0 表示不限制。
	MaxResults int

	UseFullTextIndex   bool
	UseRelationalStore bool
	UseGeneOntology    bool

	FillResults    bool
	DoHighlighting bool
	Mode           SearchMode
	IsTermQuery    bool

	// Exhaustive 为 true 时，实验精确匹配在前一层命中后仍继续尝试后续层。
	Exhaustive bool
}

// DefaultSearchSettings 返回启用全部来源的默认设置。
func DefaultSearchSettings(query string, types ...EntityType) SearchSettings {
	return SearchSettings{
		Query:              query,
		ResultTypes:        types,
		UseFullTextIndex:   true,
		UseRelationalStore: true,
		UseGeneOntology:    true,
		FillResults:        true,
		DoHighlighting:     true,
		Mode:               SearchModeFast,
	}
}

// HasResultType 判断是否请求了指定实体类型。未指定任何类型时视为请求全部。
func (s SearchSettings) HasResultType(t EntityType) bool {
	if len(s.ResultTypes) == 0 {
		return true
	}
	return slices.Contains(s.ResultTypes, t)
}

// RequestedTypes 返回请求的实体类型，未指定时返回全部类型。
func (s SearchSettings) RequestedTypes() []EntityType {
	if len(s.ResultTypes) == 0 {
		return AllEntityTypes
	}
	return s.ResultTypes
}

// HasTaxon 判断是否设置了物种约束。
func (s SearchSettings) HasTaxon() bool {
	return s.TaxonID > 0
}

// HasPlatform 判断是否设置了平台约束。
func (s SearchSettings) HasPlatform() bool {
	return s.PlatformID > 0
}

// HasDataset 判断是否设置了数据集约束。
func (s SearchSettings) HasDataset() bool {
	return s.DatasetID > 0
}

// IsWildcard 判断调用方是否在查询中使用了通配符。
func (s SearchSettings) IsWildcard() bool {
	return strings.ContainsAny(s.Query, "*?")
}

// IsAccurate 判断是否为 ACCURATE 模式。
func (s SearchSettings) IsAccurate() bool {
	return s.Mode == SearchModeAccurate
}

// WithQuery 返回替换了查询字符串的副本，原设置保持不变。
func (s SearchSettings) WithQuery(query string) SearchSettings {
	c := s
	c.Query = query
	c.ResultTypes = slices.Clone(s.ResultTypes)
	return c
}

// WithResultTypes 返回只请求指定实体类型的副本。
func (s SearchSettings) WithResultTypes(types ...EntityType) SearchSettings {
	c := s
	c.ResultTypes = slices.Clone(types)
	return c
}
