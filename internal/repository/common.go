// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"context"

	"gorm.io/gorm"
)

// LikeEscapeChar 是所有 LIKE 谓词使用的转义字符。
// 使用 '!' 而不是反斜杠，使同一条 SQL 在 MySQL 和 SQLite 下含义一致。
const LikeEscapeChar = '!'

// likeEscapeClause 追加在 LIKE 谓词之后。
const likeEscapeClause = " ESCAPE '!'"

// loadByIDs 按 ID 批量加载实体，不存在的 ID 直接忽略。
func loadByIDs[T any](ctx context.Context, db *gorm.DB, ids []int64) ([]*T, error) {
	var out []*T
	if len(ids) == 0 {
		return out, nil
	}
	err := db.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error
	return out, err
}

// findBy 按单列等值查询。
func findBy[T any](ctx context.Context, db *gorm.DB, column string, value any) ([]*T, error) {
	var out []*T
	err := db.WithContext(ctx).Where(column+" = ?", value).Find(&out).Error
	return out, err
}

// findLike 按单列 LIKE 查询，pattern 必须已经按 LikeEscapeChar 转义。
func findLike[T any](ctx context.Context, db *gorm.DB, column, pattern string) ([]*T, error) {
	var out []*T
	err := db.WithContext(ctx).Where(column+" LIKE ?"+likeEscapeClause, pattern).Find(&out).Error
	return out, err
}
