package database

import (
	"biosearch-go/internal/model"
	"biosearch-go/pkg/log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var DB *gorm.DB

// InitMySQL 初始化 MySQL 数据库连接
func InitMySQL(dsn string) {
	var err error
	DB, err = gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect database", err)
	}

	// 配置连接池
	sqlDB, err := DB.DB()
	if err != nil {
		log.Fatal("failed to get sql.DB", err)
	}

	sqlDB.SetMaxIdleConns(10)           // 设置空闲连接池中连接的最大数量
	sqlDB.SetMaxOpenConns(100)          // 设置打开数据库连接的最大数量
	sqlDB.SetConnMaxLifetime(time.Hour) // 设置了连接可复用的最大时间

	log.Info("MySQL database connected successfully")
}

// Tables 返回需要迁移的全部实体模型。
func Tables() []any {
	return []any{
		&model.Taxon{},
		&model.Gene{},
		&model.GeneAlias{},
		&model.GeneXref{},
		&model.GeneProduct{},
		&model.Gene2GOAssociation{},
		&model.BioSequence{},
		&model.BioSequenceAccession{},
		&model.BioSequence2GeneProduct{},
		&model.ArrayDesign{},
		&model.CompositeSequence{},
		&model.ExpressionExperiment{},
		&model.FactorValue{},
		&model.BioMaterial{},
		&model.Characteristic{},
		&model.ExpressionExperimentSet{},
		&model.ExpressionExperimentSetMember{},
		&model.GeneSet{},
		&model.GeneSetMember{},
		&model.BibliographicReference{},
	}
}

// AutoMigrate 创建或更新全部实体表结构。
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Tables()...)
}
