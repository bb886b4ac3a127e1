// Package config 负责加载和管理应用程序的配置。
package config

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Log           LogConfig           `mapstructure:"log"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Search        SearchConfig        `mapstructure:"search"`
	Ontology      OntologyConfig      `mapstructure:"ontology"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
	// AutoMigrate 为 true 时启动时创建或更新实体表结构。
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。
type ElasticsearchConfig struct {
	Addresses   string `mapstructure:"addresses"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	IndexPrefix string `mapstructure:"index_prefix"`
	// KeepAlive 是 point-in-time 读会话的保活时长，例如 "1m"。
	KeepAlive string `mapstructure:"keep_alive"`
	// MaxHits 是单次全文检索最多检查的命中数，用于保护索引引擎。
	MaxHits int `mapstructure:"max_hits"`
}

// SearchConfig 存储联邦搜索的阈值配置，单位为毫秒。
type SearchConfig struct {
	DefaultMaxResults     int `mapstructure:"default_max_results"`
	SlowCompositeMillis   int `mapstructure:"slow_composite_ms"`
	SlowIndexMillis       int `mapstructure:"slow_index_ms"`
	SlowMaterializeMillis int `mapstructure:"slow_materialize_ms"`
	// SourceTimeoutMillis 为 0 表示单个来源不设超时。
	SourceTimeoutMillis int `mapstructure:"source_timeout_ms"`
}

// OntologyConfig 存储本体图与缓存的配置。
type OntologyConfig struct {
	GraphFile   string        `mapstructure:"graph_file"`
	GOGraphFile string        `mapstructure:"go_graph_file"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。本体图路径以 minio:// 开头时从这里读取。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// KafkaConfig 存储索引同步任务队列的配置。Brokers 为空时索引任务同步执行。
type KafkaConfig struct {
	Brokers     string `mapstructure:"brokers"`
	Topic       string `mapstructure:"topic"`
	GroupID     string `mapstructure:"group_id"`
	MaxAttempts int    `mapstructure:"max_attempts"`
}

// Enabled 判断是否配置了 Kafka。
func (c KafkaConfig) Enabled() bool {
	return c.Brokers != ""
}

// SlowComposite 返回复合搜索的慢调用阈值。
func (c SearchConfig) SlowComposite() time.Duration {
	return time.Duration(c.SlowCompositeMillis) * time.Millisecond
}

// SlowIndex 返回全文索引调用的慢调用阈值。
func (c SearchConfig) SlowIndex() time.Duration {
	return time.Duration(c.SlowIndexMillis) * time.Millisecond
}

// SlowMaterialize 返回实体加载的慢调用阈值。
func (c SearchConfig) SlowMaterialize() time.Duration {
	return time.Duration(c.SlowMaterializeMillis) * time.Millisecond
}

// SourceTimeout 返回单个来源的超时时间，0 表示不限制。
func (c SearchConfig) SourceTimeout() time.Duration {
	return time.Duration(c.SourceTimeoutMillis) * time.Millisecond
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8081")
	v.SetDefault("server.mode", "release")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("elasticsearch.index_prefix", "biosearch")
	v.SetDefault("elasticsearch.keep_alive", "1m")
	v.SetDefault("elasticsearch.max_hits", 300)
	v.SetDefault("search.default_max_results", 0)
	v.SetDefault("search.slow_composite_ms", 1000)
	v.SetDefault("search.slow_index_ms", 5000)
	v.SetDefault("search.slow_materialize_ms", 100)
	v.SetDefault("search.source_timeout_ms", 0)
	v.SetDefault("ontology.cache_ttl", "1h")
	v.SetDefault("kafka.topic", "biosearch-index")
	v.SetDefault("kafka.group_id", "biosearch-indexer")
	v.SetDefault("kafka.max_attempts", 3)
}

// Load 从指定路径读取 YAML 配置并返回解析后的 Config，不修改全局变量。
func Load(configPath string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	var cfg Config
	if err := v.ReadInConfig(); err != nil {
		return cfg, errors.Wrapf(err, "读取配置文件失败 %s", configPath)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, errors.Wrap(err, "无法将配置解析到结构体中")
	}
	return cfg, nil
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = cfg
}
