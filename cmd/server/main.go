// Package main 是应用程序的入口点。
package main

import (
	"biosearch-go/internal/config"
	"biosearch-go/internal/handler"
	"biosearch-go/internal/middleware"
	"biosearch-go/internal/pipeline"
	"biosearch-go/internal/repository"
	"biosearch-go/internal/service"
	"biosearch-go/pkg/database"
	"biosearch-go/pkg/es"
	"biosearch-go/pkg/kafka"
	"biosearch-go/pkg/log"
	"biosearch-go/pkg/ontology"
	"biosearch-go/pkg/storage"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库、Redis 和 Elasticsearch
	database.InitMySQL(cfg.Database.MySQL.DSN)
	if cfg.Database.MySQL.AutoMigrate {
		if err := database.AutoMigrate(database.DB); err != nil {
			log.Fatalf("数据库表结构迁移失败: %v", err)
		}
	}
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	if err := es.InitES(cfg.Elasticsearch); err != nil {
		log.Errorf("es 初始化失败 %s", err)
		return
	}
	index := es.NewIndex(es.ESClient, cfg.Elasticsearch.IndexPrefix, cfg.Elasticsearch.KeepAlive)
	if cfg.MinIO.Endpoint != "" {
		if err := storage.InitMinIO(cfg.MinIO); err != nil {
			log.Fatalf("MinIO 初始化失败: %v", err)
		}
	}

	// 4. 加载本体图，检索结果缓存在 Redis 中
	anatomy := loadOntology(cfg.Ontology.GraphFile, "biosearch:ontology", cfg.Ontology.CacheTTL)
	geneOntology := loadOntology(cfg.Ontology.GOGraphFile, "biosearch:go", cfg.Ontology.CacheTTL)

	// 5. 初始化 Repository
	geneRepo := repository.NewGeneRepository(database.DB)
	probeRepo := repository.NewProbeRepository(database.DB)
	platformRepo := repository.NewPlatformRepository(database.DB)
	experimentRepo := repository.NewExperimentRepository(database.DB)
	geneSetRepo := repository.NewGeneSetRepository(database.DB)
	characteristicRepo := repository.NewCharacteristicRepository(database.DB)

	// 6. 组装搜索来源，顺序即合并顺序
	sources := []service.SearchSource{
		service.NewDatabaseSearchSource(geneRepo, probeRepo, platformRepo, experimentRepo, geneSetRepo),
		service.NewFullTextSearchSource(index, geneRepo, probeRepo, platformRepo, experimentRepo, geneSetRepo,
			service.WithHitCap(cfg.Elasticsearch.MaxHits),
			service.WithSlowThresholds(cfg.Search.SlowIndex(), cfg.Search.SlowMaterialize()),
		),
	}
	if anatomy != nil {
		sources = append(sources, service.NewOntologySearchSource(anatomy, characteristicRepo, experimentRepo))
	}
	if geneOntology != nil {
		sources = append(sources, service.NewGeneOntologySearchSource(geneOntology, geneRepo, geneSetRepo))
	}
	searcher := service.NewCompositeSearchSource(sources,
		service.WithSlowThreshold(cfg.Search.SlowComposite()),
		service.WithSourceTimeout(cfg.Search.SourceTimeout()),
	)

	// 7. 初始化索引同步管道 (Processor)，配置了 Kafka 时异步执行
	processor := pipeline.NewProcessor(index, geneRepo, probeRepo, platformRepo, experimentRepo, geneSetRepo, characteristicRepo)
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()
	var submitter handler.TaskSubmitter = processor
	if cfg.Kafka.Enabled() {
		producer := kafka.NewProducer(cfg.Kafka)
		defer producer.Close()
		submitter = producer
		go kafka.StartConsumer(consumerCtx, cfg.Kafka, processor, kafka.NewRedisAttemptCounter(database.RDB, 24*time.Hour))
	} else {
		log.Info("未配置 Kafka，索引任务将同步执行")
	}

	// 8. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	// 添加我们自定义的日志中间件和 Gin 的 Recovery 中间件
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 9. 注册路由
	apiV1 := r.Group("/api/v1")
	{
		apiV1.GET("/search", handler.NewSearchHandler(searcher, cfg.Search.DefaultMaxResults).Search)
		apiV1.POST("/index", handler.NewIndexHandler(submitter).Reindex)
	}

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 关闭 HTTP 服务器
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	// 停止 Kafka 消费者
	stopConsumer()
	log.Info("服务已优雅关闭")
}

// loadOntology 加载本体图文件并包装缓存。未配置文件时返回 nil，对应的搜索来源不启用。
// 路径以 minio:// 开头时从对象存储读取。
func loadOntology(path, cachePrefix string, ttl time.Duration) ontology.Service {
	if path == "" {
		return nil
	}
	var (
		graph *ontology.Graph
		err   error
	)
	if bucket, object, ok := storage.ParseObjectURI(path); ok {
		var data []byte
		data, err = storage.ReadObject(context.Background(), bucket, object)
		if err == nil {
			graph, err = ontology.ParseGraph(data, path)
		}
	} else {
		graph, err = ontology.LoadGraph(path)
	}
	if err != nil {
		log.Fatalf("加载本体文件 '%s' 失败: %v", path, err)
	}
	cache := repository.NewTermCacheRepository(database.RDB, cachePrefix)
	return ontology.NewCachedService(graph, cache, ttl)
}
