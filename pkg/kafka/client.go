// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"biosearch-go/internal/config"
	"biosearch-go/pkg/log"
	"biosearch-go/pkg/tasks"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
)

// TaskProcessor defines the interface for any service that can process a task.
// This decouples the Kafka consumer from the concrete pipeline implementation.
type TaskProcessor interface {
	Process(ctx context.Context, task tasks.IndexTask) error
}

// AttemptCounter 记录任务的失败次数。
type AttemptCounter interface {
	Incr(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

// Producer 把索引任务发送到 Kafka。
type Producer struct {
	writer *kafka.Writer
}

// NewProducer 创建 Kafka 生产者。
func NewProducer(cfg config.KafkaConfig) *Producer {
	p := &Producer{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers(cfg)...),
			Topic:    cfg.Topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
	log.Info("Kafka 生产者初始化成功")
	return p
}

// Submit 发送一个索引任务到 Kafka。
func (p *Producer) Submit(ctx context.Context, task tasks.IndexTask) error {
	if err := task.Validate(); err != nil {
		return err
	}
	taskBytes, err := json.Marshal(task)
	if err != nil {
		return err
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(task.Key()),
		Value: taskBytes,
	})
	return errors.Wrap(err, "发送索引任务失败")
}

// Close 关闭生产者。
func (p *Producer) Close() error {
	return p.writer.Close()
}

func brokers(cfg config.KafkaConfig) []string {
	var out []string
	for _, b := range strings.Split(cfg.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// StartConsumer 启动一个 Kafka 消费者来处理索引任务，直到 ctx 被取消。
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, processor TaskProcessor, attempts AttemptCounter) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers(cfg),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})

	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.Topic)

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Error("从 Kafka 读取消息失败", err)
			}
			break
		}

		log.Infof("收到 Kafka 消息: offset %d", m.Offset)
		if handleMessage(ctx, m.Value, processor, attempts, cfg.MaxAttempts) {
			if err := r.CommitMessages(ctx, m); err != nil {
				log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
			}
		}
	}

	if err := r.Close(); err != nil {
		log.Errorf("关闭 Kafka 消费者失败: %v", err)
	}
}

// handleMessage 处理一条消息并返回是否应当提交 offset。
// 失败未达到 maxAttempts 次时不提交，让 Kafka 重新投递。
func handleMessage(ctx context.Context, value []byte, processor TaskProcessor, attempts AttemptCounter, maxAttempts int) bool {
	var task tasks.IndexTask
	if err := json.Unmarshal(value, &task); err != nil {
		log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(value))
		// 消息格式错误，直接提交，避免阻塞队列
		return true
	}
	if err := task.Validate(); err != nil {
		log.Errorf("丢弃无效的索引任务: %v", err)
		return true
	}

	key := "kafka:attempts:" + task.Key()
	log.Infof("开始处理索引任务: Type=%s, IDs=%d", task.EntityType, len(task.IDs))
	if err := processor.Process(ctx, task); err != nil {
		log.Errorf("处理索引任务失败: Type=%s, Error: %v", task.EntityType, err)
		n, incErr := attempts.Incr(ctx, key)
		if incErr != nil {
			// Redis 异常时保守处理：不提交 offset，让 Kafka 重试
			return false
		}
		if n >= int64(maxAttempts) {
			log.Errorf("索引任务多次失败(>=%d)，提交 offset 终止重试: Type=%s", maxAttempts, task.EntityType)
			return true
		}
		return false
	}

	log.Infof("索引任务处理成功: Type=%s, IDs=%d", task.EntityType, len(task.IDs))
	_ = attempts.Reset(ctx, key)
	return true
}

type redisAttempts struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisAttemptCounter 使用 Redis 计数失败次数，计数在 ttl 后过期。
func NewRedisAttemptCounter(rdb *redis.Client, ttl time.Duration) AttemptCounter {
	return &redisAttempts{rdb: rdb, ttl: ttl}
}

func (a *redisAttempts) Incr(ctx context.Context, key string) (int64, error) {
	n, err := a.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	_ = a.rdb.Expire(ctx, key, a.ttl).Err()
	return n, nil
}

func (a *redisAttempts) Reset(ctx context.Context, key string) error {
	return a.rdb.Del(ctx, key).Err()
}
