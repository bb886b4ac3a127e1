package ontology

import (
	"biosearch-go/pkg/log"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// Cache 是检索结果缓存的最小接口，由 Redis 仓库实现。
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedService 在 Service 之上缓存文本检索和后代展开的结果。
// 缓存读写失败只记录日志，不影响检索本身。
type CachedService struct {
	next  Service
	cache Cache
	ttl   time.Duration
}

// NewCachedService 创建一个新的 CachedService 实例。
func NewCachedService(next Service, cache Cache, ttl time.Duration) *CachedService {
	return &CachedService{next: next, cache: cache, ttl: ttl}
}

func (s *CachedService) FindTerms(ctx context.Context, query string) ([]Term, error) {
	return cached(ctx, s, "terms:"+query, func() ([]Term, error) {
		return s.next.FindTerms(ctx, query)
	})
}

func (s *CachedService) FindIndividuals(ctx context.Context, query string) ([]Individual, error) {
	return cached(ctx, s, "individuals:"+query, func() ([]Individual, error) {
		return s.next.FindIndividuals(ctx, query)
	})
}

func (s *CachedService) Descendants(ctx context.Context, uris []string) ([]Term, error) {
	sorted := append([]string(nil), uris...)
	sort.Strings(sorted)
	sum := sha1.Sum([]byte(strings.Join(sorted, "\n")))
	return cached(ctx, s, "descendants:"+hex.EncodeToString(sum[:]), func() ([]Term, error) {
		return s.next.Descendants(ctx, uris)
	})
}

func (s *CachedService) Term(ctx context.Context, uri string) (*Term, error) {
	return s.next.Term(ctx, uri)
}

// cached 先查缓存，未命中时调用 load 并回写。错误结果不缓存。
func cached[T any](ctx context.Context, s *CachedService, key string, load func() (T, error)) (T, error) {
	if data, ok, err := s.cache.Get(ctx, key); err != nil {
		log.Warnf("[OntologyCache] 读取缓存失败, key: %s, error: %v", key, err)
	} else if ok {
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			return v, nil
		}
		log.Warnf("[OntologyCache] 缓存内容无法解析, key: %s", key)
	}

	v, err := load()
	if err != nil {
		return v, err
	}
	if data, err := json.Marshal(v); err == nil {
		if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
			log.Warnf("[OntologyCache] 写入缓存失败, key: %s, error: %v", key, err)
		}
	}
	return v, nil
}
