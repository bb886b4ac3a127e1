package es

import (
	"biosearch-go/internal/model"
	"biosearch-go/pkg/log"
	"bytes"
	"context"
	"encoding/json"
	"math"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// ErrSessionClosed 表示在读会话关闭之后访问了会话数据。
var ErrSessionClosed = errors.New("es: session closed")

// Hit 是一条索引命中，按分数降序返回。Score 在引擎未给出分数时为 NaN。
type Hit struct {
	ID    int64
	Type  model.EntityType
	Score float64
}

// Session 是一次 point-in-time 读会话。它只在 WithSession 的回调内有效，
// 回调返回后 Highlight 一律返回 ErrSessionClosed。
type Session interface {
	Search(ctx context.Context, q Query, size int) ([]Hit, error)
	// Highlight 返回命中在某个字段上的高亮片段，没有片段时返回空字符串。
	Highlight(hit Hit, field string) (string, error)
	Mappings() []FieldMapping
}

// WithSession 为实体类型的索引打开一个 point-in-time 读会话并执行 fn，
// 无论 fn 是否成功都会关闭会话。
func (x *Index) WithSession(ctx context.Context, t model.EntityType, fn func(Session) error) error {
	pitID, err := x.openPIT(ctx, x.IndexName(t))
	if err != nil {
		return err
	}
	s := &pitSession{index: x, pitID: pitID, entityType: t}
	defer func() {
		s.close()
		if err := x.closePIT(context.WithoutCancel(ctx), pitID); err != nil {
			log.Warnf("[ES] 关闭 point-in-time 失败, index: %s, error: %v", x.IndexName(t), err)
		}
	}()
	return fn(s)
}

func (x *Index) openPIT(ctx context.Context, indexName string) (string, error) {
	res, err := esapi.OpenPointInTimeRequest{
		Index:     []string{indexName},
		KeepAlive: x.keepAlive,
	}.Do(ctx, x.client)
	if err != nil {
		return "", model.BackendUnavailableError(err, "elasticsearch")
	}
	defer res.Body.Close()
	if res.IsError() {
		return "", model.BackendUnavailableError(errors.Newf("open point-in-time on %s: %s", indexName, res.Status()), "elasticsearch")
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", model.BackendUnavailableError(err, "elasticsearch")
	}
	return out.ID, nil
}

func (x *Index) closePIT(ctx context.Context, pitID string) error {
	body, _ := json.Marshal(map[string]string{"id": pitID})
	res, err := esapi.ClosePointInTimeRequest{Body: bytes.NewReader(body)}.Do(ctx, x.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return errors.Newf("close point-in-time: %s", res.Status())
	}
	return nil
}

type pitSession struct {
	index      *Index
	pitID      string
	entityType model.EntityType
	highlights map[int64]map[string]string
	closed     bool
}

type searchResponse struct {
	PitID string `json:"pit_id"`
	Hits  struct {
		Hits []struct {
			ID     string   `json:"_id"`
			Score  *float64 `json:"_score"`
			Source struct {
				ID         int64  `json:"id"`
				EntityType string `json:"entity_type"`
			} `json:"_source"`
			Highlight map[string][]string `json:"highlight"`
		} `json:"hits"`
	} `json:"hits"`
}

func (s *pitSession) Search(ctx context.Context, q Query, size int) ([]Hit, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	fields := SearchFields(s.entityType)
	highlightFields := make(map[string]any, len(fields))
	for _, f := range fields {
		highlightFields[f] = map[string]any{}
	}
	query := map[string]any{
		"size":    size,
		"query":   q.body(fields),
		"_source": []string{"id", "entity_type"},
		"pit": map[string]any{
			"id":         s.pitID,
			"keep_alive": s.index.keepAlive,
		},
		"highlight": map[string]any{
			"pre_tags":  []string{"<b>"},
			"post_tags": []string{"</b>"},
			"fields":    highlightFields,
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, errors.Wrap(err, "failed to encode es query")
	}

	res, err := esapi.SearchRequest{Body: &buf}.Do(ctx, s.index.client)
	if err != nil {
		return nil, model.BackendUnavailableError(err, "elasticsearch")
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, classify(res, q.Text)
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, model.BackendUnavailableError(errors.Wrap(err, "failed to decode search response"), "elasticsearch")
	}
	if parsed.PitID != "" {
		s.pitID = parsed.PitID
	}

	s.highlights = make(map[int64]map[string]string, len(parsed.Hits.Hits))
	hits := make([]Hit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		id := h.Source.ID
		if id == 0 {
			if id, err = strconv.ParseInt(h.ID, 10, 64); err != nil {
				log.Warnf("[ES] 无法解析文档 ID '%s', 跳过", h.ID)
				continue
			}
		}
		score := math.NaN()
		if h.Score != nil {
			score = *h.Score
		}
		hit := Hit{ID: id, Type: model.EntityType(h.Source.EntityType), Score: score}
		if hit.Type == "" {
			hit.Type = s.entityType
		}
		hits = append(hits, hit)

		if len(h.Highlight) > 0 {
			fragments := make(map[string]string, len(h.Highlight))
			for f, frags := range h.Highlight {
				if len(frags) > 0 {
					fragments[f] = frags[0]
				}
			}
			s.highlights[id] = fragments
		}
	}
	return hits, nil
}

func (s *pitSession) Highlight(hit Hit, field string) (string, error) {
	if s.closed {
		return "", ErrSessionClosed
	}
	return s.highlights[hit.ID][field], nil
}

func (s *pitSession) Mappings() []FieldMapping {
	return Mappings(s.entityType)
}

func (s *pitSession) close() {
	s.closed = true
	s.highlights = nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
