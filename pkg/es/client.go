// Package es 提供了与 Elasticsearch 交互的客户端功能。
package es

import (
	"biosearch-go/internal/config"
	"biosearch-go/internal/model"
	"biosearch-go/pkg/log"
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

var ESClient *elasticsearch.Client

// InitES 初始化 Elasticsearch 客户端，并为每种实体类型确保索引存在。
func InitES(esCfg config.ElasticsearchConfig) error {
	cfg := elasticsearch.Config{
		Addresses: strings.Split(esCfg.Addresses, ","),
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return err
	}
	ESClient = client

	index := NewIndex(client, esCfg.IndexPrefix, esCfg.KeepAlive)
	for _, t := range model.AllEntityTypes {
		if err := index.EnsureIndex(context.Background(), t); err != nil {
			return err
		}
	}
	return nil
}

// Index 是按实体类型划分的一组全文索引，索引名为 <prefix>_<entity>。
type Index struct {
	client    *elasticsearch.Client
	prefix    string
	keepAlive string
}

// NewIndex 创建一个新的 Index 实例。keepAlive 为空时使用 "1m"。
func NewIndex(client *elasticsearch.Client, prefix, keepAlive string) *Index {
	if keepAlive == "" {
		keepAlive = "1m"
	}
	return &Index{client: client, prefix: prefix, keepAlive: keepAlive}
}

// IndexName 返回实体类型对应的索引名。
func (x *Index) IndexName(t model.EntityType) string {
	name := strings.ToLower(string(t))
	if x.prefix == "" {
		return name
	}
	return x.prefix + "_" + name
}

// EnsureIndex 检查索引是否存在，如果不存在则创建它。
func (x *Index) EnsureIndex(ctx context.Context, t model.EntityType) error {
	indexName := x.IndexName(t)
	res, err := esapi.IndicesExistsRequest{Index: []string{indexName}}.Do(ctx, x.client)
	if err != nil {
		log.Errorf("检查索引是否存在时出错: %v", err)
		return model.BackendUnavailableError(err, "elasticsearch")
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		log.Infof("索引 '%s' 已存在", indexName)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		log.Errorf("检查索引 '%s' 是否存在时收到意外的状态码: %d", indexName, res.StatusCode)
		return model.BackendUnavailableError(errors.Newf("unexpected status %d", res.StatusCode), "elasticsearch")
	}

	body, err := json.Marshal(indexMapping(t))
	if err != nil {
		return errors.Wrap(err, "failed to encode index mapping")
	}
	res, err = esapi.IndicesCreateRequest{Index: indexName, Body: bytes.NewReader(body)}.Do(ctx, x.client)
	if err != nil {
		log.Errorf("创建索引 '%s' 失败: %v", indexName, err)
		return model.BackendUnavailableError(err, "elasticsearch")
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Errorf("创建索引 '%s' 时 Elasticsearch 返回错误: %s", indexName, res.String())
		return model.BackendUnavailableError(errors.Newf("create index %s: %s", indexName, res.Status()), "elasticsearch")
	}

	log.Infof("索引 '%s' 创建成功", indexName)
	return nil
}

// Document 是写入索引的一条实体文档。
type Document struct {
	ID     int64
	Type   model.EntityType
	Fields map[string]any
}

// IndexDocument 将单个实体文档写入对应的索引。
func (x *Index) IndexDocument(ctx context.Context, doc Document) error {
	source := make(map[string]any, len(doc.Fields)+2)
	for k, v := range doc.Fields {
		source[k] = v
	}
	source["id"] = doc.ID
	source["entity_type"] = string(doc.Type)
	docBytes, err := json.Marshal(source)
	if err != nil {
		return errors.Wrap(err, "failed to encode document")
	}

	req := esapi.IndexRequest{
		Index:      x.IndexName(doc.Type),
		DocumentID: formatID(doc.ID),
		Body:       bytes.NewReader(docBytes),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, x.client)
	if err != nil {
		return model.BackendUnavailableError(err, "elasticsearch")
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("索引文档到 Elasticsearch 出错: %s", res.String())
		return model.BackendUnavailableError(errors.Newf("index document %d: %s", doc.ID, res.Status()), "elasticsearch")
	}
	return nil
}

// DeleteDocument 从索引中删除一个实体文档，文档不存在时不视为错误。
func (x *Index) DeleteDocument(ctx context.Context, t model.EntityType, id int64) error {
	req := esapi.DeleteRequest{
		Index:      x.IndexName(t),
		DocumentID: formatID(id),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, x.client)
	if err != nil {
		return model.BackendUnavailableError(err, "elasticsearch")
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	if res.IsError() {
		log.Errorf("从 Elasticsearch 删除文档出错: %s", res.String())
		return model.BackendUnavailableError(errors.Newf("delete document %d: %s", id, res.Status()), "elasticsearch")
	}
	return nil
}

// classify 把错误响应转换为带类别的错误：400 视为查询语法错误，其余视为后端故障。
func classify(res *esapi.Response, query string) error {
	body, _ := io.ReadAll(res.Body)
	var payload struct {
		Error struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	}
	_ = json.Unmarshal(body, &payload)
	cause := errors.Newf("elasticsearch %s: %s %s", res.Status(), payload.Error.Type, payload.Error.Reason)
	if res.StatusCode == http.StatusBadRequest {
		return model.QuerySyntaxError(cause, query)
	}
	return model.BackendUnavailableError(cause, "elasticsearch")
}
