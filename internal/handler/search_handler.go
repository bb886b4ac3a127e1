// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"biosearch-go/internal/model"
	"biosearch-go/internal/service"
	"biosearch-go/pkg/log"
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
)

// Searcher 是处理器依赖的联邦搜索能力。
type Searcher interface {
	Search(ctx context.Context, settings model.SearchSettings) (service.SearchResults, error)
}

// SearchHandler 结构体定义了搜索相关的处理器。
type SearchHandler struct {
	searcher          Searcher
	defaultMaxResults int
}

// NewSearchHandler 创建一个新的 SearchHandler 实例。
func NewSearchHandler(searcher Searcher, defaultMaxResults int) *SearchHandler {
	return &SearchHandler{
		searcher:          searcher,
		defaultMaxResults: defaultMaxResults,
	}
}

// Search 是处理联邦搜索请求的 Gin 处理函数。
func (h *SearchHandler) Search(c *gin.Context) {
	settings, err := h.parseSettings(c)
	if err != nil {
		log.Warnf("[SearchHandler] 搜索请求参数无效: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": err.Error()})
		return
	}
	log.Infof("[SearchHandler] 收到搜索请求, query: '%s', types: %v, taxon: %d", settings.Query, settings.RequestedTypes(), settings.TaxonID)

	results, err := h.searcher.Search(c.Request.Context(), settings)
	if err != nil {
		if errors.Is(err, model.ErrQuerySyntax) {
			log.Warnf("[SearchHandler] 查询无法解析, query: '%s', error: %v", settings.Query, err)
			c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "查询语法错误"})
			return
		}
		log.Errorf("[SearchHandler] 搜索失败, query: '%s', error: %v", settings.Query, err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "搜索失败"})
		return
	}

	total := 0
	for _, r := range results {
		total += len(r)
	}
	log.Infof("[SearchHandler] 搜索成功, query: '%s', 返回 %d 条结果", settings.Query, total)
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": results, "message": "success"})
}

// parseSettings 把查询参数解析为 SearchSettings。布尔开关缺省时沿用默认设置。
func (h *SearchHandler) parseSettings(c *gin.Context) (model.SearchSettings, error) {
	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		return model.SearchSettings{}, errors.New("query 参数不能为空")
	}

	var types []model.EntityType
	if raw := c.Query("types"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			t, ok := model.ParseEntityType(strings.TrimSpace(name))
			if !ok {
				return model.SearchSettings{}, errors.Newf("未知的实体类型 %q", name)
			}
			types = append(types, t)
		}
	}

	s := model.DefaultSearchSettings(query, types...)
	s.MaxResults = h.defaultMaxResults

	var err error
	if s.TaxonID, err = int64Param(c, "taxon"); err != nil {
		return s, err
	}
	if s.PlatformID, err = int64Param(c, "platform"); err != nil {
		return s, err
	}
	if s.DatasetID, err = int64Param(c, "dataset"); err != nil {
		return s, err
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return s, errors.Newf("limit 参数无效: %q", raw)
		}
		s.MaxResults = limit
	}

	switch mode := strings.ToUpper(c.DefaultQuery("mode", string(model.SearchModeFast))); model.SearchMode(mode) {
	case model.SearchModeFast, model.SearchModeAccurate:
		s.Mode = model.SearchMode(mode)
	default:
		return s, errors.Newf("mode 参数无效: %q", mode)
	}

	flags := []struct {
		name   string
		target *bool
	}{
		{"index", &s.UseFullTextIndex},
		{"database", &s.UseRelationalStore},
		{"geneOntology", &s.UseGeneOntology},
		{"fill", &s.FillResults},
		{"highlight", &s.DoHighlighting},
		{"term", &s.IsTermQuery},
		{"exhaustive", &s.Exhaustive},
	}
	for _, f := range flags {
		raw, ok := c.GetQuery(f.name)
		if !ok {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return s, errors.Newf("%s 参数无效: %q", f.name, raw)
		}
		*f.target = v
	}
	return s, nil
}

func int64Param(c *gin.Context, name string) (int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, errors.Newf("%s 参数无效: %q", name, raw)
	}
	return v, nil
}
