package handler

import (
	"biosearch-go/internal/model"
	"biosearch-go/pkg/log"
	"biosearch-go/pkg/tasks"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// TaskSubmitter 接收索引同步任务，可以是 Kafka 生产者，也可以是同步执行的处理器。
type TaskSubmitter interface {
	Submit(ctx context.Context, task tasks.IndexTask) error
}

// IndexHandler 结构体定义了索引同步相关的处理器。
type IndexHandler struct {
	submitter TaskSubmitter
}

// NewIndexHandler 创建一个新的 IndexHandler 实例。
func NewIndexHandler(submitter TaskSubmitter) *IndexHandler {
	return &IndexHandler{submitter: submitter}
}

type indexRequest struct {
	EntityType string  `json:"entityType" binding:"required"`
	IDs        []int64 `json:"ids" binding:"required,min=1"`
}

// Reindex 提交一批实体的索引同步任务。
func (h *IndexHandler) Reindex(c *gin.Context) {
	var req indexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "请求参数无效"})
		return
	}
	t, ok := model.ParseEntityType(req.EntityType)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "未知的实体类型"})
		return
	}

	task := tasks.IndexTask{EntityType: t, IDs: req.IDs}
	if err := h.submitter.Submit(c.Request.Context(), task); err != nil {
		log.Errorf("[IndexHandler] 提交索引任务失败, Type: %s, Error: %v", t, err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "提交索引任务失败"})
		return
	}
	log.Infof("[IndexHandler] 已提交索引任务, Type: %s, IDs: %d", t, len(req.IDs))
	c.JSON(http.StatusAccepted, gin.H{"code": http.StatusAccepted, "data": gin.H{"entityType": t, "count": len(req.IDs)}, "message": "success"})
}
