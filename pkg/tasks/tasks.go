// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

import (
	"biosearch-go/internal/model"
	"crypto/sha1"
	"encoding/hex"
	"sort"
	"strconv"

	"github.com/cockroachdb/errors"
)

// IndexTask 要求把一批实体从关系库同步到全文索引。
type IndexTask struct {
	EntityType model.EntityType `json:"entity_type"`
	IDs        []int64          `json:"ids"`
}

// Validate 检查任务是否可以被处理。
func (t IndexTask) Validate() error {
	if _, ok := model.ParseEntityType(string(t.EntityType)); !ok {
		return errors.Newf("未知的实体类型: %q", t.EntityType)
	}
	if len(t.IDs) == 0 {
		return errors.New("索引任务没有实体 ID")
	}
	return nil
}

// Key 返回任务的稳定标识，与 ID 的顺序无关，用于失败计数。
func (t IndexTask) Key() string {
	ids := append([]int64(nil), t.IDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	h := sha1.New()
	for _, id := range ids {
		h.Write([]byte(strconv.FormatInt(id, 10)))
		h.Write([]byte{','})
	}
	return string(t.EntityType) + ":" + hex.EncodeToString(h.Sum(nil))
}
