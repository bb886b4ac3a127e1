package tasks

import (
	"biosearch-go/internal/model"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndexTaskValidate(t *testing.T) {
	assert.NoError(t, IndexTask{EntityType: model.EntityGene, IDs: []int64{1}}.Validate())
	assert.Error(t, IndexTask{EntityType: "Protein", IDs: []int64{1}}.Validate())
	assert.Error(t, IndexTask{EntityType: model.EntityGene}.Validate())
}

func TestIndexTaskKeyIgnoresOrder(t *testing.T) {
	a := IndexTask{EntityType: model.EntityGene, IDs: []int64{3, 1, 2}}
	b := IndexTask{EntityType: model.EntityGene, IDs: []int64{1, 2, 3}}
	c := IndexTask{EntityType: model.EntityProbe, IDs: []int64{1, 2, 3}}

	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())
	assert.Equal(t, []int64{3, 1, 2}, a.IDs, "Key does not reorder the task")
}
