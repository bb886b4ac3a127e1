package kafka

import (
	"biosearch-go/internal/config"
	"biosearch-go/internal/model"
	"biosearch-go/pkg/tasks"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProcessor struct {
	err   error
	calls []tasks.IndexTask
}

func (f *fakeProcessor) Process(_ context.Context, task tasks.IndexTask) error {
	f.calls = append(f.calls, task)
	return f.err
}

type fakeCounter struct {
	counts map[string]int64
	err    error
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{counts: map[string]int64{}}
}

func (f *fakeCounter) Incr(_ context.Context, key string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.counts[key]++
	return f.counts[key], nil
}

func (f *fakeCounter) Reset(_ context.Context, key string) error {
	delete(f.counts, key)
	return nil
}

func encode(t *testing.T, task tasks.IndexTask) []byte {
	t.Helper()
	b, err := json.Marshal(task)
	require.NoError(t, err)
	return b
}

func TestHandleMessageSuccess(t *testing.T) {
	p := &fakeProcessor{}
	c := newFakeCounter()
	task := tasks.IndexTask{EntityType: model.EntityGene, IDs: []int64{1, 2}}

	assert.True(t, handleMessage(context.Background(), encode(t, task), p, c, 3))
	require.Len(t, p.calls, 1)
	assert.Equal(t, task, p.calls[0])
}

func TestHandleMessageRetriesUntilMaxAttempts(t *testing.T) {
	p := &fakeProcessor{err: errors.New("es down")}
	c := newFakeCounter()
	msg := encode(t, tasks.IndexTask{EntityType: model.EntityProbe, IDs: []int64{7}})

	assert.False(t, handleMessage(context.Background(), msg, p, c, 3))
	assert.False(t, handleMessage(context.Background(), msg, p, c, 3))
	assert.True(t, handleMessage(context.Background(), msg, p, c, 3), "third failure commits")
	assert.Len(t, p.calls, 3)
}

func TestHandleMessageSuccessResetsAttempts(t *testing.T) {
	p := &fakeProcessor{err: errors.New("es down")}
	c := newFakeCounter()
	msg := encode(t, tasks.IndexTask{EntityType: model.EntityProbe, IDs: []int64{7}})

	handleMessage(context.Background(), msg, p, c, 3)
	p.err = nil
	assert.True(t, handleMessage(context.Background(), msg, p, c, 3))
	assert.Empty(t, c.counts)
}

func TestHandleMessageCounterFailureDoesNotCommit(t *testing.T) {
	p := &fakeProcessor{err: errors.New("es down")}
	c := &fakeCounter{err: errors.New("redis down")}
	msg := encode(t, tasks.IndexTask{EntityType: model.EntityProbe, IDs: []int64{7}})

	assert.False(t, handleMessage(context.Background(), msg, p, c, 1))
}

func TestHandleMessageDropsBadPayloads(t *testing.T) {
	p := &fakeProcessor{}
	c := newFakeCounter()

	assert.True(t, handleMessage(context.Background(), []byte("{not json"), p, c, 3))
	assert.True(t, handleMessage(context.Background(), encode(t, tasks.IndexTask{EntityType: model.EntityGene}), p, c, 3))
	assert.Empty(t, p.calls)
}

func TestBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, brokers(config.KafkaConfig{Brokers: " a:9092, ,b:9092"}))
	assert.Nil(t, brokers(config.KafkaConfig{}))
}
