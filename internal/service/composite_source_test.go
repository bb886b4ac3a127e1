package service

import (
	"biosearch-go/internal/model"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSource 只实现基因检索，返回固定的 ID 和分数。
type stubSource struct {
	UnsupportedSource
	name  string
	genes map[int64]float64
	err   error
	block bool
	calls int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) SearchGenes(ctx context.Context, settings model.SearchSettings) (*model.SearchResultSet[*model.Gene], error) {
	s.calls++
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	set := model.NewSearchResultSetFor[*model.Gene](settings)
	for id, score := range s.genes {
		set.Add(model.NewSearchResultFromID[*model.Gene](model.EntityGene, id, score, s.name))
	}
	return set, nil
}

func TestCompositeSearchSourceMergesByIdentity(t *testing.T) {
	a := &stubSource{name: "a", genes: map[int64]float64{1: 0.5, 2: 0.9}}
	b := &stubSource{name: "b", genes: map[int64]float64{2: 0.4, 3: 0.7}}

	var reports []FanOutReport
	c := NewCompositeSearchSource([]SearchSource{a, b}, WithReportHook(func(r FanOutReport) { reports = append(reports, r) }))

	got, err := c.SearchGenes(context.Background(), model.DefaultSearchSettings("grin", model.EntityGene))
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3, 1}, got.IDs())
	r, _ := got.Get(model.ResultKey{Type: model.EntityGene, ID: 2})
	assert.Equal(t, "a", r.Source, "the higher score survives")

	require.Len(t, reports, 1)
	require.Len(t, reports[0].Sources, 2)
	assert.Equal(t, 2, reports[0].Sources[0].Novel)
	assert.Equal(t, 2, reports[0].Sources[1].Raw)
	assert.Equal(t, 1, reports[0].Sources[1].Novel)
	assert.Contains(t, reports[0].String(), "b: ")
}

func TestCompositeSearchSourceDisjointSources(t *testing.T) {
	const n, k = 4, 5
	sources := make([]SearchSource, n)
	for i := range sources {
		genes := make(map[int64]float64, k)
		for j := 0; j < k; j++ {
			genes[int64(i*k+j+1)] = 0.5
		}
		sources[i] = &stubSource{name: fmt.Sprintf("s%d", i), genes: genes}
	}

	var report FanOutReport
	c := NewCompositeSearchSource(sources, WithReportHook(func(r FanOutReport) { report = r }))
	got, err := c.SearchGenes(context.Background(), model.DefaultSearchSettings("grin", model.EntityGene))
	require.NoError(t, err)

	assert.Equal(t, n*k, got.Len())
	require.Len(t, report.Sources, n)
	for _, sr := range report.Sources {
		assert.Equal(t, k, sr.Novel, sr.Source)
	}
}

func TestCompositeSearchSourceSyntaxErrorRecovery(t *testing.T) {
	syntax := model.QuerySyntaxError(errors.New("unexpected token"), "grin(")
	ctx := context.Background()
	settings := model.DefaultSearchSettings("grin(", model.EntityGene)

	t.Run("another source recovers", func(t *testing.T) {
		c := NewCompositeSearchSource([]SearchSource{
			&stubSource{name: "index", err: syntax},
			&stubSource{name: "database", genes: map[int64]float64{1: 1.0}},
		})
		got, err := c.SearchGenes(ctx, settings)
		require.NoError(t, err)
		assert.Equal(t, []int64{1}, got.IDs())
	})

	t.Run("nothing found", func(t *testing.T) {
		c := NewCompositeSearchSource([]SearchSource{
			&stubSource{name: "index", err: syntax},
			&stubSource{name: "database"},
		})
		_, err := c.SearchGenes(ctx, settings)
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrQuerySyntax))
	})
}

func TestCompositeSearchSourceAbortsOnFailure(t *testing.T) {
	boom := errors.New("boom")
	later := &stubSource{name: "later", genes: map[int64]float64{1: 1.0}}
	c := NewCompositeSearchSource([]SearchSource{&stubSource{name: "broken", err: boom}, later})

	_, err := c.SearchGenes(context.Background(), model.DefaultSearchSettings("grin", model.EntityGene))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "broken")
	assert.Zero(t, later.calls)
}

func TestCompositeSearchSourceTimedOutSourceIsEmpty(t *testing.T) {
	c := NewCompositeSearchSource([]SearchSource{
		&stubSource{name: "slow", block: true},
		&stubSource{name: "fast", genes: map[int64]float64{1: 1.0}},
	}, WithSourceTimeout(10*time.Millisecond))

	got, err := c.SearchGenes(context.Background(), model.DefaultSearchSettings("grin", model.EntityGene))
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, got.IDs())
}

func TestCompositeSearchSourceSearchGroupsByType(t *testing.T) {
	c := NewCompositeSearchSource([]SearchSource{&stubSource{name: "a", genes: map[int64]float64{7: 0.5}}})

	got, err := c.Search(context.Background(), model.DefaultSearchSettings("grin"))
	require.NoError(t, err)
	assert.Len(t, got, len(model.AllEntityTypes))
	require.Len(t, got[model.EntityGene], 1)
	assert.Equal(t, int64(7), got[model.EntityGene][0].ResultID)
	assert.Empty(t, got[model.EntityExperiment])
}

func TestCompositeSearchSourceEndToEnd(t *testing.T) {
	r := openTestRepos(t)
	c := NewCompositeSearchSource([]SearchSource{
		NewDatabaseSearchSource(r.genes, r.probes, r.platforms, r.experiments, r.geneSets),
		NewOntologySearchSource(anatomyGraph(t), r.characteristics, r.experiments),
		NewGeneOntologySearchSource(geneOntologyGraph(t), r.genes, r.geneSets),
	})

	got, err := c.Search(context.Background(), model.DefaultSearchSettings("GRIN1", model.EntityGene, model.EntityProbe))
	require.NoError(t, err)
	require.NotEmpty(t, got[model.EntityGene])
	assert.Equal(t, int64(1), got[model.EntityGene][0].ResultID)
	assert.Equal(t, 1.0, got[model.EntityGene][0].Score)
	require.NotEmpty(t, got[model.EntityProbe])
	assert.NotNil(t, got[model.EntityProbe][0].ResultObject)
}
