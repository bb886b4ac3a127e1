package service

import (
	"biosearch-go/internal/model"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOntologySource(t *testing.T, tables ...any) *OntologySearchSource {
	r := openTestRepos(t, tables...)
	return NewOntologySearchSource(anatomyGraph(t), r.characteristics, r.experiments)
}

func TestOntologySearchSourceAnnotationPaths(t *testing.T) {
	src := newOntologySource(t)
	ctx := context.Background()

	got, err := src.SearchExperiments(ctx, model.DefaultSearchSettings("brain", model.EntityExperiment))
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2, 3}, got.IDs())
	scores := scoresByID(got)
	assert.InDelta(t, 0.9, scores[1], 1e-9, "direct annotation")
	assert.InDelta(t, 0.81, scores[2], 1e-9, "factor value annotated with a descendant")
	assert.InDelta(t, 0.729, scores[3], 1e-9, "sample annotation")

	r, _ := got.Get(model.ResultKey{Type: model.EntityExperiment, ID: 3})
	assert.Equal(t, "ontology:sample", r.Source)
	assert.True(t, r.HasObject())
}

func TestOntologySearchSourceAccurateMode(t *testing.T) {
	src := newOntologySource(t)
	settings := model.DefaultSearchSettings("brain", model.EntityExperiment)
	settings.Mode = model.SearchModeAccurate

	got, err := src.SearchExperiments(context.Background(), settings)
	require.NoError(t, err)
	assert.InDelta(t, 0.9*0.95*0.9, scoresByID(got)[2], 1e-9)
}

func TestOntologySearchSourceConstraints(t *testing.T) {
	src := newOntologySource(t)
	ctx := context.Background()

	human := model.DefaultSearchSettings("brain", model.EntityExperiment)
	human.TaxonID = 1
	got, err := src.SearchExperiments(ctx, human)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, got.IDs())

	inSet := model.DefaultSearchSettings("brain", model.EntityExperiment)
	inSet.DatasetID = 1
	got, err = src.SearchExperiments(ctx, inSet)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, got.IDs())
}

func TestOntologySearchSourceStopsWhenFilled(t *testing.T) {
	src := newOntologySource(t)
	settings := model.DefaultSearchSettings("brain", model.EntityExperiment)
	settings.MaxResults = 1

	got, err := src.SearchExperiments(context.Background(), settings)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, got.IDs())
}

func TestOntologySearchSourceMissingCapability(t *testing.T) {
	src := newOntologySource(t,
		&model.Gene{}, &model.GeneAlias{}, &model.GeneProduct{}, &model.Gene2GOAssociation{},
		&model.BioSequence{}, &model.BioSequenceAccession{}, &model.BioSequence2GeneProduct{},
		&model.ArrayDesign{}, &model.CompositeSequence{},
		&model.ExpressionExperiment{}, &model.Characteristic{},
		&model.ExpressionExperimentSet{}, &model.ExpressionExperimentSetMember{},
		&model.GeneSet{}, &model.BibliographicReference{},
	)

	got, err := src.SearchExperiments(context.Background(), model.DefaultSearchSettings("brain", model.EntityExperiment))
	require.NoError(t, err, "paths without backing tables are skipped")
	assert.Equal(t, []int64{1}, got.IDs())
}

func TestOntologySearchSourceTermQuery(t *testing.T) {
	src := newOntologySource(t)
	settings := model.DefaultSearchSettings(cortexURI, model.EntityExperiment)
	settings.IsTermQuery = true

	got, err := src.SearchExperiments(context.Background(), settings)
	require.NoError(t, err)
	assert.Equal(t, map[int64]float64{2: 0.9}, scoresByID(got))
}

func TestOntologySearchSourceEscapesUnparsableQuery(t *testing.T) {
	src := newOntologySource(t)

	got, err := src.SearchExperiments(context.Background(), model.DefaultSearchSettings("brain(", model.EntityExperiment))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, got.IDs())
}

func TestOntologyClosureOnlyAddsTerms(t *testing.T) {
	src := newOntologySource(t)
	ctx := context.Background()

	for _, q := range []string{"brain", "anatomical entity", "liver", "forebrain", "nothing"} {
		settings := model.DefaultSearchSettings(q, model.EntityExperiment)
		direct, err := src.resolveTerms(ctx, settings, false)
		require.NoError(t, err)
		closed, err := src.resolveTerms(ctx, settings, true)
		require.NoError(t, err)

		expanded := make(map[string]bool, len(closed))
		for _, c := range closed {
			expanded[c.URI] = true
		}
		for _, c := range direct {
			assert.True(t, expanded[c.URI], "%s: %s lost after expansion", q, c.URI)
		}
		assert.GreaterOrEqual(t, len(closed), len(direct), q)
	}
}
