package ontology

import (
	"biosearch-go/internal/model"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	anatomy   = "http://purl.obolibrary.org/obo/UBERON_0001062"
	brain     = "http://purl.obolibrary.org/obo/UBERON_0000955"
	forebrain = "http://purl.obolibrary.org/obo/UBERON_0001890"
	cortex    = "http://purl.obolibrary.org/obo/UBERON_0000956"
	liver     = "http://purl.obolibrary.org/obo/UBERON_0002107"
)

func testGraph(t *testing.T) *Graph {
	t.Helper()
	var file GraphFile
	raw := `{
	  "terms": [
	    {"uri": "` + anatomy + `", "label": "anatomical entity"},
	    {"uri": "` + brain + `", "label": "brain", "synonyms": ["encephalon"], "parents": ["` + anatomy + `"]},
	    {"uri": "` + forebrain + `", "label": "forebrain", "parents": ["` + brain + `"]},
	    {"uri": "` + cortex + `", "label": "cerebral cortex", "parents": ["` + forebrain + `", "` + brain + `"]},
	    {"uri": "` + liver + `", "label": "liver", "parents": ["` + anatomy + `"]}
	  ],
	  "individuals": [
	    {"uri": "http://example.org/ind/brain_sample", "label": "brain sample", "type": "` + brain + `"}
	  ]
	}`
	require.NoError(t, json.Unmarshal([]byte(raw), &file))
	return NewGraph(file)
}

func TestParseQuery(t *testing.T) {
	tokens, err := parseQuery(`Cerebral "cortex" AND brai*`)
	require.NoError(t, err)
	assert.Equal(t, []queryToken{{"cerebral", false}, {"cortex", false}, {"brai", true}}, tokens)

	for _, bad := range []string{`"brain`, `(brain`, `brain)`, `*brain`, `brain\`} {
		_, err := parseQuery(bad)
		assert.True(t, errors.Is(err, model.ErrQuerySyntax), bad)
	}
}

func TestEscapeQuery(t *testing.T) {
	for _, q := range []string{`"brain`, `(brain`, `*brain`, `a:b`} {
		_, err := parseQuery(EscapeQuery(q))
		assert.NoError(t, err, q)
	}
	tokens, err := parseQuery(EscapeQuery("brain*"))
	require.NoError(t, err)
	assert.Equal(t, []queryToken{{"brain", false}}, tokens)
}

func TestGraphFindTerms(t *testing.T) {
	g := testGraph(t)
	ctx := context.Background()

	terms, err := g.FindTerms(ctx, "brain")
	require.NoError(t, err)
	require.Len(t, terms, 1)
	assert.Equal(t, brain, terms[0].URI)
	assert.Equal(t, 1.0, terms[0].Score)
	assert.Equal(t, 1, terms[0].Depth)

	terms, err = g.FindTerms(ctx, "cortex")
	require.NoError(t, err)
	require.Len(t, terms, 1)
	assert.Equal(t, 0.5, terms[0].Score)
	assert.Equal(t, 2, terms[0].Depth, "depth is the shortest path to a root")

	terms, err = g.FindTerms(ctx, "encephalon")
	require.NoError(t, err)
	require.Len(t, terms, 1, "synonyms match")

	terms, err = g.FindTerms(ctx, "fore*")
	require.NoError(t, err)
	require.Len(t, terms, 1)
	assert.Equal(t, forebrain, terms[0].URI)

	_, err = g.FindTerms(ctx, `"brain`)
	assert.True(t, errors.Is(err, model.ErrQuerySyntax))
}

func TestGraphIndividualsAndDescendants(t *testing.T) {
	g := testGraph(t)
	ctx := context.Background()

	inds, err := g.FindIndividuals(ctx, "brain")
	require.NoError(t, err)
	require.Len(t, inds, 1)
	assert.Equal(t, brain, inds[0].ClassURI)

	desc, err := g.Descendants(ctx, []string{brain})
	require.NoError(t, err)
	var uris []string
	for _, d := range desc {
		uris = append(uris, d.URI)
	}
	assert.ElementsMatch(t, []string{forebrain, cortex}, uris)

	desc, err = g.Descendants(ctx, []string{liver, "http://unknown"})
	require.NoError(t, err)
	assert.Empty(t, desc)

	term, err := g.Term(ctx, cortex)
	require.NoError(t, err)
	require.NotNil(t, term)
	assert.Equal(t, "cerebral cortex", term.Label)
	term, err = g.Term(ctx, "http://unknown")
	require.NoError(t, err)
	assert.Nil(t, term)
}

func TestLabelFromURI(t *testing.T) {
	assert.Equal(t, "UBERON_0000955", LabelFromURI(brain))
	assert.Equal(t, "term", LabelFromURI("http://example.org/onto#term"))
	assert.Equal(t, "plain", LabelFromURI("plain"))
}

type memoryCache struct {
	data map[string][]byte
	gets int
	err  error
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.gets++
	if c.err != nil {
		return nil, false, c.err
	}
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	if c.err != nil {
		return c.err
	}
	c.data[key] = value
	return nil
}

type countingService struct {
	Service
	terms int
}

func (s *countingService) FindTerms(ctx context.Context, query string) ([]Term, error) {
	s.terms++
	return s.Service.FindTerms(ctx, query)
}

func TestCachedService(t *testing.T) {
	ctx := context.Background()
	inner := &countingService{Service: testGraph(t)}
	cache := &memoryCache{data: map[string][]byte{}}
	svc := NewCachedService(inner, cache, time.Minute)

	first, err := svc.FindTerms(ctx, "brain")
	require.NoError(t, err)
	second, err := svc.FindTerms(ctx, "brain")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.terms, "second lookup is served from cache")

	_, err = svc.FindTerms(ctx, `"brain`)
	assert.True(t, errors.Is(err, model.ErrQuerySyntax), "errors pass through and are not cached")
	assert.NotContains(t, cache.data, `terms:"brain`)

	d1, err := svc.Descendants(ctx, []string{brain, anatomy})
	require.NoError(t, err)
	d2, err := svc.Descendants(ctx, []string{anatomy, brain})
	require.NoError(t, err)
	assert.ElementsMatch(t, d1, d2)

	broken := NewCachedService(inner, &memoryCache{err: errors.New("redis down")}, time.Minute)
	terms, err := broken.FindTerms(ctx, "liver")
	require.NoError(t, err, "cache failures degrade to direct lookups")
	assert.Len(t, terms, 1)
}

func TestParseGraph(t *testing.T) {
	g, err := ParseGraph([]byte(`{"terms": [{"uri": "http://example.org/a", "label": "a"}]}`), "inline")
	require.NoError(t, err)
	term, err := g.Term(context.Background(), "http://example.org/a")
	require.NoError(t, err)
	require.NotNil(t, term)
	assert.Equal(t, "a", term.Label)

	_, err = ParseGraph([]byte(`{`), "broken")
	assert.Error(t, err)
}
