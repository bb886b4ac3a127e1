package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9000"
elasticsearch:
  addresses: "http://localhost:9200"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "http://localhost:9200", cfg.Elasticsearch.Addresses)
	assert.Equal(t, 300, cfg.Elasticsearch.MaxHits)
	assert.Equal(t, "biosearch", cfg.Elasticsearch.IndexPrefix)
	assert.Equal(t, 5*time.Second, cfg.Search.SlowIndex())
	assert.Equal(t, 100*time.Millisecond, cfg.Search.SlowMaterialize())
	assert.Equal(t, time.Duration(0), cfg.Search.SourceTimeout())
	assert.Equal(t, time.Hour, cfg.Ontology.CacheTTL)
	assert.False(t, cfg.Kafka.Enabled())
	assert.Equal(t, "biosearch-index", cfg.Kafka.Topic)
	assert.Equal(t, 3, cfg.Kafka.MaxAttempts)
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
search:
  slow_composite_ms: 250
  source_timeout_ms: 2000
  default_max_results: 50
ontology:
  graph_file: "/data/ontology.json"
  cache_ttl: "10m"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, cfg.Search.SlowComposite())
	assert.Equal(t, 2*time.Second, cfg.Search.SourceTimeout())
	assert.Equal(t, 50, cfg.Search.DefaultMaxResults)
	assert.Equal(t, "/data/ontology.json", cfg.Ontology.GraphFile)
	assert.Equal(t, 10*time.Minute, cfg.Ontology.CacheTTL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
