package profile

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	var p Profile
	p.FromEnv()

	assert.Equal(t, "openai", p.EmbeddingProvider)
	assert.Equal(t, "text-embedding-3-small", p.EmbeddingModel)
	assert.Equal(t, 1536, p.EmbeddingDims)
	assert.Equal(t, 1, p.EmbeddingVersion)
	assert.Equal(t, 0.82, p.DedupThreshold)
	assert.Equal(t, 5, p.DedupMaxMatches)
	assert.Equal(t, 1000, p.DedupScanLimit)
	assert.Equal(t, 12, p.DedupRecencyMonths)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("CIVICLENS_EMBEDDING_PROVIDER", "siliconflow")
	t.Setenv("CIVICLENS_EMBEDDING_DIMENSIONS", "768")
	t.Setenv("CIVICLENS_DEDUP_THRESHOLD", "0.9")
	t.Setenv("CIVICLENS_DEDUP_MAX_MATCHES", "3")

	var p Profile
	p.FromEnv()

	assert.Equal(t, "siliconflow", p.EmbeddingProvider)
	assert.Equal(t, 768, p.EmbeddingDims)
	assert.Equal(t, 0.9, p.DedupThreshold)
	assert.Equal(t, 3, p.DedupMaxMatches)
}

func TestFromEnvInvalidValuesFallBack(t *testing.T) {
	t.Setenv("CIVICLENS_EMBEDDING_DIMENSIONS", "not-a-number")
	t.Setenv("CIVICLENS_DEDUP_THRESHOLD", "high")

	var p Profile
	p.FromEnv()

	assert.Equal(t, 1536, p.EmbeddingDims)
	assert.Equal(t, 0.82, p.DedupThreshold)
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()

	p := &Profile{Mode: "dev", Driver: "sqlite", Data: dir, EmbeddingDims: 8, DedupThreshold: 0.82}
	require.NoError(t, p.Validate())
	assert.Equal(t, filepath.Join(dir, "civiclens_dev.db"), p.DSN)

	p = &Profile{Mode: "dev", Driver: "mysql", Data: dir, EmbeddingDims: 8}
	assert.Error(t, p.Validate())

	p = &Profile{Mode: "dev", Driver: "postgres", Data: dir, EmbeddingDims: 8}
	assert.Error(t, p.Validate(), "postgres without DSN")

	p = &Profile{Mode: "dev", Driver: "sqlite", Data: dir, EmbeddingDims: 0}
	assert.Error(t, p.Validate())

	p = &Profile{Mode: "dev", Driver: "sqlite", Data: dir, EmbeddingDims: 8, DedupThreshold: 1.5}
	assert.Error(t, p.Validate())
}

func TestValidateUnknownModeFallsBack(t *testing.T) {
	dir := t.TempDir()
	p := &Profile{Mode: "staging", Driver: "sqlite", Data: dir, EmbeddingDims: 8}
	require.NoError(t, p.Validate())
	assert.Equal(t, "demo", p.Mode)
}

func TestIsEmbeddingConfigured(t *testing.T) {
	assert.False(t, (&Profile{}).IsEmbeddingConfigured())
	assert.True(t, (&Profile{EmbeddingAPIKey: "sk-test"}).IsEmbeddingConfigured())
	assert.True(t, (&Profile{EmbeddingBaseURL: "http://localhost:8080"}).IsEmbeddingConfigured())
}
