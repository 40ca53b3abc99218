package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfigStore(t *testing.T) *ConfigStore {
	t.Helper()
	s, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestConfigStore_SetAndGet(t *testing.T) {
	s := newTestConfigStore(t)

	require.NoError(t, s.Set("model.provider", "ollama"))

	val, ok := s.Get("model.provider")
	assert.True(t, ok)
	assert.Equal(t, "ollama", val)
}

func TestConfigStore_GetMissingKey(t *testing.T) {
	s := newTestConfigStore(t)

	_, ok := s.Get("nonexistent")
	assert.False(t, ok)
	assert.Equal(t, "", s.GetString("nonexistent"))
	assert.Equal(t, 0, s.GetInt("nonexistent"))
	assert.Equal(t, 0.0, s.GetFloat("nonexistent"))
	assert.False(t, s.GetBool("nonexistent"))
	assert.Nil(t, s.GetStringSlice("nonexistent"))
}

func TestConfigStore_TypedAccessors(t *testing.T) {
	s := newTestConfigStore(t)

	require.NoError(t, s.Set("analysis.workers", 8))
	require.NoError(t, s.Set("corpus.dedup_ceiling", 0.97))
	require.NoError(t, s.Set("model.fallback_enabled", true))
	require.NoError(t, s.Set("analysis.categories", []string{"violence", "language"}))

	assert.Equal(t, 8, s.GetInt("analysis.workers"))
	assert.InDelta(t, 0.97, s.GetFloat("corpus.dedup_ceiling"), 1e-9)
	assert.True(t, s.GetBool("model.fallback_enabled"))
	assert.Equal(t, []string{"violence", "language"}, s.GetStringSlice("analysis.categories"))
}

func TestConfigStore_WrongTypeReturnsZero(t *testing.T) {
	s := newTestConfigStore(t)
	require.NoError(t, s.Set("key", "a string"))

	assert.Equal(t, 0, s.GetInt("key"))
	assert.Equal(t, 0.0, s.GetFloat("key"))
	assert.False(t, s.GetBool("key"))
	assert.Nil(t, s.GetStringSlice("key"))
}

func TestConfigStore_IntPromotesToFloat(t *testing.T) {
	s := newTestConfigStore(t)
	require.NoError(t, s.Set("retrieval.similarity_floor", int64(1)))

	assert.InDelta(t, 1.0, s.GetFloat("retrieval.similarity_floor"), 1e-9)
}

func TestConfigStore_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()

	s1, err := NewConfigStore(dir)
	require.NoError(t, err)
	require.NoError(t, s1.Set("embedding.provider", "openai"))
	require.NoError(t, s1.Set("retrieval.top_k", 12))

	s2, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "openai", s2.GetString("embedding.provider"))
	assert.Equal(t, 12, s2.GetInt("retrieval.top_k"))
}

func TestConfigStore_LoadsNestedTablesAsDotKeys(t *testing.T) {
	dir := t.TempDir()
	content := `[model]
provider = "openai"
timeout_seconds = 90

[retrieval]
context_budget = 4000
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))

	s, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, "openai", s.GetString("model.provider"))
	assert.Equal(t, 90, s.GetInt("model.timeout_seconds"))
	assert.Equal(t, 4000, s.GetInt("retrieval.context_budget"))
}

func TestConfigStore_FilePermissions(t *testing.T) {
	s := newTestConfigStore(t)
	require.NoError(t, s.Set("key", "value"))

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_MissingFileStartsEmpty(t *testing.T) {
	s := newTestConfigStore(t)

	require.NoError(t, s.Load())
	_, ok := s.Get("anything")
	assert.False(t, ok)
}
