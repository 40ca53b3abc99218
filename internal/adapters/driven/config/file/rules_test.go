package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelrate-labs/reelrate-cli/internal/core/domain"
)

func writeRules(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func TestRuleSetStore_SeedsDefaultsOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.toml")

	s, err := NewRuleSetStore(path, false)
	require.NoError(t, err)

	rules := s.Current()
	assert.NotEmpty(t, rules.Version)
	for _, cat := range domain.Categories {
		assert.NotEmpty(t, rules.Terms[cat], "default rules missing terms for %s", cat)
	}

	// Seeded file is on disk and user-editable.
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestRuleSetStore_VersionTracksFileContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.toml")
	writeRules(t, path, "[terms]\nviolence = [\"blood\"]\n")

	s, err := NewRuleSetStore(path, false)
	require.NoError(t, err)
	v1 := s.Current().Version

	// Same content, fresh store: same version.
	again, err := NewRuleSetStore(path, false)
	require.NoError(t, err)
	assert.Equal(t, v1, again.Current().Version)

	// Changed content: changed version.
	writeRules(t, path, "[terms]\nviolence = [\"blood\", \"gunshot\"]\n")
	require.NoError(t, s.Reload())
	assert.NotEqual(t, v1, s.Current().Version)
	assert.Equal(t, []string{"blood", "gunshot"}, s.Current().Terms[domain.CategoryViolence])
}

func TestRuleSetStore_UnknownCategoryRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.toml")
	writeRules(t, path, "[terms]\nromance = [\"kiss\"]\n")

	_, err := NewRuleSetStore(path, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRuleSetStore_BrokenFileKeepsPreviousRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.toml")
	writeRules(t, path, "[terms]\nviolence = [\"blood\"]\n")

	s, err := NewRuleSetStore(path, false)
	require.NoError(t, err)
	before := s.Current()

	writeRules(t, path, "this is not toml [[[")
	assert.Error(t, s.Reload())
	assert.Equal(t, before, s.Current())
}

func TestRuleSetStore_WatcherReloadsOnEdit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.toml")
	writeRules(t, path, "[terms]\nviolence = [\"blood\"]\n")

	s, err := NewRuleSetStore(path, true)
	require.NoError(t, err)
	defer s.Close()
	v1 := s.Current().Version

	writeRules(t, path, "[terms]\nviolence = [\"blood\", \"massacre\"]\n")

	assert.Eventually(t, func() bool {
		return s.Current().Version != v1
	}, 3*time.Second, 20*time.Millisecond, "edit was not picked up by the watcher")
}
