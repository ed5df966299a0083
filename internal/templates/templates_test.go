package templates

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEmbeddedSummary(t *testing.T) {
	tpl, err := Get("summary", "")
	require.NoError(t, err)

	assert.Contains(t, tpl.System, "business analyst")
	assert.Contains(t, tpl.Prompt, "%s")
	assert.Contains(t, tpl.Prompt, "business_name")
}

func TestGetUserOverrideWins(t *testing.T) {
	dir := t.TempDir()
	override := "system = \"terse analyst\"\nprompt = \"Summarize: %s\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "summary.toml"), []byte(override), 0o644))

	tpl, err := Get("summary", dir)
	require.NoError(t, err)
	assert.Equal(t, "terse analyst", tpl.System)
	assert.Equal(t, "Summarize: %s", tpl.Prompt)
}

func TestGetMissingOverrideFallsBackToEmbedded(t *testing.T) {
	tpl, err := Get("summary", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, tpl.System, "business analyst")
}

func TestGetInvalidOverrideFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "summary.toml"), []byte("prompt = [broken"), 0o644))

	_, err := Get("summary", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid")
}

func TestGetOverrideWithoutPromptFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "summary.toml"), []byte("system = \"only system\"\n"), 0o644))

	_, err := Get("summary", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no prompt")
}

func TestGetUnknownName(t *testing.T) {
	_, err := Get("does-not-exist", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestListEmbedded(t *testing.T) {
	names, err := ListEmbedded()
	require.NoError(t, err)
	assert.Contains(t, names, "summary")
}
