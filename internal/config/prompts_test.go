package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPromptFromFile(t *testing.T) {
	dir := t.TempDir()

	writeFile := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))
		return path
	}

	t.Run("valid prompt", func(t *testing.T) {
		path := writeFile("prompt.txt", "  You are an ATS analyst.\n")
		content, err := loadPromptFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, "You are an ATS analyst.", content)
	})

	t.Run("empty file", func(t *testing.T) {
		path := writeFile("empty.txt", "   \n\t")
		_, err := loadPromptFromFile(path)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "prompt file is empty")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := loadPromptFromFile(filepath.Join(dir, "nope.txt"))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not accessible")
	})

	t.Run("directory path", func(t *testing.T) {
		_, err := loadPromptFromFile(dir)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "directory")
	})
}

func TestLoadPromptsFromFiles(t *testing.T) {
	dir := t.TempDir()
	systemPath := filepath.Join(dir, "system.txt")
	require.NoError(t, os.WriteFile(systemPath, []byte("system prompt"), 0600))

	cfg := &Config{}
	cfg.AI.CustomPrompts.SystemPromptFile = systemPath

	require.NoError(t, cfg.loadPromptsFromFiles())
	assert.Equal(t, "system prompt", GetLoadedPrompts().SystemPrompt)
}
