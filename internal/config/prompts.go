package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const maxPromptFileSize = 1 << 20 // 1 MB is plenty for any prompt

var (
	loadedPrompts     LoadedPrompts
	loadedPromptsOnce sync.Once
)

// LoadedPrompts holds prompt content loaded from external files. File
// content takes priority over inline config values, which in turn take
// priority over the compiled-in defaults.
type LoadedPrompts struct {
	SystemPrompt string
	UserPrompt   string
}

// GetLoadedPrompts returns a copy of the prompts loaded from files
func GetLoadedPrompts() LoadedPrompts {
	return loadedPrompts
}

// loadPromptsFromFiles loads custom prompts from external files if file
// paths are specified in the configuration
func (c *Config) loadPromptsFromFiles() error {
	loadedPromptsOnce.Do(func() {
		loadedPrompts = LoadedPrompts{}
	})

	if c.AI.CustomPrompts.SystemPromptFile != "" {
		content, err := loadPromptFromFile(c.AI.CustomPrompts.SystemPromptFile)
		if err != nil {
			return fmt.Errorf("failed to load system prompt: %w", err)
		}
		loadedPrompts.SystemPrompt = content
		log.Printf("[CONFIG] Loaded system prompt from %s", c.AI.CustomPrompts.SystemPromptFile)
	}

	if c.AI.CustomPrompts.UserPromptFile != "" {
		content, err := loadPromptFromFile(c.AI.CustomPrompts.UserPromptFile)
		if err != nil {
			return fmt.Errorf("failed to load user prompt: %w", err)
		}
		loadedPrompts.UserPrompt = content
		log.Printf("[CONFIG] Loaded user prompt from %s", c.AI.CustomPrompts.UserPromptFile)
	}

	return nil
}

// loadPromptFromFile reads and validates one prompt file
func loadPromptFromFile(path string) (string, error) {
	cleanPath := filepath.Clean(path)

	info, err := os.Stat(cleanPath)
	if err != nil {
		return "", fmt.Errorf("prompt file not accessible: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("prompt path is a directory: %s", cleanPath)
	}
	if info.Size() > maxPromptFileSize {
		return "", fmt.Errorf("prompt file too large: %d bytes (limit %d)", info.Size(), maxPromptFileSize)
	}

	content, err := os.ReadFile(cleanPath)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt file: %w", err)
	}

	trimmed := strings.TrimSpace(string(content))
	if trimmed == "" {
		return "", fmt.Errorf("prompt file is empty: %s", cleanPath)
	}

	return trimmed, nil
}
