package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ChatSystem(t *testing.T) {
	ClearCache()

	prompt, err := Get("chat.json", "system")
	require.NoError(t, err)
	assert.Contains(t, prompt, "friendly and helpful AI assistant")
}

func TestGet_InvalidFile(t *testing.T) {
	ClearCache()

	_, err := Get("nonexistent.json", "system")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read prompt file")
}

func TestGet_InvalidKey(t *testing.T) {
	ClearCache()

	_, err := Get("chat.json", "nonexistent-key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMustGet(t *testing.T) {
	ClearCache()

	assert.Panics(t, func() { MustGet("nonexistent.json", "system") })
	assert.NotPanics(t, func() {
		assert.NotEmpty(t, MustGet("chat.json", "fallback-reply"))
	})
}

func TestCache(t *testing.T) {
	ClearCache()

	first, err := Get("chat.json", "system")
	require.NoError(t, err)
	second, err := Get("chat.json", "system")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	cacheMu.RLock()
	_, cached := cache["chat.json"]
	cacheMu.RUnlock()
	assert.True(t, cached)
}
