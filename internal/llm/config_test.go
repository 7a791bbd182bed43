package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, ProviderGemini, config.Provider)
	assert.Equal(t, DefaultModel, config.Model)
	assert.Equal(t, DefaultTemperature, config.Temperature)
}

func TestWithModel(t *testing.T) {
	base := DefaultConfig()

	custom := base.WithModel("gemini-2.5-flash")
	assert.Equal(t, "gemini-2.5-flash", custom.Model)
	assert.Equal(t, DefaultModel, base.Model, "original config is not modified")

	same := base.WithModel("")
	assert.Equal(t, DefaultModel, same.Model)
}
