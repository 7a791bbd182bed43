package config

import (
	"fmt"
	"os"
)

// DefaultGeminiModel is the chat model used when GEMINI_MODEL is unset.
const DefaultGeminiModel = "gemini-2.0-flash"

// LLMConfig holds the hosted language-model credentials.
type LLMConfig struct {
	APIKey string
	Model  string
}

// NewLLMConfig reads GEMINI_API_KEY (required) and GEMINI_MODEL.
func NewLLMConfig() (*LLMConfig, error) {
	cfg := &LLMConfig{
		APIKey: os.Getenv("GEMINI_API_KEY"),
		Model:  envOr("GEMINI_MODEL", DefaultGeminiModel),
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY in environment variables")
	}
	return cfg, nil
}
