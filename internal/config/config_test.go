package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_ValidJSON(t *testing.T) {
	content := `{
		"query": "laptop",
		"pages": 3,
		"layout": "result-item",
		"port": 5000,
		"verbose": true
	}`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0644))

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "laptop", cfg.Query)
	assert.Equal(t, 3, cfg.Pages)
	assert.Equal(t, "result-item", cfg.Layout)
	assert.Equal(t, 5000, cfg.Port)
	assert.True(t, cfg.Verbose)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(`{ invalid json }`), 0644))

	cfg, err := LoadConfig(tmpFile)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestConfig_Validate(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "empty is valid", cfg: Config{}},
		{name: "negative pages", cfg: Config{Pages: -1}, wantErr: "pages"},
		{name: "port out of range", cfg: Config{Port: 70000}, wantErr: "port"},
		{name: "unknown layout", cfg: Config{Layout: "grid"}, wantErr: "unknown layout"},
		{name: "known layout", cfg: Config{Layout: "search-result"}},
		{name: "missing data dir", cfg: Config{DataDir: filepath.Join(dir, "nope")}, wantErr: "not found"},
		{name: "data dir is a file", cfg: Config{DataDir: file}, wantErr: "not a directory"},
		{name: "existing data dir", cfg: Config{DataDir: dir}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_MergeWithDefaults(t *testing.T) {
	flags := Config{Query: "phone", Pages: 0}
	defaults := Config{Query: "laptop", Pages: 2, Layout: "result-item", Port: 5000, Seed: 7, Verbose: true}

	merged := flags.MergeWithDefaults(defaults)

	assert.Equal(t, "phone", merged.Query, "flag value wins")
	assert.Equal(t, 2, merged.Pages)
	assert.Equal(t, "result-item", merged.Layout)
	assert.Equal(t, 5000, merged.Port)
	assert.Equal(t, int64(7), merged.Seed)
	assert.True(t, merged.Verbose)
	assert.Equal(t, "phone", flags.Query, "receiver is not modified")
}
