package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"api_base_url":       "https://api.sendvault.example",
		"backend":            "s3",
		"concurrency":        5,
		"default_expiration": "72h",
		"s3": map[string]any{
			"endpoint": "https://s3.example",
			"bucket":   "sendvault",
		},
	})

	t.Run("loads from flags", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "https://api.sendvault.example", cfg.APIBaseURL)
		assert.Equal(t, "s3", cfg.Backend)
		assert.Equal(t, 5, cfg.Concurrency)
		assert.Equal(t, 72*time.Hour, cfg.DefaultExpiration)
		assert.Equal(t, "https://s3.example", cfg.S3.Endpoint)
		assert.Equal(t, "sendvault", cfg.S3.Bucket)
		// Fields absent from the file keep their defaults.
		assert.Equal(t, 3, cfg.MaxAttempts)
		assert.Equal(t, "us-east-1", cfg.S3.Region)
	})

	t.Run("no CONFIG and no flags → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{
			APIBaseURL:        "defaults:1234",
			DefaultExpiration: 42 * time.Hour,
		}
		parseJson(cfg)

		assert.Equal(t, "defaults:1234", cfg.APIBaseURL)
		assert.Equal(t, 42*time.Hour, cfg.DefaultExpiration)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})
}
