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

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"http_addr":        "www.example:8080",
		"database_dsn":     "postgres://x",
		"object_store":     "fs",
		"fs_root":          "/var/lib/weldkeeper",
		"s3_bucket":        "certs",
		"max_upload_bytes": 4096,
		"signed_url_ttl":   "2m",
	})

	t.Run("overlays present keys only", func(t *testing.T) {
		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg, []string{"-c", path})

		assert.Equal(t, "www.example:8080", cfg.HTTPAddr)
		assert.Equal(t, "postgres://x", cfg.DatabaseDSN)
		assert.Equal(t, ObjectStoreFS, cfg.ObjectStore)
		assert.Equal(t, "/var/lib/weldkeeper", cfg.FSRoot)
		assert.Equal(t, "certs", cfg.S3Bucket)
		assert.Equal(t, int64(4096), cfg.MaxUploadBytes)
		assert.Equal(t, 2*time.Minute, cfg.SignedURLTTL)

		assert.Equal(t, ":50051", cfg.GRPCAddr)
		assert.Equal(t, "us-east-1", cfg.S3Region)
	})

	t.Run("no config flag leaves config untouched", func(t *testing.T) {
		cfg := &Config{HTTPAddr: "keep"}
		parseJson(cfg, []string{"-a", ":1"})
		assert.Equal(t, "keep", cfg.HTTPAddr)
	})

	t.Run("missing file panics", func(t *testing.T) {
		require.Panics(t, func() { parseJson(&Config{}, []string{"-config", "/does/not/exist.json"}) })
	})

	t.Run("malformed file panics", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
		require.Panics(t, func() { parseJson(&Config{}, []string{"-c", bad}) })
	})
}
