package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/weldkeeper/internal/flagx"
	"github.com/dmitrijs2005/weldkeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the optional JSON config file.
// Durations accept both "15m" strings and integer nanoseconds.
type JsonConfig struct {
	HTTPAddr       string         `json:"http_addr"`
	GRPCAddr       string         `json:"grpc_addr"`
	DatabaseDSN    string         `json:"database_dsn"`
	ProducerSecret string         `json:"producer_secret"`
	ObjectStore    string         `json:"object_store"`
	FSRoot         string         `json:"fs_root"`
	S3RootUser     string         `json:"s3_root_user"`
	S3RootPassword string         `json:"s3_root_password"`
	S3Bucket       string         `json:"s3_bucket"`
	S3Region       string         `json:"s3_region"`
	S3BaseEndpoint string         `json:"s3_base_endpoint"`
	MaxUploadBytes int64          `json:"max_upload_bytes"`
	SignedURLTTL   timex.Duration `json:"signed_url_ttl"`
	LogBackend     string         `json:"log_backend"`
}

// parseJson overlays the file named by -c / -config onto config. Only keys
// present with a non-zero value replace the current setting. An unreadable or
// malformed file panics.
func parseJson(config *Config, args []string) {
	path := flagx.ConfigPath(args)
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	overlay(&config.HTTPAddr, c.HTTPAddr)
	overlay(&config.GRPCAddr, c.GRPCAddr)
	overlay(&config.DatabaseDSN, c.DatabaseDSN)
	overlay(&config.ProducerSecret, c.ProducerSecret)
	overlay(&config.ObjectStore, c.ObjectStore)
	overlay(&config.FSRoot, c.FSRoot)
	overlay(&config.S3RootUser, c.S3RootUser)
	overlay(&config.S3RootPassword, c.S3RootPassword)
	overlay(&config.S3Bucket, c.S3Bucket)
	overlay(&config.S3Region, c.S3Region)
	overlay(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	overlay(&config.LogBackend, c.LogBackend)
	if c.MaxUploadBytes > 0 {
		config.MaxUploadBytes = c.MaxUploadBytes
	}
	if c.SignedURLTTL.Duration > 0 {
		config.SignedURLTTL = c.SignedURLTTL.Duration
	}
}

func overlay(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
