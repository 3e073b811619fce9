package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "WELDKEEPER_"

// parseEnv overlays WELDKEEPER_* environment variables. The file named by
// ENV_FILE (default ".env") is loaded first when present; variables already
// set in the process environment win over the file.
func parseEnv(config *Config) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	_ = godotenv.Load(envFile)

	setString(&config.HTTPAddr, "HTTP_ADDR")
	setString(&config.GRPCAddr, "GRPC_ADDR")
	setString(&config.DatabaseDSN, "DATABASE_DSN")
	setString(&config.ProducerSecret, "PRODUCER_SECRET")
	setString(&config.ObjectStore, "OBJECT_STORE")
	setString(&config.FSRoot, "FS_ROOT")
	setString(&config.S3RootUser, "S3_ROOT_USER")
	setString(&config.S3RootPassword, "S3_ROOT_PASSWORD")
	setString(&config.S3Bucket, "S3_BUCKET")
	setString(&config.S3Region, "S3_REGION")
	setString(&config.S3BaseEndpoint, "S3_BASE_ENDPOINT")
	setString(&config.LogBackend, "LOG_BACKEND")

	if v, ok := os.LookupEnv(envPrefix + "MAX_UPLOAD_BYTES"); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.MaxUploadBytes = n
		}
	}
	if v, ok := os.LookupEnv(envPrefix + "SIGNED_URL_TTL"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			config.SignedURLTTL = d
		}
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(envPrefix + key); ok {
		*dst = v
	}
}
