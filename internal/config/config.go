package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr       string
	MongoURI   string
	MongoDB    string
	JWTSecret  string
	SessionTTL time.Duration
	CORSOrigin string
	// Meilisearch Configuration
	MeiliURL       string
	MeiliMasterKey string
	// MinIO Configuration
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	// Redis Configuration
	RedisURL string
}

func Load() Config {
	return Config{
		Addr:       getenv("API_ADDR", ":8080"),
		MongoURI:   getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:    getenv("MONGO_DB", "civicvoice"),
		JWTSecret:  getenv("CIVICVOICE_JWT_SECRET", "civicvoice-dev-secret"),
		SessionTTL: time.Duration(getenvInt("CIVICVOICE_SESSION_TTL_SECONDS", 2592000)) * time.Second,
		CORSOrigin: getenv("CIVICVOICE_CORS_ORIGIN", "*"),
		// Meilisearch - empty URL disables it, listing falls back to store regex
		MeiliURL:       getenv("MEILI_URL", "http://localhost:7700"),
		MeiliMasterKey: getenv("MEILI_MASTER_KEY", "civicvoice-meili-key"),
		// MinIO - image uploads
		MinioEndpoint:  getenv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getenv("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey: getenv("MINIO_SECRET_KEY", "minioadmin"),
		MinioBucket:    getenv("MINIO_BUCKET", "civicvoice-uploads"),
		MinioUseSSL:    getenvBool("MINIO_USE_SSL", false),
		// Redis - revoked session tokens; empty disables logout revocation
		RedisURL: getenv("REDIS_URL", "redis://localhost:6379/0"),
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
