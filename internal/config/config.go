package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backends understood by storage.NewFromConfig.
const (
	BackendMinIO  = "minio"
	BackendS3     = "s3"
	BackendMemory = "memory"
)

// Tenant identity sources understood by middleware.Tenant.
const (
	AuthModeJWT    = "jwt"
	AuthModeHeader = "header"
)

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// Region skips the bucket location lookup when set.
	Region string
}

// S3Config holds object storage settings for AWS S3 (or an S3-compatible endpoint).
type S3Config struct {
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	// Endpoint overrides the AWS endpoint resolver, e.g. for LocalStack. Path-style addressing is used when set.
	Endpoint string
}

// StorageConfig selects the backend and carries the key layout shared by every backend.
type StorageConfig struct {
	Backend       string
	// Prefix is the optional global prefix all keys are rooted under.
	Prefix        string
	PresignExpiry time.Duration
	ListMaxKeys   int
	MinIO         MinIOConfig
	S3            S3Config
}

// AuthConfig describes how the tenant identity is obtained from a request.
type AuthConfig struct {
	Mode         string
	JWTSecret    string
	JWTIssuer    string
	TenantHeader string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost           string
	Port              string
	LogLevel          string
	TimeZone          string
	NotesTitleWorkers int
	Storage           StorageConfig
	Auth              AuthConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:           getEnv("APP_HOST", "localhost:8080"),
		Port:              getEnv("PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		TimeZone:          getEnv("LOG_TZ", "UTC"),
		NotesTitleWorkers: getEnvInt("NOTES_TITLE_WORKERS", 6),
		Storage: StorageConfig{
			Backend:       strings.ToLower(getEnv("STORAGE_BACKEND", BackendMinIO)),
			Prefix:        getEnv("STORAGE_PREFIX", getEnv("UNITY_S3_PREFIX", "")),
			PresignExpiry: time.Duration(getEnvInt("PRESIGN_EXPIRY_SEC", 600)) * time.Second,
			ListMaxKeys:   getEnvInt("LIST_MAX_KEYS", 200),
			MinIO: MinIOConfig{
				Endpoint:  getEnv("MINIO_ENDPOINT", ""),
				AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
				SecretKey: getEnv("MINIO_SECRET_KEY", ""),
				Bucket:    getEnv("MINIO_BUCKET", ""),
				UseSSL:    getEnvBool("MINIO_USE_SSL", false),
				Region:    getEnv("MINIO_REGION", ""),
			},
			S3: S3Config{
				Region:    getEnv("AWS_REGION", ""),
				Bucket:    getEnv("AWS_BUCKET_NAME", ""),
				AccessKey: getEnv("AWS_ACCESS_KEY_ID", getEnv("AWS_ACCESS_KEY", "")),
				SecretKey: getEnv("AWS_SECRET_ACCESS_KEY", getEnv("AWS_SECRET_KEY", "")),
				Endpoint:  getEnv("AWS_ENDPOINT_URL", ""),
			},
		},
		Auth: AuthConfig{
			Mode:         strings.ToLower(getEnv("AUTH_MODE", AuthModeJWT)),
			JWTSecret:    getEnv("AUTH_JWT_SECRET", ""),
			JWTIssuer:    getEnv("AUTH_JWT_ISSUER", ""),
			TenantHeader: getEnv("AUTH_TENANT_HEADER", "X-Tenant-ID"),
		},
	}
}

// Location resolves TimeZone, falling back to UTC when it is unknown.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
