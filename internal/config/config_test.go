package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "S3")
	t.Setenv("UNITY_S3_PREFIX", "legacy")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("PRESIGN_EXPIRY_SEC", "120")
	t.Setenv("STORAGE_PREFIX", "")
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_ACCESS_KEY", "short-name")
	t.Setenv("NOTES_TITLE_WORKERS", "3")

	cfg := Load()

	assert.Equal(t, BackendS3, cfg.Storage.Backend)
	assert.Equal(t, "legacy", cfg.Storage.Prefix)
	assert.True(t, cfg.Storage.MinIO.UseSSL)
	assert.Equal(t, 2*time.Minute, cfg.Storage.PresignExpiry)
	assert.Equal(t, "short-name", cfg.Storage.S3.AccessKey)
	assert.Equal(t, 3, cfg.NotesTitleWorkers)
}

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"STORAGE_BACKEND", "STORAGE_PREFIX", "UNITY_S3_PREFIX", "PRESIGN_EXPIRY_SEC", "LIST_MAX_KEYS", "AUTH_MODE", "NOTES_TITLE_WORKERS"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	assert.Equal(t, BackendMinIO, cfg.Storage.Backend)
	assert.Equal(t, "", cfg.Storage.Prefix)
	assert.Equal(t, 10*time.Minute, cfg.Storage.PresignExpiry)
	assert.Equal(t, 200, cfg.Storage.ListMaxKeys)
	assert.Equal(t, AuthModeJWT, cfg.Auth.Mode)
	assert.Equal(t, "X-Tenant-ID", cfg.Auth.TenantHeader)
	assert.Equal(t, 6, cfg.NotesTitleWorkers)
}

func TestLoad_PrefixPrecedence(t *testing.T) {
	t.Setenv("STORAGE_PREFIX", "primary")
	t.Setenv("UNITY_S3_PREFIX", "legacy")

	assert.Equal(t, "primary", Load().Storage.Prefix)
}

func TestLocation(t *testing.T) {
	cfg := &AppConfig{TimeZone: "Asia/Jakarta"}
	assert.Equal(t, "Asia/Jakarta", cfg.Location().String())

	cfg.TimeZone = "Not/AZone"
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestGetEnv(t *testing.T) {
	key := "TEST_ENV_VAR"
	os.Setenv(key, "value")
	defer os.Unsetenv(key)

	assert.Equal(t, "value", getEnv(key, "default"))
	assert.Equal(t, "default", getEnv("NON_EXISTENT", "default"))
}

func TestGetEnvBool(t *testing.T) {
	key := "TEST_BOOL_VAR"

	os.Setenv(key, "true")
	assert.True(t, getEnvBool(key, false))

	os.Setenv(key, "false")
	assert.False(t, getEnvBool(key, true))

	os.Setenv(key, "invalid")
	assert.True(t, getEnvBool(key, true))

	os.Unsetenv(key)
	assert.True(t, getEnvBool(key, true))
}

func TestGetEnvInt(t *testing.T) {
	key := "TEST_INT_VAR"

	os.Setenv(key, "123")
	assert.Equal(t, 123, getEnvInt(key, 0))

	os.Setenv(key, "invalid")
	assert.Equal(t, 10, getEnvInt(key, 10))

	os.Unsetenv(key)
	assert.Equal(t, 10, getEnvInt(key, 10))
}
