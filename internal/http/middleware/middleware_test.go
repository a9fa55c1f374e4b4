package middleware

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"vaultapi/internal/config"
	"vaultapi/internal/keys"
)

func TestRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())

	app.Get("/test", func(c *fiber.Ctx) error {
		rid := c.Locals(RequestIDLocalKey)
		return c.SendString(rid.(string))
	})

	t.Run("should generate new request id if not present", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		ridHeader := resp.Header.Get(RequestIDHeader)
		assert.NotEmpty(t, ridHeader)

		buf := new(bytes.Buffer)
		buf.ReadFrom(resp.Body)
		assert.Equal(t, ridHeader, buf.String())
	})

	t.Run("should preserve existing request id", func(t *testing.T) {
		existingID := "test-id-123"
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(RequestIDHeader, existingID)

		resp, _ := app.Test(req)

		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, existingID, resp.Header.Get(RequestIDHeader))

		buf := new(bytes.Buffer)
		buf.ReadFrom(resp.Body)
		assert.Equal(t, existingID, buf.String())
	})

	t.Run("should replace malformed request id", func(t *testing.T) {
		for _, bad := range []string{"has space", "quote\"d", strings.Repeat("a", 129)} {
			req := httptest.NewRequest("GET", "/test", nil)
			req.Header.Set(RequestIDHeader, bad)

			resp, _ := app.Test(req)

			got := resp.Header.Get(RequestIDHeader)
			assert.NotEqual(t, bad, got)
			_, err := uuid.Parse(got)
			assert.NoError(t, err, got)
		}
	})
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	app := fiber.New()

	app.Use(RequestID())
	app.Use(LoggerWithWriter(&buf, time.UTC))

	app.Get("/test", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusAccepted)
	})

	req := httptest.NewRequest("GET", "/test", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	var logData map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logData))

	assert.NotEmpty(t, logData["request_id"])
	assert.Equal(t, "GET", logData["method"])
	assert.Equal(t, "/test", logData["path"])
	assert.Equal(t, float64(fiber.StatusAccepted), logData["status"])
	assert.NotNil(t, logData["latency"])
	assert.NotEmpty(t, logData["ts"])
	assert.NotContains(t, logData, "tenant")
}

func TestLogger_TenantAndErrorStatus(t *testing.T) {
	var buf bytes.Buffer
	app := fiber.New()
	app.Use(LoggerWithWriter(&buf, time.UTC))
	app.Use(Tenant(config.AuthConfig{Mode: config.AuthModeHeader, TenantHeader: "X-Tenant-ID"}))
	app.Get("/test", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Tenant-ID", "user_1")
	app.Test(req)

	var ok map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &ok))
	assert.Equal(t, "user_1", ok["tenant"])

	buf.Reset()
	app.Test(httptest.NewRequest("GET", "/test", nil))

	var denied map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &denied))
	assert.Equal(t, float64(fiber.StatusUnauthorized), denied["status"])
}

func TestLogger_TraceID(t *testing.T) {
	var buf bytes.Buffer
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")

	app := fiber.New()
	app.Use(LoggerWithWriter(&buf, time.UTC))
	app.Get("/traced", func(c *fiber.Ctx) error {
		sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
		c.SetUserContext(trace.ContextWithSpanContext(c.UserContext(), sc))
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/plain", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	app.Test(httptest.NewRequest("GET", "/traced", nil))
	var traced map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &traced))
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", traced["trace_id"])

	buf.Reset()
	app.Test(httptest.NewRequest("GET", "/plain", nil))
	var plain map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &plain))
	assert.NotContains(t, plain, "trace_id")
}

func newTenantApp(cfg config.AuthConfig) *fiber.App {
	app := fiber.New()
	app.Use(Tenant(cfg))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		return c.SendString(TenantFromCtx(c))
	})
	return app
}

func whoami(t *testing.T, app *fiber.App, authHeader, key string) (int, string) {
	t.Helper()
	req := httptest.NewRequest("GET", "/whoami", nil)
	if authHeader != "" {
		req.Header.Set(key, authHeader)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	buf := new(bytes.Buffer)
	buf.ReadFrom(resp.Body)
	return resp.StatusCode, buf.String()
}

func TestTenant_JWT(t *testing.T) {
	secret := []byte("s3cret")
	app := newTenantApp(config.AuthConfig{Mode: config.AuthModeJWT, JWTSecret: string(secret), JWTIssuer: "vault"})

	tok, err := IssueToken("user_1", secret, "vault", time.Hour)
	require.NoError(t, err)

	status, got := whoami(t, app, "Bearer "+tok, fiber.HeaderAuthorization)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "user_1", got)

	t.Run("missing header", func(t *testing.T) {
		status, _ := whoami(t, app, "", "")
		assert.Equal(t, fiber.StatusUnauthorized, status)
	})

	t.Run("wrong secret", func(t *testing.T) {
		bad, err := IssueToken("user_1", []byte("other"), "vault", time.Hour)
		require.NoError(t, err)
		status, _ := whoami(t, app, "Bearer "+bad, fiber.HeaderAuthorization)
		assert.Equal(t, fiber.StatusUnauthorized, status)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		bad, err := IssueToken("user_1", secret, "elsewhere", time.Hour)
		require.NoError(t, err)
		status, _ := whoami(t, app, "Bearer "+bad, fiber.HeaderAuthorization)
		assert.Equal(t, fiber.StatusUnauthorized, status)
	})

	t.Run("expired", func(t *testing.T) {
		bad, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject:   "user_1",
			Issuer:    "vault",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		}).SignedString(secret)
		require.NoError(t, err)
		status, _ := whoami(t, app, "Bearer "+bad, fiber.HeaderAuthorization)
		assert.Equal(t, fiber.StatusUnauthorized, status)
	})

	t.Run("other algorithm", func(t *testing.T) {
		bad, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{Subject: "user_1", Issuer: "vault"}).
			SignedString(secret)
		require.NoError(t, err)
		status, _ := whoami(t, app, "Bearer "+bad, fiber.HeaderAuthorization)
		assert.Equal(t, fiber.StatusUnauthorized, status)
	})

	t.Run("empty subject", func(t *testing.T) {
		bad, err := IssueToken("  ", secret, "vault", time.Hour)
		require.NoError(t, err)
		status, _ := whoami(t, app, "Bearer "+bad, fiber.HeaderAuthorization)
		assert.Equal(t, fiber.StatusUnauthorized, status)
	})

	t.Run("not a bearer", func(t *testing.T) {
		status, _ := whoami(t, app, "Basic "+tok, fiber.HeaderAuthorization)
		assert.Equal(t, fiber.StatusUnauthorized, status)
	})
}

func TestTenant_JWTWithoutSecretRejects(t *testing.T) {
	app := newTenantApp(config.AuthConfig{Mode: config.AuthModeJWT})
	tok, err := IssueToken("user_1", []byte("x"), "", 0)
	require.NoError(t, err)

	status, _ := whoami(t, app, "Bearer "+tok, fiber.HeaderAuthorization)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestTenant_Header(t *testing.T) {
	app := newTenantApp(config.AuthConfig{Mode: config.AuthModeHeader})

	status, got := whoami(t, app, " acme ", "X-Tenant-ID")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "acme", got)

	status, _ = whoami(t, app, "   ", "X-Tenant-ID")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = whoami(t, app, strings.Repeat("t", keys.MaxTenantLen+1), "X-Tenant-ID")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, got = whoami(t, app, "alice@example.com", "X-Tenant-ID")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "alice@example.com", got)
}

func TestSubjectFromToken(t *testing.T) {
	secret := []byte("k")
	tok, err := IssueToken("abc", secret, "", 0)
	require.NoError(t, err)

	sub, err := SubjectFromToken(tok, secret, "")
	require.NoError(t, err)
	assert.Equal(t, "abc", sub)

	_, err = SubjectFromToken("not-a-token", secret, "")
	assert.Error(t, err)
}
