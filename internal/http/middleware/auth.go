package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"vaultapi/internal/config"
	"vaultapi/internal/keys"
)

// TenantLocalKey is the key used to store the authenticated tenant in Fiber's context locals.
const TenantLocalKey = "tenant"

var errNoTenant = errors.New("no tenant in token")

// Tenant resolves the caller's tenant and stores it under TenantLocalKey.
// Requests without an identity, or with one longer than keys.MaxTenantLen bytes, are
// rejected with 401.
//
// Modes:
// - jwt: HS256 bearer token; the tenant is the "sub" claim.
// - header: the tenant is taken verbatim from cfg.TenantHeader (for use behind a trusted proxy).
func Tenant(cfg config.AuthConfig) fiber.Handler {
	secret := []byte(cfg.JWTSecret)
	header := cfg.TenantHeader
	if header == "" {
		header = "X-Tenant-ID"
	}

	return func(c *fiber.Ctx) error {
		var tenant string
		switch cfg.Mode {
		case config.AuthModeHeader:
			tenant = strings.TrimSpace(c.Get(header))
		default:
			raw, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
			if !ok || len(secret) == 0 {
				break
			}
			sub, err := SubjectFromToken(raw, secret, cfg.JWTIssuer)
			if err == nil {
				tenant = sub
			}
		}
		if tenant == "" || len(tenant) > keys.MaxTenantLen {
			return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
		}

		c.Locals(TenantLocalKey, tenant)
		return c.Next()
	}
}

// TenantFromCtx returns the tenant stored by Tenant, or "".
func TenantFromCtx(c *fiber.Ctx) string {
	s, _ := c.Locals(TenantLocalKey).(string)
	return s
}

// SubjectFromToken validates an HS256 token and returns its subject.
// issuer is checked only when non-empty.
func SubjectFromToken(raw string, secret []byte, issuer string) (string, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", jwt.ErrTokenInvalidClaims
	}

	sub := strings.TrimSpace(claims.Subject)
	if sub == "" {
		return "", errNoTenant
	}
	return sub, nil
}

// IssueToken mints an HS256 token for tenant. A zero ttl means no expiry.
func IssueToken(tenant string, secret []byte, issuer string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:  tenant,
		Issuer:   issuer,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func bearerToken(h string) (string, bool) {
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	tok := strings.TrimSpace(h[len(prefix):])
	return tok, tok != ""
}
