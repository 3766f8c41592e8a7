package serverutils

import (
	"strings"
	"time"

	"atomics-registration-be/internal/pkg/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const adminRole = "admin"

func GenerateAdminToken(secret, subject string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  subject,
		"role": adminRole,
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	return signed, expiresAt, err
}

// AdminJwtMiddleware only lets HS256 tokens with the admin role through.
func AdminJwtMiddleware(secret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		authHeader := ctx.Get("Authorization")
		tokenStr, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found || tokenStr == "" {
			// Browsers cannot set headers on websocket upgrades.
			tokenStr = ctx.Query("token")
		}
		if tokenStr == "" {
			return apperror.Unauthorized("Missing token")
		}

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
		if err != nil || !token.Valid {
			return apperror.Unauthorized("Invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || claims["role"] != adminRole {
			return apperror.Unauthorized("Invalid claims")
		}

		ctx.Locals("admin", claims["sub"])
		return ctx.Next()
	}
}
