// FILE: internal/pkg/serverutils/jwt_middleware.go
package serverutils

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// JwtMiddleware verifies an HS256 bearer token and stores its user id in
// ctx.Locals("user_id"). Tokens are issued elsewhere; an empty secret rejects
// every request.
func JwtMiddleware(secret string) fiber.Handler {
	key := []byte(secret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))

	return func(ctx *fiber.Ctx) error {
		authHeader := ctx.Get(fiber.HeaderAuthorization)
		if len(authHeader) < 7 || !strings.EqualFold(authHeader[:7], "Bearer ") {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Missing token"))
		}
		tokenStr := strings.TrimSpace(authHeader[7:])

		if len(key) == 0 {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
		}

		claims := jwt.MapClaims{}
		token, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			return key, nil
		})
		if err != nil || !token.Valid {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
		}

		userId := userIdFromClaims(claims)
		if userId == "" {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Invalid claims"))
		}

		ctx.Locals("user_id", userId)
		return ctx.Next()
	}
}

func userIdFromClaims(claims jwt.MapClaims) string {
	if id, ok := claims["user_id"].(string); ok && id != "" {
		return id
	}
	if sub, err := claims.GetSubject(); err == nil {
		return sub
	}
	return ""
}
