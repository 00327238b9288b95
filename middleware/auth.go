package middleware

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"fiber-monitor/config"
	"fiber-monitor/types"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// DashboardAuth gates the dashboard routes. With no username configured it
// is a no-op; otherwise it accepts HTTP Basic credentials or a Bearer token
// issued by IssueToken.
func DashboardAuth(cfg config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cfg.Auth.Username == "" {
			return c.Next()
		}

		authorization := c.Get(fiber.HeaderAuthorization)

		if token, found := strings.CutPrefix(authorization, "Bearer "); found && cfg.Auth.TokenSecret != "" {
			claims, err := VerifyToken(token, cfg.Auth.TokenSecret)
			if err == nil {
				c.Locals("user", claims)
				return c.Next()
			}
		}

		if username, password, ok := parseBasicAuth(authorization); ok {
			usernameMatch := subtle.ConstantTimeCompare([]byte(username), []byte(cfg.Auth.Username)) == 1
			passwordMatch := subtle.ConstantTimeCompare([]byte(password), []byte(cfg.Auth.Password)) == 1
			if usernameMatch && passwordMatch {
				c.Locals("user", username)
				return c.Next()
			}
		}

		c.Set(fiber.HeaderWWWAuthenticate, `Basic realm="monitor"`)
		response := types.ApiResponse{
			Message: "Invalid credentials",
			Status:  fiber.StatusUnauthorized,
		}
		return c.Status(fiber.StatusUnauthorized).JSON(&response)
	}
}

// IssueToken signs a short-lived HS256 token for programmatic access to the
// dashboard read API.
func IssueToken(cfg config.Config) (string, error) {
	if cfg.Auth.TokenSecret == "" {
		return "", fmt.Errorf("no token secret configured")
	}
	claims := jwt.MapClaims{
		"sub": cfg.Auth.Username,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(cfg.Auth.TokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.Auth.TokenSecret))
	if err != nil {
		return "", fmt.Errorf("signing dashboard token: %w", err)
	}
	return signed, nil
}

// VerifyToken parses and validates a dashboard token.
func VerifyToken(tokenString, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

func parseBasicAuth(authorization string) (username, password string, ok bool) {
	encoded, found := strings.CutPrefix(authorization, "Basic ")
	if !found {
		return "", "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", "", false
	}
	username, password, ok = strings.Cut(string(decoded), ":")
	return username, password, ok
}
