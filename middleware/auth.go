package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mehdiessalah/eventyBackend/config"
)

const userIDKey = "user_id"

// AuthMiddleware verifies the HS256 bearer token and stores the caller's
// user id in the context. Tokens are issued elsewhere; only "sub" or
// "user_id" is read.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	secret := []byte(cfg.JWTAccessSecret)

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid Authorization header"})
			return
		}

		token, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			return
		}

		userID, ok := userIDFromClaims(claims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id missing in token"})
			return
		}

		c.Set(userIDKey, userID)
		c.Set("claims", claims)
		c.Next()
	}
}

func userIDFromClaims(claims jwt.MapClaims) (uuid.UUID, bool) {
	for _, key := range []string{"sub", "user_id"} {
		raw, ok := claims[key].(string)
		if !ok {
			continue
		}
		id, err := uuid.Parse(raw)
		if err == nil && id != uuid.Nil {
			return id, true
		}
	}
	return uuid.Nil, false
}

// GetUserIDFromContext returns the caller set by AuthMiddleware.
func GetUserIDFromContext(c *gin.Context) (uuid.UUID, bool) {
	raw, exists := c.Get(userIDKey)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := raw.(uuid.UUID)
	return id, ok && id != uuid.Nil
}
