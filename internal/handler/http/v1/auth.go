package v1

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/code-withabhi/safety-compass/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

const (
	ctxUserID  = "userID"
	ctxIsAdmin = "isAdmin"
)

// Claims - полезная нагрузка токена внешнего сервиса идентификации.
// Мы не аутентифицируем пользователей, только читаем {userId, isAdmin}.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// JWTAuthMiddleware - middleware проверки токена оракула идентичности
func JWTAuthMiddleware(cfg *config.Config, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := ""
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" && strings.HasPrefix(authHeader, "Bearer ") {
			tokenStr = strings.TrimPrefix(authHeader, "Bearer ")
		}
		if tokenStr == "" {
			// Websocket-клиенты не могут ставить заголовки, принимаем query-параметр
			tokenStr = c.Query("token")
		}

		if tokenStr == "" {
			log.Warn("Auth token missing from request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "auth token required"})
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid || claims.UserID == "" {
			log.WithError(err).Warn("Invalid auth token provided")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxIsAdmin, claims.Role == "admin")
		c.Next()
	}
}

// AdminOnlyMiddleware пропускает только операторов с ролью admin
func AdminOnlyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(ctxIsAdmin) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin role required"})
			return
		}
		c.Next()
	}
}

// identity извлекает пользователя и признак администратора из контекста запроса
func identity(c *gin.Context) (string, bool) {
	return c.GetString(ctxUserID), c.GetBool(ctxIsAdmin)
}
