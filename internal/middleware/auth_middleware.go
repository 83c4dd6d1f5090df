// auth_middleware.go
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"referral-purchase-service/internal/model"
	"referral-purchase-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const SessionKey = "session"

// Middleware que valida el token y guarda la sesión del admin en el contexto
func AuthMiddleware(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "falta el header Authorization"})
			return
		}

		s, err := authService.ValidateToken(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, service.ErrInvalidSession) {
				log.Error().Err(err).Str("request_id", c.GetString(RequestIDKey)).Msg("error validando sesión")
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "sesión inválida o expirada"})
			return
		}

		c.Set(SessionKey, s)
		c.Set("userID", s.UserID)
		c.Set("userEmail", s.Email)
		c.Next()
	}
}

// BearerToken extrae el token del header Authorization; vacío si no hay.
func BearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

func GetSession(c *gin.Context) *model.Session {
	s, _ := c.MustGet(SessionKey).(*model.Session)
	return s
}
