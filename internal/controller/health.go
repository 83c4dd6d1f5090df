package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Check es una verificación de dependencia para /health.
type Check func(ctx context.Context) error

// Health responde 200 si todas las dependencias responden, 503 si alguna falla.
func Health(checks map[string]Check) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		deps := gin.H{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				deps[name] = "error"
				status = http.StatusServiceUnavailable
				continue
			}
			deps[name] = "ok"
		}
		c.JSON(status, gin.H{"status": http.StatusText(status), "deps": deps})
	}
}
