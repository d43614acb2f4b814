// auth_middleware.go
package middleware

import (
	"net/http"
	"strings"

	"pharma-order-service/internal/service"

	"github.com/gin-gonic/gin"
)

// Middleware que valida el token y guarda la identidad del actor en el contexto
func AuthMiddleware(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			c.Abort()
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		token = strings.TrimSpace(token)
		user, err := authService.ValidateToken(token)

		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("actorID", user.ID)
		c.Set("actorName", user.Name)
		c.Set("actorScope", user.Scope)
		c.Next()
	}
}

// ActorFromContext reconstruye el actor que dejó el middleware.
func ActorFromContext(c *gin.Context) service.Actor {
	return service.Actor{
		ID:    c.GetString("actorID"),
		Name:  c.GetString("actorName"),
		Scope: c.GetString("actorScope"),
	}
}
