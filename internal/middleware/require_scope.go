// require_scope.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireScope deja pasar solo a los actores con alguno de los roles dados.
func RequireScope(scopes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actorScope := c.GetString("actorScope")
		allowed := false
		for _, s := range scopes {
			if s == actorScope {
				allowed = true
				break
			}
		}
		if !allowed {
			c.JSON(http.StatusForbidden, gin.H{"error": "insufficient privileges"})
			c.Abort()
			return
		}
		c.Next()
	}
}
