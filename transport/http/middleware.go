package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/listforge/trustgate/core"
	"github.com/listforge/trustgate/service"
)

const sessionKey = "session"

// AuthMiddleware creates middleware that validates session credentials. A
// missing credential and a failed verification are reported distinctly so
// clients can tell "log in" apart from "log in again".
func AuthMiddleware(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing_credential"})
			return
		}

		session, err := authService.ValidateSession(c.Request.Context(), token)
		if err != nil {
			reason := "invalid_credential"
			switch {
			case errors.Is(err, core.ErrTokenExpired):
				reason = "expired_credential"
			case errors.Is(err, core.ErrTokenRevoked):
				reason = "revoked_credential"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": reason})
			return
		}

		c.Set(sessionKey, session)
		c.Next()
	}
}

// RequireRole restricts a route to sessions carrying the given role.
func RequireRole(role core.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessionFrom(c)
		if session == nil || session.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

func sessionFrom(c *gin.Context) *core.Session {
	value, exists := c.Get(sessionKey)
	if !exists {
		return nil
	}
	session, _ := value.(*core.Session)
	return session
}
