package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
)

// AuthMiddleware creates authentication middleware
func AuthMiddleware(tokenSvc domain.TokenService, sessionRepo domain.SessionRepository, allowQuery bool) gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		token, errMsg := extractToken(c, allowQuery)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errMsg})
			return
		}

		// Validate token
		claims, err := tokenSvc.ValidateAccessToken(token)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrTokenExpired):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token expired"})
			case errors.Is(err, domain.ErrTokenInvalid), errors.Is(err, domain.ErrTokenMalformed):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			default:
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token validation failed"})
			}
			return
		}

		// A signed-out session invalidates its tokens before they expire
		session, err := sessionRepo.FindByID(c.Request.Context(), claims.SessionID)
		if err != nil || session == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session invalid or expired"})
			return
		}
		if session.UserID != claims.UserID {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session user mismatch"})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserRole, claims.Role)
		c.Set(ContextSessionID, claims.SessionID)

		c.Next()
	})
}

// StaticToken admits only requests bearing the configured token, for machine clients such as scrapers
func StaticToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got, errMsg := extractToken(c, false)
		if got == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errMsg})
			return
		}
		if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		c.Next()
	}
}

func extractToken(c *gin.Context, allowQuery bool) (string, string) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if allowQuery {
			if token := c.Query("access_token"); token != "" {
				return token, ""
			}
		}
		return "", "Authorization header required"
	}

	// Check Bearer token format
	tokenParts := strings.SplitN(authHeader, " ", 2)
	if len(tokenParts) != 2 || !strings.EqualFold(tokenParts[0], "Bearer") || tokenParts[1] == "" {
		return "", "Invalid authorization header format"
	}
	return tokenParts[1], ""
}
