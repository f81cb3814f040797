package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
	"github.com/vouge2017/ethio-farm-connect-sub000/internal/infrastructure/auth"
)

// CasbinMiddleware defines the interface for Casbin authorization middleware
type CasbinMiddleware interface {
	Enforce() gin.HandlerFunc
}

// CasbinMW authorizes the token role against the request path and method
type CasbinMW struct {
	enforcer domain.CasbinEnforcer
	log      *zap.Logger
}

// NewCasbinMW creates new casbin middleware wrapper
func NewCasbinMW(enforcer domain.CasbinEnforcer, log *zap.Logger) *CasbinMW {
	return &CasbinMW{enforcer: enforcer, log: log}
}

// Enforce returns the casbin authorization middleware. It must run after AuthMiddleware.
func (mw *CasbinMW) Enforce() gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		role := UserRole(c)
		if UserID(c) == "" || role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User ID or role not found in token"})
			return
		}

		path := c.Request.URL.Path
		method := c.Request.Method

		allowed, err := mw.enforcer.Enforce(auth.RoleSubject(role), path, method)
		if err != nil {
			mw.log.Error("authorization check failed", zap.String("path", path), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Authorization check failed"})
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}

		c.Next()
	})
}
