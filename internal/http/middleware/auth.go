package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
)

// Context keys set by AuthMiddleware
const (
	ContextUserID    = "user_id"
	ContextUserRole  = "user_role"
	ContextSessionID = "session_id"
)

// AuthMW wraps the token service and session repository for middleware
type AuthMW struct {
	tokenSvc    domain.TokenService
	sessionRepo domain.SessionRepository
}

// NewAuthMW creates new auth middleware wrapper
func NewAuthMW(tokenSvc domain.TokenService, sessionRepo domain.SessionRepository) *AuthMW {
	return &AuthMW{
		tokenSvc:    tokenSvc,
		sessionRepo: sessionRepo,
	}
}

// WithJWT returns the JWT middleware function
func (mw *AuthMW) WithJWT() gin.HandlerFunc {
	return AuthMiddleware(mw.tokenSvc, mw.sessionRepo, false)
}

// WithJWTQuery also accepts the token from the access_token query parameter,
// which is the only option browsers have when opening a WebSocket
func (mw *AuthMW) WithJWTQuery() gin.HandlerFunc {
	return AuthMiddleware(mw.tokenSvc, mw.sessionRepo, true)
}

// UserID returns the authenticated user id
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// UserRole returns the role carried by the access token
func UserRole(c *gin.Context) domain.Role {
	role, _ := c.Get(ContextUserRole)
	r, _ := role.(domain.Role)
	return r
}
