package client

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeBackend serves the backend routes the client talks to.
// Handlers default to the happy path and can be swapped per test.
type fakeBackend struct {
	*httptest.Server

	mu       sync.Mutex
	signup   gin.HandlerFunc
	resend   gin.HandlerFunc
	verify   gin.HandlerFunc
	refresh  gin.HandlerFunc
	logout   gin.HandlerFunc
	me       gin.HandlerFunc
	logouts  int
	meCalls  int
	lastAuth string
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()

	b := &fakeBackend{
		signup: func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"success": true, "message": "OTP sent successfully", "dev_otp": "123456"})
		},
		resend: func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"success": true, "message": "OTP resent successfully", "dev_otp": "654321"})
		},
		verify: func(c *gin.Context) {
			var req struct {
				OTP string `json:"otp"`
			}
			_ = c.ShouldBindJSON(&req)
			if req.OTP != "123456" {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid or expired OTP"})
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"success":       true,
				"message":       "Phone number verified",
				"session_url":   "http://localhost:5173/auth/callback#access_token=access-1",
				"access_token":  "access-1",
				"refresh_token": "refresh-1",
				"expires_in":    900,
				"user":          gin.H{"id": "user-1", "phone_number": "+251911234567", "role": "farmer"},
			})
		},
		refresh: func(c *gin.Context) {
			var req struct {
				RefreshToken string `json:"refresh_token"`
			}
			_ = c.ShouldBindJSON(&req)
			if req.RefreshToken != "refresh-1" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired refresh token"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"data": gin.H{
				"access_token":  "access-2",
				"refresh_token": "refresh-1",
				"token_type":    "Bearer",
				"expires_in":    900,
				"user":          gin.H{"id": "user-1", "phone_number": "+251911234567", "role": "farmer"},
			}})
		},
		logout: func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": "Logged out successfully"}})
		},
		me: func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"data": testProfile()})
		},
	}

	r := gin.New()
	r.POST("/functions/v1/signup", b.route(func() gin.HandlerFunc { return b.signup }))
	r.POST("/functions/v1/resend-otp", b.route(func() gin.HandlerFunc { return b.resend }))
	r.POST("/functions/v1/verify-otp", b.route(func() gin.HandlerFunc { return b.verify }))
	r.POST("/auth/refresh", b.route(func() gin.HandlerFunc { return b.refresh }))
	r.POST("/auth/logout", b.route(func() gin.HandlerFunc {
		b.logouts++
		return b.logout
	}))
	r.GET("/auth/me", b.route(func() gin.HandlerFunc {
		b.meCalls++
		return b.me
	}))

	b.Server = httptest.NewServer(r)
	t.Cleanup(b.Close)
	return b
}

func (b *fakeBackend) route(pick func() gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		b.mu.Lock()
		b.lastAuth = c.GetHeader("Authorization")
		h := pick()
		b.mu.Unlock()
		h(c)
	}
}

func (b *fakeBackend) set(fn func(b *fakeBackend)) {
	b.mu.Lock()
	fn(b)
	b.mu.Unlock()
}

func (b *fakeBackend) counts() (logouts, meCalls int, lastAuth string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.logouts, b.meCalls, b.lastAuth
}

func testProfile() domain.Profile {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return domain.Profile{
		UserID:              "user-1",
		PhoneNumber:         "+251911234567",
		DisplayName:         "Abebe",
		Role:                domain.RoleFarmer,
		PreferredOTPChannel: domain.ChannelSMS,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// toastRecorder is a Notifier that keeps every toast
type toastRecorder struct {
	mu     sync.Mutex
	toasts []Toast
}

func (r *toastRecorder) Notify(t Toast) {
	r.mu.Lock()
	r.toasts = append(r.toasts, t)
	r.mu.Unlock()
}

func (r *toastRecorder) all() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Toast(nil), r.toasts...)
}

func (r *toastRecorder) last() Toast {
	all := r.all()
	if len(all) == 0 {
		return Toast{}
	}
	return all[len(all)-1]
}
