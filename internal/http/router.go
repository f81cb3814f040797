package httpx

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/vouge2017/ethio-farm-connect-sub000/internal/http/handlers"
	"github.com/vouge2017/ethio-farm-connect-sub000/internal/http/middleware"
)

// Handlers groups everything the router mounts
type Handlers struct {
	Functions *handlers.FunctionHandlers
	Auth      *handlers.AuthHandlers
	Messaging *handlers.MessagingHandlers
	Policy    *handlers.PolicyHandlers
	Realtime  *handlers.RealtimeHandlers
	Telegram  *handlers.TelegramHandlers // nil when the bot is not configured
	Metrics   http.Handler

	// MetricsToken is the scrape bearer token; /metrics is not mounted without it
	MetricsToken string
}

func BuildRouter(h Handlers, jwtmw *middleware.AuthMW, cb middleware.CasbinMiddleware, log *zap.Logger) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	if h.Metrics != nil && h.MetricsToken != "" {
		r.GET("/metrics", middleware.StaticToken(h.MetricsToken), gin.WrapH(h.Metrics))
	}

	fn := r.Group("/functions/v1")
	fn.POST("/signup", h.Functions.Signup)
	fn.POST("/resend-otp", h.Functions.ResendOTP)
	fn.POST("/verify-otp", h.Functions.VerifyOTP)

	r.POST("/auth/refresh", h.Auth.Refresh)

	if h.Telegram != nil {
		r.POST("/telegram/webhook", h.Telegram.Webhook)
	}

	// browsers cannot set headers on a websocket upgrade
	r.GET("/realtime/v1/websocket", jwtmw.WithJWTQuery(), cb.Enforce(), h.Realtime.Feed)

	v := r.Group("/").Use(jwtmw.WithJWT(), cb.Enforce())
	v.GET("/auth/me", h.Auth.Me)
	v.PATCH("/auth/me", h.Auth.UpdateMe)
	v.POST("/auth/logout", h.Auth.Logout)

	v.GET("/conversations", h.Messaging.ListConversations)
	v.POST("/conversations", h.Messaging.StartConversation)
	v.GET("/conversations/:id/messages", h.Messaging.ListMessages)
	v.POST("/conversations/:id/messages", h.Messaging.SendMessage)
	v.POST("/conversations/:id/read", h.Messaging.MarkConversationRead)
	v.GET("/notifications", h.Messaging.ListNotifications)
	v.POST("/notifications/:id/read", h.Messaging.MarkNotificationRead)

	adm := r.Group("/admin").Use(jwtmw.WithJWT(), cb.Enforce())
	adm.GET("/policies", h.Policy.List)
	adm.POST("/policies", h.Policy.Add)
	adm.DELETE("/policies", h.Policy.Remove)
	adm.PATCH("/profiles/:id/role", h.Policy.SetRole)

	return cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	})(r)
}
