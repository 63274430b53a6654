package handler

import (
	"payout-gateway/internal/adapter/http/middleware"
	redisStore "payout-gateway/internal/adapter/storage/redis"
	"payout-gateway/internal/core/domain"
	"payout-gateway/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AccountSvc     ports.AccountService
	PaymentSvc     ports.PaymentRequestService
	DepositSvc     ports.DepositService
	NotifSvc       ports.NotificationService
	AuthSvc        ports.AuthService
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	ObserverToken  string // empty = observer webhook disabled
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(16 << 20)) // receipts are base64, up to ~14 MB encoded

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Staff login (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/admin/login", rl("auth_login"), authHandler.AdminLogin)
		auth.POST("/operator/login", rl("auth_login"), authHandler.OperatorLogin)
	}

	// --- Mini-app user routes (chat identity) ---
	chatAuth := middleware.ChatAuth()
	userHandler := NewUserHandler(deps.AccountSvc, deps.PaymentSvc, deps.DepositSvc, deps.NotifSvc)
	users := v1.Group("/users", chatAuth)
	{
		users.POST("/auth", rl("user"), userHandler.Auth)
		users.GET("/me", rl("user"), userHandler.Me)

		users.POST("/me/requests", rl("requests"), userHandler.CreateRequest)
		users.GET("/me/requests", rl("user"), userHandler.ListRequests)
		users.GET("/me/requests/:id", rl("user"), userHandler.GetRequest)
		users.POST("/me/requests/:id/cancel", rl("requests"), userHandler.CancelRequest)

		users.POST("/me/deposits", rl("deposits"), userHandler.CreateDeposit)
		users.GET("/me/deposits", rl("user"), userHandler.ListDeposits)

		users.GET("/me/notifications", rl("user"), userHandler.ListNotifications)
		users.GET("/me/notifications/unread-count", rl("user"), userHandler.UnreadCount)
		users.POST("/me/notifications/:id/read", rl("user"), userHandler.MarkNotificationRead)
	}

	// --- Staff routes (JWT, admin or operator) ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	staffRole := middleware.RequireRole(domain.RoleAdmin, domain.RoleOperator)
	requestHandler := NewRequestHandler(deps.PaymentSvc)
	depositHandler := NewDepositHandler(deps.DepositSvc)

	staff := v1.Group("/staff", jwtAuth, staffRole)
	{
		staff.GET("/requests", rl("staff"), requestHandler.List)
		staff.GET("/requests/:id", rl("staff"), requestHandler.Get)
		staff.POST("/requests/:id/process", rl("staff"), requestHandler.Process)

		staff.GET("/deposits/pending", rl("staff"), depositHandler.ListPending)
		staff.POST("/deposits/:id/confirm", rl("staff"), depositHandler.Confirm)
		staff.POST("/deposits/:id/reject", rl("staff"), depositHandler.Reject)
	}

	// --- Admin-only routes ---
	adminRole := middleware.RequireRole(domain.RoleAdmin)
	adminHandler := NewAdminHandler(deps.AccountSvc, deps.AuthSvc)

	admin := v1.Group("/admin", jwtAuth, adminRole)
	{
		admin.GET("/accounts", rl("staff"), adminHandler.ListAccounts)
		admin.GET("/accounts/:id", rl("staff"), adminHandler.GetAccount)
		admin.PUT("/accounts/:id/balances", rl("staff"), adminHandler.SetBalances)
		admin.POST("/accounts/:id/credit", rl("staff"), adminHandler.Credit)

		admin.POST("/requests/:id/approve", rl("staff"), requestHandler.Approve)
		admin.POST("/requests/:id/cancel", rl("staff"), requestHandler.Cancel)

		admin.POST("/operators", rl("staff"), adminHandler.CreateOperator)
		admin.GET("/operators", rl("staff"), adminHandler.ListOperators)
		admin.PUT("/operators/:id/active", rl("staff"), adminHandler.SetOperatorActive)
		admin.DELETE("/operators/:id", rl("staff"), adminHandler.DeleteOperator)
	}

	// --- Blockchain observer webhook (shared secret) ---
	if deps.ObserverToken != "" {
		observer := v1.Group("/observer", middleware.ObserverAuth(deps.ObserverToken))
		{
			observer.POST("/deposits", rl("observer"), depositHandler.ObserverConfirm)
		}
	}

	return r
}
