package api

import (
	stdhttp "net/http"

	intconfig "showroom/internal/config"
	"showroom/internal/domain"
	h "showroom/internal/http/handlers"
	"showroom/internal/http/middleware"
	"showroom/internal/metrics"
	"showroom/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the services the HTTP layer is built on.
type Deps struct {
	Auth       h.AuthAPI
	Tokens     middleware.TokenParser
	TestDrives h.TestDriveAPI
	Payments   h.PaymentAPI
	Docs       h.DocsAPI
	Metrics    *metrics.Metrics
}

func NewRouter(env intconfig.Env, deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(deps.Metrics), gin.Recovery(), middleware.CORS(env.CORSAllowedOrigins))

	if err := r.SetTrustedProxies(nil); err != nil {
		utils.LogEvent("", "http", "init", "gagal set trusted proxies: "+err.Error())
	}

	r.OPTIONS("/*path", func(c *gin.Context) { c.AbortWithStatus(stdhttp.StatusNoContent) })

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":  "route tidak ditemukan",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	authH := h.AuthHandler{Svc: deps.Auth}
	tdH := h.TestDriveHandler{Svc: deps.TestDrives, Docs: deps.Docs}
	payH := h.PaymentHandler{Svc: deps.Payments, Docs: deps.Docs}

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/db-check", h.DBCheck)
		api.GET("/routes", h.Routes)

		// Auth
		auth := api.Group("/auth")
		auth.POST("/login", authH.Login)
		auth.POST("/register", authH.Register)

		// Gateway calls back without a user token; the body signature is checked instead.
		api.POST("/payments/gateway/callback", payH.GatewayCallback)

		authed := api.Group("", middleware.Auth(deps.Tokens))

		// Test drives (customer)
		td := authed.Group("/test-drives")
		td.POST("", tdH.Create)
		td.GET("", tdH.ListMine)
		td.GET("/slots", tdH.Slots)
		td.GET("/:id", tdH.Get)
		td.PUT("/:id/cancel", tdH.Cancel)
		td.PUT("/:id/reschedule", tdH.RequestReschedule)
		td.PUT("/:id/confirm-reschedule", tdH.ConfirmReschedule)
		td.PUT("/:id/feedback", tdH.Feedback)
		td.GET("/:id/slip", tdH.Slip)

		// Payments (customer)
		payments := authed.Group("/payments")
		payments.POST("/card", payH.SubmitCard)
		payments.POST("/bank-transfer", payH.SubmitBankTransfer)
		payments.GET("/reference/:code", payH.GetByReference)
		payments.GET("/transaction/:transactionId", payH.ListByTransaction)
		payments.GET("/:id", payH.Get)
		payments.GET("/:id/receipt", payH.Receipt)
		payments.POST("/:id/proof", payH.ReuploadProof)

		// Admin
		admin := authed.Group("/admin", middleware.RequireRoles(domain.RoleAdmin, domain.RoleOwner))
		adminTD := admin.Group("/test-drives")
		adminTD.GET("", tdH.AdminList)
		adminTD.GET("/stats", tdH.AdminStats)
		adminTD.PUT("/:id/approve", tdH.Approve)
		adminTD.PUT("/:id/reject", tdH.Reject)
		adminTD.PUT("/:id/reschedule", tdH.Reschedule)
		adminTD.PUT("/:id/complete", tdH.Complete)
		adminTD.PUT("/:id/no-show", tdH.NoShow)

		adminPay := admin.Group("/payments")
		adminPay.GET("", payH.AdminList)
		adminPay.GET("/verification", payH.AdminVerificationQueue)
		adminPay.PUT("/:id/verify", payH.Verify)
		adminPay.PUT("/:id/refund", payH.Refund)
	}

	h.SetRouter(r)
	return r
}
