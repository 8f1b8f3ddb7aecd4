// Package router 组装HTTP路由与中间件
package router

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/xiebiao/scholarium/internal/interface/http/handler"
	"github.com/xiebiao/scholarium/internal/interface/http/middleware"
	"github.com/xiebiao/scholarium/pkg/response"
)

// Handlers 路由依赖的处理器集合
type Handlers struct {
	User     *handler.UserHandler
	Shop     *handler.ShopHandler
	Donation *handler.DonationHandler
	Lending  *handler.LendingHandler
	Auth     *middleware.AuthMiddleware
}

// New 创建Gin引擎并注册全部路由
// 中间件顺序：Recovery → RequestID → Tracing → Logger → Metrics
func New(h Handlers, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Tracing(),
		middleware.Logger(logger),
		middleware.Metrics(),
	)

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{"message": "pong", "status": "healthy"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")

	users := v1.Group("/users")
	{
		users.POST("/register", h.User.Register)
		users.POST("/login", h.User.Login)
	}

	items := v1.Group("/items")
	{
		items.GET("/:id/status", h.Auth.OptionalAuth(), h.Shop.ItemStatus)
		items.POST("/:id/request", h.Auth.RequireAuth(), h.Shop.RequestItem)
		items.GET("/:id/download/:index", h.Auth.RequireAuth(), h.Shop.Download)
	}

	cart := v1.Group("/cart", h.Auth.RequireAuth())
	{
		cart.GET("", h.Shop.GetCart)
		cart.POST("", h.Shop.AddToCart)
		cart.POST("/execute", h.Shop.ExecuteCart)
		cart.DELETE("/:id", h.Shop.RemoveFromCart)
	}

	v1.GET("/purchases", h.Auth.RequireAuth(), h.Shop.ListPurchases)
	v1.GET("/lendings", h.Auth.RequireAuth(), h.Lending.ListLendings)

	donations := v1.Group("/donations")
	{
		donations.GET("/levels", h.Donation.Levels)
		donations.POST("", h.Auth.RequireAuth(), h.Donation.StartDonation)
		donations.GET("/me", h.Auth.RequireAuth(), h.Donation.Summary)
	}

	// 支付网关回调不携带用户Token，来源由共享密钥校验
	v1.POST("/payments/callback", h.Donation.PaymentCallback)

	return r
}
