package server

import (
	"custody-core/internal/handler"
	"custody-core/pkg/monitor"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// NewHTTPRouter 初始化并返回一个 Gin Engine
func NewHTTPRouter(
	deviceHandler *handler.DeviceHandler,
	txHandler *handler.TransactionHandler,
	walletHandler *handler.WalletHandler,
) *gin.Engine {
	// 0. 初始化监控指标
	monitor.Init()

	// 1. 创建 Engine (使用默认中间件: Logger, Recovery)
	r := gin.Default()

	// 2. 注册通用中间件
	r.Use(monitor.PrometheusMiddleware()) // 监控埋点

	// 3. 注册基础路由
	r.GET("/health", handler.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler())) // 暴露给 Prometheus
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 4. 注册 API 路由组
	api := r.Group("/api/v1")
	{
		device := api.Group("/device")
		{
			device.POST("/unlock", deviceHandler.Unlock)
			device.POST("/lock", deviceHandler.Lock)
			device.POST("/reset", deviceHandler.Reset)
			device.GET("/session", deviceHandler.Session)
		}

		tx := api.Group("/transactions")
		{
			tx.POST("/send", txHandler.Send)
			tx.GET("", txHandler.List)
			tx.GET("/pending", txHandler.Pending)
			tx.DELETE("/pending", txHandler.Cancel)
		}

		api.GET("/wallets", walletHandler.List)
		api.GET("/chains", walletHandler.Chains)
	}

	return r
}
