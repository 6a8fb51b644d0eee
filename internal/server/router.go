package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wallet-gas/internal/handler"
	"wallet-gas/internal/server/routes"
	"wallet-gas/pkg/monitor"
	"wallet-gas/pkg/validator"
)

// NewHTTPRouter 初始化并返回一个 Gin Engine
func NewHTTPRouter(gasFee *handler.GasFeeHandler) *gin.Engine {
	// 0. 初始化监控指标与自定义校验规则
	monitor.Init()
	validator.Init()

	// 1. 创建 Engine (使用默认中间件: Logger, Recovery)
	r := gin.Default()

	// 2. 注册通用中间件
	r.Use(monitor.PrometheusMiddleware())

	// 3. 注册基础路由
	r.GET("/health", handler.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 4. 注册 API 路由组
	api := r.Group("/api/v1")
	routes.RegisterGasFeeRoutes(api, gasFee)

	return r
}
