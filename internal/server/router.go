package server

import (
	"dispatch-core/internal/handler"
	"dispatch-core/pkg/monitor"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewHTTPRouter 注册全部 HTTP 路由
// 监控指标由调用方先 monitor.Init
func NewHTTPRouter(dispatchHandler *handler.DispatchHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(monitor.PrometheusMiddleware())

	r.GET("/health", handler.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		api.POST("/dispatch", dispatchHandler.Dispatch)
		api.GET("/capabilities/:account", dispatchHandler.Capabilities)
		api.GET("/dispatches/:kind/:id", dispatchHandler.GetDispatch)
	}

	return r
}
