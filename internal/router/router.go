package router

import (
	"github.com/LolHubFun/server-vps/internal/cache"
	"github.com/LolHubFun/server-vps/internal/evolution"
	"github.com/LolHubFun/server-vps/internal/handler"
	"github.com/LolHubFun/server-vps/internal/logic"
	"github.com/gin-gonic/gin"
)

// 列表接口是首页热点，限流比其他接口紧
const (
	listRatePerMinute    = 120
	defaultRatePerMinute = 300
)

func Setup(projectLogic *logic.ProjectLogic, admin *evolution.Admin, cacheStore *cache.Cache) *gin.Engine {
	r := gin.Default()

	// 中间件
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "lolhub-server",
		})
	})

	// API版本组
	v1 := r.Group("/api/v1")
	{
		projectHandler := handler.NewProjectHandler(projectLogic)
		projects := v1.Group("/projects")
		{
			projects.GET("", handler.RateLimit(cacheStore, "list", listRatePerMinute), projectHandler.GetProjects)
			projects.GET("/:address", handler.RateLimit(cacheStore, "detail", defaultRatePerMinute), projectHandler.GetProject)
			projects.GET("/:address/trades", handler.RateLimit(cacheStore, "trades", defaultRatePerMinute), projectHandler.GetProjectTrades)
		}
		v1.GET("/ranking", handler.RateLimit(cacheStore, "ranking", defaultRatePerMinute), projectHandler.GetRanking)

		adminHandler := handler.NewAdminHandler(admin)
		adminGroup := v1.Group("/admin")
		{
			adminGroup.POST("/emergency-lock", adminHandler.EmergencyLock)
			adminGroup.POST("/projects/:address/trigger", adminHandler.ManualTrigger)
		}
	}

	return r
}

// CORS中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
