package api

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes 注册所有 API 路由
func RegisterRoutes(router *gin.Engine, h *Handlers) {
	// 服务概览（原 Web 界面入口）
	router.GET("/", h.System.Index)

	api := router.Group("/api")

	// 会话编排
	registerChatRoutes(api, h)

	// MCP 工具服务器
	registerMCPRoutes(api, h)

	// 状态与运行时配置
	registerSystemRoutes(api, h)

	// 图表保存
	registerChartRoutes(api, h)
}

// registerChatRoutes 注册会话编排路由
func registerChatRoutes(api *gin.RouterGroup, h *Handlers) {
	api.POST("/chat", h.Chat.Chat)
	api.POST("/chat/stream", h.Chat.ChatStream)
}

// registerMCPRoutes 注册工具服务器代理路由
func registerMCPRoutes(api *gin.RouterGroup, h *Handlers) {
	mcpGroup := api.Group("/mcp")
	{
		mcpGroup.GET("/health", h.MCP.Health)
		mcpGroup.GET("/tools", h.MCP.Tools)
	}
}

// registerSystemRoutes 注册状态与运行时配置路由
func registerSystemRoutes(api *gin.RouterGroup, h *Handlers) {
	api.GET("/status", h.System.Status)
	api.GET("/llm/health", h.System.LLMHealth)
	api.POST("/config/update", h.System.UpdateConfig)
}

// registerChartRoutes 注册图表路由
func registerChartRoutes(api *gin.RouterGroup, h *Handlers) {
	api.POST("/chart/save", h.Charts.Save)
}
