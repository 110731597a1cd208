package api

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	chartHandlers "tdagent/api/handlers/charts"
	chatHandlers "tdagent/api/handlers/chat"
	mcpHandlers "tdagent/api/handlers/mcptools"
	systemHandlers "tdagent/api/handlers/system"
	"tdagent/internal/charts"
	"tdagent/internal/chat"
	"tdagent/internal/config"
	"tdagent/internal/llm"
	"tdagent/internal/logger"
	"tdagent/internal/mcp"
	"tdagent/internal/metrics"
)

// 启动阶段工具目录预热的超时，失败只降级不阻塞
const catalogWarmupTimeout = 10 * time.Second

// Handlers 聚合所有 HTTP Handler
type Handlers struct {
	Chat   *chatHandlers.ChatHandler
	MCP    *mcpHandlers.MCPToolsHandler
	System *systemHandlers.SystemHandler
	Charts *chartHandlers.ChartsHandler
}

// SetupRouter 设置并返回 Gin 路由
// 模型后端配置非法属于致命错误；MCP 工具服务器不可达只降级为无工具模式
func SetupRouter(cfg *config.Config) (*gin.Engine, error) {
	router := gin.New()

	// 全局中间件
	router.Use(gin.Recovery())
	router.Use(RequestLogger())
	router.Use(CORS())

	// Prometheus 指标收集中间件
	router.Use(metrics.PrometheusMiddleware())

	// 初始化模型后端
	selector, err := llm.NewSelector(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("初始化模型后端失败: %w", err)
	}
	logger.Info("模型后端就绪", zap.String("provider", selector.Current().Name()))

	// 初始化 MCP 工具注册表并预热目录
	registry := mcp.NewRegistry(cfg.MCP.ServerURL, cfg.MCP.Endpoint,
		time.Duration(cfg.MCP.TimeoutSeconds)*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), catalogWarmupTimeout)
	defer cancel()
	if _, err := registry.Refresh(ctx); err != nil {
		logger.Warn("MCP 工具目录预热失败，会话将以无工具模式运行",
			zap.String("url", registry.URL()), zap.Error(err))
	} else {
		logger.Info("MCP 工具目录就绪",
			zap.String("url", registry.URL()), zap.Int("tools", registry.Count()))
	}

	// 初始化多步编排引擎与图表存储
	engine := chat.NewEngine(registry, selector, cfg.Chat.MaxIterations)
	store := charts.NewStore(cfg.Charts.Dir)

	handlers := &Handlers{
		Chat:   chatHandlers.NewChatHandler(engine),
		MCP:    mcpHandlers.NewMCPToolsHandler(registry),
		System: systemHandlers.NewSystemHandler(selector, registry),
		Charts: chartHandlers.NewChartsHandler(store),
	}

	// 公开端点
	router.GET("/health", HealthCheck())
	router.GET("/ready", ReadinessCheck(selector))

	// Prometheus 指标端点
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	RegisterRoutes(router, handlers)

	return router, nil
}
