package mcptools

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	response "tdagent/api/handlers/common"
	"tdagent/internal/logger"
	"tdagent/internal/mcp"
)

// ToolCatalog 工具目录依赖，由 *mcp.Registry 实现
type ToolCatalog interface {
	Refresh(ctx context.Context) ([]mcp.ToolDescriptor, error)
}

// MCPToolsHandler MCP 工具目录 Handler
type MCPToolsHandler struct {
	registry ToolCatalog
}

// NewMCPToolsHandler 创建 MCPToolsHandler 实例
func NewMCPToolsHandler(registry ToolCatalog) *MCPToolsHandler {
	return &MCPToolsHandler{registry: registry}
}

// HealthResponse MCP 健康探测响应
type HealthResponse struct {
	Status     string `json:"status"`
	ToolsCount int    `json:"tools_count"`
}

// ToolsResponse 工具目录响应
type ToolsResponse struct {
	Tools []mcp.ToolDescriptor `json:"tools"`
}

// Health 探测 MCP 服务器连通性
// 每次探测都强制刷新目录，成功即认为服务器健康
// @Summary MCP 服务器健康检查
// @Tags MCP
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/mcp/health [get]
func (h *MCPToolsHandler) Health(c *gin.Context) {
	tools, err := h.registry.Refresh(c.Request.Context())
	if err != nil {
		logger.Warn("MCP 健康检查失败", zap.Error(err))
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", ToolsCount: len(tools)})
}

// Tools 返回最新的工具目录
// @Summary 获取可用 MCP 工具列表
// @Tags MCP
// @Produce json
// @Success 200 {object} ToolsResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/mcp/tools [get]
func (h *MCPToolsHandler) Tools(c *gin.Context) {
	tools, err := h.registry.Refresh(c.Request.Context())
	if err != nil {
		logger.Warn("拉取工具目录失败", zap.Error(err))
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Error: err.Error()})
		return
	}
	if tools == nil {
		tools = []mcp.ToolDescriptor{}
	}
	c.JSON(http.StatusOK, ToolsResponse{Tools: tools})
}
