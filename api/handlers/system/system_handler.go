package system

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	response "tdagent/api/handlers/common"
	"tdagent/internal/config"
	"tdagent/internal/logger"
	"tdagent/pkg/llminterface"
)

// 密钥回显只保留的前缀长度
const keyPreviewRunes = 10

// ModelSource 模型后端的读取与热更新入口，由 *llm.Selector 实现
type ModelSource interface {
	Current() llminterface.Provider
	Config() config.LLMConfig
	Reconfigure(cfg config.LLMConfig) error
}

// EndpointRegistry 工具服务器地址配置，由 *mcp.Registry 实现
type EndpointRegistry interface {
	URL() string
	SetEndpoint(serverURL, endpoint string)
}

// SystemHandler 服务状态与运行时配置 Handler
type SystemHandler struct {
	models   ModelSource
	registry EndpointRegistry
}

// NewSystemHandler 创建 SystemHandler 实例
func NewSystemHandler(models ModelSource, registry EndpointRegistry) *SystemHandler {
	return &SystemHandler{models: models, registry: registry}
}

// StatusInfo 运行时配置快照，密钥只回显前缀
type StatusInfo struct {
	MCPURL        string `json:"mcp_url"`
	LLMProvider   string `json:"llm_provider"`
	LocalLLMURL   string `json:"local_llm_url"`
	LocalLLMModel string `json:"local_llm_model"`
	GeminiAPIKey  string `json:"gemini_api_key"`
	GeminiModel   string `json:"gemini_model"`
	OpenAIAPIKey  string `json:"openai_api_key"`
	OpenAIModel   string `json:"openai_model"`
}

// UpdateConfigRequest 运行时配置更新请求
// 所有字段可选，缺省字段保持当前值
type UpdateConfigRequest struct {
	LLMProvider   *string `json:"llm_provider"`
	LocalLLMURL   *string `json:"local_llm_url"`
	LocalLLMModel *string `json:"local_llm_model"`
	GeminiAPIKey  *string `json:"gemini_api_key"`
	GeminiModel   *string `json:"gemini_model"`
	OpenAIAPIKey  *string `json:"openai_api_key"`
	OpenAIModel   *string `json:"openai_model"`
	MCPURL        *string `json:"mcp_url"`
	MCPEndpoint   *string `json:"mcp_endpoint"`
}

// Index 服务信息
// 原实现在这里渲染 Web 界面，界面交给独立前端后只回 JSON 概览
// @Summary 服务概览
// @Tags System
// @Produce json
// @Success 200 {object} map[string]any
// @Router / [get]
func (h *SystemHandler) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "Teradata MCP Agent",
		"status":  "ok",
		"endpoints": []string{
			"POST /api/chat",
			"POST /api/chat/stream",
			"GET /api/mcp/health",
			"GET /api/mcp/tools",
			"GET /api/status",
			"GET /api/llm/health",
			"POST /api/config/update",
			"POST /api/chart/save",
		},
	})
}

// Status 返回当前配置状态
// @Summary 获取运行时配置
// @Tags System
// @Produce json
// @Success 200 {object} StatusInfo
// @Router /api/status [get]
func (h *SystemHandler) Status(c *gin.Context) {
	cfg := h.models.Config()
	c.JSON(http.StatusOK, StatusInfo{
		MCPURL:        h.registry.URL(),
		LLMProvider:   cfg.Provider,
		LocalLLMURL:   cfg.Local.URL,
		LocalLLMModel: cfg.Local.Model,
		GeminiAPIKey:  maskKey(cfg.Gemini.APIKey),
		GeminiModel:   cfg.Gemini.Model,
		OpenAIAPIKey:  maskKey(cfg.OpenAI.APIKey),
		OpenAIModel:   cfg.OpenAI.Model,
	})
}

// LLMHealth 探测当前模型后端
// @Summary 模型后端健康检查
// @Tags System
// @Produce json
// @Success 200 {object} llminterface.Health
// @Failure 500 {object} response.ErrorResponse
// @Router /api/llm/health [get]
func (h *SystemHandler) LLMHealth(c *gin.Context) {
	health, err := h.models.Current().HealthCheck(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, health)
}

// UpdateConfig 运行时更新模型与 MCP 配置
// 先整体解析新的模型后端，解析失败时原后端继续生效，MCP 地址也不动
// @Summary 更新运行时配置
// @Tags System
// @Accept json
// @Produce json
// @Param request body UpdateConfigRequest true "配置项（全部可选）"
// @Success 200 {object} response.StatusResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/config/update [post]
func (h *SystemHandler) UpdateConfig(c *gin.Context) {
	var req UpdateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: "请求参数错误: " + err.Error()})
		return
	}

	cfg := h.models.Config()
	applyString(&cfg.Provider, req.LLMProvider)
	applyString(&cfg.Local.URL, req.LocalLLMURL)
	applyString(&cfg.Local.Model, req.LocalLLMModel)
	applyString(&cfg.Gemini.APIKey, req.GeminiAPIKey)
	applyString(&cfg.Gemini.Model, req.GeminiModel)
	applyString(&cfg.OpenAI.APIKey, req.OpenAIAPIKey)
	applyString(&cfg.OpenAI.Model, req.OpenAIModel)

	if err := h.models.Reconfigure(cfg); err != nil {
		logger.Warn("配置更新被拒绝", zap.String("provider", cfg.Provider), zap.Error(err))
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Error: err.Error()})
		return
	}

	if req.MCPURL != nil || req.MCPEndpoint != nil {
		h.registry.SetEndpoint(deref(req.MCPURL), deref(req.MCPEndpoint))
	}

	logger.Info("运行时配置已更新",
		zap.String("provider", cfg.Provider),
		zap.String("mcp_url", h.registry.URL()))
	c.JSON(http.StatusOK, response.StatusResponse{Status: "ok", Message: "Configuration updated"})
}

// maskKey 密钥脱敏，空密钥回显空串
func maskKey(key string) string {
	if key == "" {
		return ""
	}
	runes := []rune(key)
	if len(runes) > keyPreviewRunes {
		runes = runes[:keyPreviewRunes]
	}
	return string(runes) + "..."
}

func applyString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
