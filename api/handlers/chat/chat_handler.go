package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	response "tdagent/api/handlers/common"
	"tdagent/internal/chat"
	"tdagent/internal/logger"
	"tdagent/internal/metrics"
	"tdagent/internal/progress"
	"tdagent/pkg/llminterface"
)

// 消费侧轮询间隔，保证客户端断开能被及时发现
const streamPollInterval = 100 * time.Millisecond

// ChatProcessor 编排引擎依赖，由 *chat.Engine 实现
type ChatProcessor interface {
	Process(ctx context.Context, userMessage string, history []llminterface.Message, rep progress.Reporter) (*chat.ChatResult, error)
}

// ChatHandler 对话 Handler
type ChatHandler struct {
	engine ChatProcessor
}

// NewChatHandler 创建 ChatHandler 实例
func NewChatHandler(engine ChatProcessor) *ChatHandler {
	return &ChatHandler{engine: engine}
}

// ChatRequest 对话请求
// History 由调用方自行维护并在每轮请求中回传，服务端不保存会话
type ChatRequest struct {
	Message string                 `json:"message" binding:"required"`
	History []llminterface.Message `json:"history"`
}

// streamFrame SSE 数据帧
type streamFrame struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// progressData 进度帧负载
type progressData struct {
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// Chat 处理一轮对话（非流式）
// @Summary 多步工具编排对话（同步）
// @Tags Chat
// @Accept json
// @Produce json
// @Param request body ChatRequest true "对话请求"
// @Success 200 {object} chat.ChatResult
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/chat [post]
func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: "请求参数错误: " + err.Error()})
		return
	}

	traceID := uuid.New().String()
	logger.Info("对话请求开始",
		zap.String("trace_id", traceID),
		zap.Int("history_len", len(req.History)))

	result, err := h.engine.Process(c.Request.Context(), req.Message, req.History, nil)
	if err != nil {
		logger.Error("对话请求失败", zap.String("trace_id", traceID), zap.Error(err))
		metrics.ChatRequestsTotal.WithLabelValues("sync", "error").Inc()
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Error: err.Error()})
		return
	}

	metrics.ChatRequestsTotal.WithLabelValues("sync", "ok").Inc()
	c.JSON(http.StatusOK, result)
}

// ChatStream 处理一轮对话（流式进度）
// 帧序列：若干 progress 帧，一个 result 或 error 终止帧，最后 [DONE] 哨兵
// @Summary 多步工具编排对话（SSE 流式）
// @Tags Chat
// @Accept json
// @Produce text/event-stream
// @Param request body ChatRequest true "对话请求"
// @Success 200 {string} string "SSE Stream"
// @Failure 400 {object} response.ErrorResponse
// @Router /api/chat/stream [post]
func (h *ChatHandler) ChatStream(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: "请求参数错误: " + err.Error()})
		return
	}

	traceID := uuid.New().String()
	logger.Info("流式对话开始",
		zap.String("trace_id", traceID),
		zap.Int("history_len", len(req.History)))

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	relay := progress.NewRelay()

	// 编排脱离请求上下文运行：客户端掉线不会打断已发出的模型调用或工具执行，
	// 中继的终止事件是唯一的收尾信号
	go func() {
		result, err := h.engine.Process(context.Background(), req.Message, req.History, relay)
		if err != nil {
			logger.Error("流式对话失败", zap.String("trace_id", traceID), zap.Error(err))
			metrics.ChatRequestsTotal.WithLabelValues("stream", "error").Inc()
			relay.Fail(err)
			return
		}
		metrics.ChatRequestsTotal.WithLabelValues("stream", "ok").Inc()
		relay.Finish(result)
	}()

	ticker := time.NewTicker(streamPollInterval)
	defer ticker.Stop()

	events := relay.Events()
	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				// 生产者已收尾并关闭通道
				return false
			}
			writeFrame(w, ev)
			if ev.Kind != progress.KindProgress {
				// 终止帧之后补流结束哨兵，下一轮读到通道关闭即退出
				io.WriteString(w, "data: [DONE]\n\n")
			}
			return true
		case <-ticker.C:
			// 周期性让出，让 gin 检查客户端是否断开
			return true
		}
	})
}

// writeFrame 按事件类型渲染一帧 SSE 数据
func writeFrame(w io.Writer, ev progress.Event) {
	frame := streamFrame{Type: ev.Kind}
	switch ev.Kind {
	case progress.KindProgress:
		frame.Data = progressData{Status: ev.Status, Detail: ev.Detail}
	case progress.KindResult:
		frame.Data = ev.Payload
	case progress.KindError:
		frame.Data = response.ErrorResponse{Error: ev.Err}
	}

	raw, err := json.Marshal(frame)
	if err != nil {
		logger.Warn("序列化 SSE 帧失败", zap.Error(err))
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", raw)
}
