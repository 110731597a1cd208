package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"tdagent/internal/logger"
	"tdagent/internal/mcp"
	"tdagent/internal/metrics"
	"tdagent/internal/progress"
	"tdagent/pkg/llminterface"
)

const (
	// 每次工具执行后回灌给模型的续作指令
	continueInstruction = "Tool executed successfully. What is the NEXT task from the original user request? If there are more tasks, execute the next tool. If ALL tasks are complete, respond with only: DONE"
	// 模型宣告全部任务完成的口令
	doneToken = "DONE"

	// 回灌历史的单条结果摘要上限（字符数）
	resultHistoryLimit = 800
	// 总结请求里单个结果的渲染上限
	operationPreviewLimit = 500
	// 响应里完整执行轨迹的渲染上限
	traceRenderLimit = 15000

	phaseLoop      = "loop"
	phaseSynthesis = "synthesis"
)

// ToolSource 编排循环依赖的工具目录能力
type ToolSource interface {
	Refresh(ctx context.Context) ([]mcp.ToolDescriptor, error)
	ExecuteTool(ctx context.Context, name string, args map[string]any) (*mcp.ToolResult, error)
}

// ProviderSource 返回当前生效的模型后端
type ProviderSource interface {
	Current() llminterface.Provider
}

// Engine 多步编排引擎
// 模型每轮至多提名一个工具，引擎执行后把结果摘要回灌，
// 直到模型给出纯文本回答或宣告 DONE
type Engine struct {
	tools         ToolSource
	models        ProviderSource
	maxIterations int
	tracer        trace.Tracer
}

// NewEngine 创建编排引擎，maxIterations 非正数时取默认值 10
func NewEngine(tools ToolSource, models ProviderSource, maxIterations int) *Engine {
	if maxIterations <= 0 {
		maxIterations = 10
	}
	return &Engine{
		tools:         tools,
		models:        models,
		maxIterations: maxIterations,
		tracer:        otel.Tracer("tdagent/internal/chat"),
	}
}

// Process 处理一轮用户消息，返回最终回答与工具执行轨迹
// rep 为 nil 时进度静默丢弃；history 不会被修改
func (e *Engine) Process(ctx context.Context, userMessage string, history []llminterface.Message, rep progress.Reporter) (*ChatResult, error) {
	if rep == nil {
		rep = progress.Discard()
	}

	ctx, span := e.tracer.Start(ctx, "Engine.Process")
	defer span.End()

	provider := e.models.Current()
	span.SetAttributes(
		attribute.String("provider", provider.Name()),
		attribute.Int("history_len", len(history)),
		attribute.Int("max_iterations", e.maxIterations),
	)

	status := "error"
	iterations := 0
	defer func() {
		metrics.ChatIterations.WithLabelValues(status).Observe(float64(iterations))
	}()

	// 工具目录拉取失败不致命，降级为无工具模式继续对话
	rep.Report(progress.StatusConnecting, "Fetching available tools...")
	catalog, mcpErr := e.tools.Refresh(ctx)
	if mcpErr != nil {
		logger.Warn("获取工具目录失败，降级为无工具模式", zap.Error(mcpErr))
		span.RecordError(mcpErr)
	} else {
		logger.Info("工具目录就绪", zap.Int("tools", len(catalog)))
	}

	sysPrompt := buildSystemPrompt(catalog, mcpErr)

	var invocations []*ToolInvocation
	currentMessage := userMessage
	workingHistory := make([]llminterface.Message, len(history))
	copy(workingHistory, history)

	for iteration := 1; iteration <= e.maxIterations; iteration++ {
		iterations = iteration
		logger.Info("编排循环推进", zap.Int("iteration", iteration))
		rep.Report(progress.StatusThinking, fmt.Sprintf("Step %d: Analyzing request...", iteration))

		response, err := e.callModel(ctx, provider, phaseLoop, sysPrompt, currentMessage, workingHistory)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Model call failed")
			return nil, fmt.Errorf("模型调用失败: %w", err)
		}

		body, found := scanDirective(response)
		if !found || len(catalog) == 0 {
			if strings.Contains(response, doneToken) && len(invocations) > 0 {
				logger.Info("模型宣告任务完成", zap.Int("tool_calls", len(invocations)))
				break
			}
			logger.Info("未检出工具指令，按最终回答返回")
			status = "ok"
			return &ChatResult{Response: response}, nil
		}

		call, err := parseDirective(body)
		if err != nil {
			// 指令体坏掉时不再追问模型，已有结果照常进入总结
			logger.Warn("指令体解析失败，提前结束循环",
				zap.Int("iteration", iteration),
				zap.Error(err))
			break
		}

		if !catalogHas(catalog, call.Tool) {
			names := toolNames(catalog)
			errorMsg := fmt.Sprintf("Error: Tool '%s' does not exist. Available tools: %s", call.Tool, strings.Join(names, ", "))
			logger.Warn("模型请求了不存在的工具", zap.String("tool", call.Tool))
			status = "ok"
			return &ChatResult{
				Response: errorMsg + "\n\nPlease use one of the available tool names exactly as listed.",
				Error:    errorMsg,
			}, nil
		}

		rep.Report(progress.StatusExecuting, fmt.Sprintf("Running: %s", call.Tool))
		result, err := e.executeTool(ctx, call)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Tool execution failed")
			return nil, err
		}

		invocations = append(invocations, &ToolInvocation{
			Tool:      call.Tool,
			Arguments: call.Arguments,
			Result:    result,
		})

		summary := truncateRunes(summarizeResult(result), resultHistoryLimit)
		workingHistory = append(workingHistory,
			llminterface.Message{Role: llminterface.RoleUser, Content: currentMessage},
			llminterface.Message{Role: llminterface.RoleAssistant, Content: renderDirectiveBlock(call)},
			llminterface.Message{Role: llminterface.RoleUser, Content: "[RESULT] " + summary},
		)
		currentMessage = continueInstruction
	}

	status = "ok"
	if len(invocations) > 0 {
		return e.synthesize(ctx, provider, rep, userMessage, invocations), nil
	}
	return &ChatResult{Response: "No response generated."}, nil
}

// callModel 调用模型并记录指标，返回的错误不带包装
func (e *Engine) callModel(ctx context.Context, provider llminterface.Provider, phase, sysPrompt, message string, history []llminterface.Message) (string, error) {
	ctx, span := e.tracer.Start(ctx, "ModelCall:"+phase)
	defer span.End()
	span.SetAttributes(
		attribute.String("provider", provider.Name()),
		attribute.String("phase", phase),
	)

	start := time.Now()
	response, err := provider.Call(ctx, sysPrompt, message, history)
	metrics.ModelCallDuration.WithLabelValues(provider.Name(), phase).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ModelCallsTotal.WithLabelValues(provider.Name(), phase, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "Model call failed")
		return "", err
	}
	metrics.ModelCallsTotal.WithLabelValues(provider.Name(), phase, "ok").Inc()
	span.SetAttributes(attribute.Int("response_chars", len(response)))
	return response, nil
}

func (e *Engine) executeTool(ctx context.Context, call *directive) (*mcp.ToolResult, error) {
	ctx, span := e.tracer.Start(ctx, "ToolExecute:"+call.Tool)
	defer span.End()
	span.SetAttributes(attribute.String("tool_name", call.Tool))

	result, err := e.tools.ExecuteTool(ctx, call.Tool, call.Arguments)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Tool execution failed")
		return nil, err
	}
	return result, nil
}

// synthesize 汇总全部工具结果生成最终回答
// 总结调用失败不影响已完成的执行轨迹，退回固定说明文本
func (e *Engine) synthesize(ctx context.Context, provider llminterface.Provider, rep progress.Reporter, userMessage string, invocations []*ToolInvocation) *ChatResult {
	ctx, span := e.tracer.Start(ctx, "Engine.Synthesize")
	defer span.End()
	span.SetAttributes(attribute.Int("tool_calls", len(invocations)))

	logger.Info("生成最终总结", zap.Int("tool_calls", len(invocations)))
	rep.Report(progress.StatusSummarizing, fmt.Sprintf("Generating summary for %d operations...", len(invocations)))

	explanation, err := e.callModel(ctx, provider, phaseSynthesis, summaryPrompt(), synthesisRequest(userMessage, invocations), nil)
	if err != nil {
		logger.Warn("总结生成失败", zap.Error(err))
		explanation = fmt.Sprintf("Tool executed successfully but error generating summary: %v", err)
	}

	last := invocations[len(invocations)-1]
	return &ChatResult{
		Response:             explanation,
		MCPCall:              last,
		MCPResult:            last.Result,
		AllToolCalls:         invocations,
		ToolResultForHistory: truncateRunes(renderJSON(invocations), traceRenderLimit),
	}
}

// synthesisRequest 渲染带操作清单的总结请求
func synthesisRequest(userMessage string, invocations []*ToolInvocation) string {
	lines := make([]string, len(invocations))
	for i, inv := range invocations {
		lines[i] = fmt.Sprintf("%d. Tool '%s': %s...", i+1, inv.Tool, truncateRunes(renderJSON(inv.Result), operationPreviewLimit))
	}
	return fmt.Sprintf(synthesisRequestTemplate, userMessage, len(invocations), strings.Join(lines, "\n"))
}

// buildSystemPrompt 目录为空时降级为无工具提示
func buildSystemPrompt(catalog []mcp.ToolDescriptor, mcpErr error) string {
	if len(catalog) > 0 {
		return systemPrompt(catalog)
	}
	reason := "No tools available"
	if mcpErr != nil {
		reason = mcpErr.Error()
	}
	return fmt.Sprintf("You are a helpful assistant. MCP connection issue: %s.", reason)
}

func catalogHas(catalog []mcp.ToolDescriptor, name string) bool {
	for _, tool := range catalog {
		if tool.Name == name {
			return true
		}
	}
	return false
}

func toolNames(catalog []mcp.ToolDescriptor) []string {
	names := make([]string, len(catalog))
	for i, tool := range catalog {
		names[i] = tool.Name
	}
	return names
}
