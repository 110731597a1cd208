package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"tdagent/internal/metrics"
)

// transportBuilder 构建到 MCP 服务器的传输层，测试中替换为内存传输
var transportBuilder = func(endpoint string) mcpsdk.Transport {
	return &mcpsdk.StreamableClientTransport{Endpoint: endpoint}
}

// ToolDescriptor 目录中一个工具的描述
type ToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// ToolResult 工具执行结果，只保留文本内容
type ToolResult struct {
	Content []string `json:"content"`
}

// Registry 工具目录缓存与执行入口
// 目录整体换新，读取返回副本；每次操作都建立全新的 MCP 会话，
// 工具服务器重启后无需任何恢复逻辑
type Registry struct {
	mu        sync.RWMutex
	serverURL string
	endpoint  string
	catalog   []ToolDescriptor
	timeout   time.Duration
}

// NewRegistry 创建注册表，timeout 为单次工具操作的超时时间
func NewRegistry(serverURL, endpoint string, timeout time.Duration) *Registry {
	return &Registry{
		serverURL: serverURL,
		endpoint:  endpoint,
		timeout:   timeout,
	}
}

// SetEndpoint 运行时更新 MCP 服务器地址，下次操作生效
func (r *Registry) SetEndpoint(serverURL, endpoint string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if serverURL != "" {
		r.serverURL = serverURL
	}
	if endpoint != "" {
		r.endpoint = endpoint
	}
}

// URL 返回完整的服务地址，端点缺少结尾斜杠时自动补全
func (r *Registry) URL() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	endpoint := r.endpoint
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	return r.serverURL + endpoint
}

// Refresh 从服务器拉取工具列表并整体替换缓存，返回新目录
// 失败时保留旧缓存，由调用方决定是否降级
func (r *Registry) Refresh(ctx context.Context) ([]ToolDescriptor, error) {
	opCtx, cancel := r.opContext(ctx)
	defer cancel()

	session, err := r.connect(opCtx)
	if err != nil {
		metrics.CatalogRefreshTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	defer session.Close()

	var tools []ToolDescriptor
	for tool, err := range session.Tools(opCtx, nil) {
		if err != nil {
			metrics.CatalogRefreshTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("获取工具列表失败: %w", err)
		}
		tools = append(tools, toDescriptor(tool))
	}

	r.mu.Lock()
	r.catalog = tools
	r.mu.Unlock()

	metrics.CatalogRefreshTotal.WithLabelValues("ok").Inc()
	metrics.CatalogTools.Set(float64(len(tools)))
	return r.Snapshot(), nil
}

// Snapshot 返回当前缓存目录的副本
func (r *Registry) Snapshot() []ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ToolDescriptor, len(r.catalog))
	copy(out, r.catalog)
	return out
}

// Count 返回当前缓存的工具数量
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.catalog)
}

// ExecuteTool 执行指定工具并把结果规整为纯文本列表
// 非文本内容被丢弃，空结果返回空列表而非 nil
func (r *Registry) ExecuteTool(ctx context.Context, name string, args map[string]any) (*ToolResult, error) {
	opCtx, cancel := r.opContext(ctx)
	defer cancel()

	start := time.Now()
	session, err := r.connect(opCtx)
	if err != nil {
		metrics.ToolExecutionsTotal.WithLabelValues(name, "error").Inc()
		return nil, err
	}
	defer session.Close()

	if args == nil {
		args = map[string]any{}
	}
	result, err := session.CallTool(opCtx, &mcpsdk.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		metrics.ToolExecutionsTotal.WithLabelValues(name, "error").Inc()
		return nil, fmt.Errorf("执行工具 %s 失败: %w", name, err)
	}

	texts := make([]string, 0, len(result.Content))
	for _, content := range result.Content {
		if text, ok := content.(*mcpsdk.TextContent); ok {
			texts = append(texts, text.Text)
		}
	}

	metrics.ToolExecutionsTotal.WithLabelValues(name, "ok").Inc()
	metrics.ToolExecutionDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	return &ToolResult{Content: texts}, nil
}

// connect 建立一次性 MCP 会话，调用方负责关闭
func (r *Registry) connect(ctx context.Context) (*mcpsdk.ClientSession, error) {
	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "tdagent", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, transportBuilder(r.URL()), nil)
	if err != nil {
		return nil, fmt.Errorf("连接 MCP 服务器失败: %w", err)
	}
	return session, nil
}

func (r *Registry) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

func toDescriptor(tool *mcpsdk.Tool) ToolDescriptor {
	desc := ToolDescriptor{Name: tool.Name, Description: tool.Description}
	if tool.InputSchema != nil {
		if raw, err := json.Marshal(tool.InputSchema); err == nil {
			desc.InputSchema = raw
		}
	}
	return desc
}
