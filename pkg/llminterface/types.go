package llminterface

import "context"

// 消息角色
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message 会话中的一条消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Health 模型后端健康状态，Provider 字段携带当前模型标识
type Health struct {
	Status   string `json:"status"`
	Provider string `json:"provider"`
}

// Provider 模型后端统一接口
// 实现必须接受空 history，且不做任何内部重试，失败立即返回
type Provider interface {
	// Call 发送一轮对话，返回模型的完整文本回复
	Call(ctx context.Context, systemPrompt, userMessage string, history []Message) (string, error)

	// HealthCheck 探测后端可用性
	HealthCheck(ctx context.Context) (*Health, error)

	// Name 返回变体标识（local_llm, gemini, openai, nvidia_nim）
	Name() string
}
