package nim

import (
	"context"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"tdagent/pkg/llminterface"
)

// NIM 不校验密钥，但 OpenAI 兼容层要求携带一个非空值
const placeholderKey = "not-needed"

// 固定采样参数
const (
	temperature = 0.1
	maxTokens   = 4096
)

// Client NVIDIA NIM 客户端
// NIM 暴露 OpenAI 兼容接口，复用本地模型的地址与模型配置
type Client struct {
	client     *openai.Client
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient 创建 NIM 客户端
func NewClient(baseURL, model string) *Client {
	cfg := openai.DefaultConfig(placeholderKey)
	cfg.BaseURL = baseURL
	return &Client{
		client:     openai.NewClientWithConfig(cfg),
		baseURL:    baseURL,
		model:      model,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// Call 发送一轮对话
func (c *Client) Call(ctx context.Context, systemPrompt, userMessage string, history []llminterface.Message) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	for _, msg := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userMessage,
	})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("调用 NVIDIA NIM 失败: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("NVIDIA NIM 返回空结果")
	}
	return resp.Choices[0].Message.Content, nil
}

// HealthCheck 探测 OpenAI 兼容的 /models 端点
func (c *Client) HealthCheck(ctx context.Context) (*llminterface.Health, error) {
	url := fmt.Sprintf("%s/models", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("创建 HTTP 请求失败: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("NVIDIA NIM not available at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("NVIDIA NIM not available at %s: HTTP %d", c.baseURL, resp.StatusCode)
	}
	return &llminterface.Health{Status: "ok", Provider: c.model}, nil
}

// Name 返回变体标识
func (c *Client) Name() string {
	return "nvidia_nim"
}
