package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"tdagent/pkg/llminterface"
)

// 原生 /api/chat 接口的固定采样参数
const (
	temperature = 0.1
	topP        = 0.9
	topK        = 40
)

// Client 本地模型客户端，走 Ollama 原生 API
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient 创建本地模型客户端
func NewClient(baseURL, model string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "http://127.0.0.1:11434"
	}
	if timeout <= 0 {
		timeout = 300 * time.Second // 本地推理可能很慢
	}

	return &Client{
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Call 发送一轮对话（非流式）
func (c *Client) Call(ctx context.Context, systemPrompt, userMessage string, history []llminterface.Message) (string, error) {
	messages := make([]llminterface.Message, 0, len(history)+2)
	messages = append(messages, llminterface.Message{Role: llminterface.RoleSystem, Content: systemPrompt})
	messages = append(messages, history...)
	messages = append(messages, llminterface.Message{Role: llminterface.RoleUser, Content: userMessage})

	chatReq := map[string]any{
		"model":    c.model,
		"messages": messages,
		"stream":   false,
		"options": map[string]any{
			"temperature": temperature,
			"top_p":       topP,
			"top_k":       topK,
		},
	}

	body, err := json.Marshal(chatReq)
	if err != nil {
		return "", fmt.Errorf("序列化请求失败: %w", err)
	}

	url := fmt.Sprintf("%s/api/chat", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("创建 HTTP 请求失败: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("调用本地模型失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("解析响应失败: %w", err)
	}
	return chatResp.Message.Content, nil
}

// HealthCheck 探测 /api/tags，5 秒内无响应视为不可用
func (c *Client) HealthCheck(ctx context.Context) (*llminterface.Health, error) {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	url := fmt.Sprintf("%s/api/tags", c.baseURL)
	httpReq, err := http.NewRequestWithContext(probeCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("创建 HTTP 请求失败: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("local LLM not available at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("local LLM not available at %s: HTTP %d", c.baseURL, resp.StatusCode)
	}
	return &llminterface.Health{Status: "ok", Provider: c.model}, nil
}

// Name 返回变体标识
func (c *Client) Name() string {
	return "local_llm"
}

// chatResponse /api/chat 非流式响应
type chatResponse struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}
