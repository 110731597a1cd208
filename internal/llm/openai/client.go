package openai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"tdagent/pkg/llminterface"
)

// Client OpenAI 客户端
type Client struct {
	client *openai.Client
	apiKey string
	model  string
}

// NewClient 创建 OpenAI 客户端
func NewClient(apiKey, model, orgID string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if orgID != "" {
		cfg.OrgID = orgID
	}
	return &Client{
		client: openai.NewClientWithConfig(cfg),
		apiKey: apiKey,
		model:  model,
	}
}

// Call 发送一轮对话，采样参数交给服务端默认值
func (c *Client) Call(ctx context.Context, systemPrompt, userMessage string, history []llminterface.Message) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: buildMessages(systemPrompt, userMessage, history),
	})
	if err != nil {
		return "", fmt.Errorf("调用 OpenAI 失败: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("OpenAI 返回空结果")
	}
	return resp.Choices[0].Message.Content, nil
}

// HealthCheck 仅校验密钥是否配置，不发起远程请求
func (c *Client) HealthCheck(ctx context.Context) (*llminterface.Health, error) {
	if c.apiKey == "" {
		return nil, errors.New("OpenAI API key not configured")
	}
	return &llminterface.Health{Status: "ok", Provider: c.model}, nil
}

// Name 返回变体标识
func (c *Client) Name() string {
	return "openai"
}

// buildMessages 按系统提示、历史、当前消息的顺序组装
func buildMessages(systemPrompt, userMessage string, history []llminterface.Message) []openai.ChatCompletionMessage {
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
	return messages
}
