package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"tdagent/pkg/llminterface"
)

// Client Gemini 客户端
// 每次调用建立独立的 SDK 会话，密钥和模型在运行时可整体换新
type Client struct {
	apiKey string
	model  string
}

// NewClient 创建 Gemini 客户端
func NewClient(apiKey, model string) *Client {
	return &Client{apiKey: apiKey, model: model}
}

// Call 发送一轮对话，系统提示通过 SystemInstruction 下发
func (c *Client) Call(ctx context.Context, systemPrompt, userMessage string, history []llminterface.Message) (string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return "", fmt.Errorf("创建 Gemini 客户端失败: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(c.model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}

	chat := model.StartChat()
	chat.History = toContentHistory(history)

	resp, err := chat.SendMessage(ctx, genai.Text(userMessage))
	if err != nil {
		return "", fmt.Errorf("调用 Gemini 失败: %w", err)
	}
	return extractText(resp)
}

// HealthCheck 仅校验密钥是否配置，不发起远程请求
func (c *Client) HealthCheck(ctx context.Context) (*llminterface.Health, error) {
	if c.apiKey == "" {
		return nil, errors.New("Gemini API key not configured")
	}
	return &llminterface.Health{Status: "ok", Provider: c.model}, nil
}

// Name 返回变体标识
func (c *Client) Name() string {
	return "gemini"
}

// toContentHistory 转换历史消息，Gemini 只接受 user/model 两种角色
func toContentHistory(history []llminterface.Message) []*genai.Content {
	var contents []*genai.Content
	for _, msg := range history {
		role := "model"
		if msg.Role == llminterface.RoleUser {
			role = "user"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}
	return contents
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("no content returned from Gemini")
	}
	var builder strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			builder.WriteString(string(text))
		}
	}
	return builder.String(), nil
}
