package llm

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"tdagent/internal/config"
	"tdagent/internal/llm/gemini"
	"tdagent/internal/llm/nim"
	"tdagent/internal/llm/ollama"
	"tdagent/internal/llm/openai"
	"tdagent/pkg/llminterface"
)

// 支持的后端变体
const (
	ProviderLocalLLM = "local_llm"
	ProviderGemini   = "gemini"
	ProviderOpenAI   = "openai"
	ProviderNIM      = "nvidia_nim"
)

// ErrUnknownProvider 配置的变体不在支持列表内
var ErrUnknownProvider = errors.New("unknown LLM provider")

// New 按配置解析模型后端
// 变体判定只在这里发生一次，调用路径上不再比较字符串
func New(cfg config.LLMConfig) (llminterface.Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderLocalLLM:
		timeout := time.Duration(cfg.Local.TimeoutSeconds) * time.Second
		return ollama.NewClient(cfg.Local.URL, cfg.Local.Model, timeout), nil
	case ProviderGemini:
		return gemini.NewClient(cfg.Gemini.APIKey, cfg.Gemini.Model), nil
	case ProviderOpenAI:
		return openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.OrgID), nil
	case ProviderNIM:
		// NIM 走 OpenAI 兼容接口，复用本地模型的地址与模型名
		return nim.NewClient(cfg.Local.URL, cfg.Local.Model), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
}
