package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"tdagent/internal/config"
)

func testLLMConfig(provider string) config.LLMConfig {
	return config.LLMConfig{
		Provider: provider,
		Local: config.LocalLLMConfig{
			URL:            "http://127.0.0.1:11434",
			Model:          "deepseek-r1:32b",
			TimeoutSeconds: 300,
		},
		Gemini: config.GeminiConfig{APIKey: "g-key", Model: "gemini-2.5-pro"},
		OpenAI: config.OpenAIConfig{APIKey: "sk-key", Model: "gpt-4"},
	}
}

func TestNew(t *testing.T) {
	t.Run("四种变体各自解析", func(t *testing.T) {
		cases := map[string]string{
			ProviderLocalLLM: "local_llm",
			ProviderGemini:   "gemini",
			ProviderOpenAI:   "openai",
			ProviderNIM:      "nvidia_nim",
		}
		for provider, wantName := range cases {
			p, err := New(testLLMConfig(provider))
			assert.NoError(t, err)
			assert.Equal(t, wantName, p.Name())
		}
	})

	t.Run("变体判定不区分大小写", func(t *testing.T) {
		p, err := New(testLLMConfig("GEMINI"))
		assert.NoError(t, err)
		assert.Equal(t, "gemini", p.Name())
	})

	t.Run("未知变体返回 ErrUnknownProvider", func(t *testing.T) {
		_, err := New(testLLMConfig("mistral"))
		assert.ErrorIs(t, err, ErrUnknownProvider)
		assert.Contains(t, err.Error(), "mistral")
	})
}

func TestSelector(t *testing.T) {
	t.Run("创建时解析一次", func(t *testing.T) {
		s, err := NewSelector(testLLMConfig(ProviderLocalLLM))
		assert.NoError(t, err)
		assert.Equal(t, "local_llm", s.Current().Name())
		assert.Equal(t, ProviderLocalLLM, s.Config().Provider)
	})

	t.Run("创建时变体非法直接失败", func(t *testing.T) {
		_, err := NewSelector(testLLMConfig("nope"))
		assert.ErrorIs(t, err, ErrUnknownProvider)
	})

	t.Run("重新配置成功后整体换新", func(t *testing.T) {
		s, err := NewSelector(testLLMConfig(ProviderLocalLLM))
		assert.NoError(t, err)

		err = s.Reconfigure(testLLMConfig(ProviderOpenAI))
		assert.NoError(t, err)
		assert.Equal(t, "openai", s.Current().Name())
		assert.Equal(t, ProviderOpenAI, s.Config().Provider)
	})

	t.Run("重新配置失败时保留原后端", func(t *testing.T) {
		s, err := NewSelector(testLLMConfig(ProviderGemini))
		assert.NoError(t, err)

		err = s.Reconfigure(testLLMConfig("bogus"))
		assert.ErrorIs(t, err, ErrUnknownProvider)
		assert.Equal(t, "gemini", s.Current().Name())
		assert.Equal(t, ProviderGemini, s.Config().Provider)
	})
}

func TestProviderHealthChecks(t *testing.T) {
	t.Run("Gemini 未配置密钥时不健康", func(t *testing.T) {
		cfg := testLLMConfig(ProviderGemini)
		cfg.Gemini.APIKey = ""
		p, err := New(cfg)
		assert.NoError(t, err)

		_, err = p.HealthCheck(context.Background())
		assert.ErrorContains(t, err, "Gemini API key not configured")
	})

	t.Run("OpenAI 配置密钥后健康检查返回模型名", func(t *testing.T) {
		p, err := New(testLLMConfig(ProviderOpenAI))
		assert.NoError(t, err)

		health, err := p.HealthCheck(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, "ok", health.Status)
		assert.Equal(t, "gpt-4", health.Provider)
	})
}
