package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.yaml")
	err := os.WriteFile(path, []byte(content), 0o644)
	assert.NoError(t, err)
	return path
}

func TestLoad(t *testing.T) {
	t.Run("加载完整配置文件", func(t *testing.T) {
		path := writeConfigFile(t, `
server:
  port: 8080
  mode: release
mcp:
  server_url: http://mcp.internal:9000
  endpoint: /tools
llm:
  provider: openai
  openai:
    api_key: sk-test
    model: gpt-4o
chat:
  max_iterations: 5
`)
		cfg, err := Load("test", path)
		assert.NoError(t, err)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, "release", cfg.Server.Mode)
		assert.Equal(t, "openai", cfg.LLM.Provider)
		assert.Equal(t, "sk-test", cfg.LLM.OpenAI.APIKey)
		assert.Equal(t, 5, cfg.Chat.MaxIterations)
	})

	t.Run("缺省值生效", func(t *testing.T) {
		path := writeConfigFile(t, "server:\n  port: 6000\n")
		cfg, err := Load("test", path)
		assert.NoError(t, err)
		assert.Equal(t, "local_llm", cfg.LLM.Provider)
		assert.Equal(t, "http://127.0.0.1:11434", cfg.LLM.Local.URL)
		assert.Equal(t, "deepseek-r1:32b", cfg.LLM.Local.Model)
		assert.Equal(t, "gemini-2.5-pro", cfg.LLM.Gemini.Model)
		assert.Equal(t, "gpt-4", cfg.LLM.OpenAI.Model)
		assert.Equal(t, 10, cfg.Chat.MaxIterations)
		assert.Equal(t, "charts", cfg.Charts.Dir)
		assert.Equal(t, "http://127.0.0.1:8001", cfg.MCP.ServerURL)
	})

	t.Run("配置文件不存在时报错", func(t *testing.T) {
		_, err := Load("test", "/nonexistent/nope.yaml")
		assert.Error(t, err)
	})
}

func TestMCPConfigURL(t *testing.T) {
	t.Run("端点无结尾斜杠时补全", func(t *testing.T) {
		c := MCPConfig{ServerURL: "http://127.0.0.1:8001", Endpoint: "/mcp"}
		assert.Equal(t, "http://127.0.0.1:8001/mcp/", c.URL())
	})

	t.Run("端点已有结尾斜杠时保持原样", func(t *testing.T) {
		c := MCPConfig{ServerURL: "http://127.0.0.1:8001", Endpoint: "/mcp/"}
		assert.Equal(t, "http://127.0.0.1:8001/mcp/", c.URL())
	})
}

func TestGetPanicsBeforeLoad(t *testing.T) {
	prev := globalConfig
	globalConfig = nil
	defer func() { globalConfig = prev }()

	assert.Panics(t, func() { Get() })
}
