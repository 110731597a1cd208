package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	MCP    MCPConfig    `mapstructure:"mcp"`
	LLM    LLMConfig    `mapstructure:"llm"`
	Chat   ChatConfig   `mapstructure:"chat"`
	Charts ChartsConfig `mapstructure:"charts"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	Mode         string `mapstructure:"mode"` // debug, release, test
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, /path/to/log
}

// MCPConfig MCP 工具服务器配置
type MCPConfig struct {
	ServerURL      string `mapstructure:"server_url"`
	Endpoint       string `mapstructure:"endpoint"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"` // 单次工具操作超时（秒）
}

// URL 拼接完整的 MCP 服务地址，端点缺少结尾斜杠时自动补全
func (c *MCPConfig) URL() string {
	endpoint := c.Endpoint
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	return c.ServerURL + endpoint
}

// LLMConfig 模型后端配置
// Provider 取值: local_llm, gemini, openai, nvidia_nim
type LLMConfig struct {
	Provider string         `mapstructure:"provider"`
	Local    LocalLLMConfig `mapstructure:"local"`
	Gemini   GeminiConfig   `mapstructure:"gemini"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
}

// LocalLLMConfig 本地模型（Ollama 原生接口）配置
// nvidia_nim 变体复用 URL 与 Model 字段
type LocalLLMConfig struct {
	URL            string `mapstructure:"url"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// GeminiConfig Gemini 配置
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// OpenAIConfig OpenAI 配置
type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
	OrgID  string `mapstructure:"org_id"`
}

// ChatConfig 多步编排配置
type ChatConfig struct {
	MaxIterations int `mapstructure:"max_iterations"`
}

// ChartsConfig 图表文件存储配置
type ChartsConfig struct {
	Dir string `mapstructure:"dir"`
}

var globalConfig *Config

// Load 加载配置
// env: 环境名称（dev, prod, test）
// configPath: 配置文件路径（可选）
func Load(env string, configPath string) (*Config, error) {
	v := viper.New()

	// 设置配置文件名和路径
	if configPath == "" {
		v.SetConfigName(env) // dev.yaml, prod.yaml
		v.AddConfigPath("./config")
		v.AddConfigPath("../config")
		v.AddConfigPath("../../config")
	} else {
		v.SetConfigFile(configPath)
	}

	v.SetConfigType("yaml")

	setDefaults(v)

	// 读取环境变量（优先级高于配置文件）
	v.SetEnvPrefix("APP") // 环境变量前缀：APP_
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // 支持嵌套配置：APP_MCP_SERVER_URL

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 解析配置
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	globalConfig = &cfg
	return &cfg, nil
}

// setDefaults 注册缺省值，配置文件和环境变量均未提供时生效
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 330)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output_path", "stdout")

	v.SetDefault("mcp.server_url", "http://127.0.0.1:8001")
	v.SetDefault("mcp.endpoint", "/mcp")
	v.SetDefault("mcp.timeout_seconds", 300)

	v.SetDefault("llm.provider", "local_llm")
	v.SetDefault("llm.local.url", "http://127.0.0.1:11434")
	v.SetDefault("llm.local.model", "deepseek-r1:32b")
	v.SetDefault("llm.local.timeout_seconds", 300)
	v.SetDefault("llm.gemini.model", "gemini-2.5-pro")
	v.SetDefault("llm.openai.model", "gpt-4")

	v.SetDefault("chat.max_iterations", 10)

	v.SetDefault("charts.dir", "charts")
}

// Get 获取全局配置
func Get() *Config {
	if globalConfig == nil {
		panic("配置未初始化，请先调用 Load()")
	}
	return globalConfig
}
