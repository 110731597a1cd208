package llm

import (
	"sync"

	"tdagent/internal/config"
	"tdagent/pkg/llminterface"
)

// Selector 持有解析好的模型后端，支持运行时整体换新
// 读路径只取指针，不做字符串分派
type Selector struct {
	mu       sync.RWMutex
	cfg      config.LLMConfig
	provider llminterface.Provider
}

// NewSelector 解析配置并创建选择器
func NewSelector(cfg config.LLMConfig) (*Selector, error) {
	provider, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return &Selector{cfg: cfg, provider: provider}, nil
}

// Current 返回当前模型后端
func (s *Selector) Current() llminterface.Provider {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.provider
}

// Config 返回当前模型配置副本
func (s *Selector) Config() config.LLMConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Reconfigure 解析新配置并原子替换，解析失败时保留原后端
func (s *Selector) Reconfigure(cfg config.LLMConfig) error {
	provider, err := New(cfg)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.cfg = cfg
	s.provider = provider
	s.mu.Unlock()
	return nil
}
