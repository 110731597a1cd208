package charts

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store 图表 PNG 文件存储
// 前端渲染好的图表以 base64 上传，这里只负责落盘
type Store struct {
	dir string
}

// NewStore 创建存储，dir 为空时使用默认目录 charts
func NewStore(dir string) *Store {
	if dir == "" {
		dir = "charts"
	}
	return &Store{dir: dir}
}

// Save 解码并保存一张图表，返回绝对路径与文件名
// encoded 可以是裸 base64，也可以是 data URL（data:image/png;base64,...）
func (s *Store) Save(name, encoded string) (string, string, error) {
	if idx := strings.Index(encoded, ","); idx >= 0 {
		encoded = encoded[idx+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", "", fmt.Errorf("解码图片数据失败: %w", err)
	}

	filename := fmt.Sprintf("%s_%s.png", sanitizeName(name), time.Now().Format("20060102_150405"))

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", "", fmt.Errorf("创建图表目录失败: %w", err)
	}

	path := filepath.Join(s.dir, filename)
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", "", fmt.Errorf("写入图表文件失败: %w", err)
	}
	return path, filename, nil
}

// sanitizeName 去掉路径成分，防止文件名逃出图表目录
func sanitizeName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	name = strings.Trim(name, ".")
	if name == "" || name == string(filepath.Separator) {
		return "chart"
	}
	return name
}
