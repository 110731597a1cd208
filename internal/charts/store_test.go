package charts

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 1x1 透明 PNG
var pngBytes = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A,
	0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4,
	0x89, 0x00, 0x00, 0x00, 0x0A, 0x49, 0x44, 0x41,
	0x54, 0x78, 0x9C, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0D, 0x0A, 0x2D, 0xB4, 0x00,
	0x00, 0x00, 0x00, 0x49, 0x45, 0x4E, 0x44, 0xAE,
	0x42, 0x60, 0x82,
}

func TestStoreSave(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString(pngBytes)

	t.Run("裸base64保存", func(t *testing.T) {
		store := NewStore(t.TempDir())

		path, filename, err := store.Save("sales_by_region", encoded)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(filename, "sales_by_region_"))
		assert.True(t, strings.HasSuffix(filename, ".png"))
		assert.True(t, filepath.IsAbs(path))

		written, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, pngBytes, written)
	})

	t.Run("dataURL前缀被剥离", func(t *testing.T) {
		store := NewStore(t.TempDir())

		path, _, err := store.Save("chart", "data:image/png;base64,"+encoded)
		require.NoError(t, err)

		written, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, pngBytes, written)
	})

	t.Run("空名称回退为chart", func(t *testing.T) {
		store := NewStore(t.TempDir())

		_, filename, err := store.Save("", encoded)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(filename, "chart_"))
	})

	t.Run("路径成分被剥离", func(t *testing.T) {
		dir := t.TempDir()
		store := NewStore(dir)

		path, filename, err := store.Save("../../etc/passwd", encoded)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(filename, "passwd_"))
		assert.Equal(t, dir, filepath.Dir(path))
	})

	t.Run("目录不存在时自动创建", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "charts")
		store := NewStore(dir)

		path, _, err := store.Save("chart", encoded)
		require.NoError(t, err)
		assert.FileExists(t, path)
	})

	t.Run("非法base64返回错误", func(t *testing.T) {
		store := NewStore(t.TempDir())

		_, _, err := store.Save("chart", "not base64 at all!!!")
		assert.Error(t, err)
	})
}
