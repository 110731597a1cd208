package chat

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tdagent/internal/mcp"
)

func TestSummarizeResult(t *testing.T) {
	t.Run("短结果原样返回", func(t *testing.T) {
		result := &mcp.ToolResult{Content: []string{`{"version": "17.20"}`}}
		got := summarizeResult(result)
		assert.Equal(t, renderJSON(result), got)
		assert.Contains(t, got, "17.20")
	})

	t.Run("超长列表降级为条数摘要", func(t *testing.T) {
		items := make([]string, 7)
		for i := range items {
			items[i] = strings.Repeat("x", 1000)
		}
		payload, err := json.Marshal(items)
		require.NoError(t, err)

		result := &mcp.ToolResult{Content: []string{string(payload)}}
		assert.Equal(t, "The tool returned a list with 7 items.", summarizeResult(result))
	})

	t.Run("超长对象降级为键名摘要", func(t *testing.T) {
		var sb strings.Builder
		sb.WriteString("{")
		keys := []string{"k01", "k02", "k03", "k04", "k05", "k06", "k07", "k08", "k09", "k10", "k11", "k12"}
		for i, key := range keys {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString(`"` + key + `":"` + strings.Repeat("v", 500) + `"`)
		}
		sb.WriteString("}")

		result := &mcp.ToolResult{Content: []string{sb.String()}}
		want := "The tool returned data with keys: ['k01', 'k02', 'k03', 'k04', 'k05', 'k06', 'k07', 'k08', 'k09', 'k10']."
		assert.Equal(t, want, summarizeResult(result))
	})

	t.Run("超长非JSON内容返回兜底文案", func(t *testing.T) {
		result := &mcp.ToolResult{Content: []string{strings.Repeat("plain text ", 600)}}
		assert.Equal(t, "Result received (truncated).", summarizeResult(result))
	})

	t.Run("超长且首段JSON残缺返回兜底文案", func(t *testing.T) {
		result := &mcp.ToolResult{Content: []string{"[" + strings.Repeat(`"item",`, 1000)}}
		assert.Equal(t, "Result received (truncated).", summarizeResult(result))
	})
}

func TestJSONObjectKeys(t *testing.T) {
	t.Run("按文档顺序返回顶层键", func(t *testing.T) {
		keys, err := jsonObjectKeys(json.RawMessage(`{"z":1,"a":{"nested":true},"m":[1,2],"b":"s"}`))
		require.NoError(t, err)
		assert.Equal(t, []string{"z", "a", "m", "b"}, keys)
	})

	t.Run("空对象返回空切片", func(t *testing.T) {
		keys, err := jsonObjectKeys(json.RawMessage(`{}`))
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("非对象报错", func(t *testing.T) {
		_, err := jsonObjectKeys(json.RawMessage(`[1,2]`))
		assert.Error(t, err)
	})

	t.Run("非法JSON报错", func(t *testing.T) {
		_, err := jsonObjectKeys(json.RawMessage(`{"a":`))
		assert.Error(t, err)
	})
}

func TestFormatKeyList(t *testing.T) {
	assert.Equal(t, "[]", formatKeyList(nil))
	assert.Equal(t, "['a']", formatKeyList([]string{"a"}))
	assert.Equal(t, "['a', 'b', 'c']", formatKeyList([]string{"a", "b", "c"}))
}

func TestRenderJSON(t *testing.T) {
	t.Run("两空格缩进", func(t *testing.T) {
		got := renderJSON(map[string]any{"q": "x"})
		assert.Equal(t, "{\n  \"q\": \"x\"\n}", got)
	})

	t.Run("不转义HTML字符", func(t *testing.T) {
		got := renderJSON(map[string]any{"sql": "a < b && c > d"})
		assert.Contains(t, got, "a < b && c > d")
		assert.NotContains(t, got, `\u003c`)
	})

	t.Run("紧凑渲染单行无尾随换行", func(t *testing.T) {
		got := renderCompactJSON(map[string]any{"q": "x"})
		assert.Equal(t, `{"q":"x"}`, got)
	})
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", truncateRunes("abcdef", 3))
	assert.Equal(t, "abc", truncateRunes("abc", 3))
	assert.Equal(t, "abc", truncateRunes("abc", 10))
	assert.Equal(t, "数数数", truncateRunes(strings.Repeat("数", 10), 3))
	assert.Equal(t, "", truncateRunes("abc", 0))
}
