package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"tdagent/internal/mcp"
)

const (
	// 结果渲染后不超过该字符数时原样回灌给模型
	verbatimResultLimit = 5000
	// 超长结果降级为键名摘要时最多列出的键数
	keyPreviewLimit = 10
)

// summarizeResult 把工具结果压缩成适合回灌模型的文本
// 短结果原样返回，超长结果只报告形状（列表长度或对象键名）
func summarizeResult(result *mcp.ToolResult) string {
	rendered := renderJSON(result)
	if utf8.RuneCountInString(rendered) <= verbatimResultLimit {
		return rendered
	}

	if len(result.Content) > 0 {
		first := strings.TrimSpace(result.Content[0])
		switch {
		case strings.HasPrefix(first, "["):
			var items []json.RawMessage
			if err := json.Unmarshal([]byte(first), &items); err == nil {
				return fmt.Sprintf("The tool returned a list with %d items.", len(items))
			}
		case strings.HasPrefix(first, "{"):
			if keys, err := jsonObjectKeys(json.RawMessage(first)); err == nil {
				if len(keys) > keyPreviewLimit {
					keys = keys[:keyPreviewLimit]
				}
				return fmt.Sprintf("The tool returned data with keys: %s.", formatKeyList(keys))
			}
		}
	}

	return "Result received (truncated)."
}

// formatKeyList 渲染成 ['a', 'b'] 形式的键名清单
func formatKeyList(keys []string) string {
	quoted := make([]string, len(keys))
	for i, key := range keys {
		quoted[i] = "'" + key + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// jsonObjectKeys 按文档顺序返回 JSON 对象的顶层键
func jsonObjectKeys(raw json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("不是 JSON 对象")
	}

	var keys []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("对象键类型异常")
		}
		keys = append(keys, key)

		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// renderJSON 两空格缩进渲染，关闭 HTML 转义避免污染 SQL 等文本
func renderJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Sprintf("%v", v)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// renderCompactJSON 单行渲染，同样关闭 HTML 转义
func renderCompactJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprintf("%v", v)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// truncateRunes 按字符数截断，避免把多字节字符切碎
func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
