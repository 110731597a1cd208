package chat

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// 模型偶尔会把标签敲成 m_cp_call 或 m-cp_call，白名单固定收录这三种写法，
// 其余任何变体一律不当作指令
var directiveTags = map[string]struct{}{
	"mcp_call":  {},
	"m_cp_call": {},
	"m-cp_call": {},
}

// 通用代码栅栏：``` 后紧跟的非空白串是标签，标签必须与白名单精确匹配
var fencePattern = regexp.MustCompile("(?s)```([^`\\s]+)\\s*(.*?)\\s*```")

// directive 模型回复里解析出的工具调用指令
type directive struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
}

// scanDirective 按出现顺序扫描所有代码栅栏，返回第一个白名单标签块的正文
func scanDirective(response string) (string, bool) {
	for _, match := range fencePattern.FindAllStringSubmatch(response, -1) {
		if _, ok := directiveTags[match[1]]; ok {
			return match[2], true
		}
	}
	return "", false
}

// parseDirective 解析指令正文，缺省 arguments 补为空对象
func parseDirective(body string) (*directive, error) {
	var d directive
	if err := json.Unmarshal([]byte(body), &d); err != nil {
		return nil, fmt.Errorf("解析工具调用指令失败: %w", err)
	}
	if d.Arguments == nil {
		d.Arguments = map[string]any{}
	}
	return &d, nil
}

// renderDirectiveBlock 把指令重新渲染成规范栅栏块写回会话历史
func renderDirectiveBlock(d *directive) string {
	return "```mcp_call\n" + renderCompactJSON(d) + "\n```"
}
