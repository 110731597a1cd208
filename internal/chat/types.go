package chat

import "tdagent/internal/mcp"

// ToolInvocation 一次工具调用的完整记录
type ToolInvocation struct {
	Tool      string          `json:"tool"`
	Arguments map[string]any  `json:"arguments"`
	Result    *mcp.ToolResult `json:"result"`
}

// ChatResult 一轮对话的最终产出
// 纯文本回答只有 Response，带工具调用的回答会附上完整执行轨迹
type ChatResult struct {
	Response             string            `json:"response"`
	MCPCall              *ToolInvocation   `json:"mcp_call,omitempty"`
	MCPResult            *mcp.ToolResult   `json:"mcp_result,omitempty"`
	AllToolCalls         []*ToolInvocation `json:"all_tool_calls,omitempty"`
	ToolResultForHistory string            `json:"tool_result_for_history,omitempty"`
	Error                string            `json:"error,omitempty"`
}
