package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tdagent/internal/chat"
	"tdagent/internal/logger"
	"tdagent/internal/mcp"
	"tdagent/internal/progress"
	"tdagent/pkg/llminterface"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	_ = logger.Init("error", "console", "stdout")
	os.Exit(m.Run())
}

// fakeEngine 按脚本上报进度并返回固定结果
type fakeEngine struct {
	result     *chat.ChatResult
	err        error
	reports    [][2]string
	gotMessage string
	gotHistory []llminterface.Message
}

func (f *fakeEngine) Process(_ context.Context, msg string, history []llminterface.Message, rep progress.Reporter) (*chat.ChatResult, error) {
	f.gotMessage = msg
	f.gotHistory = history
	if rep == nil {
		rep = progress.Discard()
	}
	for _, r := range f.reports {
		rep.Report(r[0], r[1])
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newChatRouter(engine ChatProcessor) *gin.Engine {
	router := gin.New()
	handler := NewChatHandler(engine)
	router.POST("/api/chat", handler.Chat)
	router.POST("/api/chat/stream", handler.ChatStream)
	return router
}

func chatBody(t *testing.T, message string, history []llminterface.Message) *bytes.Reader {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"message": message, "history": history})
	require.NoError(t, err)
	return bytes.NewReader(raw)
}

func TestChatHandler(t *testing.T) {
	t.Run("成功返回完整结果", func(t *testing.T) {
		engine := &fakeEngine{
			result: &chat.ChatResult{
				Response: "You are running Teradata 17.20.",
				MCPCall: &chat.ToolInvocation{
					Tool:      "dba_databaseVersion",
					Arguments: map[string]any{},
					Result:    &mcp.ToolResult{Content: []string{`{"version": "17.20"}`}},
				},
			},
		}
		router := newChatRouter(engine)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/api/chat", chatBody(t, "version?", []llminterface.Message{
			{Role: llminterface.RoleUser, Content: "earlier"},
		}))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "version?", engine.gotMessage)
		require.Len(t, engine.gotHistory, 1)

		var resp chat.ChatResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "You are running Teradata 17.20.", resp.Response)
		assert.Equal(t, "dba_databaseVersion", resp.MCPCall.Tool)
	})

	t.Run("引擎错误返回500", func(t *testing.T) {
		engine := &fakeEngine{err: errors.New("model backend down")}
		router := newChatRouter(engine)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/api/chat", chatBody(t, "hi", nil))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "model backend down", resp["error"])
	})

	t.Run("缺少message返回400", func(t *testing.T) {
		router := newChatRouter(&fakeEngine{})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"history": []}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

// readFrames 把 SSE 响应体拆成 data 帧
func readFrames(t *testing.T, body string) []string {
	t.Helper()
	var frames []string
	for _, block := range strings.Split(body, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		require.True(t, strings.HasPrefix(block, "data: "), "非法帧: %q", block)
		frames = append(frames, strings.TrimPrefix(block, "data: "))
	}
	return frames
}

func TestChatStreamHandler(t *testing.T) {
	t.Run("帧顺序为进度、结果、哨兵", func(t *testing.T) {
		engine := &fakeEngine{
			reports: [][2]string{
				{progress.StatusConnecting, "Fetching available tools..."},
				{progress.StatusThinking, "Step 1: Analyzing request..."},
				{progress.StatusExecuting, "Running: dba_databaseVersion"},
				{progress.StatusSummarizing, "Generating summary for 1 operations..."},
			},
			result: &chat.ChatResult{Response: "All done."},
		}
		server := httptest.NewServer(newChatRouter(engine))
		defer server.Close()

		resp, err := http.Post(server.URL+"/api/chat/stream", "application/json",
			chatBody(t, "version?", nil))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
		assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))

		var raw bytes.Buffer
		_, err = raw.ReadFrom(resp.Body)
		require.NoError(t, err)

		frames := readFrames(t, raw.String())
		require.Len(t, frames, 6)

		wantProgress := []progressData{
			{Status: "connecting", Detail: "Fetching available tools..."},
			{Status: "thinking", Detail: "Step 1: Analyzing request..."},
			{Status: "executing", Detail: "Running: dba_databaseVersion"},
			{Status: "summarizing", Detail: "Generating summary for 1 operations..."},
		}
		for i, want := range wantProgress {
			var frame struct {
				Type string       `json:"type"`
				Data progressData `json:"data"`
			}
			require.NoError(t, json.Unmarshal([]byte(frames[i]), &frame))
			assert.Equal(t, "progress", frame.Type)
			assert.Equal(t, want, frame.Data)
		}

		var result struct {
			Type string          `json:"type"`
			Data chat.ChatResult `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(frames[4]), &result))
		assert.Equal(t, "result", result.Type)
		assert.Equal(t, "All done.", result.Data.Response)

		assert.Equal(t, "[DONE]", frames[5])
	})

	t.Run("引擎错误输出error帧和哨兵", func(t *testing.T) {
		engine := &fakeEngine{
			reports: [][2]string{{progress.StatusConnecting, "Fetching available tools..."}},
			err:     errors.New("tool execution blew up"),
		}
		server := httptest.NewServer(newChatRouter(engine))
		defer server.Close()

		resp, err := http.Post(server.URL+"/api/chat/stream", "application/json",
			chatBody(t, "hi", nil))
		require.NoError(t, err)
		defer resp.Body.Close()

		var raw bytes.Buffer
		_, err = raw.ReadFrom(resp.Body)
		require.NoError(t, err)

		frames := readFrames(t, raw.String())
		require.Len(t, frames, 3)

		var errFrame struct {
			Type string            `json:"type"`
			Data map[string]string `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(frames[1]), &errFrame))
		assert.Equal(t, "error", errFrame.Type)
		assert.Equal(t, "tool execution blew up", errFrame.Data["error"])

		assert.Equal(t, "[DONE]", frames[2])
	})

	t.Run("非法请求体直接400", func(t *testing.T) {
		server := httptest.NewServer(newChatRouter(&fakeEngine{}))
		defer server.Close()

		resp, err := http.Post(server.URL+"/api/chat/stream", "application/json",
			strings.NewReader(`{broken`))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
