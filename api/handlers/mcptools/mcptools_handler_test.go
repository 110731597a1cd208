package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tdagent/internal/logger"
	"tdagent/internal/mcp"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	_ = logger.Init("error", "console", "stdout")
	os.Exit(m.Run())
}

type fakeCatalog struct {
	tools []mcp.ToolDescriptor
	err   error
}

func (f *fakeCatalog) Refresh(context.Context) ([]mcp.ToolDescriptor, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tools, nil
}

func newRouter(catalog ToolCatalog) *gin.Engine {
	router := gin.New()
	handler := NewMCPToolsHandler(catalog)
	router.GET("/api/mcp/health", handler.Health)
	router.GET("/api/mcp/tools", handler.Tools)
	return router
}

func TestMCPHealth(t *testing.T) {
	t.Run("服务器可达返回工具数量", func(t *testing.T) {
		router := newRouter(&fakeCatalog{tools: []mcp.ToolDescriptor{
			{Name: "dba_databaseVersion"},
			{Name: "base_readQuery"},
		}})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/api/mcp/health", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status": "ok", "tools_count": 2}`, w.Body.String())
	})

	t.Run("服务器不可达返回500", func(t *testing.T) {
		router := newRouter(&fakeCatalog{err: errors.New("connect refused")})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/api/mcp/health", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"error": "connect refused"}`, w.Body.String())
	})
}

func TestMCPTools(t *testing.T) {
	t.Run("返回完整目录", func(t *testing.T) {
		router := newRouter(&fakeCatalog{tools: []mcp.ToolDescriptor{
			{
				Name:        "base_readQuery",
				Description: "Run a SQL query",
				InputSchema: json.RawMessage(`{"type":"object"}`),
			},
		}})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/api/mcp/tools", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp ToolsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Tools, 1)
		assert.Equal(t, "base_readQuery", resp.Tools[0].Name)
		assert.JSONEq(t, `{"type":"object"}`, string(resp.Tools[0].InputSchema))
	})

	t.Run("空目录返回空数组而非null", func(t *testing.T) {
		router := newRouter(&fakeCatalog{})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/api/mcp/tools", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"tools": []}`, w.Body.String())
	})

	t.Run("刷新失败返回500", func(t *testing.T) {
		router := newRouter(&fakeCatalog{err: errors.New("handshake timeout")})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/api/mcp/tools", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"error": "handshake timeout"}`, w.Body.String())
	})
}
