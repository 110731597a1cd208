package charts

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	response "tdagent/api/handlers/common"
	"tdagent/internal/logger"
)

// ChartStore 图表落盘入口，由 *charts.Store 实现
type ChartStore interface {
	Save(name, encoded string) (path, filename string, err error)
}

// ChartsHandler 图表保存 Handler
type ChartsHandler struct {
	store ChartStore
}

// NewChartsHandler 创建 ChartsHandler 实例
func NewChartsHandler(store ChartStore) *ChartsHandler {
	return &ChartsHandler{store: store}
}

// SaveChartRequest 图表保存请求
// Image 为 base64 编码的 PNG，允许携带 data URL 前缀
type SaveChartRequest struct {
	Image string `json:"image" binding:"required"`
	Name  string `json:"name"`
}

// SaveChartResponse 图表保存结果
type SaveChartResponse struct {
	Status   string `json:"status"`
	Path     string `json:"path"`
	Filename string `json:"filename"`
}

// Save 保存前端渲染好的图表
// @Summary 保存图表文件
// @Tags Charts
// @Accept json
// @Produce json
// @Param request body SaveChartRequest true "图表数据"
// @Success 200 {object} SaveChartResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/chart/save [post]
func (h *ChartsHandler) Save(c *gin.Context) {
	var req SaveChartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: "请求参数错误: " + err.Error()})
		return
	}

	path, filename, err := h.store.Save(req.Name, req.Image)
	if err != nil {
		logger.Error("保存图表失败", zap.String("name", req.Name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Error: err.Error()})
		return
	}

	logger.Info("图表已保存", zap.String("filename", filename))
	c.JSON(http.StatusOK, SaveChartResponse{Status: "ok", Path: path, Filename: filename})
}
