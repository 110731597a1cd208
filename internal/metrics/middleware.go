package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// PrometheusMiddleware Prometheus 指标收集中间件
// 记录所有 HTTP 请求的 QPS、延迟与请求/响应大小
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 跳过 /metrics 端点，避免自我监控
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		requestSize := c.Request.ContentLength

		c.Next()

		// 路径使用路由模板而非实际路径，避免标签基数爆炸
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		APIRequestsTotal.WithLabelValues(method, path, status).Inc()
		APIRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		if requestSize > 0 {
			APIRequestSize.WithLabelValues(method, path).Observe(float64(requestSize))
		}
		if respSize := c.Writer.Size(); respSize >= 0 {
			APIResponseSize.WithLabelValues(method, path).Observe(float64(respSize))
		}
	}
}
