package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// API 指标
var (
	// APIRequestsTotal API 请求总数
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tdagent_api_requests_total",
			Help: "API 请求总数",
		},
		[]string{"method", "path", "status"},
	)

	// APIRequestDuration API 请求延迟（秒）
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tdagent_api_request_duration_seconds",
			Help:    "API 请求延迟分布",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// APIRequestSize API 请求体大小（字节）
	APIRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tdagent_api_request_size_bytes",
			Help:    "API 请求体大小分布",
			Buckets: []float64{100, 1000, 10000, 100000, 1000000},
		},
		[]string{"method", "path"},
	)

	// APIResponseSize API 响应体大小（字节）
	APIResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tdagent_api_response_size_bytes",
			Help:    "API 响应体大小分布",
			Buckets: []float64{100, 1000, 10000, 100000, 1000000},
		},
		[]string{"method", "path"},
	)
)

// 对话编排指标
var (
	// ChatRequestsTotal 对话请求总数
	ChatRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tdagent_chat_requests_total",
			Help: "对话请求总数",
		},
		[]string{"mode", "status"}, // mode: sync, stream
	)

	// ChatIterations 单次请求消耗的循环轮数
	ChatIterations = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tdagent_chat_iterations",
			Help:    "单次对话请求消耗的编排轮数分布",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 8, 10},
		},
		[]string{"status"},
	)
)

// 工具执行指标
var (
	// ToolExecutionsTotal 工具执行总数
	ToolExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tdagent_tool_executions_total",
			Help: "MCP 工具执行总数",
		},
		[]string{"tool", "status"},
	)

	// ToolExecutionDuration 工具执行耗时（秒）
	ToolExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tdagent_tool_execution_duration_seconds",
			Help:    "MCP 工具执行耗时分布",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"tool"},
	)

	// CatalogRefreshTotal 工具目录刷新总数
	CatalogRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tdagent_catalog_refresh_total",
			Help: "工具目录刷新总数",
		},
		[]string{"status"},
	)

	// CatalogTools 当前缓存的工具数量
	CatalogTools = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tdagent_catalog_tools",
			Help: "当前缓存的工具数量",
		},
	)
)

// 模型调用指标
var (
	// ModelCallsTotal 模型调用总数
	ModelCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tdagent_model_calls_total",
			Help: "模型调用总数",
		},
		[]string{"provider", "phase", "status"}, // phase: loop, synthesis
	)

	// ModelCallDuration 模型调用耗时（秒）
	ModelCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tdagent_model_call_duration_seconds",
			Help:    "模型调用耗时分布",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"provider", "phase"},
	)
)
