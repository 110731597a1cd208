package common

// ErrorResponse 统一错误返回结构，字段名即前端消费的 error 键
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse 操作成功的通用返回结构
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
