package ledger

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMalformedResponse 表示 Horizon 返回了无法解析的内容。
	ErrMalformedResponse = errors.New("malformed horizon response")
)

// StatusError 为 Horizon 的非 2xx 响应，携带 problem+json 中的标题与详情。
type StatusError struct {
	StatusCode int
	Title      string
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("horizon %d %s: %s", e.StatusCode, e.Title, e.Detail)
	}
	return fmt.Sprintf("horizon %d %s", e.StatusCode, e.Title)
}

// Temporary 限流与服务端错误视为暂时性错误。
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// IsRetryable 判断错误是否可重试。
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}

	return false
}
