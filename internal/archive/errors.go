package archive

import (
	"errors"
	"fmt"
)

// ErrMissingFields 表示 metadata 响应缺少 server/dir/files（或条目不存在：IA 对不存在的条目返回 {}）。
var ErrMissingFields = errors.New("metadata 缺少 server/dir/files")

// HTTPStatusError 表示 IA 返回了非 2xx 的 HTTP 状态码。
// 上层据此生成更可操作的提示（例如 429 限流）。
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// StatusCode 从 error 链中提取 HTTP 状态码；不是 *HTTPStatusError 时返回 0。
func StatusCode(err error) int {
	var hs *HTTPStatusError
	if errors.As(err, &hs) {
		return hs.StatusCode
	}
	return 0
}
