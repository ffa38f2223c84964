// Package archive 封装对 Internet Archive 只读接口（metadata / scrape）的访问。
//
// 约束：
// - 只读：不做任何写操作
// - 不做缓存、不做重试、不做限速（由 infra/httpx 与 infra/cache 统一实现）
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Doer 是发起 HTTP 请求的最小能力（*http.Client 满足）。
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client 访问 metadata 与 scrape 两个端点。
type Client struct {
	HTTP Doer

	// MetadataBase 默认 https://archive.org/metadata。
	MetadataBase string
	// ScrapeEndpoint 默认 https://archive.org/services/search/v1/scrape。
	ScrapeEndpoint string
}

// New 构造 Client；空字符串参数使用默认端点。
func New(c Doer, metadataBase, scrapeEndpoint string) *Client {
	return &Client{
		HTTP:           c,
		MetadataBase:   metadataBase,
		ScrapeEndpoint: scrapeEndpoint,
	}
}

func (c *Client) metadataBase() string {
	if s := strings.TrimSpace(c.MetadataBase); s != "" {
		return strings.TrimRight(s, "/")
	}
	return DefaultMetadataBase
}

func (c *Client) scrapeEndpoint() string {
	if s := strings.TrimSpace(c.ScrapeEndpoint); s != "" {
		return s
	}
	return DefaultScrapeEndpoint
}

// getJSON 发起 GET 并把 2xx 响应体解码到 v；非 2xx 返回 *HTTPStatusError。
func getJSON(ctx context.Context, c Doer, u string, v any) error {
	if c == nil {
		return errors.New("http client 不能为空")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// 读掉少量响应体，便于连接复用。
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return &HTTPStatusError{URL: u, StatusCode: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("解析 JSON 失败：%w", err)
	}
	return nil
}
