package httpx

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultTimeout   = 20 * time.Second
	defaultRetryMax  = 2
	defaultUserAgent = "iagallery/1.0 (+https://archive.org)"
)

// Transport 把“UA + 代理 + 按 host 限速 + 有界重试”固化为统一策略。
//
// 设计目标：archive/search 只负责“拼 URL + 解析 JSON”，不关心网络策略细节。
type Transport struct {
	Base http.RoundTripper

	// UserAgent 仅在请求未设置 UA 时使用。
	UserAgent string

	// RetryMax 表示最大重试次数（不含首次尝试）。例如 2 表示最多 3 次尝试。
	RetryMax int

	// Limiter 为 nil 时不限速。
	Limiter *HostLimiter
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}

	// 只对“可重放”的请求做重试：GET/HEAD 且无 body。
	noBody := req.Body == nil || req.Body == http.NoBody
	canRetry := (req.Method == http.MethodGet || req.Method == http.MethodHead) && noBody
	max := t.RetryMax
	if max < 0 {
		max = 0
	}
	if !canRetry {
		max = 0
	}

	var lastErr error
	for attempt := 0; attempt <= max; attempt++ {
		if t.Limiter != nil {
			if err := t.Limiter.Wait(req); err != nil {
				if lastErr != nil {
					return nil, lastErr
				}
				return nil, err
			}
		}

		r := cloneRequest(req)
		if r.Header.Get("User-Agent") == "" {
			ua := t.UserAgent
			if ua == "" {
				ua = defaultUserAgent
			}
			r.Header.Set("User-Agent", ua)
		}

		resp, err := t.Base.RoundTrip(r)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if req.Context().Err() != nil {
			// ctx 已取消：不再重试，直接返回最后错误（更可解释）。
			return nil, lastErr
		}
	}
	return nil, lastErr
}

func cloneRequest(req *http.Request) *http.Request {
	// Clone 会复制 Header 等，避免在 RoundTripper 内部“污染”调用方的 request。
	return req.Clone(req.Context())
}

// Options 描述 NewClient 的网络策略。
type Options struct {
	ProxyURL   string
	RatePerSec float64 // <=0 表示不限速
	Timeout    time.Duration
	UserAgent  string
}

// NewClient 构造访问 IA 的 HTTP client。
//
// 规则：
// - proxyURL 非空：必须走代理
// - 每个 host 独立限速（IA 对突发请求会返回 429）
// - 有界重试 + 总超时
func NewClient(opt Options) (*http.Client, error) {
	base := &http.Transport{
		Proxy:                 nil,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		MaxIdleConnsPerHost:   4,
	}

	proxyURL := strings.TrimSpace(opt.ProxyURL)
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, err
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, errors.New("proxy url 必须包含 scheme 与 host")
		}
		base.Proxy = http.ProxyURL(u)
	}

	var lim *HostLimiter
	if opt.RatePerSec > 0 {
		lim = NewHostLimiter(opt.RatePerSec)
	}

	timeout := opt.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	tr := &Transport{
		Base:      base,
		UserAgent: strings.TrimSpace(opt.UserAgent),
		RetryMax:  defaultRetryMax,
		Limiter:   lim,
	}
	return &http.Client{
		Transport: tr,
		Timeout:   timeout,
	}, nil
}

// HostLimiter 为每个 host 维护独立的令牌桶。
type HostLimiter struct {
	mu       sync.Mutex
	perSec   float64
	limiters map[string]*rate.Limiter
}

func NewHostLimiter(perSec float64) *HostLimiter {
	return &HostLimiter{
		perSec:   perSec,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait 阻塞直到该请求的 host 允许发出请求（或 ctx 结束）。
func (h *HostLimiter) Wait(req *http.Request) error {
	host := ""
	if req.URL != nil {
		host = strings.ToLower(req.URL.Host)
	}
	return h.get(host).Wait(req.Context())
}

func (h *HostLimiter) get(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.limiters[host]
	if !ok {
		burst := int(h.perSec)
		if burst < 1 {
			burst = 1
		}
		l = rate.NewLimiter(rate.Limit(h.perSec), burst)
		h.limiters[host] = l
	}
	return l
}
