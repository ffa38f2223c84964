package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/John-Robertt/iagallery/internal/archive"
	"github.com/John-Robertt/iagallery/internal/infra/cache"
	"github.com/John-Robertt/iagallery/internal/search"
)

// FileName 是默认配置文件名（位于工作目录）。
const FileName = "iagallery.json"

const (
	// ErrCodeNotFound 表示 --config 指定的文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
	// ErrCodeMissingQuery 表示 search 需要 query，但 CLI 与配置文件都未提供 query/user。
	ErrCodeMissingQuery = "config_missing_query"
)

const (
	DefaultConcurrency = 1
	MaxConcurrency     = 16
	DefaultListen      = ":8787"
	DefaultRatePerSec  = 4.0
)

// CLIArgs 是 CLI 可覆盖的字段，并保留“是否显式指定”的信息。
// 这能保证覆盖优先级可实现：例如 --concurrency=1 必须能覆盖 config.concurrency=8。
type CLIArgs struct {
	// ConfigPath 非空时必须存在；为空时尝试读取 <cwd>/iagallery.json（可选）。
	ConfigPath string

	Query    string
	QuerySet bool

	User    string
	UserSet bool

	Fields    []string
	FieldsSet bool

	Sorts    []string
	SortsSet bool

	Count    int
	CountSet bool

	Concurrency    int
	ConcurrencySet bool

	ProxyURL    string
	ProxyURLSet bool

	ResolverURL    string
	ResolverURLSet bool

	Listen    string
	ListenSet bool
}

// FileConfig 对应 iagallery.json 的解析结构。
type FileConfig struct {
	Query           string       `json:"query"`
	User            string       `json:"user"`
	Fields          []string     `json:"fields"`
	Sorts           []string     `json:"sorts"`
	Count           int          `json:"count"`
	Concurrency     int          `json:"concurrency"`
	Proxy           *ProxyConfig `json:"proxy"`
	ResolverURL     string       `json:"resolver_url"`
	Listen          string       `json:"listen"`
	RatePerSec      float64      `json:"rate_per_sec"`
	CacheSize       int          `json:"cache_size"`
	CacheTTLSeconds int          `json:"cache_ttl_seconds"`
	SearchEndpoint  string       `json:"search_endpoint"`
	MetadataBaseURL string       `json:"metadata_base_url"`
}

type ProxyConfig struct {
	URL string `json:"url"`
}

// EffectiveConfig 是合并并规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	// ConfigPath 是实际读取的配置文件；未读取任何文件时为空。
	ConfigPath string

	// Search 已经过 search.NormalizeParams（count 下限、identifier 排序兜底）。
	Search search.Params

	Concurrency int
	ProxyURL    string
	ResolverURL string
	Listen      string

	// RatePerSec 是每个 host 的请求速率上限；0 表示不限速。
	RatePerSec float64

	CacheSize int
	CacheTTL  time.Duration

	SearchEndpoint  string
	MetadataBaseURL string
}

// RequireQuery 在没有可用 query 时返回 config_missing_query。
func (e EffectiveConfig) RequireQuery() error {
	if strings.TrimSpace(e.Search.Query) == "" {
		return &Error{Code: ErrCodeMissingQuery, Path: e.ConfigPath}
	}
	return nil
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeMissingQuery:
		return fmt.Sprintf("%s：未提供 query 或 user（--query/--user 或配置文件）", e.Code)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供 --config：必须存在
// 2) 否则尝试读取 <cwd>/iagallery.json（可选）
//
// 覆盖优先级（固定）：
// - CLI 暴露的字段：CLI 显式指定 > config > 默认
// - query：query > user（生成 uploader:(user)）
// - 其他字段：仅由 config 控制
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	var (
		cfgPath string
		fc      FileConfig
		exists  bool
	)
	if strings.TrimSpace(cli.ConfigPath) != "" {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigPath)
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		if !exists {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
	} else {
		cfgPath = filepath.Join(cwdAbs, FileName)
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
	}
	if !exists {
		cfgPath = ""
	}
	return merge(cli, fc, cfgPath)
}

func merge(cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	invalid := func(format string, a ...any) error {
		return &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf(format, a...)}
	}

	query := pickString(cli.Query, cli.QuerySet, fc.Query)
	if query == "" {
		query = search.QueryForUser(pickString(cli.User, cli.UserSet, fc.User))
	}

	fields := fc.Fields
	if cli.FieldsSet {
		fields = cli.Fields
	}
	sorts := fc.Sorts
	if cli.SortsSet {
		sorts = cli.Sorts
	}
	count := fc.Count
	if cli.CountSet {
		count = cli.Count
	}
	if count < 0 {
		return EffectiveConfig{}, invalid("count 不能为负数：%d", count)
	}

	concurrency := fc.Concurrency
	if cli.ConcurrencySet {
		concurrency = cli.Concurrency
	}
	if concurrency == 0 {
		concurrency = DefaultConcurrency
	}
	// 范围 [1, 16]；超出截断。
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > MaxConcurrency {
		concurrency = MaxConcurrency
	}

	proxyURL := ""
	if fc.Proxy != nil {
		proxyURL = strings.TrimSpace(fc.Proxy.URL)
	}
	if cli.ProxyURLSet {
		proxyURL = strings.TrimSpace(cli.ProxyURL)
	}
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return EffectiveConfig{}, invalid("proxy.url 无效：%q", proxyURL)
		}
	}

	resolverURL := pickString(cli.ResolverURL, cli.ResolverURLSet, fc.ResolverURL)
	if err := validateHTTPURL("resolver_url", resolverURL); err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	listen := pickString(cli.Listen, cli.ListenSet, fc.Listen)
	if listen == "" {
		listen = DefaultListen
	}

	// rate_per_sec：缺省/0 使用默认值；负数表示不限速。
	rate := fc.RatePerSec
	switch {
	case rate == 0:
		rate = DefaultRatePerSec
	case rate < 0:
		rate = 0
	}

	if fc.CacheSize < 0 || fc.CacheTTLSeconds < 0 {
		return EffectiveConfig{}, invalid("cache_size/cache_ttl_seconds 不能为负数")
	}
	cacheSize := fc.CacheSize
	if cacheSize == 0 {
		cacheSize = cache.DefaultSize
	}
	cacheTTL := time.Duration(fc.CacheTTLSeconds) * time.Second
	if cacheTTL == 0 {
		cacheTTL = cache.DefaultTTL
	}

	searchEndpoint := strings.TrimSpace(fc.SearchEndpoint)
	if searchEndpoint == "" {
		searchEndpoint = archive.DefaultScrapeEndpoint
	}
	if err := validateHTTPURL("search_endpoint", searchEndpoint); err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	metadataBase := strings.TrimRight(strings.TrimSpace(fc.MetadataBaseURL), "/")
	if metadataBase == "" {
		metadataBase = archive.DefaultMetadataBase
	}
	if err := validateHTTPURL("metadata_base_url", metadataBase); err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	return EffectiveConfig{
		ConfigPath: cfgPath,
		Search: search.NormalizeParams(search.Params{
			Query:  query,
			Fields: append([]string(nil), fields...),
			Sorts:  append([]string(nil), sorts...),
			Count:  count,
		}),
		Concurrency:     concurrency,
		ProxyURL:        proxyURL,
		ResolverURL:     resolverURL,
		Listen:          listen,
		RatePerSec:      rate,
		CacheSize:       cacheSize,
		CacheTTL:        cacheTTL,
		SearchEndpoint:  searchEndpoint,
		MetadataBaseURL: metadataBase,
	}, nil
}

func pickString(cliVal string, cliSet bool, fileVal string) string {
	if cliSet {
		return strings.TrimSpace(cliVal)
	}
	return strings.TrimSpace(fileVal)
}

func validateHTTPURL(field, raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s 无效：%q", field, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s 必须是 http/https：%q", field, raw)
	}
	return nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 JSON 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := json.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
