package normalize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/John-Robertt/iagallery/internal/archive"
	"github.com/John-Robertt/iagallery/internal/domain"
	"github.com/John-Robertt/iagallery/internal/infra/cache"
	"github.com/John-Robertt/iagallery/internal/metrics"
	"github.com/John-Robertt/iagallery/internal/resolver"
)

// IdentifierResolver 把一个合法的 identifier 解析为派生字段（未应用覆盖）。
//
// 约定：
// - 找不到可用文件不是错误：返回 DirectURL 为空、FileType=other 的条目
// - 返回的 error 应为 *Error（便于错误码归类）
type IdentifierResolver interface {
	ResolveIdentifier(ctx context.Context, id string, hint domain.MediaType) (domain.ResolvedItem, error)
}

// MetadataFetcher 获取条目 metadata；*archive.Client 满足该接口。
type MetadataFetcher interface {
	Metadata(ctx context.Context, id string) (archive.Metadata, error)
}

// LocalResolver 在进程内完成解析：metadata（经缓存）+ 文件评分。
type LocalResolver struct {
	Fetcher MetadataFetcher
	Cache   *cache.Store
	// AVOnly 为 true 时不回退到 other 类型文件。
	AVOnly bool
	Logger *slog.Logger
}

func (r *LocalResolver) ResolveIdentifier(ctx context.Context, id string, hint domain.MediaType) (domain.ResolvedItem, error) {
	if r == nil || r.Fetcher == nil {
		return domain.ResolvedItem{}, ErrResolverUnset
	}
	start := time.Now()
	defer func() { metrics.ResolveDuration.Observe(time.Since(start).Seconds()) }()

	meta, err := r.metadata(ctx, id)
	if err != nil {
		metrics.ResolveTotal.WithLabelValues("error").Inc()
		return domain.ResolvedItem{}, &Error{Stage: StageFetch, Identifier: id, Err: err}
	}

	it := FromMetadata(meta, resolver.Options{Hint: hint, AVOnly: r.AVOnly})
	if it.DirectURL == "" {
		metrics.ResolveTotal.WithLabelValues("empty").Inc()
	} else {
		metrics.ResolveTotal.WithLabelValues("ok").Inc()
	}
	r.logger().Debug("解析完成", "identifier", id, "file", it.FileName, "type", it.FileType)
	return it, nil
}

func (r *LocalResolver) metadata(ctx context.Context, id string) (archive.Metadata, error) {
	if m, ok := r.Cache.Get(id); ok {
		metrics.MetadataCacheTotal.WithLabelValues("hit").Inc()
		return m, nil
	}
	metrics.MetadataCacheTotal.WithLabelValues("miss").Inc()
	m, err := r.Fetcher.Metadata(ctx, id)
	if err != nil {
		return archive.Metadata{}, err
	}
	r.Cache.Put(id, m)
	return m, nil
}

func (r *LocalResolver) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// FromMetadata 对 metadata 的文件列表评分并组装派生字段。
func FromMetadata(meta archive.Metadata, opt resolver.Options) domain.ResolvedItem {
	it := domain.ResolvedItem{
		Identifier:  meta.Identifier,
		Title:       meta.Title,
		Description: meta.Description,
		DetailsURL:  archive.DetailsURL(meta.Identifier),
		ThumbURL:    archive.ThumbURL(meta.Identifier),
		EmbedURL:    archive.EmbedURL(meta.Identifier),
		FileType:    domain.MediaOther,
	}
	c, ok := resolver.ResolveWith(meta.Files, opt)
	if !ok {
		return it
	}
	it.DirectURL = archive.DirectURL(meta.Server, meta.Dir, c.File.Name)
	it.FileName = c.File.Name
	it.FileExt = c.File.Extension
	it.FileType = c.Type
	it.SizeBytes = c.File.Size
	return it
}

// WireResponse 是 resolver 服务的 JSON 契约（服务端与 RemoteResolver 共用）。
type WireResponse struct {
	OK bool `json:"ok"`
	domain.ResolvedItem
}

// RemoteResolver 通过 HTTP 调用 resolver 服务。
type RemoteResolver struct {
	// Endpoint 形如 https://host/resolve；为空视为未配置。
	Endpoint string
	HTTP     archive.Doer
}

// Ready 在 Endpoint 未配置时返回 ErrResolverUnset。
func (r *RemoteResolver) Ready() error {
	if r == nil || strings.TrimSpace(r.Endpoint) == "" || r.HTTP == nil {
		return ErrResolverUnset
	}
	return nil
}

func (r *RemoteResolver) ResolveIdentifier(ctx context.Context, id string, hint domain.MediaType) (domain.ResolvedItem, error) {
	if err := r.Ready(); err != nil {
		return domain.ResolvedItem{}, err
	}
	u, err := url.Parse(strings.TrimSpace(r.Endpoint))
	if err != nil {
		return domain.ResolvedItem{}, fmt.Errorf("%w: %v", ErrResolverUnset, err)
	}
	q := u.Query()
	q.Set("identifier", id)
	if hint != "" {
		q.Set("type", string(hint))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return domain.ResolvedItem{}, &Error{Stage: StageResolve, Identifier: id, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.HTTP.Do(req)
	if err != nil {
		return domain.ResolvedItem{}, &Error{Stage: StageFetch, Identifier: id, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.ResolvedItem{}, &Error{Stage: StageFetch, Identifier: id, Err: err}
	}

	var wr WireResponse
	decodeErr := json.Unmarshal(body, &wr)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e error = &archive.HTTPStatusError{URL: u.String(), StatusCode: resp.StatusCode}
		if decodeErr == nil && wr.Error != "" {
			e = fmt.Errorf("%w: %s", e, wr.Error)
		}
		return domain.ResolvedItem{}, &Error{Stage: StageResolve, Identifier: id, Err: e}
	}
	if decodeErr != nil {
		return domain.ResolvedItem{}, &Error{Stage: StageResolve, Identifier: id, Err: decodeErr}
	}
	if !wr.OK {
		msg := wr.Error
		if msg == "" {
			msg = "resolver 返回 ok=false"
		}
		return domain.ResolvedItem{}, &Error{Stage: StageResolve, Identifier: id, Err: errors.New(msg)}
	}

	it := wr.ResolvedItem
	if it.Identifier == "" {
		it.Identifier = id
	}
	if it.FileType == "" {
		it.FileType = domain.MediaOther
	}
	it.Invalid, it.ErrorCode, it.Error = false, "", ""
	return it, nil
}
