// Package normalize 把来源条目（identifier 或直链）规范化为统一的 ResolvedItem。
//
// 约束：
// - 规范化永不向外抛错：失败以条目内字段（Invalid/ErrorCode/Error）携带
// - 显式覆盖字段逐字段优先于派生值
// - 非法 identifier 不发起任何网络请求
package normalize

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/John-Robertt/iagallery/internal/archive"
	"github.com/John-Robertt/iagallery/internal/domain"
	"github.com/John-Robertt/iagallery/internal/identifier"
	"github.com/John-Robertt/iagallery/internal/resolver"
)

type Normalizer struct {
	Resolver IdentifierResolver
	Logger   *slog.Logger
}

func New(r IdentifierResolver, logger *slog.Logger) *Normalizer {
	return &Normalizer{Resolver: r, Logger: logger}
}

// Ready 检查是否具备解析 identifier 的能力。
func (n *Normalizer) Ready() error {
	if n == nil || n.Resolver == nil {
		return ErrResolverUnset
	}
	if r, ok := n.Resolver.(interface{ Ready() error }); ok {
		return r.Ready()
	}
	return nil
}

// Normalize 规范化单个来源条目。
func (n *Normalizer) Normalize(ctx context.Context, src domain.SourceItem) domain.ResolvedItem {
	if src.IsDirect() {
		return applyOverrides(fromDirectURL(src.DirectURL), src.Overrides)
	}

	id, err := identifier.Extract(src.Identifier)
	if err != nil {
		it := failed(strings.TrimSpace(src.Identifier), &Error{Stage: StageParse, Identifier: src.Identifier, Err: err})
		it.Invalid = true
		return applyOverrides(it, src.Overrides)
	}

	if err := n.Ready(); err != nil {
		return applyOverrides(failed(id, err), src.Overrides)
	}

	hint, _ := domain.ParseMediaType(string(src.Type))
	it, err := n.Resolver.ResolveIdentifier(ctx, id, hint)
	if err != nil {
		n.logger().Warn("解析失败", "identifier", id, "error", err)
		return applyOverrides(failed(id, err), src.Overrides)
	}
	if it.Title == "" {
		it.Title = id
	}
	return applyOverrides(it, src.Overrides)
}

func (n *Normalizer) logger() *slog.Logger {
	if n.Logger != nil {
		return n.Logger
	}
	return slog.Default()
}

// failed 生成失败条目：无直链、类型 other、description 为可读错误。
func failed(id string, err error) domain.ResolvedItem {
	msg := humanize(err)
	it := domain.ResolvedItem{
		Identifier:  id,
		Title:       id,
		Description: msg,
		FileType:    domain.MediaOther,
		ErrorCode:   errorCode(err),
		Error:       msg,
	}
	if id != "" && identifier.Valid(id) {
		it.DetailsURL = archive.DetailsURL(id)
		it.ThumbURL = archive.ThumbURL(id)
	}
	return it
}

func fromDirectURL(raw string) domain.ResolvedItem {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		if err == nil {
			err = errors.New("仅支持 http/https 绝对 URL")
		}
		msg := "无效的直链 URL：" + err.Error()
		return domain.ResolvedItem{
			Title:       raw,
			Description: msg,
			FileType:    domain.MediaOther,
			Invalid:     true,
			ErrorCode:   domain.ErrCodeInvalidURL,
			Error:       msg,
		}
	}

	name := path.Base(u.EscapedPath())
	if name == "/" || name == "." {
		name = ""
	}
	if un, err := url.PathUnescape(name); err == nil {
		name = un
	}
	ext := domain.ExtOf(name)

	title := name
	if title == "" {
		title = u.Host
	}
	return domain.ResolvedItem{
		Title:      title,
		DetailsURL: raw,
		DirectURL:  raw,
		FileName:   name,
		FileExt:    ext,
		FileType:   resolver.Classify(ext),
	}
}

// applyOverrides 逐字段应用显式覆盖。
// 失败条目没有文件，类型覆盖不生效（保持 other）。
func applyOverrides(it domain.ResolvedItem, o domain.Overrides) domain.ResolvedItem {
	if v := strings.TrimSpace(o.Title); v != "" {
		it.Title = v
	}
	if v := strings.TrimSpace(o.Description); v != "" {
		it.Description = v
	}
	if v := strings.TrimSpace(o.ThumbURL); v != "" {
		it.ThumbURL = v
	}
	if v := strings.TrimSpace(o.DetailsURL); v != "" {
		it.DetailsURL = v
	}
	if !it.Failed() {
		if mt, ok := domain.ParseMediaType(string(o.Type)); ok && mt != "" {
			it.FileType = mt
		}
	}
	return it
}
