package normalize

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/John-Robertt/iagallery/internal/archive"
	"github.com/John-Robertt/iagallery/internal/domain"
	"github.com/John-Robertt/iagallery/internal/identifier"
)

var (
	// ErrResolverUnset 表示需要解析 identifier 但没有可用的 resolver（整批中止）。
	ErrResolverUnset = errors.New("resolver 未配置")
	// ErrInvalidIdentifier 表示来源条目无法提取合法的 identifier。
	ErrInvalidIdentifier = errors.New("identifier 无效")
)

type Stage string

const (
	StageParse   Stage = "parse"
	StageFetch   Stage = "fetch"
	StageResolve Stage = "resolve"
)

// Error 是单个条目在某一阶段的失败。
type Error struct {
	Stage      Stage
	Identifier string
	Err        error
}

func (e *Error) Error() string {
	if e.Identifier == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Identifier, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// errorCode 把错误映射为条目上的稳定错误码。
func errorCode(err error) string {
	var inv *identifier.InvalidError
	switch {
	case errors.As(err, &inv), errors.Is(err, ErrInvalidIdentifier):
		return domain.ErrCodeInvalidIdentifier
	case errors.Is(err, archive.ErrMissingFields):
		return domain.ErrCodeMissingFields
	}
	var ne *Error
	if errors.As(err, &ne) && ne.Stage == StageFetch {
		return domain.ErrCodeFetchFailed
	}
	return domain.ErrCodeResolveFailed
}

// humanize 生成给最终用户看的错误描述（条目 description 中展示）。
func humanize(err error) string {
	if err == nil {
		return ""
	}
	var inv *identifier.InvalidError
	if errors.As(err, &inv) {
		return fmt.Sprintf("无效的 identifier：%q", inv.Input)
	}
	if errors.Is(err, ErrResolverUnset) {
		return "resolver 未配置，无法解析 identifier"
	}
	if errors.Is(err, archive.ErrMissingFields) {
		return "metadata 缺少 server/dir/files，无法生成直链"
	}
	switch archive.StatusCode(err) {
	case 0:
	case 403:
		return "访问被拒绝（HTTP 403），条目可能受限或已下架"
	case 404:
		return "条目不存在（HTTP 404）"
	case 429:
		return "请求过于频繁（HTTP 429），请稍后重试"
	default:
		return fmt.Sprintf("请求失败（HTTP %d）", archive.StatusCode(err))
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "请求超时"
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return "请求超时"
	}
	var ne *Error
	if errors.As(err, &ne) {
		return ne.Err.Error()
	}
	return err.Error()
}
