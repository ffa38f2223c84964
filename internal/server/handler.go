package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/John-Robertt/iagallery/internal/archive"
	"github.com/John-Robertt/iagallery/internal/domain"
	"github.com/John-Robertt/iagallery/internal/identifier"
	"github.com/John-Robertt/iagallery/internal/normalize"
)

type handler struct {
	resolver normalize.IdentifierResolver
	logger   *slog.Logger
}

// resolve 处理 GET /resolve?identifier=<id>[&type=<hint>]。
//
//   - 400：缺少/非法 identifier 或 type
//   - 502：metadata 获取或解析失败
//   - 200：成功（找不到可用文件时 directUrl 为空、fileType=other）
func (h *handler) resolve(c echo.Context) error {
	raw := strings.TrimSpace(c.QueryParam("identifier"))
	if raw == "" {
		return c.JSON(http.StatusBadRequest, failure("", domain.ErrCodeInvalidIdentifier, "Missing identifier"))
	}
	id, err := identifier.Extract(raw)
	if err != nil {
		return c.JSON(http.StatusBadRequest, failure(raw, domain.ErrCodeInvalidIdentifier, err.Error()))
	}
	hint, ok := domain.ParseMediaType(c.QueryParam("type"))
	if !ok {
		return c.JSON(http.StatusBadRequest, failure(id, domain.ErrCodeResolveFailed, "Invalid type (video|audio|image|other)"))
	}
	if h.resolver == nil {
		return c.JSON(http.StatusServiceUnavailable, failure(id, domain.ErrCodeResolveFailed, normalize.ErrResolverUnset.Error()))
	}

	it, err := h.resolver.ResolveIdentifier(c.Request().Context(), id, hint)
	if err != nil {
		code := domain.ErrCodeFetchFailed
		msg := "IA metadata request failed"
		switch {
		case errors.Is(err, archive.ErrMissingFields):
			code = domain.ErrCodeMissingFields
			msg = "No files/server/dir found on IA metadata"
		case archive.StatusCode(err) != 0:
			msg = "IA metadata " + (&archive.HTTPStatusError{StatusCode: archive.StatusCode(err)}).Error()
		}
		h.logger.WarnContext(c.Request().Context(), "resolve failed", "identifier", id, "error", err)
		return c.JSON(http.StatusBadGateway, failure(id, code, msg))
	}
	if it.Title == "" {
		it.Title = id
	}
	return c.JSON(http.StatusOK, normalize.WireResponse{OK: true, ResolvedItem: it})
}

func failure(id, code, msg string) normalize.WireResponse {
	it := errorItem(msg)
	it.Identifier = id
	it.ErrorCode = code
	it.Invalid = code == domain.ErrCodeInvalidIdentifier
	return normalize.WireResponse{OK: false, ResolvedItem: it}
}

func errorItem(msg string) domain.ResolvedItem {
	return domain.ResolvedItem{FileType: domain.MediaOther, Error: msg}
}
