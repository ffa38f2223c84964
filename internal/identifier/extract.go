// Package identifier 从原始字符串或 archive.org 的 details URL 中提取 IA 标识符。
package identifier

import (
	"net/url"
	"regexp"
	"strings"
)

// IA 标识符：字母/数字开头，仅含字母、数字、'_'、'-'、'.'，长度上限 100。
var identRE = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,99}$`)

// InvalidError 表示无法提取出合法标识符。
type InvalidError struct {
	Input  string
	Reason string // "empty" / "not_details_url" / "bad_chars"
}

func (e *InvalidError) Error() string {
	switch e.Reason {
	case "empty":
		return "标识符为空"
	case "not_details_url":
		return "URL 中找不到 /details/<identifier>：" + e.Input
	default:
		return "不是合法的 IA 标识符：" + e.Input
	}
}

// Extract 接受裸标识符或 details URL（例如 https://archive.org/details/foo?x=1#y）。
// details URL 取 /details/ 之后的第一个路径段，并去掉 query/fragment。
func Extract(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", &InvalidError{Input: raw, Reason: "empty"}
	}

	if looksLikeURL(s) {
		id, ok := fromDetailsURL(s)
		if !ok {
			return "", &InvalidError{Input: raw, Reason: "not_details_url"}
		}
		s = id
	}

	if !identRE.MatchString(s) {
		return "", &InvalidError{Input: raw, Reason: "bad_chars"}
	}
	return s, nil
}

// Valid 只做校验（不做 URL 提取）。
func Valid(id string) bool { return identRE.MatchString(id) }

func looksLikeURL(s string) bool {
	low := strings.ToLower(s)
	return strings.HasPrefix(low, "http://") ||
		strings.HasPrefix(low, "https://") ||
		strings.HasPrefix(low, "//") ||
		strings.Contains(low, "/details/")
}

func fromDetailsURL(s string) (string, bool) {
	// 去掉 fragment/query（即使 url.Parse 失败也要能处理）。
	if i := strings.IndexAny(s, "#?"); i >= 0 {
		s = s[:i]
	}

	path := s
	if u, err := url.Parse(s); err == nil && u.Path != "" {
		path = u.Path
	}

	const marker = "/details/"
	i := strings.Index(path, marker)
	if i < 0 {
		return "", false
	}
	seg := path[i+len(marker):]
	if j := strings.IndexByte(seg, '/'); j >= 0 {
		seg = seg[:j]
	}
	if dec, err := url.PathUnescape(seg); err == nil {
		seg = dec
	}
	seg = strings.TrimSpace(seg)
	if seg == "" {
		return "", false
	}
	return seg, true
}
