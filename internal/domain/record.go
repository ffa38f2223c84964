package domain

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Record 是 scrape 接口返回的一条原始记录（字段集合由请求的 fields 决定）。
//
// IA 对多值字段（creator/description/subject 等）可能返回数组，
// 因此保留原始 JSON 结构，取值统一通过访问器扁平化。
type Record map[string]any

// strictPolicy 去掉全部标签，仅保留文本。Policy 构造成本较高，全局复用。
var strictPolicy = bluemonday.StrictPolicy()

func (r Record) Identifier() string { return strings.TrimSpace(r.str("identifier")) }

func (r Record) Title() string {
	if t := strings.TrimSpace(r.str("title")); t != "" {
		return t
	}
	return r.Identifier()
}

func (r Record) MediaType() string { return strings.TrimSpace(r.str("mediatype")) }

func (r Record) Creator() string { return strings.TrimSpace(r.str("creator")) }

// Date 只保留 YYYY-MM-DD 部分。
func (r Record) Date() string {
	d := strings.TrimSpace(r.str("date"))
	if len(d) > 10 {
		d = d[:10]
	}
	return d
}

// Description 返回去标签后的纯文本描述（IA 的 description 常含 HTML）。
func (r Record) Description() string {
	raw := r.str("description")
	if raw == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(raw)))
}

func (r Record) Downloads() int64 {
	switch v := r["downloads"].(type) {
	case float64:
		return int64(v)
	case string:
		n, _ := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n
	default:
		return 0
	}
}

// Field 返回任意字段的扁平化字符串值（不做 HTML 处理）。
func (r Record) Field(key string) string { return r.str(key) }

// str 把字符串/数字/数组统一转换成字符串；数组用换行拼接。
func (r Record) str(key string) string {
	return flatten(r[key])
}

func flatten(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case []any:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			if s := flatten(e); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n")
	default:
		return fmt.Sprint(x)
	}
}
