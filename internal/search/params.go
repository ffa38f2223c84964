package search

import (
	"strings"
)

// MinPageSize 是 scrape 接口的最小页大小（官方建议 count >= 100）。
const MinPageSize = 100

// identifierField 是唯一且单调的排序键：作为最后一个排序键才能保证游标翻页不丢不重。
const identifierField = "identifier"

var (
	DefaultFields = []string{"identifier", "title", "mediatype", "date", "description", "downloads", "creator"}
	DefaultSorts  = []string{"date desc", "identifier asc"}
)

// Params 是一次会话的查询参数（query 变化必须通过 Session.Reset）。
type Params struct {
	Query  string
	Fields []string
	Sorts  []string
	Count  int
}

// QueryForUser 生成“某上传者的全部条目”查询。
func QueryForUser(user string) string {
	user = strings.TrimSpace(user)
	if user == "" {
		return ""
	}
	return "uploader:(" + user + ")"
}

// NormalizeParams 返回规范化后的参数副本：
// - fields 去空去重，且必须包含 identifier（去重依赖它）
// - sorts 末尾必须是 identifier
// - count 不低于 MinPageSize
func NormalizeParams(p Params) Params {
	out := Params{
		Query:  strings.TrimSpace(p.Query),
		Fields: NormalizeFields(p.Fields),
		Sorts:  NormalizeSorts(p.Sorts),
		Count:  p.Count,
	}
	if out.Count < MinPageSize {
		out.Count = MinPageSize
	}
	return out
}

func NormalizeFields(fields []string) []string {
	if len(fields) == 0 {
		fields = DefaultFields
	}
	seen := make(map[string]struct{}, len(fields)+1)
	out := make([]string, 0, len(fields)+1)
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	if _, ok := seen[identifierField]; !ok {
		out = append([]string{identifierField}, out...)
	}
	return out
}

// NormalizeSorts 规范化排序：每项为 "field asc|desc"（缺省方向补 asc），
// 最后一项不是 identifier 时追加 "identifier asc"。
func NormalizeSorts(sorts []string) []string {
	if len(sorts) == 0 {
		sorts = DefaultSorts
	}
	out := make([]string, 0, len(sorts)+1)
	for _, s := range sorts {
		parts := strings.Fields(s)
		if len(parts) == 0 {
			continue
		}
		dir := "asc"
		if len(parts) > 1 && strings.EqualFold(parts[1], "desc") {
			dir = "desc"
		}
		out = append(out, parts[0]+" "+dir)
	}
	if len(out) == 0 || !strings.HasPrefix(out[len(out)-1], identifierField+" ") {
		out = append(out, identifierField+" asc")
	}
	return out
}

// SplitList 把逗号分隔的字符串拆成去空白的列表。
func SplitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
