package search

import (
	"strings"

	"github.com/John-Robertt/iagallery/internal/domain"
)

// Filter 是本地（不打网络）的结果过滤条件；零值匹配全部。
type Filter struct {
	// Text 在 title/description/identifier 中做大小写不敏感的子串匹配。
	Text string
	// MediaType 与记录的 mediatype 做大小写不敏感的精确匹配。
	MediaType string
}

func (f Filter) Match(r domain.Record) bool {
	if mt := strings.TrimSpace(f.MediaType); mt != "" && !strings.EqualFold(r.MediaType(), mt) {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Text))
	if q == "" {
		return true
	}
	hay := strings.ToLower(r.Field("title") + "\n" + r.Description() + "\n" + r.Identifier())
	return strings.Contains(hay, q)
}

// Apply 返回匹配的记录（保持原顺序）。
func Apply(items []domain.Record, f Filter) []domain.Record {
	out := make([]domain.Record, 0, len(items))
	for _, it := range items {
		if f.Match(it) {
			out = append(out, it)
		}
	}
	return out
}
