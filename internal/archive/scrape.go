package archive

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/John-Robertt/iagallery/internal/domain"
)

// ScrapeRequest 是一次 scrape 翻页请求。
// 规范化（count 下限、sorts 末尾唯一键）由调用方负责，这里只负责编码。
type ScrapeRequest struct {
	Query  string
	Fields []string
	Sorts  []string
	Count  int
	Cursor string // 首页为空
}

// Page 是一页 scrape 结果；Cursor 为空表示没有下一页。
type Page struct {
	Items  []domain.Record
	Cursor string
}

type rawPage struct {
	Items  json.RawMessage `json:"items"`
	Cursor *string         `json:"cursor"`
}

// URL 返回该请求对应的完整 URL。
func (r ScrapeRequest) URL(endpoint string) string {
	q := url.Values{}
	q.Set("q", r.Query)
	if len(r.Fields) > 0 {
		q.Set("fields", strings.Join(r.Fields, ","))
	}
	if len(r.Sorts) > 0 {
		q.Set("sorts", strings.Join(r.Sorts, ","))
	}
	if r.Count > 0 {
		q.Set("count", strconv.Itoa(r.Count))
	}
	if r.Cursor != "" {
		q.Set("cursor", r.Cursor)
	}

	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	return endpoint + sep + q.Encode()
}

// FetchPage 拉取一页 scrape 结果。
// items 不是数组（或缺失）时视为空页；cursor 为 null/缺失时返回空串。
func (c *Client) FetchPage(ctx context.Context, r ScrapeRequest) (Page, error) {
	var raw rawPage
	if err := getJSON(ctx, c.HTTP, r.URL(c.scrapeEndpoint()), &raw); err != nil {
		return Page{}, err
	}

	// 逐条解码：单条不是对象时丢弃该条，不影响整页。
	var elems []json.RawMessage
	if len(raw.Items) > 0 {
		if err := json.Unmarshal(raw.Items, &elems); err != nil {
			elems = nil
		}
	}
	items := make([]domain.Record, 0, len(elems))
	for _, e := range elems {
		var rec domain.Record
		if err := json.Unmarshal(e, &rec); err != nil || rec == nil {
			continue
		}
		items = append(items, rec)
	}

	cursor := ""
	if raw.Cursor != nil {
		cursor = strings.TrimSpace(*raw.Cursor)
	}
	return Page{Items: items, Cursor: cursor}, nil
}
